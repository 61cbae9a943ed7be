package cache

import (
	"context"
	"sync"
	"time"

	"github.com/tradecloud/bc-connector/internal/domain/integration"
)

// DefaultSweepInterval is how often expired ids are dropped.
const DefaultSweepInterval = 5 * time.Minute

// InMemoryIdempotencyStore keeps processed message ids in process memory.
// It does not share state between instances.
type InMemoryIdempotencyStore struct {
	mu        sync.RWMutex
	expiry    map[string]time.Time
	now       func() time.Time
	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// InMemoryOption configures an InMemoryIdempotencyStore.
type InMemoryOption func(*inMemoryOptions)

type inMemoryOptions struct {
	now   func() time.Time
	sweep time.Duration
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) InMemoryOption {
	return func(o *inMemoryOptions) { o.now = now }
}

// WithSweepInterval sets how often expired ids are dropped; zero disables sweeping.
func WithSweepInterval(d time.Duration) InMemoryOption {
	return func(o *inMemoryOptions) { o.sweep = d }
}

// NewInMemoryIdempotencyStore creates the store and starts its sweeper.
func NewInMemoryIdempotencyStore(opts ...InMemoryOption) *InMemoryIdempotencyStore {
	o := inMemoryOptions{now: time.Now, sweep: DefaultSweepInterval}
	for _, opt := range opts {
		opt(&o)
	}
	s := &InMemoryIdempotencyStore{
		expiry: make(map[string]time.Time),
		now:    o.now,
		stop:   make(chan struct{}),
	}
	if o.sweep > 0 {
		s.wg.Add(1)
		go s.sweepLoop(o.sweep)
	}
	return s
}

// MarkProcessed records eventID until ttl elapses and reports whether it
// was newly recorded.
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, eventID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if exp, ok := s.expiry[eventID]; ok && now.Before(exp) {
		return false, nil
	}
	s.expiry[eventID] = now.Add(ttl)
	return true, nil
}

// IsProcessed reports whether eventID is recorded and unexpired.
func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, eventID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exp, ok := s.expiry[eventID]
	return ok && s.now().Before(exp), nil
}

// Close stops the sweeper. Safe to call multiple times.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()
	})
	return nil
}

// Size returns the number of recorded ids, expired or not.
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.expiry)
}

// Sweep drops expired ids.
func (s *InMemoryIdempotencyStore) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, exp := range s.expiry {
		if !now.Before(exp) {
			delete(s.expiry, id)
		}
	}
}

func (s *InMemoryIdempotencyStore) sweepLoop(every time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

var _ integration.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
