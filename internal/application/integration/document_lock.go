package integration

import (
	"context"
	"sync"
)

// DocumentLocks serializes work per document number. Entries are dropped
// once no caller holds or waits for them.
type DocumentLocks struct {
	mu    sync.Mutex
	locks map[string]*documentLock
}

type documentLock struct {
	ch   chan struct{}
	refs int
}

// NewDocumentLocks creates an empty lock table.
func NewDocumentLocks() *DocumentLocks {
	return &DocumentLocks{locks: make(map[string]*documentLock)}
}

// Lock blocks until documentNo is free or ctx is done. The returned func
// releases the lock and must be called exactly once.
func (l *DocumentLocks) Lock(ctx context.Context, documentNo string) (func(), error) {
	l.mu.Lock()
	dl, ok := l.locks[documentNo]
	if !ok {
		dl = &documentLock{ch: make(chan struct{}, 1)}
		l.locks[documentNo] = dl
	}
	dl.refs++
	l.mu.Unlock()

	select {
	case dl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(documentNo, dl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-dl.ch
			l.release(documentNo, dl)
		})
	}, nil
}

func (l *DocumentLocks) release(documentNo string, dl *documentLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	dl.refs--
	if dl.refs == 0 {
		delete(l.locks, documentNo)
	}
}

// Len returns the number of documents currently locked or awaited.
func (l *DocumentLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
