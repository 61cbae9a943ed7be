package cache

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tradecloud/bc-connector/internal/domain/integration"
)

// Backend names accepted by NewIdempotencyStore.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// StoreOptions selects and configures an idempotency store.
type StoreOptions struct {
	Backend string
	Redis   RedisConfig
	// AllowInMemoryFallback uses the in-memory store when Redis is unreachable.
	AllowInMemoryFallback bool
	Logger                *zap.Logger
}

// NewIdempotencyStore builds the store named by opts.Backend.
func NewIdempotencyStore(ctx context.Context, opts StoreOptions) (integration.IdempotencyStore, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	switch opts.Backend {
	case BackendMemory, "":
		logger.Info("Using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(), nil
	case BackendRedis:
	default:
		return nil, fmt.Errorf("cache: unknown idempotency backend %q", opts.Backend)
	}

	store, err := NewRedisIdempotencyStore(ctx, opts.Redis)
	if err == nil {
		logger.Info("Using Redis idempotency store", zap.String("addr", opts.Redis.Addr))
		return store, nil
	}
	if !opts.AllowInMemoryFallback {
		return nil, fmt.Errorf("redis required for idempotency but unavailable: %w", err)
	}
	logger.Warn("Redis unavailable, falling back to in-memory idempotency store; "+
		"duplicates across instances will not be detected",
		zap.Error(err),
	)
	return NewInMemoryIdempotencyStore(), nil
}
