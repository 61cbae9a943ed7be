package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Set CONNECTOR_TEST_REDIS_ADDR (e.g. localhost:6379) to run against a live Redis.
func TestRedisIdempotencyStore(t *testing.T) {
	addr := os.Getenv("CONNECTOR_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CONNECTOR_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()

	store, err := NewRedisIdempotencyStore(ctx, RedisConfig{Addr: addr, KeyPrefix: "bc-connector-test:"})
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Ping(ctx))

	id := uuid.NewString()
	processed, err := store.IsProcessed(ctx, id)
	require.NoError(t, err)
	assert.False(t, processed)

	marked, err := store.MarkProcessed(ctx, id, time.Minute)
	require.NoError(t, err)
	assert.True(t, marked)

	marked, err = store.MarkProcessed(ctx, id, time.Minute)
	require.NoError(t, err)
	assert.False(t, marked)

	processed, err = store.IsProcessed(ctx, id)
	require.NoError(t, err)
	assert.True(t, processed)
}
