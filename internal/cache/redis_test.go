package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestPrefixedKeyNormalisesColons(t *testing.T) {
	require.Equal(t, "campus:lease:p1", prefixedKey("lease::p1"))
	require.Equal(t, "campus:rl:x", prefixedKey("campus:rl:x"))
	require.Equal(t, "campus:a", prefixedKey(":a"))
}

func TestNewRedisStoreRequiresAddress(t *testing.T) {
	_, err := NewRedisStore(context.Background(), RedisConfig{})
	require.Error(t, err)
}

// TestRedisStoreAgainstServer runs when CAMPUS_TEST_REDIS_ADDR points at a live server.
func TestRedisStoreAgainstServer(t *testing.T) {
	addr := os.Getenv("CAMPUS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CAMPUS_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()

	store, err := NewRedisStore(ctx, RedisConfig{Address: addr, Timeout: 2 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	key := "test:" + uuid.NewString()
	t.Cleanup(func() { _ = store.Delete(ctx, key) })

	ok, err := store.SetIfAbsent(ctx, key, []byte("a"), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.SetIfAbsent(ctx, key, []byte("b"), time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	deleted, err := store.CompareAndDelete(ctx, key, []byte("b"))
	require.NoError(t, err)
	require.False(t, deleted)

	deleted, err = store.CompareAndDelete(ctx, key, []byte("a"))
	require.NoError(t, err)
	require.True(t, deleted)

	count, ttl, err := store.IncrementWithTTL(ctx, key, time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Greater(t, ttl, time.Duration(0))
}
