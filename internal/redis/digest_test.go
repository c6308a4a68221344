package redis_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/rueidis"
	"github.com/robalyx/imagegate/internal/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTest(t *testing.T, ttl time.Duration) (*redis.DigestCache, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)

	logger, _ := zap.NewDevelopment()
	cache := redis.NewDigestCache(client, ttl, logger)

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return cache, mr, cleanup
}

func TestDigestCache(t *testing.T) {
	t.Parallel()

	t.Run("miss then hit", func(t *testing.T) {
		t.Parallel()
		cache, _, cleanup := setupTest(t, time.Hour)
		defer cleanup()

		ctx := t.Context()
		_, ok, err := cache.Lookup(ctx, "abc")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, cache.Remember(ctx, "abc", "upload-1"))
		uploadID, ok, err := cache.Lookup(ctx, "abc")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "upload-1", uploadID)
	})

	t.Run("newer entry replaces older", func(t *testing.T) {
		t.Parallel()
		cache, _, cleanup := setupTest(t, time.Hour)
		defer cleanup()

		ctx := t.Context()
		require.NoError(t, cache.Remember(ctx, "abc", "upload-1"))
		require.NoError(t, cache.Remember(ctx, "abc", "upload-2"))

		uploadID, ok, err := cache.Lookup(ctx, "abc")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "upload-2", uploadID)
	})

	t.Run("entries expire", func(t *testing.T) {
		t.Parallel()
		cache, mr, cleanup := setupTest(t, time.Hour)
		defer cleanup()

		ctx := t.Context()
		require.NoError(t, cache.Remember(ctx, "abc", "upload-1"))
		mr.FastForward(2 * time.Hour)

		_, ok, err := cache.Lookup(ctx, "abc")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("forget", func(t *testing.T) {
		t.Parallel()
		cache, _, cleanup := setupTest(t, 0)
		defer cleanup()

		ctx := t.Context()
		require.NoError(t, cache.Remember(ctx, "abc", "upload-1"))
		require.NoError(t, cache.Forget(ctx, "abc"))

		_, ok, err := cache.Lookup(ctx, "abc")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
