//go:build integration

package store_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/greatwhitesecurity/opshub/internal/shortlink"
	"github.com/greatwhitesecurity/opshub/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func getRedisAddr() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}

	return "localhost:6379"
}

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: getRedisAddr()})
	t.Cleanup(func() { _ = client.Close() })

	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	return client
}

func TestRedisCacheRepositoryIntegration(t *testing.T) {
	ctx := context.Background()
	client := newRedisClient(t)

	t.Run("serves cached links after the store loses them", func(t *testing.T) {
		backing := store.NewMemoryStore()
		cache := store.NewRedisCacheRepository(backing, client, time.Hour, zap.NewNop())
		link := &shortlink.Link{Code: "RdAbC2", Target: "https://example.com", EntityID: "recJob", CreatedAt: time.Now()}

		require.NoError(t, cache.Save(ctx, link))
		t.Cleanup(func() { client.Del(ctx, "shortlink:RdAbC2") })

		require.NoError(t, backing.Delete(ctx, link.Code))

		got, err := cache.GetByCode(ctx, link.Code)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com", got.Target)
		assert.Equal(t, "recJob", got.EntityID)

		ttl, err := client.TTL(ctx, "shortlink:RdAbC2").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, 59*time.Minute)
	})

	t.Run("delete evicts the cache", func(t *testing.T) {
		cache := store.NewRedisCacheRepository(store.NewMemoryStore(), client, time.Hour, zap.NewNop())
		link := &shortlink.Link{Code: "RdDel1", Target: "https://example.com", CreatedAt: time.Now()}

		require.NoError(t, cache.Save(ctx, link))
		require.NoError(t, cache.Delete(ctx, link.Code))

		_, err := cache.GetByCode(ctx, link.Code)
		require.ErrorIs(t, err, shortlink.ErrNotFound)
	})

	t.Run("removed link stays gone after a reader refilled the cache", func(t *testing.T) {
		backing := store.NewMemoryStore()
		cache := store.NewRedisCacheRepository(backing, client, time.Hour, zap.NewNop())
		links := shortlink.NewService(cache, shortlink.MustGenerator(shortlink.UnambiguousAlphabet), time.Hour)

		link, err := links.Create(ctx, "https://pay.example/session/7", "recJob")
		require.NoError(t, err)
		t.Cleanup(func() { client.Del(ctx, "shortlink:"+string(link.Code)) })

		// a resolve racing the removal caches the row before it is deleted
		require.NoError(t, client.Del(ctx, "shortlink:"+string(link.Code)).Err())
		_, err = links.Resolve(ctx, link.Code)
		require.NoError(t, err)

		require.NoError(t, links.Remove(ctx, link.Code))

		_, err = links.Resolve(ctx, link.Code)
		require.ErrorIs(t, err, shortlink.ErrNotFound)

		exists, err := client.Exists(ctx, "shortlink:"+string(link.Code)).Result()
		require.NoError(t, err)
		assert.Zero(t, exists)
	})

	t.Run("does not cache expired links", func(t *testing.T) {
		backing := store.NewMemoryStore()
		cache := store.NewRedisCacheRepository(backing, client, time.Hour, zap.NewNop())
		link := &shortlink.Link{Code: "RdOld1", Target: "https://example.com", CreatedAt: time.Now().Add(-2 * time.Hour)}

		require.NoError(t, cache.Save(ctx, link))

		exists, err := client.Exists(ctx, "shortlink:RdOld1").Result()
		require.NoError(t, err)
		assert.Zero(t, exists)
	})
}

func TestRateLimitRedisStoreIntegration(t *testing.T) {
	ctx := context.Background()
	client := newRedisClient(t)
	s := store.NewRateLimitRedisStore(client)
	key := "it:" + time.Now().Format(time.RFC3339Nano)

	t.Cleanup(func() { client.Del(ctx, "ratelimit:"+key) })

	for want := int64(1); want <= 3; want++ {
		count, err := s.Record(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, count)
	}

	ttl, err := client.TTL(ctx, "ratelimit:"+key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
