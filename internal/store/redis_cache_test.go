package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/greatwhitesecurity/opshub/internal/shortlink"
	"github.com/greatwhitesecurity/opshub/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// unreachableRedis returns a client whose every command fails to connect.
func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestRedisCacheRepositoryDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes the link when the cache is down", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		backing := store.NewMemoryStore()
		cache := store.NewRedisCacheRepository(backing, unreachableRedis(t), time.Hour, zap.New(core))
		links := shortlink.NewService(cache, shortlink.MustGenerator(shortlink.UnambiguousAlphabet), time.Hour)

		link, err := links.Create(ctx, "https://pay.example/session/9", "recJob")
		require.NoError(t, err)

		require.NoError(t, links.Remove(ctx, link.Code))

		_, err = backing.GetByCode(ctx, link.Code)
		require.ErrorIs(t, err, shortlink.ErrNotFound)

		_, err = links.Resolve(ctx, link.Code)
		require.ErrorIs(t, err, shortlink.ErrNotFound)

		require.Equal(t, 1, logs.FilterMessage("failed to evict short link from cache").Len())
		assert.Equal(t, string(link.Code), logs.All()[0].ContextMap()["code"])
	})
}
