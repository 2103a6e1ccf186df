package store

import (
	"context"
	"strconv"
	"time"

	"github.com/greatwhitesecurity/opshub/internal/shortlink"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisCacheRepository wraps a shortlink.Repository with a Redis read cache.
// Cached entries expire when the link would, so the cache never resolves a
// link the underlying store has swept.
type RedisCacheRepository struct {
	store     shortlink.Repository
	client    *redis.Client
	prefix    string
	retention time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// NewRedisCacheRepository creates a Redis-cached repository decorator.
func NewRedisCacheRepository(
	store shortlink.Repository, client *redis.Client, retention time.Duration, logger *zap.Logger,
) *RedisCacheRepository {
	return &RedisCacheRepository{
		store:     store,
		client:    client,
		prefix:    "shortlink:",
		retention: retention,
		now:       time.Now,
		logger:    logger,
	}
}

// Save stores the link and writes it through to the cache.
func (r *RedisCacheRepository) Save(ctx context.Context, link *shortlink.Link) error {
	if err := r.store.Save(ctx, link); err != nil {
		return err
	}

	r.cacheLink(ctx, link)

	return nil
}

// GetByCode checks the cache before the underlying store.
func (r *RedisCacheRepository) GetByCode(ctx context.Context, code shortlink.Code) (*shortlink.Link, error) {
	if link, err := r.getFromCache(ctx, code); err == nil {
		return link, nil
	}

	link, err := r.store.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	r.cacheLink(ctx, link)

	return link, nil
}

// Delete removes the link and then evicts the cache entry. A reader that
// repopulated the cache before the store delete is evicted too. Eviction
// failures are logged; the cached copy then lives until its TTL.
func (r *RedisCacheRepository) Delete(ctx context.Context, code shortlink.Code) error {
	if err := r.store.Delete(ctx, code); err != nil {
		return err
	}

	if err := r.client.Del(ctx, r.prefix+string(code)).Err(); err != nil {
		r.logger.Warn("failed to evict short link from cache", zap.String("code", string(code)), zap.Error(err))
	}

	return nil
}

func (r *RedisCacheRepository) List(ctx context.Context) ([]*shortlink.Link, error) {
	return r.store.List(ctx)
}

// DeleteCreatedBefore sweeps the underlying store. Cached copies have already
// expired through their TTL.
func (r *RedisCacheRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return r.store.DeleteCreatedBefore(ctx, cutoff)
}

func (r *RedisCacheRepository) getFromCache(ctx context.Context, code shortlink.Code) (*shortlink.Link, error) {
	result, err := r.client.HGetAll(ctx, r.prefix+string(code)).Result()
	if err != nil {
		return nil, err
	}

	if len(result) == 0 {
		return nil, shortlink.ErrNotFound
	}

	var createdAt time.Time

	if ts, ok := result["created_at"]; ok {
		if nanos, err := strconv.ParseInt(ts, 10, 64); err == nil {
			createdAt = time.Unix(0, nanos)
		}
	}

	return &shortlink.Link{
		Code:      shortlink.Code(result["code"]),
		Target:    result["target"],
		EntityID:  result["entity_id"],
		CreatedAt: createdAt,
	}, nil
}

func (r *RedisCacheRepository) cacheLink(ctx context.Context, link *shortlink.Link) {
	ttl := r.retention - r.now().Sub(link.CreatedAt)
	if r.retention > 0 && ttl <= 0 {
		return
	}

	key := r.prefix + string(link.Code)
	pipe := r.client.Pipeline()

	pipe.HSet(ctx, key, map[string]any{
		"code":       string(link.Code),
		"target":     link.Target,
		"entity_id":  link.EntityID,
		"created_at": link.CreatedAt.UnixNano(),
	})

	if r.retention > 0 {
		pipe.Expire(ctx, key, ttl)
	}

	_, _ = pipe.Exec(ctx)
}

// Compile-time check.
var _ shortlink.Repository = (*RedisCacheRepository)(nil)
