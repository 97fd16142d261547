package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// tombstone marks a cached negative result so repeated misses for the same
// key stay off the store for the negative TTL window.
const tombstone = "tombstone"

// CacheAside is a read-through lookup with positive and negative TTLs in
// front of a loader. The cache is best-effort: a failed read falls through to
// the loader and a failed write is logged, neither ever fails the lookup.
type CacheAside[V any] struct {
	cache       Cache
	positiveTTL time.Duration
	negativeTTL time.Duration
}

func NewCacheAside[V any](cache Cache, positiveTTL, negativeTTL time.Duration) *CacheAside[V] {
	return &CacheAside[V]{
		cache:       cache,
		positiveTTL: positiveTTL,
		negativeTTL: negativeTTL,
	}
}

// Lookup resolves key through the cache, calling load on a miss. A loader
// returning (nil, nil) means "not found" and is cached as a tombstone.
// A loader error is returned as-is and nothing is cached.
func (c *CacheAside[V]) Lookup(ctx context.Context, key string, load func(context.Context) (*V, error)) (*V, error) {
	cached, found, err := c.cache.Get(ctx, key)
	if err != nil {
		slog.Error("cache read failed, falling through to store", "key", key, "err", err)
	} else if found {
		if cached == tombstone {
			return nil, nil
		}
		var value V
		if err := json.Unmarshal([]byte(cached), &value); err == nil {
			return &value, nil
		}
		slog.Error("corrupt cache entry, falling through to store", "key", key)
	}

	value, err := load(ctx)
	if err != nil {
		return nil, err
	}

	if value == nil {
		if err := c.cache.Set(ctx, key, tombstone, c.negativeTTL); err != nil {
			slog.Error("cache write failed", "key", key, "err", err)
		}
		return nil, nil
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		slog.Error("cache encode failed", "key", key, "err", err)
		return value, nil
	}
	if err := c.cache.Set(ctx, key, string(encoded), c.positiveTTL); err != nil {
		slog.Error("cache write failed", "key", key, "err", err)
	}
	return value, nil
}

// Invalidate drops keys best-effort, for use after a publish repoints a site.
func (c *CacheAside[V]) Invalidate(ctx context.Context, keys ...string) {
	if err := c.cache.Del(ctx, keys...); err != nil {
		slog.Error("cache invalidation failed", "keys", keys, "err", err)
	}
}
