package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lista-crm/sites-platform/internal/infra/cache"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name string `json:"name"`
}

func TestLookupCachesPositiveResult(t *testing.T) {
	ctx := context.Background()
	aside := cache.NewCacheAside[record](cache.NewMemoryCache(), 300*time.Second, 60*time.Second)

	loads := 0
	load := func(context.Context) (*record, error) {
		loads++
		return &record{Name: "acme"}, nil
	}

	first, err := aside.Lookup(ctx, "k", load)
	require.NoError(t, err)
	require.Equal(t, "acme", first.Name)

	second, err := aside.Lookup(ctx, "k", load)
	require.NoError(t, err)
	require.Equal(t, "acme", second.Name)

	require.Equal(t, 1, loads, "expected second lookup to be served from cache")
}

func TestLookupCachesNegativeResult(t *testing.T) {
	ctx := context.Background()
	aside := cache.NewCacheAside[record](cache.NewMemoryCache(), 300*time.Second, 60*time.Second)

	loads := 0
	load := func(context.Context) (*record, error) {
		loads++
		return nil, nil
	}

	for i := 0; i < 3; i++ {
		value, err := aside.Lookup(ctx, "missing", load)
		require.NoError(t, err)
		require.Nil(t, value)
	}

	require.Equal(t, 1, loads, "expected repeated misses to hit the tombstone")
}

func TestLookupNegativeEntryExpires(t *testing.T) {
	ctx := context.Background()
	memory := cache.NewMemoryCache()
	now := time.Now()
	memory.SetClock(func() time.Time { return now })
	aside := cache.NewCacheAside[record](memory, 300*time.Second, 60*time.Second)

	loads := 0
	load := func(context.Context) (*record, error) {
		loads++
		return nil, nil
	}

	_, err := aside.Lookup(ctx, "missing", load)
	require.NoError(t, err)
	require.Equal(t, 1, loads)

	now = now.Add(61 * time.Second)
	_, err = aside.Lookup(ctx, "missing", load)
	require.NoError(t, err)
	require.Equal(t, 2, loads, "expected the tombstone to expire after the negative TTL")
}

func TestLookupLoaderErrorIsNotCached(t *testing.T) {
	ctx := context.Background()
	memory := cache.NewMemoryCache()
	aside := cache.NewCacheAside[record](memory, 300*time.Second, 60*time.Second)

	loads := 0
	load := func(context.Context) (*record, error) {
		loads++
		if loads == 1 {
			return nil, errors.New("store down")
		}
		return &record{Name: "acme"}, nil
	}

	_, err := aside.Lookup(ctx, "k", load)
	require.Error(t, err)

	value, err := aside.Lookup(ctx, "k", load)
	require.NoError(t, err)
	require.Equal(t, "acme", value.Name)
	require.Equal(t, 2, loads)
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("redis down")
}

func (brokenCache) Set(context.Context, string, string, time.Duration) error {
	return errors.New("redis down")
}

func (brokenCache) Del(context.Context, ...string) error {
	return errors.New("redis down")
}

func TestLookupFallsThroughWhenCacheIsDown(t *testing.T) {
	ctx := context.Background()
	aside := cache.NewCacheAside[record](brokenCache{}, 300*time.Second, 60*time.Second)

	value, err := aside.Lookup(ctx, "k", func(context.Context) (*record, error) {
		return &record{Name: "acme"}, nil
	})
	require.NoError(t, err)
	require.Equal(t, "acme", value.Name)

	aside.Invalidate(ctx, "k")
}

func TestInvalidateDropsEntry(t *testing.T) {
	ctx := context.Background()
	aside := cache.NewCacheAside[record](cache.NewMemoryCache(), 300*time.Second, 60*time.Second)

	loads := 0
	load := func(context.Context) (*record, error) {
		loads++
		return &record{Name: "acme"}, nil
	}

	_, err := aside.Lookup(ctx, "k", load)
	require.NoError(t, err)

	aside.Invalidate(ctx, "k")

	_, err = aside.Lookup(ctx, "k", load)
	require.NoError(t, err)
	require.Equal(t, 2, loads)
}
