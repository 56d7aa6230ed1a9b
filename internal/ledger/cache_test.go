package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func testCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestCacheBuildKeyEmbedsVersion(t *testing.T) {
	ctx := context.Background()
	cache := testCache(t)

	key, err := cache.BuildKey(ctx, "payroll", "preview", "2026-05")
	require.NoError(t, err)
	require.Equal(t, "payroll:preview:2026-05:1", key)
}

func TestCacheFetchJSONPopulatesOnce(t *testing.T) {
	ctx := context.Background()
	cache := testCache(t)

	key, err := cache.BuildKey(ctx, "k")
	require.NoError(t, err)

	calls := 0
	loader := func(ctx context.Context) (any, error) {
		calls++
		return map[string]string{"status": "ok"}, nil
	}

	var first map[string]string
	require.NoError(t, cache.FetchJSON(ctx, key, &first, loader))
	var second map[string]string
	require.NoError(t, cache.FetchJSON(ctx, key, &second, loader))

	require.Equal(t, 1, calls)
	require.Equal(t, first, second)
}

func TestCacheBumpInvalidates(t *testing.T) {
	ctx := context.Background()
	cache := testCache(t)

	before, err := cache.BuildKey(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, cache.Bump(ctx))
	after, err := cache.BuildKey(ctx, "k")
	require.NoError(t, err)

	require.NotEqual(t, before, after)
}

func TestCacheNilDegradesToPassThrough(t *testing.T) {
	ctx := context.Background()
	var cache *Cache

	key, err := cache.BuildKey(ctx, "a", "b")
	require.NoError(t, err)
	require.Equal(t, "a:b", key)

	calls := 0
	var out map[string]string
	loader := func(ctx context.Context) (any, error) {
		calls++
		return map[string]string{"n": "1"}, nil
	}
	require.NoError(t, cache.FetchJSON(ctx, key, &out, loader))
	require.NoError(t, cache.FetchJSON(ctx, key, &out, loader))
	require.Equal(t, 2, calls)
	require.NoError(t, cache.Bump(ctx))
}
