package catalog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront/internal/catalog"
)

func newCache(t *testing.T) (*catalog.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return catalog.NewCache(rdb, time.Minute), mr
}

func TestCacheFetchReadsThrough(t *testing.T) {
	cache, mr := newCache(t)
	ctx := context.Background()
	loads := 0
	load := func(dst *[]string) func(context.Context) error {
		return func(context.Context) error {
			loads++
			*dst = []string{"Electronics", "Clothing"}
			return nil
		}
	}

	var first []string
	hit, err := cache.Fetch(ctx, "categories", &first, load(&first))
	require.NoError(t, err)
	require.False(t, hit)

	var second []string
	hit, err = cache.Fetch(ctx, "categories", &second, load(&second))
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, first, second)
	require.Equal(t, 1, loads)
	require.Equal(t, time.Minute, mr.TTL("catalog:v1:categories"))
}

func TestCacheFetchReplacesCorruptEntry(t *testing.T) {
	cache, mr := newCache(t)
	require.NoError(t, mr.Set("catalog:v1:categories", "{not json"))

	var got []string
	hit, err := cache.Fetch(context.Background(), "categories", &got, func(context.Context) error {
		got = []string{"Home"}
		return nil
	})
	require.NoError(t, err)
	require.False(t, hit)
	stored, err := mr.Get("catalog:v1:categories")
	require.NoError(t, err)
	require.JSONEq(t, `["Home"]`, stored)
}

func TestCacheFetchDoesNotStoreFailures(t *testing.T) {
	cache, mr := newCache(t)
	boom := errors.New("upstream down")

	var got []string
	_, err := cache.Fetch(context.Background(), "categories", &got, func(context.Context) error { return boom })
	require.ErrorIs(t, err, boom)
	require.False(t, mr.Exists("catalog:v1:categories"))
}

func TestNilCacheLoadsDirectly(t *testing.T) {
	var cache *catalog.Cache
	called := false
	hit, err := cache.Fetch(context.Background(), "k", new(int), func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	require.False(t, hit)
	require.True(t, called)
}
