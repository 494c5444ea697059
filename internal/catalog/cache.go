package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/storefront/internal/obs"
)

const cachePrefix = "catalog:v1:"

// Cache is a read-through JSON cache for remote catalog reads. A nil Cache or
// one without a client loads straight through. Redis trouble degrades to a
// miss; it never fails the read.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache. Non-positive TTLs default to five minutes.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

// Fetch fills dst from key, calling load on a miss and storing what it wrote
// to dst. hit reports whether the value came from Redis.
func (c *Cache) Fetch(ctx context.Context, key string, dst any, load func(context.Context) error) (hit bool, err error) {
	if c == nil || c.client == nil {
		return false, load(ctx)
	}
	if c.read(ctx, key, dst) {
		return true, nil
	}
	if err := load(ctx); err != nil {
		return false, err
	}
	if data, err := json.Marshal(dst); err == nil {
		if err := c.client.Set(ctx, cachePrefix+key, data, c.ttl).Err(); err != nil {
			obs.IncCounter(obs.CatalogCacheTotal, "error")
		}
	}
	return false, nil
}

func (c *Cache) read(ctx context.Context, key string, dst any) bool {
	data, err := c.client.Get(ctx, cachePrefix+key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		obs.IncCounter(obs.CatalogCacheTotal, "miss")
		return false
	case err != nil:
		obs.IncCounter(obs.CatalogCacheTotal, "error")
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		// unreadable entry; drop it so the reload replaces it
		_ = c.client.Del(ctx, cachePrefix+key).Err()
		obs.IncCounter(obs.CatalogCacheTotal, "corrupt")
		return false
	}
	obs.IncCounter(obs.CatalogCacheTotal, "hit")
	return true
}
