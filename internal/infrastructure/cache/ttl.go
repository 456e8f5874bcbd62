package cache

import (
	"context"
	"errors"
	"time"

	"github.com/coocood/freecache"
	"github.com/go-redis/redis/v8"
)

// RedisTTLCache is a flag store with expiry on Redis, shared by every API instance.
type RedisTTLCache struct {
	client *redis.Client
	prefix string
}

func NewRedisTTLCache(client *redis.Client, prefix string) *RedisTTLCache {
	return &RedisTTLCache{client: client, prefix: prefix}
}

func (c *RedisTTLCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, c.prefix+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *RedisTTLCache) SetWithTTL(ctx context.Context, key string, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+key, "1", ttl).Err()
}

// MemoryTTLCache keeps flags in process memory. Used for single-instance deployments and tests.
type MemoryTTLCache struct {
	cache *freecache.Cache
}

// NewMemoryTTLCache allocates a freecache of sizeBytes (minimum 512KB).
func NewMemoryTTLCache(sizeBytes int) *MemoryTTLCache {
	return &MemoryTTLCache{cache: freecache.NewCache(sizeBytes)}
}

func (c *MemoryTTLCache) Exists(_ context.Context, key string) (bool, error) {
	_, err := c.cache.Get([]byte(key))
	if errors.Is(err, freecache.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *MemoryTTLCache) SetWithTTL(_ context.Context, key string, ttl time.Duration) error {
	seconds := int(ttl / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return c.cache.Set([]byte(key), []byte{1}, seconds)
}
