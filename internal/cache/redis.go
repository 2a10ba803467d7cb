package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "flavormonk:cache"

// RedisCache stores entries in Redis. Each scope has a generation counter
// that is part of every entry key, so invalidation is a single INCR.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) generation(ctx context.Context, scope string) (uint64, error) {
	v, err := c.client.Get(ctx, genKey(scope)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read cache generation: %w", err)
	}
	gen, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid cache generation %q: %w", v, err)
	}
	return gen, nil
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, scope, key string) ([]byte, bool, error) {
	gen, err := c.generation(ctx, scope)
	if err != nil {
		return nil, false, err
	}
	data, err := c.client.Get(ctx, dataKey(scope, gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}
	return data, true, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, scope, key string, value []byte, ttl time.Duration) error {
	gen, err := c.generation(ctx, scope)
	if err != nil {
		return err
	}
	return c.SetAt(ctx, scope, gen, key, value, ttl)
}

// Generation implements Cache.
func (c *RedisCache) Generation(ctx context.Context, scope string) (uint64, error) {
	return c.generation(ctx, scope)
}

// SetAt implements Cache. An entry written for an old generation lands
// under a key no reader builds and expires with its ttl.
func (c *RedisCache) SetAt(ctx context.Context, scope string, gen uint64, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, dataKey(scope, gen, key), value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// InvalidateScope implements Cache.
func (c *RedisCache) InvalidateScope(ctx context.Context, scope string) error {
	if err := c.client.Incr(ctx, genKey(scope)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cache scope: %w", err)
	}
	return nil
}

func genKey(scope string) string {
	return fmt.Sprintf("%s:gen:%s", keyPrefix, scope)
}

func dataKey(scope string, gen uint64, key string) string {
	return fmt.Sprintf("%s:%s", keyPrefix, versionedKey(scope, gen, key))
}

func versionedKey(scope string, gen uint64, key string) string {
	return fmt.Sprintf("%s:%d:%s", scope, gen, key)
}
