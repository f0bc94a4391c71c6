package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 10 * time.Minute

// RedisCache keeps loaded tests in Redis so session starts skip Postgres.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Cache = (*RedisCache)(nil)

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

func cacheKey(testID string) string {
	return "catalog:test:" + testID
}

func (c *RedisCache) Get(ctx context.Context, testID string) (*Test, error) {
	data, err := c.client.Get(ctx, cacheKey(testID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var t Test
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *RedisCache) Set(ctx context.Context, testID string, t Test) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(testID), data, c.ttl).Err()
}

// Invalidate drops a cached test after it is edited.
func (c *RedisCache) Invalidate(ctx context.Context, testID string) error {
	return c.client.Del(ctx, cacheKey(testID)).Err()
}
