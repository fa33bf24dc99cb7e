package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// CacheStore implements ports.CacheStore on Redis strings with TTLs.
type CacheStore struct {
	client *goredis.Client
	prefix string
}

// NewCacheStore creates a Redis-backed cache store. Keys are namespaced by prefix.
func NewCacheStore(client *goredis.Client, prefix string) *CacheStore {
	return &CacheStore{client: client, prefix: prefix}
}

// Get returns nil, nil if the key does not exist.
func (c *CacheStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis cache get: %w", err)
	}
	return val, nil
}

func (c *CacheStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis cache set: %w", err)
	}
	return nil
}

func (c *CacheStore) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis cache delete: %w", err)
	}
	return nil
}

// Enabled is always true for the Redis tier.
func (c *CacheStore) Enabled() bool {
	return true
}
