package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every failed round-trip to the cache service.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrNotFound is returned by Cache.Get when the key does not exist.
var ErrNotFound = errors.New("cache key not found")

// Cache is the key/value service backing sessions. Absence of a hash key is a
// valid empty result from HGetAll, never an error.
type Cache interface {
	// HGetAll returns every field of the hash at key.
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	// Persist writes fields into the hash at key, removes the named fields and
	// resets the key's expiry to ttl.
	Persist(ctx context.Context, key string, fields map[string]string, removed []string, ttl time.Duration) error
	// Get returns a plain string value or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// HSet writes fields into the hash at key without touching its expiry.
	HSet(ctx context.Context, key string, fields map[string]string) error
	// Set writes a plain string value. ttl 0 means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Del removes keys. Missing keys are not an error.
	Del(ctx context.Context, keys ...string) error
}

// RedisCache implements Cache on top of go-redis.
//
//	Performance: Persist is one MULTI/EXEC round-trip (HSET + HDEL + EXPIRE).
type RedisCache struct {
	redis redis.UniversalClient
}

// NewRedisCache returns a Cache using client.
func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{redis: client}
}

// HGetAll implements Cache.
func (c *RedisCache) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	values, err := c.redis.HGetAll(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return values, nil
}

// Persist implements Cache.
func (c *RedisCache) Persist(ctx context.Context, key string, fields map[string]string, removed []string, ttl time.Duration) error {
	_, err := c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(fields) > 0 {
			pipe.HSet(ctx, key, fields)
		}
		if len(removed) > 0 {
			pipe.HDel(ctx, key, removed...)
		}
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	v, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return v, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Del implements Cache.
func (c *RedisCache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// HSet implements Cache.
func (c *RedisCache) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	if err := c.redis.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
