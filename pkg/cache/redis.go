package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/decrepit/pkg/observability"
)

// DefaultRedisPrefix namespaces decrepit's keys in a shared Redis database.
const DefaultRedisPrefix = "decrepit:"

const (
	fieldToken   = "token"
	fieldPayload = "payload"
)

// RedisConfig configures a [RedisCache].
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // defaults to DefaultRedisPrefix
}

// RedisCache stores each entry as one Redis hash with "token" and "payload"
// fields. A single HSET replaces both fields atomically, so several hosts
// can share a cache without torn reads.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects to Redis and verifies the connection with PING.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultRedisPrefix
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}
	return &RedisCache{client: client, prefix: cfg.Prefix}, nil
}

// Load reads the hash stored under key. An empty hash is a miss.
func (c *RedisCache) Load(ctx context.Context, key string) (Entry, bool, error) {
	if err := validateKey(key); err != nil {
		return Entry{}, false, err
	}
	m, err := c.client.HGetAll(ctx, c.prefix+key).Result()
	if err != nil {
		return Entry{}, false, fmt.Errorf("redis hgetall: %w", err)
	}
	token, hasToken := m[fieldToken]
	payload, hasPayload := m[fieldPayload]
	if !hasToken || !hasPayload {
		observability.Cache().OnCacheMiss(ctx, key)
		return Entry{}, false, nil
	}
	observability.Cache().OnCacheHit(ctx, key)
	return Entry{Token: token, Payload: []byte(payload)}, true, nil
}

// Save replaces the hash stored under key.
func (c *RedisCache) Save(ctx context.Context, key string, e Entry) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := c.client.HSet(ctx, c.prefix+key, fieldToken, e.Token, fieldPayload, e.Payload).Err(); err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	observability.Cache().OnCacheSet(ctx, key, len(e.Payload))
	return nil
}

// Delete removes the hash stored under key.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	return c.client.Del(ctx, c.prefix+key).Err()
}

// Clear deletes every key under the cache prefix.
func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// Close closes the Redis connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ensure RedisCache implements Cache.
var _ Cache = (*RedisCache)(nil)
