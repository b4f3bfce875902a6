// Package cache provides the Redis response cache for public catalog reads.
// Reads are cached as serialized JSON under stable keys; writes invalidate.
// The cache is best-effort throughout: any Redis failure degrades to a
// database read, never to a request error.
package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a Redis-backed response cache.
type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// New connects to Redis and returns a cache with the given default TTL.
func New(redisURL string, ttl time.Duration) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewWithClient(client, ttl), nil
}

// NewWithClient wraps an existing Redis client.
func NewWithClient(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		client: client,
		prefix: "cache:",
		ttl:    ttl,
	}
}

func (c *Cache) key(name string) string {
	return c.prefix + name
}

// Get returns the cached payload for key, or ok=false on a miss. Redis
// errors count as misses.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Printf("cache get %s: %v", key, err)
		return nil, false
	}
	return data, true
}

// Set stores a payload under key with the default TTL.
func (c *Cache) Set(ctx context.Context, key string, data []byte) {
	if err := c.client.Set(ctx, c.key(key), data, c.ttl).Err(); err != nil {
		log.Printf("cache set %s: %v", key, err)
	}
}

// Delete removes the given keys. Missing keys are not an error.
func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	if err := c.client.Del(ctx, full...).Err(); err != nil {
		log.Printf("cache delete: %v", err)
	}
}

// DeletePrefix removes every key under the given prefix using SCAN, so a
// large keyspace never blocks Redis the way KEYS would.
func (c *Cache) DeletePrefix(ctx context.Context, prefix string) {
	pattern := c.key(prefix) + "*"
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Printf("cache scan %s: %v", prefix, err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Printf("cache delete prefix %s: %v", prefix, err)
	}
}

// Stats reports entry count and configured TTL for the admin cache endpoint.
type Stats struct {
	Entries int           `json:"entries"`
	TTL     time.Duration `json:"-"`
	TTLSecs int           `json:"ttlSeconds"`
}

// Stats counts live cache entries.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	count := 0
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return Stats{}, fmt.Errorf("scan cache keys: %w", err)
	}
	return Stats{Entries: count, TTL: c.ttl, TTLSecs: int(c.ttl / time.Second)}, nil
}

// Ping checks if Redis is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
