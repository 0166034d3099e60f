package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"PageviewLabeler/internal/config"
	"PageviewLabeler/internal/ports"
)

// RedisCache shares fetched descriptions between hosts through Redis.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ ports.DescriptionCache = (*RedisCache)(nil)

type redisEntry struct {
	Description string `json:"description"`
	Missing     bool   `json:"missing,omitempty"`
}

// NewRedisCache connects using the configured address.
func NewRedisCache(cfg config.RedisConfig) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisCacheWithClient(client, cfg.KeyPrefix, cfg.TTL)
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

// Ping checks connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) key(qid string) string {
	return c.prefix + qid
}

// Get reads the entry for qid; redis.Nil is a miss.
func (c *RedisCache) Get(ctx context.Context, qid string) (ports.CachedDescription, bool, error) {
	raw, err := c.client.Get(ctx, c.key(qid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ports.CachedDescription{}, false, nil
	}
	if err != nil {
		return ports.CachedDescription{}, false, fmt.Errorf("redis get %s: %w", qid, err)
	}
	var entry redisEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return ports.CachedDescription{}, false, fmt.Errorf("decode cached %s: %w", qid, err)
	}
	return ports.CachedDescription{QID: qid, Description: entry.Description, Missing: entry.Missing}, true, nil
}

// Put stores the entry with the configured TTL (zero keeps it forever).
func (c *RedisCache) Put(ctx context.Context, entry ports.CachedDescription) error {
	raw, err := json.Marshal(redisEntry{Description: entry.Description, Missing: entry.Missing})
	if err != nil {
		return fmt.Errorf("encode cached %s: %w", entry.QID, err)
	}
	if err := c.client.Set(ctx, c.key(entry.QID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", entry.QID, err)
	}
	return nil
}
