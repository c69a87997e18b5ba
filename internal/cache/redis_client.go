package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/crisk-annotate/internal/models"
)

// RedisStore shares annotation records between machines through Redis
type RedisStore struct {
	client *redis.Client
	logger *logrus.Entry
	ttl    time.Duration // 0 = no expiry
}

// NewRedisStore creates a Redis-backed store from connection parameters
func NewRedisStore(ctx context.Context, host string, port int, password string, ttl time.Duration, logger *logrus.Logger) (*RedisStore, error) {
	if host == "" {
		return nil, fmt.Errorf("redis host missing")
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password, // Empty string if no password
		DB:       0,
	})

	// Verify connectivity (fail fast on startup)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	entry := logger.WithField("component", "redis")
	entry.WithField("addr", addr).Info("redis client connected")

	return &RedisStore{
		client: client,
		logger: entry,
		ttl:    ttl,
	}, nil
}

// Close closes the Redis client connection
func (c *RedisStore) Close() error {
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}
	c.logger.Info("redis client closed")
	return nil
}

// HealthCheck verifies Redis connectivity
func (c *RedisStore) HealthCheck(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// Get retrieves a cached record. A miss is not an error.
func (c *RedisStore) Get(ctx context.Context, file string) (*models.CacheEntry, bool, error) {
	key := AnnotationKey(file)
	val, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		c.logger.WithField("key", key).Debug("cache miss")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed for key %s: %w", key, err)
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(val, &entry); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached value for key %s: %w", key, err)
	}

	c.logger.WithField("key", key).Debug("cache hit")
	return &entry, true, nil
}

// Put stores a record with the store's TTL
func (c *RedisStore) Put(ctx context.Context, file string, entry *models.CacheEntry) error {
	key := AnnotationKey(file)
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal value for key %s: %w", key, err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed for key %s: %w", key, err)
	}

	c.logger.WithFields(logrus.Fields{"key": key, "ttl": c.ttl}).Debug("cache set")
	return nil
}

// Delete removes a key from cache
func (c *RedisStore) Delete(ctx context.Context, file string) error {
	key := AnnotationKey(file)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete failed for key %s: %w", key, err)
	}
	return nil
}

// Clear deletes every annotation record
func (c *RedisStore) Clear(ctx context.Context) error {
	_, err := c.DeletePattern(ctx, AnnotationKey("*"))
	return err
}

// DeletePattern deletes all keys matching a pattern
func (c *RedisStore) DeletePattern(ctx context.Context, pattern string) (int64, error) {
	var cursor uint64
	var keys []string

	for {
		var batch []string
		var err error
		batch, cursor, err = c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return 0, fmt.Errorf("redis scan failed for pattern %s: %w", pattern, err)
		}

		keys = append(keys, batch...)

		if cursor == 0 {
			break
		}
	}

	if len(keys) == 0 {
		c.logger.WithField("pattern", pattern).Debug("no keys matched pattern")
		return 0, nil
	}

	deleted, err := c.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis delete failed for pattern %s: %w", pattern, err)
	}

	c.logger.WithFields(logrus.Fields{"pattern": pattern, "deleted": deleted}).Info("cache pattern delete")
	return deleted, nil
}
