// internal/common/database/redis.go
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"assistance-portal/internal/common/config"

	"github.com/redis/go-redis/v9"
)

// ErrKeyNotFound is returned by Inspect for an absent key.
var ErrKeyNotFound = errors.New("redis key not found")

// RedisClient holds the connection shared by the session store and the AI
// rate limiter.
type RedisClient struct {
	Client *redis.Client
}

// NewRedis creates a client. The connection is not checked; call Ping.
func NewRedis(cfg config.RedisConfig) (*RedisClient, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolSize:     20,
		MinIdleConns: 2,
	})

	return &RedisClient{Client: rdb}, nil
}

// Ping is the readiness check of the connection.
func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}

// Inspect reads a key and its remaining lifetime without touching either.
// A key without expiry reports a negative TTL.
func (c *RedisClient) Inspect(ctx context.Context, key string) ([]byte, time.Duration, error) {
	pipe := c.Client.Pipeline()
	get := pipe.Get(ctx, key)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, fmt.Errorf("inspect %s: %w", key, err)
	}

	data, err := get.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, 0, ErrKeyNotFound
	}
	if err != nil {
		return nil, 0, err
	}
	return data, ttl.Val(), nil
}
