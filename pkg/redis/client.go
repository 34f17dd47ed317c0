package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wonny/tradegate/pkg/config"
)

// Client wraps the Redis client. A disabled client turns every cache call into a no-op.
// ⭐ SSOT: Redis connections are created only here
type Client struct {
	rdb     *redis.Client
	enabled bool
}

// New creates a new Redis client
func New(cfg *config.Config) (*Client, error) {
	if !cfg.Redis.Enabled {
		return &Client{enabled: false}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &Client{
		rdb:     rdb,
		enabled: true,
	}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

// Enabled returns whether Redis is enabled
func (c *Client) Enabled() bool {
	return c.enabled
}

// Redis returns the underlying redis client for advanced usage
func (c *Client) Redis() *redis.Client {
	return c.rdb
}
