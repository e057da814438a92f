package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Client wraps a Redis connection used for distributed coordination:
// per-identity refresh locks and single-use authorization state tokens.
type Client struct {
	rdb    *redis.Client
	config *Config
}

type Config struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("redis config is required")
	}

	if config.Address == "" {
		config.Address = "localhost:6379"
	}
	if config.PoolSize == 0 {
		config.PoolSize = 10
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
		PoolSize: config.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{
		rdb:    rdb,
		config: config,
	}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Distributed locking methods
func (c *Client) AcquireLock(ctx context.Context, key string, expiration time.Duration) (bool, error) {
	result, err := c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", key), "locked", expiration).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	return result, nil
}

func (c *Client) ReleaseLock(ctx context.Context, key string) error {
	_, err := c.rdb.Del(ctx, fmt.Sprintf("lock:%s", key)).Result()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Key-value operations for state tokens
func (c *Client) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	return c.rdb.Set(ctx, key, value, expiration).Err()
}

// GetDel atomically reads and deletes a key. Returns redis.Nil error when the
// key does not exist. Atomicity is what makes stored state tokens single-use.
func (c *Client) GetDel(ctx context.Context, key string) (string, error) {
	return c.rdb.GetDel(ctx, key).Result()
}

// IsNotFound reports whether err is the Redis missing-key sentinel.
func IsNotFound(err error) bool {
	return err == redis.Nil
}
