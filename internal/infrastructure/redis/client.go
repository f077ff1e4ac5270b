package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps the Redis client with our custom methods
type Client struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewClient creates a new Redis client
func NewClient(url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Push appends a value to the tail of a list queue
func (c *Client) Push(ctx context.Context, queue string, value interface{}) error {
	return c.rdb.LPush(ctx, queue, value).Err()
}

// Pop blocks up to timeout waiting for the next value on a list queue.
// Returns redis.Nil-wrapped error when the wait times out empty.
func (c *Client) Pop(ctx context.Context, queue string, timeout time.Duration) (string, error) {
	res, err := c.rdb.BRPop(ctx, timeout, queue).Result()
	if err != nil {
		return "", err
	}
	// BRPOP returns [key, value]
	if len(res) != 2 {
		return "", fmt.Errorf("unexpected brpop reply length %d", len(res))
	}
	return res[1], nil
}

// QueueLength returns the number of undelivered entries on a queue
func (c *Client) QueueLength(ctx context.Context, queue string) (int64, error) {
	return c.rdb.LLen(ctx, queue).Result()
}

// IsEmpty reports whether err is the empty-queue sentinel from a timed-out Pop
func IsEmpty(err error) bool {
	return err == redis.Nil
}

// Ping checks connectivity
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}
