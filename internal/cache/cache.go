package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps redis.Client for the fixed-window counters used by rate limiting.
type Client struct {
	client *redis.Client
}

// New creates a new Redis client.
func New(addr, password string, db int) *Client {
	opts := &redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}
	return &Client{client: redis.NewClient(opts)}
}

// Ping checks connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("redis client not configured")
	}
	return c.client.Ping(ctx).Err()
}

// IncrWindow increments the counter for key in the window containing now and
// returns the new count plus the time left until the window closes.
// The bucket key expires shortly after its window ends.
func (c *Client) IncrWindow(ctx context.Context, key string, window time.Duration, now time.Time) (int64, time.Duration, error) {
	if c == nil || c.client == nil {
		return 0, 0, fmt.Errorf("redis client not configured")
	}
	if window < time.Second {
		window = time.Second
	}

	seconds := int64(window / time.Second)
	bucket := now.Unix() / seconds
	bucketKey := fmt.Sprintf("%s:%d", key, bucket)
	resetAt := time.Unix((bucket+1)*seconds, 0)

	count, err := c.client.Incr(ctx, bucketKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("incr %s: %w", bucketKey, err)
	}
	if count == 1 {
		if err := c.client.Expire(ctx, bucketKey, window+time.Second).Err(); err != nil {
			return 0, 0, fmt.Errorf("expire %s: %w", bucketKey, err)
		}
	}
	return count, resetAt.Sub(now), nil
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
