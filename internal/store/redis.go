package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedis connects to redis with short timeouts.
func NewRedis(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
}

// RedisHealthy verifies redis connectivity.
func RedisHealthy(ctx context.Context, c *redis.Client) bool {
	if c == nil {
		return false
	}
	return c.Ping(ctx).Err() == nil
}
