// Package ratelimit implements a fixed-window request limiter on Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewClient parses url, configures the connection pool and pings the server.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.PoolSize = 20
	opts.MinIdleConns = 2
	opts.MaxRetries = 3

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Limiter allows at most limit calls per key within each window. The window starts at the
// first call for a key and is tracked by the key's TTL.
type Limiter struct {
	redis  redis.Cmdable
	limit  int64
	window time.Duration
	prefix string
}

func NewLimiter(client redis.Cmdable, limit int, window time.Duration) *Limiter {
	return &Limiter{
		redis:  client,
		limit:  int64(limit),
		window: window,
		prefix: "ratelimit:",
	}
}

// Allow counts one call for key and reports whether it is within the limit. The increment and
// the TTL go out in one MULTI block; EXPIRE NX only arms a key that has no TTL yet, so a key
// that lost its expiry is repaired on the next call.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	k := l.prefix + key
	var incr *redis.IntCmd
	_, err := l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, l.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("count %s: %w", k, err)
	}
	return incr.Val() <= l.limit, nil
}
