package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter shares fixed windows across instances with INCR + PEXPIRE.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

// NewRedisLimiter allows limit hits per key per window. Keys are stored
// under "rl:<prefix>:<key>".
func NewRedisLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *RedisLimiter {
	if client == nil {
		panic("ratelimit: redis client required")
	}
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLimiter{client: client, prefix: prefix, limit: limit, window: window}
}

// Allow records a hit for key.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	redisKey := fmt.Sprintf("rl:%s:%s", l.prefix, key)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit: incr: %w", err)
	}
	if count == 1 {
		if err := l.client.PExpire(ctx, redisKey, l.window).Err(); err != nil {
			return Result{}, fmt.Errorf("ratelimit: expire: %w", err)
		}
	}

	ttl, err := l.client.PTTL(ctx, redisKey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit: ttl: %w", err)
	}
	if ttl <= 0 || ttl > l.window {
		// Key lost its expiry (crash between INCR and PEXPIRE); restart the window.
		_ = l.client.PExpire(ctx, redisKey, l.window).Err()
		ttl = l.window
	}

	return Result{
		Allowed: int(count) <= l.limit,
		Count:   int(count),
		Limit:   l.limit,
		ResetIn: ttl,
	}, nil
}
