package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_RejectsAfterLimit(t *testing.T) {
	limiter := NewMemoryLimiter(3, time.Minute)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		res, err := limiter.Allow(ctx, "ip:1.2.3.4")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "hit %d should pass", i)
		assert.Equal(t, i, res.Count)
	}

	res, err := limiter.Allow(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Greater(t, res.ResetIn, time.Duration(0))
	assert.LessOrEqual(t, res.ResetIn, time.Minute)
	assert.LessOrEqual(t, res.RetryAfterSeconds(), 60)

	other, err := limiter.Allow(ctx, "ip:5.6.7.8")
	require.NoError(t, err)
	assert.True(t, other.Allowed, "keys are independent")
}

func TestMemoryLimiter_WindowResets(t *testing.T) {
	limiter := NewMemoryLimiter(1, time.Minute)
	now := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	res, _ := limiter.Allow(ctx, "k")
	assert.True(t, res.Allowed)

	now = now.Add(20 * time.Second)
	res, _ = limiter.Allow(ctx, "k")
	assert.False(t, res.Allowed)
	assert.Equal(t, 40*time.Second, res.ResetIn)

	now = now.Add(40 * time.Second)
	res, _ = limiter.Allow(ctx, "k")
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, time.Minute, res.ResetIn)
}

func TestMemoryLimiter_SweepsExpiredKeys(t *testing.T) {
	limiter := NewMemoryLimiter(5, time.Second)
	now := time.Now()
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, _ = limiter.Allow(ctx, fmt.Sprintf("k%d", i))
	}
	now = now.Add(2 * time.Second)
	_, _ = limiter.Allow(ctx, "fresh")
	assert.Len(t, limiter.counters, 1)
}

func TestRedisLimiter_FixedWindow(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	limiter := NewRedisLimiter(client, "register-lead", 2, 30*time.Second)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := limiter.Allow(ctx, "ip:10.0.0.1")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
	res, err := limiter.Allow(ctx, "ip:10.0.0.1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 3, res.Count)
	assert.Greater(t, res.ResetIn, time.Duration(0))
	assert.LessOrEqual(t, res.ResetIn, 30*time.Second)

	mr.FastForward(31 * time.Second)
	res, err = limiter.Allow(ctx, "ip:10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Count)
}

func TestRedisLimiter_ErrorWhenUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	limiter := NewRedisLimiter(client, "checkout", 1, time.Minute)
	_, err = limiter.Allow(context.Background(), "ip:1")
	assert.Error(t, err)
}
