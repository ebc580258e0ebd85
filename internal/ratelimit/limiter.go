// Package ratelimit implements fixed-window request counters keyed by an
// arbitrary identifier (client IP, email, ...).
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

// Result is the outcome of a single Allow call.
type Result struct {
	Allowed bool
	Count   int
	Limit   int
	// ResetIn is the time left in the current window. Always in (0, window].
	ResetIn time.Duration
}

// RetryAfterSeconds rounds ResetIn up to whole seconds, minimum 1.
func (r Result) RetryAfterSeconds() int {
	secs := int(math.Ceil(r.ResetIn.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// Limiter counts hits per key in fixed windows.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

type window struct {
	count   int
	started time.Time
}

// MemoryLimiter is a process-local fixed-window limiter. There is no
// coordination between instances.
type MemoryLimiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	counters  map[string]*window
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryLimiter allows limit hits per key per window.
func NewMemoryLimiter(limit int, size time.Duration) *MemoryLimiter {
	if limit <= 0 {
		limit = 1
	}
	if size <= 0 {
		size = time.Minute
	}
	return &MemoryLimiter{
		limit:    limit,
		window:   size,
		counters: make(map[string]*window),
		now:      time.Now,
	}
}

// Allow records a hit for key.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	w, ok := l.counters[key]
	if !ok || now.Sub(w.started) >= l.window {
		w = &window{started: now}
		l.counters[key] = w
	}
	w.count++

	return Result{
		Allowed: w.count <= l.limit,
		Count:   w.count,
		Limit:   l.limit,
		ResetIn: w.started.Add(l.window).Sub(now),
	}, nil
}

// sweep drops expired windows at most once per window length.
func (l *MemoryLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	for key, w := range l.counters {
		if now.Sub(w.started) >= l.window {
			delete(l.counters, key)
		}
	}
	l.lastSweep = now
}
