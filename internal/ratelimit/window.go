// Package ratelimit limits requests per client with fixed one-minute windows.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Result is the outcome of one Allow call
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter decides whether a client may make another request
type Limiter interface {
	Allow(ctx context.Context, id string) (Result, error)
}

// RedisLimiter counts requests in Redis so every instance shares the window
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

// NewRedisLimiter creates a limiter allowing limit requests per window
func NewRedisLimiter(client *redis.Client, namespace string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: namespace + ":ratelimit:",
		limit:  limit,
		window: window,
	}
}

// Allow counts one request for id
func (l *RedisLimiter) Allow(ctx context.Context, id string) (Result, error) {
	key := l.prefix + id

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return Result{Allowed: true, Limit: l.limit, Remaining: l.limit}, fmt.Errorf("failed to count request: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return Result{Allowed: true, Limit: l.limit, Remaining: l.limit}, fmt.Errorf("failed to start window: %w", err)
		}
	}

	reset, err := l.client.PTTL(ctx, key).Result()
	if err != nil || reset < 0 {
		reset = l.window
	}
	return Result{
		Allowed:   int(count) <= l.limit,
		Limit:     l.limit,
		Remaining: max(0, l.limit-int(count)),
		ResetAt:   time.Now().Add(reset),
	}, nil
}

// MemoryLimiter is a single-process fixed-window limiter
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

// NewMemoryLimiter creates a limiter allowing limit requests per period
func NewMemoryLimiter(limit int, period time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
}

// Allow counts one request for id
func (l *MemoryLimiter) Allow(_ context.Context, id string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[id]
	if !ok || now.After(w.resetAt) {
		w = &window{resetAt: now.Add(l.period)}
		l.windows[id] = w
		l.sweep(now)
	}

	if w.count >= l.limit {
		return Result{Allowed: false, Limit: l.limit, ResetAt: w.resetAt}, nil
	}
	w.count++
	return Result{Allowed: true, Limit: l.limit, Remaining: l.limit - w.count, ResetAt: w.resetAt}, nil
}

// sweep drops expired windows so idle clients do not accumulate
func (l *MemoryLimiter) sweep(now time.Time) {
	for id, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, id)
		}
	}
}
