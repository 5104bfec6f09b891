// Package ratelimit throttles generation calls per user.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Defaults used when a limiter is built with a non-positive limit or window.
const (
	DefaultLimit  = 20
	DefaultWindow = time.Minute
)

// Limiter decides whether one more call for key fits in the current window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter is a fixed-window counter shared by every API instance.
type RedisLimiter struct {
	rdb    *redis.Client
	prefix string
	limit  int
	window time.Duration
}

func NewRedisLimiter(rdb *redis.Client, prefix string, limit int, window time.Duration) *RedisLimiter {
	limit, window = normalize(limit, window)
	return &RedisLimiter{rdb: rdb, prefix: prefix, limit: limit, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	bucket := time.Now().UnixNano() / int64(l.window)
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, bucket)

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}
	return incr.Val() <= int64(l.limit), nil
}

// MemoryLimiter is a sliding-window limiter local to one process.
// Keys with no call inside the window are swept at most once per window.
type MemoryLimiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	calls     map[string][]time.Time
	lastSweep time.Time
	now       func() time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	limit, window = normalize(limit, window)
	return &MemoryLimiter{
		limit:  limit,
		window: window,
		calls:  make(map[string][]time.Time),
		now:    time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.window {
		l.sweep(cutoff)
		l.lastSweep = now
	}

	timestamps := l.calls[key]
	kept := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.limit {
		l.calls[key] = kept
		return false, nil
	}

	l.calls[key] = append(kept, now)
	return true, nil
}

// sweep drops keys whose newest call is at or before cutoff. Caller holds mu.
func (l *MemoryLimiter) sweep(cutoff time.Time) {
	for key, timestamps := range l.calls {
		if len(timestamps) == 0 || !timestamps[len(timestamps)-1].After(cutoff) {
			delete(l.calls, key)
		}
	}
}

func normalize(limit int, window time.Duration) (int, time.Duration) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return limit, window
}

// New picks the Redis limiter when a client is configured.
func New(rdb *redis.Client, prefix string, limit int, window time.Duration) Limiter {
	if rdb != nil {
		return NewRedisLimiter(rdb, prefix, limit, window)
	}
	return NewMemoryLimiter(limit, window)
}
