// Package ratelimit implements a fixed-window request limiter backed
// by Redis, keyed by client IP or bearer-token hash; each key's count
// resets at the window boundary rather than sliding. When Redis is
// unreachable, traffic falls back to a coarse process-local token
// bucket rather than either blocking everything or admitting it
// unbounded.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/time/rate"
)

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	// Allow reports whether the request is within the configured
	// window/limit for key, plus how many seconds the caller should
	// wait before retrying when it is not.
	Allow(ctx context.Context, key string) (allowed bool, retryAfterSeconds int, err error)
}

// RedisLimiter implements a fixed-window counter: INCR the per-(key,
// window) counter, set its expiry on first use, compare to limit.
// If Redis is unreachable, it falls back to fallback, a single
// process-wide token bucket shared across every key, so an outage
// degrades the limit rather than removing it.
type RedisLimiter struct {
	client   *redis.Client
	limit    int
	window   time.Duration
	fallback *rate.Limiter
}

// New returns a RedisLimiter allowing up to limit requests per window,
// per key. Its Redis-unavailable fallback allows the same aggregate
// rate (limit per window) across all callers combined.
func New(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	if limit <= 0 {
		limit = 100
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLimiter{
		client:   client,
		limit:    limit,
		window:   window,
		fallback: rate.NewLimiter(rate.Limit(float64(limit)/window.Seconds()), limit),
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	if l == nil || l.client == nil {
		return true, 0, nil
	}

	windowKey := fmt.Sprintf("ratelimit:%s:%d", key, time.Now().UnixNano()/int64(l.window))

	count, err := l.client.Incr(ctx, windowKey).Result()
	if err != nil {
		if l.fallback.Allow() {
			return true, 0, nil
		}
		return false, int(l.window.Seconds()), nil
	}
	if count == 1 {
		l.client.PExpire(ctx, windowKey, l.window)
	}

	if count > int64(l.limit) {
		return false, int(l.window.Seconds()), nil
	}
	return true, 0, nil
}
