package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func newTestLimiter(t *testing.T, limit int, window time.Duration) *RedisLimiter {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(client, limit, window)
}

func TestAllowWithinLimit(t *testing.T) {
	l := newTestLimiter(t, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _, err := l.Allow(ctx, "client-1")
		if err != nil {
			t.Fatalf("Allow: %v", err)
		}
		if !allowed {
			t.Fatalf("request %d rejected, want allowed", i)
		}
	}
}

func TestRejectsOverLimit(t *testing.T) {
	l := newTestLimiter(t, 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if allowed, _, _ := l.Allow(ctx, "client-2"); !allowed {
			t.Fatalf("request %d rejected, want allowed", i)
		}
	}
	allowed, retryAfter, err := l.Allow(ctx, "client-2")
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if allowed {
		t.Fatal("expected 3rd request to be rejected")
	}
	if retryAfter <= 0 {
		t.Fatalf("retryAfter = %d, want > 0", retryAfter)
	}
}

func TestDistinctKeysHaveSeparateBudgets(t *testing.T) {
	l := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	if allowed, _, _ := l.Allow(ctx, "a"); !allowed {
		t.Fatal("expected first request for key a to be allowed")
	}
	if allowed, _, _ := l.Allow(ctx, "b"); !allowed {
		t.Fatal("expected first request for key b to be allowed")
	}
}

func TestNilClientFailsOpen(t *testing.T) {
	l := New(nil, 1, time.Minute)
	allowed, _, err := l.Allow(context.Background(), "x")
	if err != nil || !allowed {
		t.Fatalf("allowed = %v, err = %v, want true, nil", allowed, err)
	}
}

func TestRedisUnreachableFallsBackToLocalBudget(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := New(client, 2, time.Minute)
	mr.Close()

	ctx := context.Background()
	allowed := 0
	for i := 0; i < 10; i++ {
		ok, _, err := l.Allow(ctx, "client-down")
		if err != nil {
			t.Fatalf("Allow: %v", err)
		}
		if ok {
			allowed++
		}
	}
	if allowed == 0 {
		t.Fatal("expected at least the burst allowance to pass while Redis is down")
	}
	if allowed == 10 {
		t.Fatal("expected the local fallback to reject once its burst is exhausted")
	}
}
