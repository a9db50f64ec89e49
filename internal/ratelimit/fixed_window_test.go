package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, limit int) (*FixedWindowLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	limiter, err := NewFixedWindowLimiter(client, "test:ratelimit", limit, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	return limiter, mr
}

func TestFixedWindowLimiter(t *testing.T) {
	ctx := context.Background()
	limiter, _ := newTestLimiter(t, 2)
	if !limiter.Allow(ctx, "ip-1") || !limiter.Allow(ctx, "ip-1") {
		t.Fatalf("first two requests should pass")
	}
	if limiter.Allow(ctx, "ip-1") {
		t.Fatalf("third request should be blocked")
	}
	if !limiter.Allow(ctx, "ip-2") {
		t.Fatalf("other keys have their own quota")
	}
}

func TestFixedWindowLimiterNextWindow(t *testing.T) {
	ctx := context.Background()
	limiter, _ := newTestLimiter(t, 1)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return base }
	if !limiter.Allow(ctx, "ip") || limiter.Allow(ctx, "ip") {
		t.Fatalf("quota of one not enforced")
	}
	limiter.now = func() time.Time { return base.Add(time.Minute) }
	if !limiter.Allow(ctx, "ip") {
		t.Fatalf("a new window should reset the quota")
	}
}

func TestFixedWindowLimiterFailClosed(t *testing.T) {
	limiter, mr := newTestLimiter(t, 1)
	mr.Close()
	if limiter.Allow(context.Background(), "ip-1") {
		t.Fatalf("limiter should fail closed on redis errors")
	}
}

func TestNewFixedWindowLimiterValidation(t *testing.T) {
	if _, err := NewFixedWindowLimiter(nil, "", 1, time.Second); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if _, err := NewFixedWindowLimiter(redis.NewClient(&redis.Options{}), "", 0, time.Second); err == nil {
		t.Fatalf("expected error for zero limit")
	}
}
