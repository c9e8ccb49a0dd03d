package engine

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestRL(t *testing.T) (*RateLimiter, *miniredis.Miniredis, *time.Time) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(client, testLogger())
	rl.now = func() time.Time { return now }
	return rl, mr, &now
}

func TestRateLimiter_AllowsWithinLimit(t *testing.T) {
	rl, _, _ := setupTestRL(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if !rl.Allow(ctx, "10.0.0.1", 5) {
			t.Errorf("request %d should be allowed (limit=5)", i+1)
		}
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	rl, _, _ := setupTestRL(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rl.Allow(ctx, "10.0.0.1", 3)
	}
	if rl.Allow(ctx, "10.0.0.1", 3) {
		t.Error("request should be blocked when over limit")
	}
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	rl, _, now := setupTestRL(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		rl.Allow(ctx, "10.0.0.1", 2)
	}
	if rl.Allow(ctx, "10.0.0.1", 2) {
		t.Fatal("third request in the same window should be blocked")
	}

	*now = now.Add(1100 * time.Millisecond)
	if !rl.Allow(ctx, "10.0.0.1", 2) {
		t.Error("request after the window has passed should be allowed")
	}
}

func TestRateLimiter_ZeroLimit_AllowsAll(t *testing.T) {
	rl, _, _ := setupTestRL(t)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		if !rl.Allow(ctx, "10.0.0.1", 0) {
			t.Errorf("request %d should be allowed with limit=0 (unlimited)", i+1)
		}
	}
}

func TestRateLimiter_IsolationBetweenClients(t *testing.T) {
	rl, _, _ := setupTestRL(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		rl.Allow(ctx, "10.0.0.1", 2)
	}
	if rl.Allow(ctx, "10.0.0.1", 2) {
		t.Error("10.0.0.1 should be blocked")
	}
	if !rl.Allow(ctx, "10.0.0.2", 2) {
		t.Error("10.0.0.2 should be allowed, limits are per client")
	}
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	rl, mr, _ := setupTestRL(t)
	mr.Close()

	if !rl.Allow(context.Background(), "10.0.0.1", 1) {
		t.Error("limiter should allow requests when redis is unavailable")
	}
}
