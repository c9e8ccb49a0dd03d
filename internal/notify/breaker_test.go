package notify

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupTestBreaker(t *testing.T) (*Breaker, *miniredis.Miniredis, *time.Time) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	b := NewBreaker(client, testLogger())
	b.now = func() time.Time { return now }
	return b, mr, &now
}

func TestBreaker_InitiallyClosed(t *testing.T) {
	b, _, _ := setupTestBreaker(t)

	state, allowed := b.Allow(context.Background(), "kafka")
	if state != StateClosed || !allowed {
		t.Errorf("got (%q, %v), want (closed, true)", state, allowed)
	}
}

func TestBreaker_OpensAtThreshold(t *testing.T) {
	b, _, _ := setupTestBreaker(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		b.Failure(ctx, "kafka")
	}
	if _, allowed := b.Allow(ctx, "kafka"); !allowed {
		t.Fatal("breaker should stay closed below the threshold")
	}

	b.Failure(ctx, "kafka")
	state, allowed := b.Allow(ctx, "kafka")
	if state != StateOpen || allowed {
		t.Errorf("got (%q, %v), want (open, false)", state, allowed)
	}

	if _, allowed := b.Allow(ctx, "redis"); !allowed {
		t.Error("breakers are per sink")
	}
}

func TestBreaker_HalfOpenRecovers(t *testing.T) {
	b, _, now := setupTestBreaker(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		b.Failure(ctx, "webhook")
	}
	*now = now.Add(31 * time.Second)

	state, allowed := b.Allow(ctx, "webhook")
	if state != StateHalfOpen || !allowed {
		t.Fatalf("got (%q, %v), want (half-open, true)", state, allowed)
	}

	b.Success(ctx, "webhook")
	st := b.State(ctx, "webhook")
	if st.State != StateClosed || st.Failures != 0 {
		t.Errorf("unexpected state after recovery: %+v", st)
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b, _, now := setupTestBreaker(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		b.Failure(ctx, "webhook")
	}
	*now = now.Add(31 * time.Second)
	b.Allow(ctx, "webhook")

	b.Failure(ctx, "webhook")
	state, allowed := b.Allow(ctx, "webhook")
	if state != StateOpen || allowed {
		t.Errorf("got (%q, %v), want (open, false)", state, allowed)
	}
	if st := b.State(ctx, "webhook"); st.LastFailedAt == "" {
		t.Error("expected last_failed_at to be reported")
	}
}

func TestBreaker_RedisDownAllows(t *testing.T) {
	b, mr, _ := setupTestBreaker(t)
	mr.Close()

	if _, allowed := b.Allow(context.Background(), "kafka"); !allowed {
		t.Error("breaker should allow sends when redis is unavailable")
	}
}
