package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Breaker states.
const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half-open"
)

// Breaker is a per-sink circuit breaker kept in a Redis hash so every
// replica sees the same state. A sink that keeps failing is skipped until
// the cooldown passes, then one trial send decides whether it recovers.
type Breaker struct {
	redisClient      *redis.Client
	logger           *slog.Logger
	failureThreshold int
	cooldown         time.Duration
	now              func() time.Time
}

type BreakerState struct {
	State        string `json:"state"`
	Failures     int    `json:"failures"`
	LastFailedAt string `json:"last_failed_at,omitempty"`
}

func NewBreaker(redisClient *redis.Client, logger *slog.Logger) *Breaker {
	return &Breaker{
		redisClient:      redisClient,
		logger:           logger,
		failureThreshold: 5,
		cooldown:         30 * time.Second,
		now:              time.Now,
	}
}

func breakerKey(sink string) string {
	return fmt.Sprintf("cb:notify:%s", sink)
}

// Allow reports whether a send to sink should be attempted. Missing state,
// or Redis being unreachable, counts as closed.
func (b *Breaker) Allow(ctx context.Context, sink string) (string, bool) {
	key := breakerKey(sink)

	data, err := b.redisClient.HGetAll(ctx, key).Result()
	if err != nil || len(data) == 0 {
		return StateClosed, true
	}

	switch data["state"] {
	case StateOpen:
		lastFailedAt, _ := strconv.ParseInt(data["last_failed_at"], 10, 64)
		if b.now().Unix()-lastFailedAt < int64(b.cooldown.Seconds()) {
			return StateOpen, false
		}
		b.redisClient.HSet(ctx, key, "state", StateHalfOpen)
		b.logger.Info("notify breaker half-open", "sink", sink)
		return StateHalfOpen, true
	case StateHalfOpen:
		return StateHalfOpen, true
	default:
		return StateClosed, true
	}
}

// Success closes the circuit and clears the failure count.
func (b *Breaker) Success(ctx context.Context, sink string) {
	key := breakerKey(sink)

	state, _ := b.redisClient.HGet(ctx, key, "state").Result()
	b.redisClient.HSet(ctx, key, "state", StateClosed, "failures", 0)

	if state == StateHalfOpen {
		b.logger.Info("notify breaker closed", "sink", sink)
	}
}

// Failure counts a failed send and opens the circuit at the threshold or
// when a half-open trial fails.
func (b *Breaker) Failure(ctx context.Context, sink string) {
	key := breakerKey(sink)

	failures, err := b.redisClient.HIncrBy(ctx, key, "failures", 1).Result()
	if err != nil {
		b.logger.Error("recording notify breaker failure", "error", err, "sink", sink)
		return
	}
	b.redisClient.HSet(ctx, key, "last_failed_at", b.now().Unix())

	state, _ := b.redisClient.HGet(ctx, key, "state").Result()
	switch {
	case state == StateHalfOpen:
		b.redisClient.HSet(ctx, key, "state", StateOpen)
		b.logger.Warn("notify breaker re-opened", "sink", sink)
	case failures >= int64(b.failureThreshold):
		b.redisClient.HSet(ctx, key, "state", StateOpen)
		b.logger.Warn("notify breaker opened",
			"sink", sink,
			"failures", failures,
			"threshold", b.failureThreshold,
		)
	case state == "":
		b.redisClient.HSet(ctx, key, "state", StateClosed)
	}
}

// State returns the breaker state for sink, for the health endpoint.
func (b *Breaker) State(ctx context.Context, sink string) BreakerState {
	data, err := b.redisClient.HGetAll(ctx, breakerKey(sink)).Result()
	if err != nil || len(data) == 0 {
		return BreakerState{State: StateClosed}
	}

	st := BreakerState{State: data["state"]}
	if st.State == "" {
		st.State = StateClosed
	}
	st.Failures, _ = strconv.Atoi(data["failures"])

	lastFailed, _ := strconv.ParseInt(data["last_failed_at"], 10, 64)
	if st.State == StateOpen && b.now().Unix()-lastFailed >= int64(b.cooldown.Seconds()) {
		st.State = StateHalfOpen
	}
	if lastFailed > 0 {
		st.LastFailedAt = time.Unix(lastFailed, 0).UTC().Format(time.RFC3339)
	}
	return st
}
