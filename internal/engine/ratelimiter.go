package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is a per-client sliding window limiter for the webhook
// endpoint. Each client key owns a sorted set of request timestamps; a Lua
// script trims, counts and admits atomically.
type RateLimiter struct {
	redisClient *redis.Client
	logger      *slog.Logger
	script      *redis.Script
	window      time.Duration
	now         func() time.Time
	seq         atomic.Uint64
}

// KEYS[1] window key; ARGV: now (ms), window (ms), limit, member.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)

local count = redis.call('ZCARD', key)
if count < limit then
    redis.call('ZADD', key, now, member)
    redis.call('PEXPIRE', key, window + 1000)
    return 1
end
return 0
`)

func NewRateLimiter(redisClient *redis.Client, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		redisClient: redisClient,
		logger:      logger,
		script:      slidingWindowScript,
		window:      time.Second,
		now:         time.Now,
	}
}

func rlKey(client string) string {
	return fmt.Sprintf("rl:webhook:%s", client)
}

// Allow reports whether another request from client fits within limit per
// window. A non-positive limit disables limiting. Redis failures fail open
// so a cache outage never turns into rejected ESP callbacks.
func (rl *RateLimiter) Allow(ctx context.Context, client string, limit int) bool {
	if limit <= 0 {
		return true
	}

	now := rl.now()
	member := fmt.Sprintf("%d:%d", now.UnixNano(), rl.seq.Add(1))

	result, err := rl.script.Run(ctx, rl.redisClient, []string{rlKey(client)},
		now.UnixMilli(), rl.window.Milliseconds(), limit, member,
	).Int64()
	if err != nil {
		rl.logger.Error("rate limiter script failed", "error", err, "client", client)
		return true
	}

	if result == 0 {
		rl.logger.Debug("rate limited", "client", client, "limit", limit)
		return false
	}
	return true
}
