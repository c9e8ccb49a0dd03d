package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Priya8975/email-event-ingestion/internal/domain"
	"github.com/redis/go-redis/v9"
)

const DefaultRedisQueue = "email_events:status_changes"

// RedisSink pushes status changes as JSON onto a Redis list. Consumers pop
// from the other end.
type RedisSink struct {
	rdb   *redis.Client
	queue string
}

func NewRedisSink(rdb *redis.Client, queue string) *RedisSink {
	if queue == "" {
		queue = DefaultRedisQueue
	}
	return &RedisSink{rdb: rdb, queue: queue}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Send(ctx context.Context, change domain.StatusChange) error {
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshalling status change: %w", err)
	}
	if err := s.rdb.LPush(ctx, s.queue, data).Err(); err != nil {
		return fmt.Errorf("LPUSH %s: %w", s.queue, err)
	}
	return nil
}
