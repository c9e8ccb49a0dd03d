package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultDedupTTL is how long a processed provider event id is
	// remembered in Redis. ESP retries stop well within a day.
	DefaultDedupTTL = 24 * time.Hour

	dedupKeyPrefix = "email-events:seen:"
)

// DedupFilter is a Redis fast path in front of the delivery_events unique
// constraint. It is only an optimisation: the database stays authoritative.
type DedupFilter struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDedupFilter(rdb *redis.Client, ttl time.Duration) *DedupFilter {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &DedupFilter{rdb: rdb, ttl: ttl}
}

func dedupKey(providerEventID string) string {
	return dedupKeyPrefix + providerEventID
}

// Seen reports whether the provider event id was marked as processed.
func (f *DedupFilter) Seen(ctx context.Context, providerEventID string) (bool, error) {
	n, err := f.rdb.Exists(ctx, dedupKey(providerEventID)).Result()
	if err != nil {
		return false, fmt.Errorf("dedup EXISTS: %w", err)
	}
	return n > 0, nil
}

// MarkSeen records the provider event id. Call it only after the event has
// been durably written, otherwise a retry after a failure would be dropped.
// It reports whether the key was newly set.
func (f *DedupFilter) MarkSeen(ctx context.Context, providerEventID string) (bool, error) {
	set, err := f.rdb.SetNX(ctx, dedupKey(providerEventID), 1, f.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup SETNX: %w", err)
	}
	return set, nil
}
