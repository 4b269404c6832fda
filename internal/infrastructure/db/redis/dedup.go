package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/easyref/easyref-api/internal/core/ports"
)

const defaultDedupTTL = 72 * time.Hour

var _ ports.EventDeduper = (*DedupChecker)(nil)

// DedupChecker remembers webhook event ids so redelivered events are skipped.
// Key format: dedup:webhook:<event_id>
type DedupChecker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDedupChecker wraps client. A non-positive ttl uses the provider's retry
// window of three days.
func NewDedupChecker(client *redis.Client, ttl time.Duration) *DedupChecker {
	if ttl <= 0 {
		ttl = defaultDedupTTL
	}
	return &DedupChecker{client: client, ttl: ttl}
}

// MarkNew atomically records id and reports whether it was unseen.
func (d *DedupChecker) MarkNew(ctx context.Context, id string) (bool, error) {
	ok, err := d.client.SetNX(ctx, dedupKey(id), "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup mark: %w", err)
	}
	return ok, nil
}

// Forget removes id, used when processing failed and the provider will retry.
func (d *DedupChecker) Forget(ctx context.Context, id string) error {
	if err := d.client.Del(ctx, dedupKey(id)).Err(); err != nil {
		return fmt.Errorf("dedup forget: %w", err)
	}
	return nil
}

func dedupKey(id string) string {
	return "dedup:webhook:" + id
}
