package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// WebhookDedupe claims webhook event ids so processor retries do not
// double-apply. SETNX with a TTL: the first claimer wins, the key ages out
// after the retention window.
type WebhookDedupe struct {
	rdb   *redis.Client
	keyNS string
	ttl   time.Duration
}

func NewWebhookDedupe(rdb *redis.Client, keyPrefix string, ttl time.Duration) *WebhookDedupe {
	if keyPrefix == "" {
		keyPrefix = "billing:webhook:seen:"
	}
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &WebhookDedupe{rdb: rdb, keyNS: keyPrefix, ttl: ttl}
}

// Claim returns true when this call is the first to see the event id.
func (d *WebhookDedupe) Claim(ctx context.Context, eventID string) (bool, error) {
	return d.rdb.SetNX(ctx, d.keyNS+eventID, 1, d.ttl).Result()
}
