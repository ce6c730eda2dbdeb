package memorystore

import (
	"context"
	"sync"
	"time"
)

// WebhookDedupe is the single-node fallback for webhook event-id claims.
type WebhookDedupe struct {
	mu      sync.Mutex
	ttl     time.Duration
	claimed map[string]time.Time
}

// NewWebhookDedupe creates the in-memory dedupe. If ttl <= 0, claims are
// kept for 72 hours.
func NewWebhookDedupe(ttl time.Duration) *WebhookDedupe {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &WebhookDedupe{ttl: ttl, claimed: make(map[string]time.Time)}
}

// Claim returns true when this call is the first to see the event id.
// Expired claims are pruned opportunistically.
func (d *WebhookDedupe) Claim(ctx context.Context, eventID string) (bool, error) {
	_ = ctx
	d.mu.Lock()
	defer d.mu.Unlock()
	now := time.Now()
	for id, at := range d.claimed {
		if now.Sub(at) > d.ttl {
			delete(d.claimed, id)
		}
	}
	if _, ok := d.claimed[eventID]; ok {
		return false, nil
	}
	d.claimed[eventID] = now
	return true, nil
}
