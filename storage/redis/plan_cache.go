package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/TaxEnough/taxenough/core"
)

// PlanCache is a short-TTL cache of resolved entitlements keyed by subject.
// It exists to keep the route gate from hitting the provider backend on
// every premium-gated request.
type PlanCache struct {
	rdb   *redis.Client
	keyNS string
	ttl   time.Duration
}

func NewPlanCache(rdb *redis.Client, keyPrefix string, ttl time.Duration) *PlanCache {
	if keyPrefix == "" {
		keyPrefix = "entitlement:plan:"
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PlanCache{rdb: rdb, keyNS: keyPrefix, ttl: ttl}
}

func (c *PlanCache) key(subject string) string { return c.keyNS + subject }

func (c *PlanCache) Get(ctx context.Context, subject string) (core.Entitlement, bool, error) {
	val, err := c.rdb.Get(ctx, c.key(subject)).Bytes()
	if err == redis.Nil {
		return core.Entitlement{}, false, nil
	}
	if err != nil {
		return core.Entitlement{}, false, err
	}
	var e core.Entitlement
	if err := json.Unmarshal(val, &e); err != nil {
		return core.Entitlement{}, false, err
	}
	return e, true, nil
}

func (c *PlanCache) Put(ctx context.Context, subject string, e core.Entitlement) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(subject), b, c.ttl).Err()
}

func (c *PlanCache) Del(ctx context.Context, subject string) error {
	return c.rdb.Del(ctx, c.key(subject)).Err()
}
