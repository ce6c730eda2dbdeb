package memorystore

import (
	"context"
	"sync"
	"time"

	"github.com/TaxEnough/taxenough/core"
)

// PlanCache is an in-memory implementation of core.PlanCache with TTL.
type PlanCache struct {
	mu     sync.Mutex
	ttl    time.Duration
	data   map[string]planItem
	closed chan struct{}
}

type planItem struct {
	v   core.Entitlement
	exp time.Time
}

// NewPlanCache creates a new in-memory plan cache with the given TTL.
// If ttl <= 0, a default of 5 minutes is used.
func NewPlanCache(ttl time.Duration) *PlanCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	c := &PlanCache{ttl: ttl, data: make(map[string]planItem), closed: make(chan struct{})}
	go c.cleanupLoop()
	return c
}

func (p *PlanCache) Get(ctx context.Context, subject string) (core.Entitlement, bool, error) {
	_ = ctx
	p.mu.Lock()
	defer p.mu.Unlock()
	it, ok := p.data[subject]
	if !ok {
		return core.Entitlement{}, false, nil
	}
	if time.Now().After(it.exp) {
		delete(p.data, subject)
		return core.Entitlement{}, false, nil
	}
	return it.v, true, nil
}

func (p *PlanCache) Put(ctx context.Context, subject string, e core.Entitlement) error {
	_ = ctx
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data[subject] = planItem{v: e, exp: time.Now().Add(p.ttl)}
	return nil
}

func (p *PlanCache) Del(ctx context.Context, subject string) error {
	_ = ctx
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.data, subject)
	return nil
}

func (p *PlanCache) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.cleanup()
		case <-p.closed:
			return
		}
	}
}

func (p *PlanCache) cleanup() {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	for k, v := range p.data {
		if now.After(v.exp) {
			delete(p.data, k)
		}
	}
}

// Close stops the background cleanup goroutine.
func (p *PlanCache) Close() error {
	close(p.closed)
	return nil
}
