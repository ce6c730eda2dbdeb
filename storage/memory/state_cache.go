package memorystore

import (
	"context"
	"sync"
	"time"

	oidckit "github.com/TaxEnough/taxenough/oidc"
)

// StateCache is an in-memory implementation of oidckit.StateCache with TTL.
// It is the fallback used when no Redis URL is configured; state does not
// survive a restart, which is acceptable for a login flow.
type StateCache struct {
	mu     sync.Mutex
	ttl    time.Duration
	data   map[string]stateItem
	closed chan struct{}
}

type stateItem struct {
	v   oidckit.StateData
	exp time.Time
}

// NewStateCache creates a new in-memory state cache with the given TTL.
// If ttl <= 0, a default of 15 minutes is used.
// Starts a background goroutine to clean up expired entries every minute.
func NewStateCache(ttl time.Duration) *StateCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	c := &StateCache{ttl: ttl, data: make(map[string]stateItem), closed: make(chan struct{})}
	go c.cleanupLoop()
	return c
}

func (s *StateCache) Put(ctx context.Context, state string, v oidckit.StateData) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[state] = stateItem{v: v, exp: time.Now().Add(s.ttl)}
	return nil
}

func (s *StateCache) Get(ctx context.Context, state string) (oidckit.StateData, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.data[state]
	if !ok {
		return oidckit.StateData{}, false, nil
	}
	if time.Now().After(it.exp) {
		delete(s.data, state)
		return oidckit.StateData{}, false, nil
	}
	return it.v, true, nil
}

func (s *StateCache) Del(ctx context.Context, state string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, state)
	return nil
}

func (s *StateCache) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.closed:
			return
		}
	}
}

func (s *StateCache) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for k, v := range s.data {
		if now.After(v.exp) {
			delete(s.data, k)
		}
	}
}

// Close stops the background cleanup goroutine.
func (s *StateCache) Close() error {
	close(s.closed)
	return nil
}
