package service

import (
	"context"
	"sync"
	"time"
)

// RevocationRegistry records access-token ids that were logged out before
// their natural expiry. Entries only need to live until the token itself
// expires.
type RevocationRegistry interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	Sweep(now time.Time) int
}

// sweepEvery bounds amortized cleanup cost without a background scheduler:
// every Nth revoke pays for a full sweep.
const sweepEvery = 64

// InMemoryRevocationRegistry is correct for a single serving process only; a
// multi-instance deployment must use the redis-backed registry instead.
type InMemoryRevocationRegistry struct {
	mu      sync.Mutex
	entries map[string]time.Time
	revokes int
}

func NewInMemoryRevocationRegistry() *InMemoryRevocationRegistry {
	return &InMemoryRevocationRegistry{entries: make(map[string]time.Time)}
}

func (r *InMemoryRevocationRegistry) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[tokenID] = expiresAt
	r.revokes++
	if r.revokes%sweepEvery == 0 {
		r.sweepLocked(time.Now().UTC())
	}
	return nil
}

func (r *InMemoryRevocationRegistry) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	now := time.Now().UTC()
	r.mu.Lock()
	defer r.mu.Unlock()
	expiresAt, ok := r.entries[tokenID]
	if !ok {
		return false, nil
	}
	if !expiresAt.After(now) {
		delete(r.entries, tokenID)
		return false, nil
	}
	return true, nil
}

func (r *InMemoryRevocationRegistry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweepLocked(now)
}

func (r *InMemoryRevocationRegistry) sweepLocked(now time.Time) int {
	removed := 0
	for id, expiresAt := range r.entries {
		if !expiresAt.After(now) {
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}

func (r *InMemoryRevocationRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
