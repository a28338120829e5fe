package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/dafibh/revledger/revledger-backend/internal/domain"
)

// IdempotencyGuard runs a function at most once per event identifier
type IdempotencyGuard struct {
	store domain.IdempotencyStore
}

// NewIdempotencyGuard creates a guard over the given store
func NewIdempotencyGuard(store domain.IdempotencyStore) *IdempotencyGuard {
	if store == nil {
		store = NewMemoryIdempotencyStore()
	}
	return &IdempotencyGuard{store: store}
}

// Run executes fn unless eventID was already claimed. It reports whether fn
// ran. A failing fn releases the claim so a redelivery can retry it.
// An empty eventID is not guarded.
func (g *IdempotencyGuard) Run(ctx context.Context, eventID string, fn func(ctx context.Context) error) (bool, error) {
	if eventID == "" {
		return true, fn(ctx)
	}

	claimed, err := g.store.Claim(ctx, eventID)
	if err != nil {
		return false, fmt.Errorf("claim event %s: %w", eventID, err)
	}
	if !claimed {
		return false, nil
	}

	if err := fn(ctx); err != nil {
		if releaseErr := g.store.Release(ctx, eventID); releaseErr != nil {
			return true, fmt.Errorf("%w (release claim: %v)", err, releaseErr)
		}
		return true, err
	}
	return true, nil
}

// MemoryIdempotencyStore keeps claims in process memory.
// Claims do not survive a restart and are not shared between instances.
type MemoryIdempotencyStore struct {
	mu     sync.Mutex
	claims map[string]struct{}
}

// NewMemoryIdempotencyStore creates an empty in-memory store
func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{claims: make(map[string]struct{})}
}

// Claim implements domain.IdempotencyStore
func (s *MemoryIdempotencyStore) Claim(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.claims[eventID]; ok {
		return false, nil
	}
	s.claims[eventID] = struct{}{}
	return true, nil
}

// Release implements domain.IdempotencyStore
func (s *MemoryIdempotencyStore) Release(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claims, eventID)
	return nil
}

// Len returns the number of claimed identifiers
func (s *MemoryIdempotencyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.claims)
}
