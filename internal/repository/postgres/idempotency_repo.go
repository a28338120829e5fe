package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// IdempotencyRepository implements domain.IdempotencyStore on the
// processed_invoice_events table. Claims are shared by every instance and
// survive restarts.
type IdempotencyRepository struct {
	queries *Queries
}

// NewIdempotencyRepository creates a new IdempotencyRepository
func NewIdempotencyRepository(pool *pgxpool.Pool) *IdempotencyRepository {
	return &IdempotencyRepository{queries: NewQueries(pool)}
}

// Claim inserts eventID and reports whether this call inserted it
func (r *IdempotencyRepository) Claim(ctx context.Context, eventID string) (bool, error) {
	claimed, err := r.queries.ClaimEvent(ctx, eventID)
	if err != nil {
		return false, persistenceError("claim event", err)
	}
	return claimed, nil
}

// Release deletes the claim for eventID
func (r *IdempotencyRepository) Release(ctx context.Context, eventID string) error {
	if err := r.queries.ReleaseEvent(ctx, eventID); err != nil {
		return persistenceError("release event", err)
	}
	return nil
}

// PurgeOlderThan drops claims recorded before now minus ttl
func (r *IdempotencyRepository) PurgeOlderThan(ctx context.Context, ttl time.Duration) (int64, error) {
	n, err := r.queries.PurgeEventsBefore(ctx, time.Now().Add(-ttl))
	if err != nil {
		return 0, persistenceError("purge events", err)
	}
	return n, nil
}
