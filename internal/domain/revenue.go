package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CalculationSource records how an aggregate was last computed
type CalculationSource string

const (
	CalculationSourceInvoiceEvent    CalculationSource = "invoice_event"
	CalculationSourceManualRecompute CalculationSource = "manual_recompute"
)

// RevenueAggregate holds the accumulated invoice totals for one period
type RevenueAggregate struct {
	ID                uuid.UUID         `json:"id"`
	Period            time.Time         `json:"period"`
	CalculationSource CalculationSource `json:"calculationSource"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
	RevenueTotals
}

// RevenuePatch is the set of fields an update may change.
// Period and ID are immutable.
type RevenuePatch struct {
	Totals            RevenueTotals
	CalculationSource CalculationSource
}

// RevenueRepository is the storage contract for revenue aggregates
type RevenueRepository interface {
	// FindByPeriod returns ErrRevenueNotFound when the period has no aggregate
	FindByPeriod(ctx context.Context, period time.Time) (*RevenueAggregate, error)
	// FindByDateRange returns aggregates with start <= period <= end ordered by period
	FindByDateRange(ctx context.Context, start, end time.Time) ([]*RevenueAggregate, error)
	Create(ctx context.Context, aggregate *RevenueAggregate) (*RevenueAggregate, error)
	Update(ctx context.Context, id uuid.UUID, patch RevenuePatch) (*RevenueAggregate, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// WithPeriodLock runs fn while holding an exclusive lock on period.
	// The repository passed to fn must be used for all reads and writes
	// that belong to the locked unit of work.
	WithPeriodLock(ctx context.Context, period time.Time, fn func(repo RevenueRepository) error) error
}

// IdempotencyStore records which event identifiers were already applied
type IdempotencyStore interface {
	// Claim atomically marks eventID as taken and reports whether this
	// caller took it
	Claim(ctx context.Context, eventID string) (bool, error)
	// Release removes a claim so the event can be attempted again
	Release(ctx context.Context, eventID string) error
}
