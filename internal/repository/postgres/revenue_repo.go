package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dafibh/revledger/revledger-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RevenueRepository implements domain.RevenueRepository using PostgreSQL
type RevenueRepository struct {
	pool    *pgxpool.Pool // nil when bound to a transaction
	queries *Queries
}

// NewRevenueRepository creates a new RevenueRepository
func NewRevenueRepository(pool *pgxpool.Pool) *RevenueRepository {
	return &RevenueRepository{
		pool:    pool,
		queries: NewQueries(pool),
	}
}

// FindByPeriod retrieves the aggregate of one period
func (r *RevenueRepository) FindByPeriod(ctx context.Context, period time.Time) (*domain.RevenueAggregate, error) {
	row, err := r.queries.GetRevenueByPeriod(ctx, timeToPgDate(period))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRevenueNotFound
		}
		return nil, persistenceError("find revenue by period", err)
	}
	return revenueRowToDomain(row), nil
}

// FindByDateRange retrieves aggregates with start <= period <= end, oldest first
func (r *RevenueRepository) FindByDateRange(ctx context.Context, start, end time.Time) ([]*domain.RevenueAggregate, error) {
	rows, err := r.queries.ListRevenuesByDateRange(ctx, timeToPgDate(start), timeToPgDate(end))
	if err != nil {
		return nil, persistenceError("list revenues", err)
	}

	result := make([]*domain.RevenueAggregate, len(rows))
	for i, row := range rows {
		result[i] = revenueRowToDomain(row)
	}
	return result, nil
}

// Create inserts a new aggregate; the database assigns ID and timestamps
func (r *RevenueRepository) Create(ctx context.Context, aggregate *domain.RevenueAggregate) (*domain.RevenueAggregate, error) {
	source := aggregate.CalculationSource
	if source == "" {
		source = domain.CalculationSourceInvoiceEvent
	}

	row, err := r.queries.CreateRevenue(ctx, createRevenueParams{
		Period:             timeToPgDate(aggregate.Period),
		InvoiceCount:       aggregate.InvoiceCount,
		TotalAmount:        aggregate.TotalAmount,
		TotalPaidAmount:    aggregate.TotalPaidAmount,
		TotalPendingAmount: aggregate.TotalPendingAmount,
		CalculationSource:  string(source),
	})
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, fmt.Errorf("%w: revenue for %s", domain.ErrAlreadyExists, domain.FormatPeriod(aggregate.Period))
		}
		return nil, persistenceError("create revenue", err)
	}
	return revenueRowToDomain(row), nil
}

// Update overwrites the totals of an aggregate
func (r *RevenueRepository) Update(ctx context.Context, id uuid.UUID, patch domain.RevenuePatch) (*domain.RevenueAggregate, error) {
	row, err := r.queries.UpdateRevenue(ctx, updateRevenueParams{
		ID:                 uuidToPg(id),
		InvoiceCount:       patch.Totals.InvoiceCount,
		TotalAmount:        patch.Totals.TotalAmount,
		TotalPaidAmount:    patch.Totals.TotalPaidAmount,
		TotalPendingAmount: patch.Totals.TotalPendingAmount,
		CalculationSource:  string(patch.CalculationSource),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRevenueNotFound
		}
		return nil, persistenceError("update revenue", err)
	}
	return revenueRowToDomain(row), nil
}

// Delete removes an aggregate by ID
func (r *RevenueRepository) Delete(ctx context.Context, id uuid.UUID) error {
	affected, err := r.queries.DeleteRevenue(ctx, uuidToPg(id))
	if err != nil {
		return persistenceError("delete revenue", err)
	}
	if affected == 0 {
		return domain.ErrRevenueNotFound
	}
	return nil
}

// WithPeriodLock runs fn inside a transaction holding an advisory lock keyed
// by the period. The lock also covers periods that have no row yet.
func (r *RevenueRepository) WithPeriodLock(ctx context.Context, period time.Time, fn func(repo domain.RevenueRepository) error) error {
	key := "revenue:" + domain.FormatPeriod(period)

	// Already inside a transaction: lock again in the same one
	if r.pool == nil {
		if err := r.queries.LockPeriod(ctx, key); err != nil {
			return persistenceError("lock period", err)
		}
		return fn(r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return persistenceError("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	qtx := r.queries.WithTx(tx)
	if err := qtx.LockPeriod(ctx, key); err != nil {
		return persistenceError("lock period", err)
	}

	if err := fn(&RevenueRepository{queries: qtx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return persistenceError("commit transaction", err)
	}
	return nil
}

func revenueRowToDomain(row revenueRow) *domain.RevenueAggregate {
	return &domain.RevenueAggregate{
		ID:                uuid.UUID(row.ID.Bytes),
		Period:            pgDateToTime(row.Period),
		CalculationSource: domain.CalculationSource(row.CalculationSource),
		CreatedAt:         row.CreatedAt.Time,
		UpdatedAt:         row.UpdatedAt.Time,
		RevenueTotals: domain.RevenueTotals{
			InvoiceCount:       row.InvoiceCount,
			TotalAmount:        row.TotalAmount,
			TotalPaidAmount:    row.TotalPaidAmount,
			TotalPendingAmount: row.TotalPendingAmount,
		},
	}
}

func persistenceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrPersistenceFailure, op, err)
}

func timeToPgDate(t time.Time) pgtype.Date {
	return pgtype.Date{
		Time:  time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
		Valid: true,
	}
}

func pgDateToTime(d pgtype.Date) time.Time {
	if !d.Valid {
		return time.Time{}
	}
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

func uuidToPg(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

// isPgUniqueViolation checks if an error is a PostgreSQL unique constraint violation
func isPgUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	// PostgreSQL unique violation error code is 23505
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
