package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Queries holds the statements used by the repositories
type Queries struct {
	db DBTX
}

// NewQueries creates Queries over a pool, connection or transaction
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns Queries bound to tx
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

// revenueRow mirrors one row of the revenues table
type revenueRow struct {
	ID                 pgtype.UUID
	Period             pgtype.Date
	InvoiceCount       int64
	TotalAmount        int64
	TotalPaidAmount    int64
	TotalPendingAmount int64
	CalculationSource  string
	CreatedAt          pgtype.Timestamptz
	UpdatedAt          pgtype.Timestamptz
}

const revenueColumns = `id, period, invoice_count, total_amount, total_paid_amount, total_pending_amount, calculation_source, created_at, updated_at`

func scanRevenue(row pgx.Row) (revenueRow, error) {
	var r revenueRow
	err := row.Scan(
		&r.ID,
		&r.Period,
		&r.InvoiceCount,
		&r.TotalAmount,
		&r.TotalPaidAmount,
		&r.TotalPendingAmount,
		&r.CalculationSource,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	return r, err
}

const getRevenueByPeriod = `SELECT ` + revenueColumns + `
FROM revenues
WHERE period = $1`

func (q *Queries) GetRevenueByPeriod(ctx context.Context, period pgtype.Date) (revenueRow, error) {
	return scanRevenue(q.db.QueryRow(ctx, getRevenueByPeriod, period))
}

const listRevenuesByDateRange = `SELECT ` + revenueColumns + `
FROM revenues
WHERE period >= $1 AND period <= $2
ORDER BY period ASC`

func (q *Queries) ListRevenuesByDateRange(ctx context.Context, start, end pgtype.Date) ([]revenueRow, error) {
	rows, err := q.db.Query(ctx, listRevenuesByDateRange, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []revenueRow
	for rows.Next() {
		r, err := scanRevenue(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

type createRevenueParams struct {
	Period             pgtype.Date
	InvoiceCount       int64
	TotalAmount        int64
	TotalPaidAmount    int64
	TotalPendingAmount int64
	CalculationSource  string
}

const createRevenue = `INSERT INTO revenues (
    period, invoice_count, total_amount, total_paid_amount, total_pending_amount, calculation_source
) VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + revenueColumns

func (q *Queries) CreateRevenue(ctx context.Context, arg createRevenueParams) (revenueRow, error) {
	return scanRevenue(q.db.QueryRow(ctx, createRevenue,
		arg.Period,
		arg.InvoiceCount,
		arg.TotalAmount,
		arg.TotalPaidAmount,
		arg.TotalPendingAmount,
		arg.CalculationSource,
	))
}

type updateRevenueParams struct {
	ID                 pgtype.UUID
	InvoiceCount       int64
	TotalAmount        int64
	TotalPaidAmount    int64
	TotalPendingAmount int64
	CalculationSource  string
}

const updateRevenue = `UPDATE revenues
SET invoice_count = $2,
    total_amount = $3,
    total_paid_amount = $4,
    total_pending_amount = $5,
    calculation_source = COALESCE(NULLIF($6, ''), calculation_source),
    updated_at = now()
WHERE id = $1
RETURNING ` + revenueColumns

func (q *Queries) UpdateRevenue(ctx context.Context, arg updateRevenueParams) (revenueRow, error) {
	return scanRevenue(q.db.QueryRow(ctx, updateRevenue,
		arg.ID,
		arg.InvoiceCount,
		arg.TotalAmount,
		arg.TotalPaidAmount,
		arg.TotalPendingAmount,
		arg.CalculationSource,
	))
}

const deleteRevenue = `DELETE FROM revenues WHERE id = $1`

func (q *Queries) DeleteRevenue(ctx context.Context, id pgtype.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteRevenue, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const lockPeriod = `SELECT pg_advisory_xact_lock(hashtext($1))`

// LockPeriod blocks until the transaction holds the advisory lock for period.
// The lock is released at commit or rollback.
func (q *Queries) LockPeriod(ctx context.Context, period string) error {
	_, err := q.db.Exec(ctx, lockPeriod, period)
	return err
}

const claimEvent = `INSERT INTO processed_invoice_events (event_id)
VALUES ($1)
ON CONFLICT (event_id) DO NOTHING`

func (q *Queries) ClaimEvent(ctx context.Context, eventID string) (bool, error) {
	tag, err := q.db.Exec(ctx, claimEvent, eventID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

const releaseEvent = `DELETE FROM processed_invoice_events WHERE event_id = $1`

func (q *Queries) ReleaseEvent(ctx context.Context, eventID string) error {
	_, err := q.db.Exec(ctx, releaseEvent, eventID)
	return err
}

const purgeEventsBefore = `DELETE FROM processed_invoice_events WHERE processed_at < $1`

func (q *Queries) PurgeEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, purgeEventsBefore, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// invoiceRow is the subset of the invoice subsystem's row the ledger reads
type invoiceRow struct {
	ID          string
	Status      string
	AmountCents int64
	InvoiceDate pgtype.Date
}

const listInvoicesByDateRange = `SELECT id::text, status, amount_cents, invoice_date
FROM invoices
WHERE invoice_date >= $1 AND invoice_date <= $2
ORDER BY invoice_date ASC, id ASC`

func (q *Queries) ListInvoicesByDateRange(ctx context.Context, start, end pgtype.Date) ([]invoiceRow, error) {
	rows, err := q.db.Query(ctx, listInvoicesByDateRange, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []invoiceRow
	for rows.Next() {
		var r invoiceRow
		if err := rows.Scan(&r.ID, &r.Status, &r.AmountCents, &r.InvoiceDate); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
