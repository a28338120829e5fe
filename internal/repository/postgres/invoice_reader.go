package postgres

import (
	"context"
	"time"

	"github.com/dafibh/revledger/revledger-backend/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InvoiceReader implements domain.InvoiceReader over the invoice
// subsystem's table. It never writes.
type InvoiceReader struct {
	queries *Queries
}

// NewInvoiceReader creates a new InvoiceReader
func NewInvoiceReader(pool *pgxpool.Pool) *InvoiceReader {
	return &InvoiceReader{queries: NewQueries(pool)}
}

// ListByDateRange returns invoices dated between start and end inclusive
func (r *InvoiceReader) ListByDateRange(ctx context.Context, start, end time.Time) ([]domain.InvoiceSnapshot, error) {
	rows, err := r.queries.ListInvoicesByDateRange(ctx, timeToPgDate(start), timeToPgDate(end))
	if err != nil {
		return nil, persistenceError("list invoices", err)
	}

	result := make([]domain.InvoiceSnapshot, len(rows))
	for i, row := range rows {
		result[i] = domain.InvoiceSnapshot{
			ID:     row.ID,
			Status: domain.InvoiceStatus(row.Status),
			Amount: row.AmountCents,
			Date:   pgDateToTime(row.InvoiceDate).Format(domain.PeriodLayout),
		}
	}
	return result, nil
}
