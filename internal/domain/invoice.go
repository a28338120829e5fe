package domain

import (
	"context"
	"time"
)

// InvoiceStatus is the lifecycle status reported by the invoice subsystem
type InvoiceStatus string

const (
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// InvoiceSnapshot is the invoice state carried by a lifecycle event.
// Amount is in minor currency units (cents).
type InvoiceSnapshot struct {
	ID     string        `json:"id"`
	Status InvoiceStatus `json:"status"`
	Amount int64         `json:"amount"`
	Date   string        `json:"date"`
}

// IsEligible reports whether invoices in this status count toward revenue.
// Unknown statuses are ineligible.
func IsEligible(status InvoiceStatus) bool {
	switch status {
	case InvoiceStatusPaid, InvoiceStatusPending:
		return true
	default:
		return false
	}
}

// RevenueBucket identifies the sub-total an eligible status contributes to
type RevenueBucket string

const (
	BucketNone    RevenueBucket = ""
	BucketPaid    RevenueBucket = "paid"
	BucketPending RevenueBucket = "pending"
)

// Bucket returns the sub-total fed by the given status
func Bucket(status InvoiceStatus) RevenueBucket {
	switch status {
	case InvoiceStatusPaid:
		return BucketPaid
	case InvoiceStatusPending:
		return BucketPending
	default:
		return BucketNone
	}
}

// InvoiceReader reads invoices from the invoice subsystem's store.
// Used only for administrative recomputation.
type InvoiceReader interface {
	ListByDateRange(ctx context.Context, start, end time.Time) ([]InvoiceSnapshot, error)
}
