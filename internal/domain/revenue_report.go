package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MonthTemplateEntry is one placeholder month of a reporting window
type MonthTemplateEntry struct {
	Year        int       `json:"year"`
	MonthNumber int       `json:"monthNumber"`
	Period      time.Time `json:"period"`
}

// TemplateDuration names a fixed-length reporting window
type TemplateDuration string

const (
	DurationMonth    TemplateDuration = "month"
	DurationQuarter  TemplateDuration = "quarter"
	DurationHalfYear TemplateDuration = "half-year"
	DurationYear     TemplateDuration = "year"
)

// DefaultRollingMonths is the conventional rolling window length
const DefaultRollingMonths = 12

// MaxRollingMonths bounds the reporting window accepted from callers
const MaxRollingMonths = 120

// RevenueStatistics summarizes a reporting window, amounts in cents
type RevenueStatistics struct {
	Average        int64 `json:"average"`
	Maximum        int64 `json:"maximum"`
	Minimum        int64 `json:"minimum"`
	MonthsWithData int   `json:"monthsWithData"`
	Total          int64 `json:"total"`
}

// SimpleRevenue is one month of a report in display units
type SimpleRevenue struct {
	Month              string          `json:"month"`
	MonthNumber        int             `json:"monthNumber"`
	Year               int             `json:"year"`
	Period             time.Time       `json:"period"`
	InvoiceCount       int64           `json:"invoiceCount"`
	TotalAmount        decimal.Decimal `json:"totalAmount"`
	TotalPaidAmount    decimal.Decimal `json:"totalPaidAmount"`
	TotalPendingAmount decimal.Decimal `json:"totalPendingAmount"`
}

// PeriodSample is a raw period/revenue pair as read from storage or an export
type PeriodSample struct {
	Period  string
	Revenue float64
}

// CoverageReport compares stored periods against an expected window
type CoverageReport struct {
	Expected      int      `json:"expected"`
	Actual        int      `json:"actual"`
	Duplicates    []string `json:"duplicates"`
	InvalidFormat []string `json:"invalidFormat"`
	Missing       []string `json:"missing"`
	Unexpected    []string `json:"unexpected"`
	BadRevenue    []string `json:"badRevenue"`
}

// Healthy reports whether the report found nothing to flag.
// Missing months are normal for quiet periods and are not counted.
func (r CoverageReport) Healthy() bool {
	return len(r.Duplicates) == 0 && len(r.InvalidFormat) == 0 &&
		len(r.Unexpected) == 0 && len(r.BadRevenue) == 0
}

// CentsToUnits converts minor currency units to display units
func CentsToUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
