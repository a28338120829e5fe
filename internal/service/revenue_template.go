package service

import (
	"fmt"
	"time"

	"github.com/dafibh/revledger/revledger-backend/internal/domain"
)

// GenerateRollingTemplate returns months consecutive placeholders ending at
// the month containing now, in chronological order
func GenerateRollingTemplate(now time.Time, months int) ([]domain.MonthTemplateEntry, error) {
	if months <= 0 {
		return nil, fmt.Errorf("%w: window must be positive, got %d", domain.ErrInvalidInput, months)
	}
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return buildTemplate(domain.NextPeriod(current, -(months - 1)), months)
}

// GenerateMonthsTemplate returns the placeholders of a fixed-length window
// starting at the month containing start
func GenerateMonthsTemplate(start time.Time, duration domain.TemplateDuration) ([]domain.MonthTemplateEntry, error) {
	months, err := DurationMonths(duration)
	if err != nil {
		return nil, err
	}
	first := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	return buildTemplate(first, months)
}

// DurationMonths returns the number of months in a named window
func DurationMonths(duration domain.TemplateDuration) (int, error) {
	switch duration {
	case domain.DurationMonth:
		return 1, nil
	case domain.DurationQuarter:
		return 3, nil
	case domain.DurationHalfYear:
		return 6, nil
	case domain.DurationYear:
		return 12, nil
	default:
		return 0, fmt.Errorf("%w: unknown duration %q", domain.ErrInvalidInput, duration)
	}
}

func buildTemplate(first time.Time, months int) ([]domain.MonthTemplateEntry, error) {
	template := make([]domain.MonthTemplateEntry, 0, months)
	for i := 0; i < months; i++ {
		period := domain.NextPeriod(first, i)
		template = append(template, domain.MonthTemplateEntry{
			Year:        period.Year(),
			MonthNumber: int(period.Month()),
			Period:      period,
		})
	}
	if len(template) == 0 {
		return nil, fmt.Errorf("%w: empty template", domain.ErrInvalidInput)
	}
	return template, nil
}

// MergeDataWithTemplate lays stored aggregates over the template. Months
// without an aggregate get a zero-valued row. The result always has the
// template's length and order.
func MergeDataWithTemplate(template []domain.MonthTemplateEntry, rows []*domain.RevenueAggregate) []*domain.RevenueAggregate {
	byPeriod := make(map[string]*domain.RevenueAggregate, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		byPeriod[domain.FormatPeriod(row.Period)] = row
	}

	merged := make([]*domain.RevenueAggregate, len(template))
	for i, entry := range template {
		if row, ok := byPeriod[domain.FormatPeriod(entry.Period)]; ok {
			merged[i] = row
			continue
		}
		merged[i] = &domain.RevenueAggregate{Period: entry.Period}
	}
	return merged
}
