package service

import (
	"math"
	"sort"

	"github.com/dafibh/revledger/revledger-backend/internal/domain"
)

// BuildCoverageReport compares stored periods with the expected template.
// It has no side effects.
func BuildCoverageReport(actual []domain.PeriodSample, template []domain.MonthTemplateEntry) domain.CoverageReport {
	report := domain.CoverageReport{
		Expected:      len(template),
		Actual:        len(actual),
		Duplicates:    []string{},
		InvalidFormat: []string{},
		Missing:       []string{},
		Unexpected:    []string{},
		BadRevenue:    []string{},
	}

	expected := make(map[string]struct{}, len(template))
	for _, entry := range template {
		expected[domain.FormatPeriod(entry.Period)] = struct{}{}
	}

	seen := make(map[string]int, len(actual))
	for _, sample := range actual {
		seen[sample.Period]++
		if seen[sample.Period] == 2 {
			report.Duplicates = append(report.Duplicates, sample.Period)
		}
		if seen[sample.Period] > 1 {
			continue
		}

		if !domain.IsPeriodString(sample.Period) {
			report.InvalidFormat = append(report.InvalidFormat, sample.Period)
		} else if _, ok := expected[sample.Period]; !ok {
			report.Unexpected = append(report.Unexpected, sample.Period)
		}
	}

	// Bad values are reported per row so a duplicate with a bad value shows up
	for _, sample := range actual {
		if math.IsNaN(sample.Revenue) || math.IsInf(sample.Revenue, 0) || sample.Revenue < 0 {
			report.BadRevenue = append(report.BadRevenue, sample.Period)
		}
	}

	for period := range expected {
		if _, ok := seen[period]; !ok {
			report.Missing = append(report.Missing, period)
		}
	}

	sort.Strings(report.Duplicates)
	sort.Strings(report.InvalidFormat)
	sort.Strings(report.Missing)
	sort.Strings(report.Unexpected)
	sort.Strings(report.BadRevenue)
	return report
}

// CoverageCounts returns the size of each flagged category
func CoverageCounts(report domain.CoverageReport) map[string]int {
	return map[string]int{
		"duplicates":     len(report.Duplicates),
		"invalid_format": len(report.InvalidFormat),
		"missing":        len(report.Missing),
		"unexpected":     len(report.Unexpected),
		"bad_revenue":    len(report.BadRevenue),
	}
}

// SamplesFromAggregates converts stored aggregates into coverage samples
func SamplesFromAggregates(rows []*domain.RevenueAggregate) []domain.PeriodSample {
	samples := make([]domain.PeriodSample, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		samples = append(samples, domain.PeriodSample{
			Period:  domain.FormatPeriod(row.Period),
			Revenue: float64(row.TotalAmount),
		})
	}
	return samples
}
