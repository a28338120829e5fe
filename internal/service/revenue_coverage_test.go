package service

import (
	"math"
	"testing"
	"time"

	"github.com/dafibh/revledger/revledger-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quarterTemplate(t *testing.T) []domain.MonthTemplateEntry {
	t.Helper()
	template, err := GenerateMonthsTemplate(period(2025, time.January), domain.DurationQuarter)
	require.NoError(t, err)
	return template
}

func TestBuildCoverageReport_Complete(t *testing.T) {
	report := BuildCoverageReport([]domain.PeriodSample{
		{Period: "2025-01-01", Revenue: 100},
		{Period: "2025-02-01", Revenue: 0},
		{Period: "2025-03-01", Revenue: 250.5},
	}, quarterTemplate(t))

	assert.Equal(t, 3, report.Expected)
	assert.Equal(t, 3, report.Actual)
	assert.Empty(t, report.Duplicates)
	assert.Empty(t, report.InvalidFormat)
	assert.Empty(t, report.Missing)
	assert.Empty(t, report.Unexpected)
	assert.Empty(t, report.BadRevenue)
	assert.True(t, report.Healthy())
}

func TestBuildCoverageReport_FlagsEveryCategory(t *testing.T) {
	report := BuildCoverageReport([]domain.PeriodSample{
		{Period: "2025-03-01", Revenue: 10},
		{Period: "2025-03-01", Revenue: -1},
		{Period: "2025-1", Revenue: 5},
		{Period: "2024-12-01", Revenue: 5},
		{Period: "2025-01-15", Revenue: math.NaN()},
	}, quarterTemplate(t))

	assert.Equal(t, 3, report.Expected)
	assert.Equal(t, 5, report.Actual)
	assert.Equal(t, []string{"2025-03-01"}, report.Duplicates)
	assert.Equal(t, []string{"2025-01-15", "2025-1"}, report.InvalidFormat)
	assert.Equal(t, []string{"2025-01-01", "2025-02-01"}, report.Missing)
	assert.Equal(t, []string{"2024-12-01"}, report.Unexpected)
	assert.Equal(t, []string{"2025-01-15", "2025-03-01"}, report.BadRevenue)
	assert.False(t, report.Healthy())
}

func TestBuildCoverageReport_MissingOnlyIsHealthy(t *testing.T) {
	report := BuildCoverageReport(nil, quarterTemplate(t))

	assert.Equal(t, 0, report.Actual)
	assert.Equal(t, []string{"2025-01-01", "2025-02-01", "2025-03-01"}, report.Missing)
	assert.True(t, report.Healthy())
}

func TestBuildCoverageReport_TripleDuplicateReportedOnce(t *testing.T) {
	report := BuildCoverageReport([]domain.PeriodSample{
		{Period: "2025-02-01"}, {Period: "2025-02-01"}, {Period: "2025-02-01"},
	}, quarterTemplate(t))

	assert.Equal(t, []string{"2025-02-01"}, report.Duplicates)
}

func TestBuildCoverageReport_InfiniteRevenue(t *testing.T) {
	report := BuildCoverageReport([]domain.PeriodSample{
		{Period: "2025-01-01", Revenue: math.Inf(1)},
	}, quarterTemplate(t))

	assert.Equal(t, []string{"2025-01-01"}, report.BadRevenue)
}

func TestCoverageCounts(t *testing.T) {
	counts := CoverageCounts(domain.CoverageReport{
		Duplicates: []string{"a"},
		Missing:    []string{"b", "c"},
	})

	assert.Equal(t, map[string]int{
		"duplicates":     1,
		"invalid_format": 0,
		"missing":        2,
		"unexpected":     0,
		"bad_revenue":    0,
	}, counts)
}

func TestSamplesFromAggregates(t *testing.T) {
	samples := SamplesFromAggregates([]*domain.RevenueAggregate{
		{Period: period(2025, time.January), RevenueTotals: domain.RevenueTotals{TotalAmount: 1200}},
		nil,
	})

	assert.Equal(t, []domain.PeriodSample{{Period: "2025-01-01", Revenue: 1200}}, samples)
}
