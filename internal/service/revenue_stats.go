package service

import (
	"math"

	"github.com/dafibh/revledger/revledger-backend/internal/domain"
)

// ComputeStatistics summarizes a series of monthly aggregates.
// Minimum, maximum and the average's denominator only consider months with
// revenue; the total covers every month in the series.
func ComputeStatistics(rows []*domain.RevenueAggregate) domain.RevenueStatistics {
	var stats domain.RevenueStatistics
	var total int64

	for _, row := range rows {
		if row == nil {
			continue
		}
		total += row.TotalAmount
		if row.TotalAmount <= 0 {
			continue
		}
		if stats.MonthsWithData == 0 || row.TotalAmount > stats.Maximum {
			stats.Maximum = row.TotalAmount
		}
		if stats.MonthsWithData == 0 || row.TotalAmount < stats.Minimum {
			stats.Minimum = row.TotalAmount
		}
		stats.MonthsWithData++
	}

	if stats.MonthsWithData == 0 {
		return domain.RevenueStatistics{}
	}

	stats.Total = total
	stats.Average = int64(math.Round(float64(total) / float64(stats.MonthsWithData)))
	return stats
}
