package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dafibh/revledger/revledger-backend/internal/clock"
	"github.com/dafibh/revledger/revledger-backend/internal/domain"
	"github.com/dafibh/revledger/revledger-backend/internal/metrics"
	"github.com/dafibh/revledger/revledger-backend/internal/websocket"
)

var monthAbbreviations = [...]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// MonthAbbreviation returns the three-letter English name of a month (1-12)
func MonthAbbreviation(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthAbbreviations[month-1]
}

// RevenueQueryService serves the reporting views over stored aggregates.
// Errors are returned to the caller.
type RevenueQueryService struct {
	revenueRepo    domain.RevenueRepository
	invoiceReader  domain.InvoiceReader
	resolver       domain.PeriodResolver
	clock          clock.Clock
	metrics        *metrics.RevenueMetrics
	eventPublisher websocket.EventPublisher
}

// NewRevenueQueryService creates a new RevenueQueryService.
// invoiceReader may be nil, which disables RecomputePeriod.
func NewRevenueQueryService(revenueRepo domain.RevenueRepository, invoiceReader domain.InvoiceReader, resolver domain.PeriodResolver, c clock.Clock) *RevenueQueryService {
	if c == nil {
		c = clock.System{}
	}
	return &RevenueQueryService{
		revenueRepo:   revenueRepo,
		invoiceReader: invoiceReader,
		resolver:      resolver,
		clock:         c,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *RevenueQueryService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics attaches coverage metrics
func (s *RevenueQueryService) SetMetrics(m *metrics.RevenueMetrics) {
	s.metrics = m
}

func (s *RevenueQueryService) publishEvent(event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(event)
	}
}

// GetRollingYearRevenues returns the last twelve months ending with the
// current one, zero-filled
func (s *RevenueQueryService) GetRollingYearRevenues(ctx context.Context) ([]domain.SimpleRevenue, error) {
	template, err := GenerateRollingTemplate(s.clock.Now(), domain.DefaultRollingMonths)
	if err != nil {
		return nil, err
	}
	rows, err := s.mergedWindow(ctx, template)
	if err != nil {
		return nil, err
	}
	return toSimpleRevenues(rows), nil
}

// GetRevenuesForDuration returns a fixed-length window starting at start
func (s *RevenueQueryService) GetRevenuesForDuration(ctx context.Context, start string, duration domain.TemplateDuration) ([]domain.SimpleRevenue, error) {
	first, err := s.resolver.Parse(start)
	if err != nil {
		return nil, err
	}
	template, err := GenerateMonthsTemplate(first, duration)
	if err != nil {
		return nil, err
	}
	rows, err := s.mergedWindow(ctx, template)
	if err != nil {
		return nil, err
	}
	return toSimpleRevenues(rows), nil
}

// GetRevenueStatistics summarizes the rolling window of the given length
func (s *RevenueQueryService) GetRevenueStatistics(ctx context.Context, months int) (*domain.RevenueStatistics, error) {
	if err := validateWindow(months); err != nil {
		return nil, err
	}
	template, err := GenerateRollingTemplate(s.clock.Now(), months)
	if err != nil {
		return nil, err
	}
	rows, err := s.mergedWindow(ctx, template)
	if err != nil {
		return nil, err
	}
	stats := ComputeStatistics(rows)
	return &stats, nil
}

// GetCoverageReport checks the stored periods of the rolling window
func (s *RevenueQueryService) GetCoverageReport(ctx context.Context, months int) (*domain.CoverageReport, error) {
	if err := validateWindow(months); err != nil {
		return nil, err
	}
	template, err := GenerateRollingTemplate(s.clock.Now(), months)
	if err != nil {
		return nil, err
	}
	rows, err := s.revenueRepo.FindByDateRange(ctx, template[0].Period, template[len(template)-1].Period)
	if err != nil {
		return nil, fmt.Errorf("failed to load revenues: %w", err)
	}

	report := BuildCoverageReport(SamplesFromAggregates(rows), template)
	s.metrics.RecordCoverage(CoverageCounts(report), report.Healthy())
	return &report, nil
}

// GetRevenueByPeriod returns the stored aggregate of one period
func (s *RevenueQueryService) GetRevenueByPeriod(ctx context.Context, period string) (*domain.RevenueAggregate, error) {
	p, err := s.resolver.Parse(period)
	if err != nil {
		return nil, err
	}
	return s.revenueRepo.FindByPeriod(ctx, p)
}

// RecomputePeriod rebuilds one period from the invoice store and marks it
// as manually recomputed
func (s *RevenueQueryService) RecomputePeriod(ctx context.Context, period string) (*domain.RevenueAggregate, error) {
	if s.invoiceReader == nil {
		return nil, fmt.Errorf("%w: recompute requires an invoice reader", domain.ErrInvalidInput)
	}
	p, err := s.resolver.Parse(period)
	if err != nil {
		return nil, err
	}

	var saved *domain.RevenueAggregate
	err = s.revenueRepo.WithPeriodLock(ctx, p, func(repo domain.RevenueRepository) error {
		invoices, err := s.invoiceReader.ListByDateRange(ctx, p, domain.NextPeriod(p, 1).AddDate(0, 0, -1))
		if err != nil {
			return fmt.Errorf("failed to list invoices: %w", err)
		}

		var totals domain.RevenueTotals
		for _, invoice := range invoices {
			if domain.IsEligible(invoice.Status) {
				totals = totals.Add(invoice.Status, invoice.Amount)
			}
		}

		existing, err := repo.FindByPeriod(ctx, p)
		if err != nil && !errors.Is(err, domain.ErrRevenueNotFound) {
			return err
		}
		if existing == nil {
			saved, err = repo.Create(ctx, &domain.RevenueAggregate{
				Period:            p,
				CalculationSource: domain.CalculationSourceManualRecompute,
				RevenueTotals:     totals,
			})
			return err
		}
		saved, err = repo.Update(ctx, existing.ID, domain.RevenuePatch{
			Totals:            totals,
			CalculationSource: domain.CalculationSourceManualRecompute,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(websocket.RevenueRecomputed(saved))
	return saved, nil
}

// DeleteRevenue removes the aggregate of one period
func (s *RevenueQueryService) DeleteRevenue(ctx context.Context, period string) error {
	p, err := s.resolver.Parse(period)
	if err != nil {
		return err
	}

	err = s.revenueRepo.WithPeriodLock(ctx, p, func(repo domain.RevenueRepository) error {
		existing, err := repo.FindByPeriod(ctx, p)
		if err != nil {
			return err
		}
		return repo.Delete(ctx, existing.ID)
	})
	if err != nil {
		return err
	}

	s.publishEvent(websocket.RevenueDeleted(map[string]string{"period": domain.FormatPeriod(p)}))
	return nil
}

func (s *RevenueQueryService) mergedWindow(ctx context.Context, template []domain.MonthTemplateEntry) ([]*domain.RevenueAggregate, error) {
	start := template[0].Period
	end := template[len(template)-1].Period
	rows, err := s.revenueRepo.FindByDateRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load revenues: %w", err)
	}
	return MergeDataWithTemplate(template, rows), nil
}

func validateWindow(months int) error {
	if months <= 0 || months > domain.MaxRollingMonths {
		return fmt.Errorf("%w: months must be between 1 and %d", domain.ErrInvalidInput, domain.MaxRollingMonths)
	}
	return nil
}

func toSimpleRevenues(rows []*domain.RevenueAggregate) []domain.SimpleRevenue {
	out := make([]domain.SimpleRevenue, len(rows))
	for i, row := range rows {
		out[i] = toSimpleRevenue(row)
	}
	return out
}

func toSimpleRevenue(row *domain.RevenueAggregate) domain.SimpleRevenue {
	period := row.Period.UTC()
	return domain.SimpleRevenue{
		Month:              MonthAbbreviation(int(period.Month())),
		MonthNumber:        int(period.Month()),
		Year:               period.Year(),
		Period:             time.Date(period.Year(), period.Month(), 1, 0, 0, 0, 0, time.UTC),
		InvoiceCount:       row.InvoiceCount,
		TotalAmount:        domain.CentsToUnits(row.TotalAmount),
		TotalPaidAmount:    domain.CentsToUnits(row.TotalPaidAmount),
		TotalPendingAmount: domain.CentsToUnits(row.TotalPendingAmount),
	}
}
