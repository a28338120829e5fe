package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dafibh/revledger/revledger-backend/internal/clock"
	"github.com/dafibh/revledger/revledger-backend/internal/domain"
	"github.com/dafibh/revledger/revledger-backend/internal/service"
	"github.com/dafibh/revledger/revledger-backend/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, time.June, 15, 10, 30, 0, 0, time.UTC)

func period(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

type revenueFixture struct {
	repo      *testutil.MockRevenueRepository
	reader    *testutil.MockInvoiceReader
	publisher *testutil.RecordingPublisher
	handler   *RevenueHandler
	echo      *echo.Echo
}

func newRevenueFixture(t *testing.T) *revenueFixture {
	t.Helper()
	repo := testutil.NewMockRevenueRepository()
	reader := testutil.NewMockInvoiceReader()
	publisher := &testutil.RecordingPublisher{}

	queryService := service.NewRevenueQueryService(repo, reader, domain.NewPeriodResolver(2000, 2100), clock.NewFakeClock(testNow))
	queryService.SetEventPublisher(publisher)

	h := NewRevenueHandler(queryService, 12)
	e := echo.New()
	RegisterRoutes(e, h, NewInvoiceEventHandler(service.NewRevenueEventService(repo, nil, domain.NewPeriodResolver(2000, 2100))), nil)

	return &revenueFixture{repo: repo, reader: reader, publisher: publisher, handler: h, echo: e}
}

func (f *revenueFixture) do(method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	return rec
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) ProblemDetails {
	t.Helper()
	var problem ProblemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	return problem
}

func TestGetRollingYear_ZeroFillsMissingMonths(t *testing.T) {
	f := newRevenueFixture(t)
	f.repo.AddRevenue(&domain.RevenueAggregate{
		Period:        period(2025, time.March),
		RevenueTotals: domain.RevenueTotals{InvoiceCount: 3, TotalAmount: 150050, TotalPaidAmount: 100000, TotalPendingAmount: 50050},
	})

	rec := f.do(http.MethodGet, "/api/v1/revenues/rolling-year")
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []MonthlyRevenueResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 12)

	assert.Equal(t, "2024-07-01", rows[0].Period)
	assert.Equal(t, "Jul", rows[0].Month)
	assert.Equal(t, "2025-06-01", rows[11].Period)

	march := rows[8]
	assert.Equal(t, "2025-03-01", march.Period)
	assert.Equal(t, "1500.50", march.TotalAmount)
	assert.Equal(t, "1000.00", march.TotalPaidAmount)
	assert.Equal(t, "500.50", march.TotalPendingAmount)
	assert.Equal(t, int64(3), march.InvoiceCount)

	assert.Equal(t, "0.00", rows[0].TotalAmount)
	assert.Equal(t, int64(0), rows[0].InvoiceCount)
}

func TestGetForDuration(t *testing.T) {
	f := newRevenueFixture(t)

	t.Run("quarter", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/api/v1/revenues/duration?start=2025-01&duration=quarter")
		require.Equal(t, http.StatusOK, rec.Code)

		var rows []MonthlyRevenueResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
		require.Len(t, rows, 3)
		assert.Equal(t, "2025-01-01", rows[0].Period)
		assert.Equal(t, "2025-03-01", rows[2].Period)
	})

	t.Run("missing start", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/api/v1/revenues/duration?duration=year")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, ErrorTypeValidation, decodeProblem(t, rec).Type)
	})

	t.Run("unknown duration", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/api/v1/revenues/duration?start=2025-01&duration=decade")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid start period", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/api/v1/revenues/duration?start=2025-13&duration=year")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		problem := decodeProblem(t, rec)
		require.Len(t, problem.Errors, 1)
		assert.Equal(t, "period", problem.Errors[0].Field)
	})
}

func TestGetStatistics(t *testing.T) {
	f := newRevenueFixture(t)
	f.repo.AddRevenue(&domain.RevenueAggregate{
		Period:        period(2025, time.May),
		RevenueTotals: domain.RevenueTotals{InvoiceCount: 1, TotalAmount: 30000, TotalPaidAmount: 30000},
	})
	f.repo.AddRevenue(&domain.RevenueAggregate{
		Period:        period(2025, time.June),
		RevenueTotals: domain.RevenueTotals{InvoiceCount: 1, TotalAmount: 10000, TotalPendingAmount: 10000},
	})

	rec := f.do(http.MethodGet, "/api/v1/revenues/statistics?months=3")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats RevenueStatisticsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 3, stats.Months)
	assert.Equal(t, 2, stats.MonthsWithData)
	assert.Equal(t, "400.00", stats.Total)
	assert.Equal(t, "200.00", stats.Average)
	assert.Equal(t, "300.00", stats.Maximum)
	assert.Equal(t, "100.00", stats.Minimum)
}

func TestGetStatistics_DefaultWindow(t *testing.T) {
	f := newRevenueFixture(t)

	rec := f.do(http.MethodGet, "/api/v1/revenues/statistics")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats RevenueStatisticsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 12, stats.Months)
	assert.Equal(t, "0.00", stats.Total)
}

func TestGetStatistics_InvalidMonths(t *testing.T) {
	f := newRevenueFixture(t)

	for _, months := range []string{"abc", "0", "-1", "121"} {
		rec := f.do(http.MethodGet, "/api/v1/revenues/statistics?months="+months)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "months=%s", months)
	}
}

func TestGetCoverage(t *testing.T) {
	f := newRevenueFixture(t)
	f.repo.AddRevenue(&domain.RevenueAggregate{
		Period:        period(2025, time.June),
		RevenueTotals: domain.RevenueTotals{InvoiceCount: 1, TotalAmount: 500},
	})

	rec := f.do(http.MethodGet, "/api/v1/revenues/coverage?months=3")
	require.Equal(t, http.StatusOK, rec.Code)

	var report CoverageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.True(t, report.Healthy)
	assert.Equal(t, 3, report.Expected)
	assert.Equal(t, 1, report.Actual)
	assert.Equal(t, []string{"2025-04-01", "2025-05-01"}, report.Missing)
}

func TestGetByPeriod(t *testing.T) {
	f := newRevenueFixture(t)
	stored := f.repo.AddRevenue(&domain.RevenueAggregate{
		Period:            period(2025, time.February),
		CalculationSource: domain.CalculationSourceInvoiceEvent,
		RevenueTotals:     domain.RevenueTotals{InvoiceCount: 2, TotalAmount: 12345, TotalPaidAmount: 12345},
	})

	t.Run("found", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/api/v1/revenues/2025-02")
		require.Equal(t, http.StatusOK, rec.Code)

		var response RevenueResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.Equal(t, stored.ID.String(), response.ID)
		assert.Equal(t, "2025-02-01", response.Period)
		assert.Equal(t, "123.45", response.TotalAmount)
		assert.Equal(t, "0.00", response.TotalPendingAmount)
		assert.Equal(t, string(domain.CalculationSourceInvoiceEvent), response.CalculationSource)
	})

	t.Run("full date resolves to its month", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/api/v1/revenues/2025-02-17")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not found", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/api/v1/revenues/2025-04")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, ErrorTypeNotFound, decodeProblem(t, rec).Type)
	})

	t.Run("invalid period", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/api/v1/revenues/not-a-period")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRecompute(t *testing.T) {
	f := newRevenueFixture(t)
	f.reader.Invoices = []domain.InvoiceSnapshot{
		{ID: "inv-1", Status: domain.InvoiceStatusPaid, Amount: 10000, Date: "2025-03-02"},
		{ID: "inv-2", Status: domain.InvoiceStatusPending, Amount: 2500, Date: "2025-03-31"},
		{ID: "inv-3", Status: domain.InvoiceStatusCancelled, Amount: 9999, Date: "2025-03-15"},
		{ID: "inv-4", Status: domain.InvoiceStatusPaid, Amount: 7000, Date: "2025-04-01"},
	}
	f.repo.AddRevenue(&domain.RevenueAggregate{
		Period:        period(2025, time.March),
		RevenueTotals: domain.RevenueTotals{InvoiceCount: 9, TotalAmount: 1},
	})

	rec := f.do(http.MethodPost, "/api/v1/revenues/2025-03/recompute")
	require.Equal(t, http.StatusOK, rec.Code)

	var response RevenueResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, int64(2), response.InvoiceCount)
	assert.Equal(t, "125.00", response.TotalAmount)
	assert.Equal(t, "100.00", response.TotalPaidAmount)
	assert.Equal(t, "25.00", response.TotalPendingAmount)
	assert.Equal(t, string(domain.CalculationSourceManualRecompute), response.CalculationSource)

	assert.Equal(t, period(2025, time.March), f.reader.LastStart)
	assert.Equal(t, time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC), f.reader.LastEnd)
	assert.Equal(t, []string{"revenue.recomputed"}, f.publisher.Types())
}

func TestDelete(t *testing.T) {
	f := newRevenueFixture(t)
	f.repo.AddRevenue(&domain.RevenueAggregate{
		Period:        period(2025, time.January),
		RevenueTotals: domain.RevenueTotals{InvoiceCount: 1, TotalAmount: 100},
	})

	rec := f.do(http.MethodDelete, "/api/v1/revenues/2025-01")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, f.repo.Get(period(2025, time.January)))
	assert.Equal(t, []string{"revenue.deleted"}, f.publisher.Types())

	rec = f.do(http.MethodDelete, "/api/v1/revenues/2025-01")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRollingYear_RepositoryFailure(t *testing.T) {
	f := newRevenueFixture(t)
	f.repo.FindByDateRangeFn = func(_ context.Context, _, _ time.Time) ([]*domain.RevenueAggregate, error) {
		return nil, domain.ErrPersistenceFailure
	}

	rec := f.do(http.MethodGet, "/api/v1/revenues/rolling-year")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, ErrorTypeInternal, decodeProblem(t, rec).Type)
}
