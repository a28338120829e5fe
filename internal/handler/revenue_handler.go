package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dafibh/revledger/revledger-backend/internal/domain"
	"github.com/dafibh/revledger/revledger-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// RevenueHandler handles revenue reporting HTTP requests
type RevenueHandler struct {
	queryService  *service.RevenueQueryService
	defaultWindow int
}

// NewRevenueHandler creates a new RevenueHandler. defaultWindow is used when
// the months query parameter is absent.
func NewRevenueHandler(queryService *service.RevenueQueryService, defaultWindow int) *RevenueHandler {
	if defaultWindow <= 0 {
		defaultWindow = domain.DefaultRollingMonths
	}
	return &RevenueHandler{
		queryService:  queryService,
		defaultWindow: defaultWindow,
	}
}

// RevenueResponse represents a stored revenue aggregate in API responses
type RevenueResponse struct {
	ID                 string `json:"id"`
	Period             string `json:"period"`
	InvoiceCount       int64  `json:"invoiceCount"`
	TotalAmount        string `json:"totalAmount"`
	TotalPaidAmount    string `json:"totalPaidAmount"`
	TotalPendingAmount string `json:"totalPendingAmount"`
	CalculationSource  string `json:"calculationSource"`
	CreatedAt          string `json:"createdAt"`
	UpdatedAt          string `json:"updatedAt"`
}

// MonthlyRevenueResponse represents one month of a report
type MonthlyRevenueResponse struct {
	Month              string `json:"month"`
	MonthNumber        int    `json:"monthNumber"`
	Year               int    `json:"year"`
	Period             string `json:"period"`
	InvoiceCount       int64  `json:"invoiceCount"`
	TotalAmount        string `json:"totalAmount"`
	TotalPaidAmount    string `json:"totalPaidAmount"`
	TotalPendingAmount string `json:"totalPendingAmount"`
}

// RevenueStatisticsResponse represents window statistics in display units
type RevenueStatisticsResponse struct {
	Months         int    `json:"months"`
	Average        string `json:"average"`
	Maximum        string `json:"maximum"`
	Minimum        string `json:"minimum"`
	MonthsWithData int    `json:"monthsWithData"`
	Total          string `json:"total"`
}

// CoverageResponse represents a coverage report
type CoverageResponse struct {
	Healthy bool `json:"healthy"`
	domain.CoverageReport
}

// GetRollingYear handles GET /api/v1/revenues/rolling-year
// @Summary Rolling twelve-month revenue
// @Tags revenues
// @Produce json
// @Success 200 {array} MonthlyRevenueResponse
// @Failure 500 {object} ProblemDetails
// @Router /revenues/rolling-year [get]
func (h *RevenueHandler) GetRollingYear(c echo.Context) error {
	rows, err := h.queryService.GetRollingYearRevenues(c.Request().Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to get rolling year revenues")
		return NewInternalError(c, "Failed to get revenues")
	}
	return c.JSON(http.StatusOK, toMonthlyRevenueResponses(rows))
}

// GetForDuration handles GET /api/v1/revenues/duration?start=2025-01&duration=year
// @Summary Revenue for a fixed-length window
// @Tags revenues
// @Produce json
// @Param start query string true "First period (YYYY-MM)"
// @Param duration query string true "month, quarter, half-year or year"
// @Success 200 {array} MonthlyRevenueResponse
// @Failure 400 {object} ProblemDetails
// @Router /revenues/duration [get]
func (h *RevenueHandler) GetForDuration(c echo.Context) error {
	start := c.QueryParam("start")
	if start == "" {
		return NewValidationError(c, "Missing start period", []ValidationError{
			{Field: "start", Message: "start is required (YYYY-MM)"},
		})
	}
	duration := domain.TemplateDuration(c.QueryParam("duration"))
	if _, err := service.DurationMonths(duration); err != nil {
		return NewValidationError(c, "Invalid duration", []ValidationError{
			{Field: "duration", Message: "duration must be one of month, quarter, half-year, year"},
		})
	}

	rows, err := h.queryService.GetRevenuesForDuration(c.Request().Context(), start, duration)
	if err != nil {
		return h.handleError(c, err, "Failed to get revenues")
	}
	return c.JSON(http.StatusOK, toMonthlyRevenueResponses(rows))
}

// GetStatistics handles GET /api/v1/revenues/statistics?months=12
// @Summary Revenue statistics over a rolling window
// @Tags revenues
// @Produce json
// @Param months query int false "Window length in months"
// @Success 200 {object} RevenueStatisticsResponse
// @Failure 400 {object} ProblemDetails
// @Router /revenues/statistics [get]
func (h *RevenueHandler) GetStatistics(c echo.Context) error {
	months, err := h.parseMonths(c)
	if err != nil {
		return err
	}

	stats, err := h.queryService.GetRevenueStatistics(c.Request().Context(), months)
	if err != nil {
		return h.handleError(c, err, "Failed to compute statistics")
	}

	return c.JSON(http.StatusOK, RevenueStatisticsResponse{
		Months:         months,
		Average:        domain.CentsToUnits(stats.Average).StringFixed(2),
		Maximum:        domain.CentsToUnits(stats.Maximum).StringFixed(2),
		Minimum:        domain.CentsToUnits(stats.Minimum).StringFixed(2),
		MonthsWithData: stats.MonthsWithData,
		Total:          domain.CentsToUnits(stats.Total).StringFixed(2),
	})
}

// GetCoverage handles GET /api/v1/revenues/coverage?months=12
// @Summary Data coverage of a rolling window
// @Tags revenues
// @Produce json
// @Param months query int false "Window length in months"
// @Success 200 {object} CoverageResponse
// @Failure 400 {object} ProblemDetails
// @Router /revenues/coverage [get]
func (h *RevenueHandler) GetCoverage(c echo.Context) error {
	months, err := h.parseMonths(c)
	if err != nil {
		return err
	}

	report, err := h.queryService.GetCoverageReport(c.Request().Context(), months)
	if err != nil {
		return h.handleError(c, err, "Failed to build coverage report")
	}
	return c.JSON(http.StatusOK, CoverageResponse{Healthy: report.Healthy(), CoverageReport: *report})
}

// GetByPeriod handles GET /api/v1/revenues/:period
// @Summary Stored revenue of one period
// @Tags revenues
// @Produce json
// @Param period path string true "Period (YYYY-MM or YYYY-MM-DD)"
// @Success 200 {object} RevenueResponse
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /revenues/{period} [get]
func (h *RevenueHandler) GetByPeriod(c echo.Context) error {
	aggregate, err := h.queryService.GetRevenueByPeriod(c.Request().Context(), c.Param("period"))
	if err != nil {
		return h.handleError(c, err, "Failed to get revenue")
	}
	return c.JSON(http.StatusOK, toRevenueResponse(aggregate))
}

// Recompute handles POST /api/v1/revenues/:period/recompute
// @Summary Rebuild one period from the invoice store
// @Tags revenues
// @Produce json
// @Param period path string true "Period (YYYY-MM or YYYY-MM-DD)"
// @Success 200 {object} RevenueResponse
// @Failure 400 {object} ProblemDetails
// @Router /revenues/{period}/recompute [post]
func (h *RevenueHandler) Recompute(c echo.Context) error {
	aggregate, err := h.queryService.RecomputePeriod(c.Request().Context(), c.Param("period"))
	if err != nil {
		return h.handleError(c, err, "Failed to recompute revenue")
	}

	log.Info().
		Str("period", domain.FormatPeriod(aggregate.Period)).
		Int64("invoice_count", aggregate.InvoiceCount).
		Msg("Revenue period recomputed")

	return c.JSON(http.StatusOK, toRevenueResponse(aggregate))
}

// Delete handles DELETE /api/v1/revenues/:period
// @Summary Remove the stored revenue of one period
// @Tags revenues
// @Param period path string true "Period (YYYY-MM or YYYY-MM-DD)"
// @Success 204
// @Failure 404 {object} ProblemDetails
// @Router /revenues/{period} [delete]
func (h *RevenueHandler) Delete(c echo.Context) error {
	if err := h.queryService.DeleteRevenue(c.Request().Context(), c.Param("period")); err != nil {
		return h.handleError(c, err, "Failed to delete revenue")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *RevenueHandler) parseMonths(c echo.Context) (int, error) {
	raw := c.QueryParam("months")
	if raw == "" {
		return h.defaultWindow, nil
	}
	months, err := strconv.Atoi(raw)
	if err != nil || months < 1 || months > domain.MaxRollingMonths {
		return 0, NewValidationError(c, "Invalid months", []ValidationError{
			{Field: "months", Message: "months must be between 1 and " + strconv.Itoa(domain.MaxRollingMonths)},
		})
	}
	return months, nil
}

func (h *RevenueHandler) handleError(c echo.Context, err error, message string) error {
	switch {
	case errors.Is(err, domain.ErrInvalidPeriod):
		return NewValidationError(c, "Invalid period", []ValidationError{
			{Field: "period", Message: err.Error()},
		})
	case errors.Is(err, domain.ErrInvalidInput):
		return NewValidationError(c, err.Error(), nil)
	case errors.Is(err, domain.ErrRevenueNotFound), errors.Is(err, domain.ErrNotFound):
		return NewNotFoundError(c, "Revenue not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		return NewConflictError(c, "Revenue was modified concurrently, retry the request")
	}
	log.Error().Err(err).Str("path", c.Request().URL.Path).Msg(message)
	return NewInternalError(c, message)
}

func toRevenueResponse(aggregate *domain.RevenueAggregate) RevenueResponse {
	return RevenueResponse{
		ID:                 aggregate.ID.String(),
		Period:             domain.FormatPeriod(aggregate.Period),
		InvoiceCount:       aggregate.InvoiceCount,
		TotalAmount:        domain.CentsToUnits(aggregate.TotalAmount).StringFixed(2),
		TotalPaidAmount:    domain.CentsToUnits(aggregate.TotalPaidAmount).StringFixed(2),
		TotalPendingAmount: domain.CentsToUnits(aggregate.TotalPendingAmount).StringFixed(2),
		CalculationSource:  string(aggregate.CalculationSource),
		CreatedAt:          aggregate.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          aggregate.UpdatedAt.Format(time.RFC3339),
	}
}

func toMonthlyRevenueResponses(rows []domain.SimpleRevenue) []MonthlyRevenueResponse {
	responses := make([]MonthlyRevenueResponse, len(rows))
	for i, row := range rows {
		responses[i] = MonthlyRevenueResponse{
			Month:              row.Month,
			MonthNumber:        row.MonthNumber,
			Year:               row.Year,
			Period:             domain.FormatPeriod(row.Period),
			InvoiceCount:       row.InvoiceCount,
			TotalAmount:        row.TotalAmount.StringFixed(2),
			TotalPaidAmount:    row.TotalPaidAmount.StringFixed(2),
			TotalPendingAmount: row.TotalPendingAmount.StringFixed(2),
		}
	}
	return responses
}
