package service

import (
	"context"
	"sync"
	"time"

	"github.com/dafibh/revledger/revledger-backend/internal/domain"
	"github.com/rs/zerolog"
)

// ReconcileWorker is a background worker that periodically checks revenue
// coverage over the reporting window
type ReconcileWorker struct {
	queryService *RevenueQueryService
	logger       zerolog.Logger
	interval     time.Duration
	windowMonths int
	stopCh       chan struct{}
	doneCh       chan struct{}
	mu           sync.Mutex
	running      bool
	lastReport   *domain.CoverageReport
}

// ReconcileWorkerConfig holds configuration for the reconcile worker
type ReconcileWorkerConfig struct {
	Interval     time.Duration // How often to run the coverage check
	WindowMonths int           // How many months back to check
}

// DefaultReconcileWorkerConfig returns sensible defaults
func DefaultReconcileWorkerConfig() ReconcileWorkerConfig {
	return ReconcileWorkerConfig{
		Interval:     1 * time.Hour,
		WindowMonths: domain.DefaultRollingMonths,
	}
}

// NewReconcileWorker creates a new reconcile worker
func NewReconcileWorker(queryService *RevenueQueryService, logger zerolog.Logger, config ReconcileWorkerConfig) *ReconcileWorker {
	if config.Interval <= 0 {
		config.Interval = 1 * time.Hour
	}
	if config.WindowMonths <= 0 {
		config.WindowMonths = domain.DefaultRollingMonths
	}

	return &ReconcileWorker{
		queryService: queryService,
		logger:       logger.With().Str("component", "reconcile_worker").Logger(),
		interval:     config.Interval,
		windowMonths: config.WindowMonths,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start begins the background coverage checks
func (w *ReconcileWorker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info().
		Dur("interval", w.interval).
		Int("window_months", w.windowMonths).
		Msg("Starting reconcile worker")

	go w.run(ctx)
}

// Stop gracefully stops the reconcile worker
func (w *ReconcileWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	w.logger.Info().Msg("Stopping reconcile worker")
	close(w.stopCh)
	<-w.doneCh
	w.logger.Info().Msg("Reconcile worker stopped")
}

func (w *ReconcileWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	// Run immediately on startup
	w.RunOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.setRunning(false)
			return
		case <-w.stopCh:
			w.setRunning(false)
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce builds one coverage report and logs what it flags
func (w *ReconcileWorker) RunOnce(ctx context.Context) *domain.CoverageReport {
	startTime := time.Now()

	report, err := w.queryService.GetCoverageReport(ctx, w.windowMonths)
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to build coverage report")
		return nil
	}

	w.mu.Lock()
	w.lastReport = report
	w.mu.Unlock()

	event := w.logger.Info()
	if !report.Healthy() {
		event = w.logger.Warn()
	}
	event.
		Int("expected", report.Expected).
		Int("actual", report.Actual).
		Strs("duplicates", report.Duplicates).
		Strs("invalid_format", report.InvalidFormat).
		Strs("unexpected", report.Unexpected).
		Strs("bad_revenue", report.BadRevenue).
		Int("missing", len(report.Missing)).
		Dur("elapsed", time.Since(startTime)).
		Msg("Completed revenue coverage check")

	return report
}

// LastReport returns the most recent coverage report, if any
func (w *ReconcileWorker) LastReport() *domain.CoverageReport {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastReport
}

// IsRunning returns whether the worker is currently running
func (w *ReconcileWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *ReconcileWorker) setRunning(running bool) {
	w.mu.Lock()
	w.running = running
	w.mu.Unlock()
}
