package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RevenueMetrics captures invoice event handling and coverage health.
// A nil *RevenueMetrics is valid and records nothing.
type RevenueMetrics struct {
	events         *prometheus.CounterVec
	eventDuration  *prometheus.HistogramVec
	deadLetters    *prometheus.CounterVec
	coverageIssues *prometheus.GaugeVec
	coverageRuns   *prometheus.CounterVec
}

// NewRevenueMetrics creates and registers the revenue instruments
func NewRevenueMetrics(registerer prometheus.Registerer) *RevenueMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &RevenueMetrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revledger_invoice_events_total",
			Help: "Invoice lifecycle events by kind and outcome.",
		}, []string{"kind", "outcome"}),
		eventDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "revledger_invoice_event_duration_seconds",
			Help:    "Time spent applying one invoice event.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"kind"}),
		deadLetters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revledger_dead_letters_total",
			Help: "Invoice events recorded in the dead-letter sink by reason.",
		}, []string{"reason"}),
		coverageIssues: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "revledger_coverage_issues",
			Help: "Periods flagged by the last coverage report by category.",
		}, []string{"category"}),
		coverageRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revledger_coverage_runs_total",
			Help: "Coverage report runs by result.",
		}, []string{"result"}),
	}

	registerer.MustRegister(m.events, m.eventDuration, m.deadLetters, m.coverageIssues, m.coverageRuns)
	return m
}

// RecordEvent counts a handled event and its latency
func (m *RevenueMetrics) RecordEvent(kind, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind, outcome).Inc()
	m.eventDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// RecordDeadLetter counts an event routed to the dead-letter sink
func (m *RevenueMetrics) RecordDeadLetter(reason string) {
	if m == nil {
		return
	}
	m.deadLetters.WithLabelValues(reason).Inc()
}

// RecordCoverage publishes the size of each coverage category
func (m *RevenueMetrics) RecordCoverage(counts map[string]int, healthy bool) {
	if m == nil {
		return
	}
	for category, n := range counts {
		m.coverageIssues.WithLabelValues(category).Set(float64(n))
	}
	result := "healthy"
	if !healthy {
		result = "anomalies"
	}
	m.coverageRuns.WithLabelValues(result).Inc()
}
