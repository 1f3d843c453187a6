package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for completed settlement attempts.
const (
	OutcomeSettled   = "settled"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)

// SettlementMetrics records counters and timings for the settlement engine.
type SettlementMetrics struct {
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
	skipped  prometheus.Counter
}

// NewSettlementMetrics registers the settlement metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "settlement_duration_seconds",
		Help:    "Duration of settlement attempts in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_total",
		Help: "Settlement attempts by outcome.",
	}, []string{"outcome"})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_skipped_line_items_total",
		Help: "Line items skipped because the product reference did not resolve.",
	})
	reg.MustRegister(duration, outcomes, skipped)
	return &SettlementMetrics{
		duration: duration,
		outcomes: outcomes,
		skipped:  skipped,
	}
}

// ObserveOutcome records one finished attempt with its duration.
func (m *SettlementMetrics) ObserveOutcome(outcome string, duration time.Duration) {
	if m == nil || m.outcomes == nil {
		return
	}
	outcome = normalizeOutcome(outcome)
	m.outcomes.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// IncSkippedLineItem counts an unresolvable product reference.
func (m *SettlementMetrics) IncSkippedLineItem() {
	if m == nil || m.skipped == nil {
		return
	}
	m.skipped.Inc()
}

func normalizeOutcome(outcome string) string {
	switch outcome {
	case OutcomeSettled, OutcomeDuplicate, OutcomeFailed:
		return outcome
	default:
		return "unknown"
	}
}
