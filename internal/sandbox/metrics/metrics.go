// Package metrics provides observability for the moderation engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects staging and decision metrics. All methods are nil-safe so
// wiring can omit metrics in tests.
type Metrics struct {
	// Staged snapshots by entity type and lifecycle phase
	StagedTotal *prometheus.CounterVec

	// Decision outcomes by status and mode (auto vs. moderator)
	DecisionTotal *prometheus.CounterVec

	// Fields rejected during merge validation
	RejectedFields prometheus.Counter

	// Merge write-back latency
	MergeLatency prometheus.Histogram
}

// New creates a Metrics instance with all moderation metrics registered on
// the default registry.
func New() *Metrics {
	return &Metrics{
		StagedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gatehouse_staged_total",
			Help: "Total staged snapshots by entity type and phase",
		}, []string{"entity_type", "phase"}), // phase: "create", "update"

		DecisionTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gatehouse_decisions_total",
			Help: "Total moderation decisions by status and mode",
		}, []string{"status", "mode"}), // mode: "auto", "moderator"

		RejectedFields: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatehouse_merge_rejected_fields_total",
			Help: "Total fields rejected by validation during merge",
		}),

		MergeLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "gatehouse_merge_duration_seconds",
			Help:    "Duration of merge write-back including validation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncStaged records a staged snapshot.
func (m *Metrics) IncStaged(entityType, phase string) {
	if m != nil {
		m.StagedTotal.WithLabelValues(entityType, phase).Inc()
	}
}

// IncDecision records a moderation decision.
func (m *Metrics) IncDecision(status, mode string) {
	if m != nil {
		m.DecisionTotal.WithLabelValues(status, mode).Inc()
	}
}

// AddRejectedFields records fields rejected during a merge.
func (m *Metrics) AddRejectedFields(n int) {
	if m != nil && n > 0 {
		m.RejectedFields.Add(float64(n))
	}
}

// ObserveMergeLatency records the duration of a merge write-back.
func (m *Metrics) ObserveMergeLatency(d time.Duration) {
	if m != nil {
		m.MergeLatency.Observe(d.Seconds())
	}
}
