// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Run metrics
	RunsTotal         *prometheus.CounterVec
	RunDuration       prometheus.Histogram
	BucketsAnalyzed   prometheus.Counter
	RunErrors         *prometheus.CounterVec
	LastSuccessfulRun prometheus.Gauge

	// Multiplier metrics
	MultipliersActive  *prometheus.GaugeVec
	MultipliersWritten *prometheus.CounterVec

	// Safety metrics
	SafetyActions  *prometheus.CounterVec
	RollbacksTotal prometheus.Counter

	// Feedback metrics
	FeedbackSeeded    prometheus.Counter
	FeedbackEvaluated *prometheus.CounterVec

	// Stream metrics
	StreamClients  prometheus.Gauge
	StreamMessages prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "bid_engine"
	}

	return &Metrics{
		// Run metrics
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "total",
			Help:      "Total number of entity analysis runs by mode and outcome",
		}, []string{"mode", "outcome"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Entity analysis run duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}),
		BucketsAnalyzed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "buckets_analyzed_total",
			Help:      "Total number of hour buckets analyzed",
		}),
		RunErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "errors_total",
			Help:      "Total number of run errors by stage",
		}, []string{"stage"}),
		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "last_successful_timestamp",
			Help:      "Unix timestamp of the last successful run",
		}),

		// Multiplier metrics
		MultipliersActive: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "multiplier",
			Name:      "active",
			Help:      "Number of active multiplier records per entity",
		}, []string{"entity"}),
		MultipliersWritten: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "multiplier",
			Name:      "written_total",
			Help:      "Total number of multiplier records written by mode",
		}, []string{"mode"}),

		// Safety metrics
		SafetyActions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "safety",
			Name:      "actions_total",
			Help:      "Total number of safety check outcomes by action",
		}, []string{"action"}),
		RollbacksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "safety",
			Name:      "rollbacks_total",
			Help:      "Total number of executed rollbacks",
		}),

		// Feedback metrics
		FeedbackSeeded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feedback",
			Name:      "seeded_total",
			Help:      "Total number of feedback records created at apply time",
		}),
		FeedbackEvaluated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feedback",
			Name:      "evaluated_total",
			Help:      "Total number of feedback evaluations by result",
		}, []string{"result"}),

		// Stream metrics
		StreamClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "clients",
			Help:      "Number of connected websocket clients",
		}),
		StreamMessages: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "messages_total",
			Help:      "Total number of run results broadcast to clients",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRun records one entity analysis run.
func (m *Metrics) RecordRun(mode, outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(mode, outcome).Inc()
	m.RunDuration.Observe(durationSeconds)
}

// RecordSafetyAction records a safety check outcome.
func (m *Metrics) RecordSafetyAction(action string) {
	if m == nil {
		return
	}
	m.SafetyActions.WithLabelValues(action).Inc()
}

// RecordFeedbackEvaluated records a feedback evaluation result.
func (m *Metrics) RecordFeedbackEvaluated(success bool) {
	if m == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	m.FeedbackEvaluated.WithLabelValues(result).Inc()
}

// SetActiveMultipliers updates the active multiplier gauge for an entity.
func (m *Metrics) SetActiveMultipliers(entityID string, count int) {
	if m == nil {
		return
	}
	m.MultipliersActive.WithLabelValues(entityID).Set(float64(count))
}

