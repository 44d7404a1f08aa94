package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP Metrics
	HTTPRequestsTotal *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec

	// Decision Metrics
	DecisionsTotal   *prometheus.CounterVec
	DecisionDuration prometheus.Histogram
	RuleSetSize      prometheus.Gauge
	RuleSetVersion   prometheus.Gauge

	// Transition Metrics
	TransitionsTotal *prometheus.CounterVec

	// Audit Metrics
	AuditWriteDuration prometheus.Histogram
	AuditWriteFailures prometheus.Counter
	AuditQueueDepth    prometheus.Gauge
	AuditQueueDrained  prometheus.Counter

	// Database Metrics
	DBConnectionsActive prometheus.Gauge
	DBQueryErrors       *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		DecisionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "policy_decisions_total",
				Help: "Total number of policy decisions by type",
			},
			[]string{"type", "kpi_id"},
		),
		DecisionDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "policy_decision_duration_seconds",
				Help:    "Policy decision evaluation time in seconds",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
			},
		),
		RuleSetSize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "policy_rule_set_size",
				Help: "Number of rules in the active rule set",
			},
		),
		RuleSetVersion: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "policy_rule_set_version",
				Help: "Version of the active rule set",
			},
		),

		TransitionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workflow_transitions_total",
				Help: "Total number of workflow transition attempts by outcome",
			},
			[]string{"domain", "action", "outcome"},
		),

		AuditWriteDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "audit_write_duration_seconds",
				Help:    "Synchronous audit write latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
			},
		),
		AuditWriteFailures: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "audit_write_failures_total",
				Help: "Total number of failed synchronous audit writes",
			},
		),
		AuditQueueDepth: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "audit_queue_depth",
				Help: "Entries waiting in the audit overflow queue",
			},
		),
		AuditQueueDrained: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "audit_queue_drained_total",
				Help: "Audit entries delivered from the overflow queue",
			},
		),

		DBConnectionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBQueryErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "db_query_errors_total",
				Help: "Total number of database query errors",
			},
			[]string{"query_type", "error_type"},
		),
	}
}
