package observability

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Pipeline metrics
	RateLimitDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_decisions_total",
			Help: "Rate limit admission decisions by endpoint class",
		},
		[]string{"class", "outcome"},
	)

	RateLimitBuckets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limit_buckets",
			Help: "Number of live rate limit buckets",
		},
	)

	RateLimitEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limit_evictions_total",
			Help: "Rate limit buckets removed by LRU capacity or idle expiry",
		},
	)

	AuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_failures_total",
			Help: "Rejected requests on protected paths by failure kind",
		},
		[]string{"kind"},
	)

	CSPNonceFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "csp_nonce_failures_total",
			Help: "Requests served without a CSP header because nonce generation failed",
		},
	)

	SecurityEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "security_events_dropped_total",
			Help: "Security events dropped because the dispatch queue was full or publishing failed",
		},
	)

	// Auditor metrics
	AuditedEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audited_security_events_total",
			Help: "Security events consumed from the audit queue by type",
		},
		[]string{"type"},
	)

	AuditAlerts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_alerts_total",
			Help: "Clients that reached the security event alert threshold",
		},
	)

	// Database metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5},
		},
		[]string{"operation", "table"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_open",
			Help: "Number of open database connections",
		},
	)

	DBConnectionsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_in_use",
			Help: "Number of database connections currently in use",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)
)

// RecordDBStats copies connection pool statistics into the DB gauges
func RecordDBStats(stats sql.DBStats) {
	DBConnectionsOpen.Set(float64(stats.OpenConnections))
	DBConnectionsInUse.Set(float64(stats.InUse))
	DBConnectionsIdle.Set(float64(stats.Idle))
}
