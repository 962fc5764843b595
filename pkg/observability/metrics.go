// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the taskward API server.
package observability

import "github.com/prometheus/client_golang/prometheus"

// APIBuckets defines histogram buckets for request latencies, ranging
// from 5ms to 10s. Most requests are a single indexed query; the tail
// covers cold connection pools.
var APIBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

var (
	// RequestsTotal counts all HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskward_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskward_request_duration_seconds",
			Help:    "Request duration",
			Buckets: APIBuckets,
		},
		[]string{"method"},
	)

	// AuthFailuresTotal counts rejected authentications by reason
	// (missing_token, invalid_token, user_not_found, internal).
	AuthFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskward_auth_failures_total",
			Help: "Rejected authentications",
		},
		[]string{"reason"},
	)

	// OwnershipDeniedTotal counts requests rejected by the ownership gate.
	OwnershipDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taskward_ownership_denied_total",
			Help: "Ownership gate denials",
		},
	)

	// ValidationFailuresTotal counts 422 responses by route.
	ValidationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskward_validation_failures_total",
			Help: "Request body validation failures",
		},
		[]string{"route"},
	)

	// WebsocketConnections tracks the number of admitted notification
	// connections.
	WebsocketConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskward_websocket_connections_active",
			Help: "Active websocket connections",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		AuthFailuresTotal,
		OwnershipDeniedTotal,
		ValidationFailuresTotal,
		WebsocketConnections,
	)
}
