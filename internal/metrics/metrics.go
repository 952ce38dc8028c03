// Package metrics declares the Prometheus collectors exported at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for DeviceMutationsTotal.
const (
	OutcomeApplied  = "applied"
	OutcomeNoop     = "noop"
	OutcomeRejected = "rejected"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homepanel_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "homepanel_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route"},
	)

	// Domain metrics
	DeviceMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homepanel_device_mutations_total",
			Help: "Device state mutations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	BroadcastDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homepanel_broadcast_dropped_total",
			Help: "Events dropped because a sink queue or client buffer was full",
		},
		[]string{"sink"},
	)

	ReconcilerRoomsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "homepanel_reconciler_rooms_created_total",
			Help: "Rooms synthesised by the self-healing reconciler",
		},
	)

	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "homepanel_websocket_clients",
			Help: "Number of connected WebSocket clients",
		},
	)
)

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, route, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordMutation records the outcome of one device mutation.
func RecordMutation(operation, outcome string) {
	DeviceMutationsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordDrop records one dropped broadcast on sink.
func RecordDrop(sink string) {
	BroadcastDroppedTotal.WithLabelValues(sink).Inc()
}
