// Package metrics holds the Prometheus collectors exported on /metrics.
//
// Collectors are registered on the default registry through promauto, so they
// exist as soon as the package is imported:
//
//   - HTTP: request count, latency and in-flight requests per route pattern
//   - Store: operation latency and errors per backend (sqlite, mongo)
//   - Assets: uploads and deletions against object storage
//   - Domain: auth outcomes and toggle results
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videotube_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "videotube_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "route"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videotube_http_active_requests",
			Help: "Current number of in-flight HTTP requests",
		},
	)

	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videotube_rate_limit_hits_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"route"},
	)

	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "videotube_store_operation_duration_seconds",
			Help:    "Duration of store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	StoreOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videotube_store_operation_errors_total",
			Help: "Total number of failed store operations",
		},
		[]string{"backend", "operation"},
	)

	AssetOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videotube_asset_operations_total",
			Help: "Object storage uploads and deletions by outcome",
		},
		[]string{"operation", "result"}, // operation: upload|delete, result: ok|error
	)

	AssetUploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videotube_asset_upload_bytes_total",
			Help: "Total bytes uploaded to object storage",
		},
	)

	AuthEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videotube_auth_events_total",
			Help: "Authentication events by kind and outcome",
		},
		[]string{"event", "result"}, // event: register|login|refresh|logout
	)

	ToggleResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videotube_toggles_total",
			Help: "Like, subscription and publish toggles by resulting state",
		},
		[]string{"kind", "state"}, // state: on|off
	)
)

// RecordHTTPRequest records one completed request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveStore records a store operation that started at start.
//
//	defer metrics.ObserveStore("sqlite", "create_video", time.Now(), &err)
func ObserveStore(backend, operation string, start time.Time, err *error) {
	StoreOperationDuration.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
	if err != nil && *err != nil {
		StoreOperationErrors.WithLabelValues(backend, operation).Inc()
	}
}

// RecordAsset records an object storage call.
func RecordAsset(operation string, err error) {
	AssetOperations.WithLabelValues(operation, result(err)).Inc()
}

// RecordAuth records an authentication event.
func RecordAuth(event string, err error) {
	AuthEvents.WithLabelValues(event, result(err)).Inc()
}

// RecordToggle records the state a toggle left behind.
func RecordToggle(kind string, on bool) {
	state := "off"
	if on {
		state = "on"
	}
	ToggleResults.WithLabelValues(kind, state).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
