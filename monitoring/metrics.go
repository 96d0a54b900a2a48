package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	apiRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "client_requests_total",
			Help: "Backend requests issued by the client",
		},
		[]string{"path", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "client_request_duration_seconds",
			Help:    "Duration of backend requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	tokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_refreshes_total",
			Help: "Access token refresh attempts by outcome",
		},
		[]string{"outcome"},
	)

	requestRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "request_retries_total",
			Help: "Requests replayed after a token refresh",
		},
		[]string{"path"},
	)

	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshot_cache_lookups_total",
			Help: "Snapshot cache lookups by result",
		},
		[]string{"result"},
	)
)

// TrackRequest records one backend request and its response status.
func TrackRequest(path, status string) {
	apiRequests.WithLabelValues(path, status).Inc()
}

// ObserveRequestDuration records how long a backend request took.
func ObserveRequestDuration(path string, d time.Duration) {
	requestDuration.WithLabelValues(path).Observe(d.Seconds())
}

// TrackRefresh records a token refresh outcome: refreshed, rejected or error.
func TrackRefresh(outcome string) {
	tokenRefreshes.WithLabelValues(outcome).Inc()
}

// TrackRetry records a request replay after a successful refresh.
func TrackRetry(path string) {
	requestRetries.WithLabelValues(path).Inc()
}

// TrackCache records a snapshot cache hit or miss.
func TrackCache(result string) {
	cacheLookups.WithLabelValues(result).Inc()
}

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
