// Package observability exposes Prometheus metrics and health endpoints for
// the deliberation service.
package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	roundsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "agora_rounds_total",
			Help: "Total number of deliberation rounds executed",
		},
	)

	turnsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "agora_turns_total",
			Help: "Total number of turns produced across all rounds",
		},
	)

	roundDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "agora_round_duration_seconds",
			Help:    "Round execution duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	generationFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "agora_generation_fallbacks_total",
			Help: "Turns that fell back to a fixed sentence after a generator failure",
		},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agora_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	wsClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "agora_websocket_clients",
			Help: "Currently connected websocket clients",
		},
	)

	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "agora_active_sessions",
			Help: "Simulation sessions currently held in memory",
		},
	)

	initOnce sync.Once
)

// InitMetrics registers all collectors. Safe to call more than once.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			roundsTotal,
			turnsTotal,
			roundDuration,
			generationFallbacksTotal,
			httpRequestsTotal,
			httpRequestDuration,
			wsClients,
			activeSessions,
		)
	})
}

// MetricsHandler returns the Prometheus scrape handler.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordRound records one completed round and its turn count.
func RecordRound(turns int, duration time.Duration) {
	roundsTotal.Inc()
	turnsTotal.Add(float64(turns))
	roundDuration.Observe(duration.Seconds())
}

// RecordGenerationFallback counts a turn that degraded to fallback text.
func RecordGenerationFallback() {
	generationFallbacksTotal.Inc()
}

// RecordHTTPRequest records request metrics for the API server.
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// SetWebsocketClients sets the connected client gauge.
func SetWebsocketClients(count int) {
	wsClients.Set(float64(count))
}

// SetActiveSessions sets the in-memory session gauge.
func SetActiveSessions(count int) {
	activeSessions.Set(float64(count))
}
