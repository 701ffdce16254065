// Package metrics provides Prometheus metrics for the FacPark server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Custom registry to avoid default Go metrics.
var registry = prometheus.NewRegistry()

var (
	decisions = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "facpark",
			Subsystem: "access",
			Name:      "decisions_total",
			Help:      "Access decisions by decision and ref code",
		},
		[]string{"decision", "ref_code"},
	)

	retrievalQueries = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "facpark",
			Subsystem: "retrieval",
			Name:      "queries_total",
			Help:      "Regulation queries by outcome (grounded, refused, error)",
		},
		[]string{"outcome"},
	)

	indexChunks = promauto.With(registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: "facpark",
			Subsystem: "retrieval",
			Name:      "index_chunks",
			Help:      "Number of chunks in the active retrieval index",
		},
	)

	heartbeats = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "facpark",
			Subsystem: "gate",
			Name:      "heartbeats_total",
			Help:      "Gate heartbeats by known/unknown",
		},
		[]string{"known"},
	)

	httpRequestDuration = promauto.With(registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "facpark",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration by route and status code",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "method", "status_code"},
	)
)

// RecordDecision counts one Decision Engine evaluation.
func RecordDecision(decision, refCode string) {
	decisions.WithLabelValues(decision, refCode).Inc()
}

// RecordRetrieval counts one regulation query by outcome.
func RecordRetrieval(outcome string) {
	retrievalQueries.WithLabelValues(outcome).Inc()
}

// UpdateIndexChunks sets the active index chunk count after a (re)load.
func UpdateIndexChunks(n int) {
	indexChunks.Set(float64(n))
}

// RecordHeartbeat counts one gate heartbeat.
func RecordHeartbeat(known bool) {
	label := "false"
	if known {
		label = "true"
	}
	heartbeats.WithLabelValues(label).Inc()
}

// RecordHTTPRequest records one served HTTP request.
func RecordHTTPRequest(route, method, statusCode string, seconds float64) {
	httpRequestDuration.WithLabelValues(route, method, statusCode).Observe(seconds)
}

// Handler serves the /metrics endpoint off the custom registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
