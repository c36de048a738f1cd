// Package metrics exposes Prometheus instrumentation for the
// de-identification pipeline. Labels are entity types and statuses only;
// no label ever carries request content.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TextsProcessed counts de-identification calls by source and status.
	TextsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phi_sentinel_texts_processed_total",
		Help: "Total number of texts processed, by source (api, etl) and status (ok, failed).",
	}, []string{"source", "status"})

	// EntitiesDetected counts detections by entity type.
	EntitiesDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phi_sentinel_entities_detected_total",
		Help: "Total number of entities detected, by entity type.",
	}, []string{"entity_type"})

	// ProcessingDuration observes end-to-end de-identification latency.
	ProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "phi_sentinel_processing_duration_seconds",
		Help:    "De-identification latency in seconds, by source.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	}, []string{"source"})

	// CacheLookups counts result cache lookups by outcome (hit, miss).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phi_sentinel_cache_lookups_total",
		Help: "Total number of result cache lookups, by outcome.",
	}, []string{"outcome"})

	// RateLimited counts requests rejected by the rate limiter.
	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "phi_sentinel_rate_limited_total",
		Help: "Total number of requests rejected by the rate limiter.",
	})

	// WebSocketClients tracks currently connected event stream clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "phi_sentinel_websocket_clients",
		Help: "Number of currently connected WebSocket clients.",
	})
)

// ObserveResult records the standard per-request metrics in one place so
// the HTTP handler and the batch pipeline stay consistent.
func ObserveResult(source, status string, seconds float64, entityCounts map[string]int) {
	TextsProcessed.WithLabelValues(source, status).Inc()
	ProcessingDuration.WithLabelValues(source).Observe(seconds)
	for entityType, n := range entityCounts {
		EntitiesDetected.WithLabelValues(entityType).Add(float64(n))
	}
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
