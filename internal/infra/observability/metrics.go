// Package observability holds the Prometheus metrics for the notification
// pipeline and the /metrics handler.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EventsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "geodex", Name: "change_events_processed_total", Help: "Change events consumed by the matcher."},
		[]string{"kind"}, // kind: created|updated
	)
	MatchedSubscribers = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "geodex", Name: "matched_subscribers_total", Help: "Subscribers matched across all processed events."},
	)
	Dispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "geodex", Name: "dispatches_total", Help: "Notification dispatch outcomes."},
		[]string{"outcome"}, // outcome: sent|failed|skipped
	)
	DispatchAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "geodex", Name: "dispatch_attempts_total", Help: "Individual delivery attempts including retries."},
	)
	DispatchLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "geodex", Name: "dispatch_duration_seconds",
			Help:    "Time from claim to final dispatch outcome.",
			Buckets: prometheus.DefBuckets,
		},
	)
	IndexSize = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "geodex", Name: "bbox_index_size", Help: "Confirmed subscriptions held by the spatial index."},
	)
)

// InitRegistry creates a dedicated registry with all pipeline metrics.
func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(EventsProcessed, MatchedSubscribers, Dispatches, DispatchAttempts, DispatchLatency, IndexSize)

	return reg
}

// MetricsHandler exposes the registry over HTTP.
func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// ObserveDispatch records one final dispatch outcome.
func ObserveDispatch(outcome string, dur time.Duration) {
	Dispatches.WithLabelValues(outcome).Inc()
	DispatchLatency.Observe(dur.Seconds())
}
