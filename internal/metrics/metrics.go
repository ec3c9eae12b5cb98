// Package metrics exposes Prometheus collectors for the progress service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	contentItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_state_items_total",
			Help: "Content state items processed, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	contentMergesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_state_merges_total",
			Help: "Records written by the merger, labeled by kind (created or updated).",
		},
		[]string{"kind"},
	)

	contentMergeConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "content_state_merge_conflicts_total",
			Help: "Optimistic version conflicts hit while saving merged records.",
		},
	)

	batchCacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batch_window_cache_lookups_total",
			Help: "Batch window cache lookups, labeled by result (hit, miss or error).",
		},
		[]string{"result"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"method", "route"},
	)
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveItem counts one processed item by outcome.
func ObserveItem(outcome string) {
	contentItemsTotal.WithLabelValues(outcome).Inc()
}

// ObserveMerge counts one saved record; updated is false for first writes.
func ObserveMerge(updated bool) {
	kind := "created"
	if updated {
		kind = "updated"
	}
	contentMergesTotal.WithLabelValues(kind).Inc()
}

// ObserveMergeConflict counts one version conflict.
func ObserveMergeConflict() {
	contentMergeConflictsTotal.Inc()
}

// ObserveBatchCache counts one batch window cache lookup.
func ObserveBatchCache(result string) {
	batchCacheLookupsTotal.WithLabelValues(result).Inc()
}

var httpRateLimitedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "http_rate_limited_total",
		Help: "Requests rejected by the per-client rate limiter.",
	},
)

// ObserveRateLimited counts one request rejected by the rate limiter.
func ObserveRateLimited() {
	httpRateLimitedTotal.Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

var (
	rollupDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollup_deliveries_total",
			Help: "Rollup batches handed to sinks, labeled by sink and result.",
		},
		[]string{"sink", "result"},
	)

	rollupDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rollup_events_dropped_total",
			Help: "Rollup events dropped because the hub buffer was full.",
		},
	)
)

// ObserveRollupDelivery counts one batch delivery attempt to a sink.
func ObserveRollupDelivery(sink, result string) {
	rollupDeliveriesTotal.WithLabelValues(sink, result).Inc()
}

// ObserveRollupDropped counts one event lost to backpressure.
func ObserveRollupDropped() {
	rollupDroppedTotal.Inc()
}
