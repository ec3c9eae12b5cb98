package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/content-progress/internal/rollup"
)

// PrometheusSink exports rollup volume metrics via Prometheus.
type PrometheusSink struct {
	events        prometheus.Counter
	statuses      *prometheus.CounterVec
	itemsPerEvent prometheus.Histogram
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		events: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rollup_events_total",
			Help: "Rollup summaries delivered to sinks.",
		}),
		statuses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rollup_statuses_total",
			Help: "Resolved content statuses carried by rollup summaries.",
		}, []string{"status"}),
		itemsPerEvent: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rollup_items_per_event",
			Help:    "Number of merged items per rollup summary.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		}),
	}
	for _, collector := range []prometheus.Collector{s.events, s.statuses, s.itemsPerEvent} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register rollup collector: %w", err)
		}
	}
	return s, nil
}

// Name labels the sink in metrics.
func (s *PrometheusSink) Name() string {
	return "prometheus"
}

// Consume updates the collectors from the batch. It is safe for concurrent use.
func (s *PrometheusSink) Consume(_ context.Context, batch []rollup.Event) error {
	for _, evt := range batch {
		s.events.Inc()
		s.itemsPerEvent.Observe(float64(len(evt.Statuses)))
		for _, status := range evt.Statuses {
			s.statuses.WithLabelValues(status.String()).Inc()
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
