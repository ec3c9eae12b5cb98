package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/content-progress/internal/rollup"
)

// LogSink emits structured logs for rollup events. It is the delivery target
// when no broker is configured and is useful during development or audits.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Name labels the sink in metrics.
func (s *LogSink) Name() string {
	return "log"
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []rollup.Event) error {
	for _, evt := range batch {
		s.logger.Info("rollup event",
			zap.String("event_id", evt.ID),
			zap.String("learner_id", evt.LearnerID),
			zap.Int("statuses", len(evt.Statuses)),
			zap.Int("completed", evt.CompletedCount()),
			zap.Int("items", len(evt.Items)),
			zap.Time("occurred_at", evt.OccurredAt),
		)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
