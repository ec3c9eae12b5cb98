package sinks

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/content-progress/internal/rollup"
)

// Publisher sends one payload to a topic or subject.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// PublisherSink forwards each rollup event to a message broker.
type PublisherSink struct {
	pub    Publisher
	topic  string
	logger *zap.Logger
}

// NewPublisherSink publishes events to topic through pub.
func NewPublisherSink(pub Publisher, topic string, logger *zap.Logger) *PublisherSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PublisherSink{pub: pub, topic: topic, logger: logger}
}

// Name labels the sink in metrics.
func (s *PublisherSink) Name() string {
	return "publisher"
}

// Consume publishes every event in order. A failed publish does not stop the
// rest of the batch; all failures are returned joined.
func (s *PublisherSink) Consume(ctx context.Context, batch []rollup.Event) error {
	if s == nil || s.pub == nil {
		return nil
	}
	var errs []error
	for _, evt := range batch {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", evt.ID, err))
			continue
		}
		id, err := s.pub.Publish(ctx, s.topic, evt)
		if err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", evt.ID, err))
			continue
		}
		s.logger.Debug("rollup published",
			zap.String("event_id", evt.ID),
			zap.String("message_id", id),
			zap.String("learner_id", evt.LearnerID))
	}
	return errors.Join(errs...)
}

// Close closes the publisher when it supports it.
func (s *PublisherSink) Close(context.Context) error {
	if s == nil || s.pub == nil {
		return nil
	}
	if c, ok := s.pub.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close publisher: %w", err)
		}
	}
	return nil
}
