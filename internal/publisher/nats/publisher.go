// Package nats publishes events to NATS JetStream.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

// DefaultStream captures every progress.> subject.
const DefaultStream = "PROGRESS"

// JetStream is the subset of nats.JetStreamContext the publisher uses.
type JetStream interface {
	PublishMsg(m *nats.Msg, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// Publisher publishes JSON payloads to JetStream subjects.
type Publisher struct {
	js     JetStream
	conn   *nats.Conn
	logger *zap.Logger
}

// Connect dials url and ensures the stream for subjects exists. An empty url
// yields a stub publisher that only logs.
func Connect(url, stream string, subjects []string, logger *zap.Logger) (*Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("nats")
	if url == "" {
		logger.Warn("nats url not set, rollup events will not be published (stub mode)")
		return &Publisher{logger: logger}, nil
	}

	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}
	if stream == "" {
		stream = DefaultStream
	}
	if _, err := js.AddStream(&nats.StreamConfig{
		Name:     stream,
		Subjects: subjects,
		Storage:  nats.FileStorage,
	}); err != nil {
		logger.Warn("failed to create nats stream (may already exist)", zap.String("stream", stream), zap.Error(err))
	}
	logger.Info("nats publisher initialised", zap.String("stream", stream))
	return &Publisher{js: js, conn: nc, logger: logger}, nil
}

// New wraps an existing JetStream context.
func New(js JetStream, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{js: js, logger: logger}
}

// Publish marshals payload and publishes it to subject, carrying the trace
// context in message headers. The stream sequence is returned as the id.
func (p *Publisher) Publish(ctx context.Context, subject string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	if p.js == nil {
		p.logger.Debug("nats stub: skipping publish", zap.String("subject", subject), zap.Int("bytes", len(data)))
		return "", nil
	}

	msg := nats.NewMsg(subject)
	msg.Data = data
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(http.Header(msg.Header)))

	ack, err := p.js.PublishMsg(msg, nats.Context(ctx))
	if err != nil {
		return "", fmt.Errorf("publish %s: %w", subject, err)
	}
	return fmt.Sprintf("%s-%d", ack.Stream, ack.Sequence), nil
}

// Close drains the connection.
func (p *Publisher) Close() error {
	if p.conn == nil {
		return nil
	}
	if err := p.conn.Drain(); err != nil {
		return fmt.Errorf("drain nats: %w", err)
	}
	return nil
}
