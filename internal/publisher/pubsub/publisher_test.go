package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/JakeFAU/content-progress/internal/rollup"
)

func TestPublishWithoutPublisher(t *testing.T) {
	t.Parallel()

	_, err := New(nil).Publish(context.Background(), "rollup", map[string]string{})
	require.ErrorContains(t, err, "not configured")
	require.NoError(t, New(nil).Close())
}

func TestCarrierRoundTripsTraceContext(t *testing.T) {
	t.Parallel()

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	prop := propagation.TraceContext{}
	attrs := map[string]string{"event_type": "rollup"}
	prop.Inject(ctx, &pubsubCarrier{attrs: attrs})
	require.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", attrs["traceparent"])
	require.ElementsMatch(t, []string{"event_type", "traceparent"}, (&pubsubCarrier{attrs: attrs}).Keys())

	extracted := trace.SpanContextFromContext(prop.Extract(context.Background(), &pubsubCarrier{attrs: attrs}))
	require.Equal(t, traceID, extracted.TraceID())
}

func TestMessageAttributesCarryEventType(t *testing.T) {
	t.Parallel()

	evt := rollup.Event{ID: "evt-1", Type: rollup.EventType}
	attrs := messageAttributes(context.Background(), evt)
	require.Equal(t, "content.progress.rollup", attrs["event_type"])

	attrs = messageAttributes(context.Background(), map[string]string{"k": "v"})
	require.NotContains(t, attrs, "event_type")
}
