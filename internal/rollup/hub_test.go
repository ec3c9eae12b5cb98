package rollup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/content-progress/internal/contentstate"
)

// TestHubBatchBySize verifies the hub flushes immediately once the batch size limit is reached.
func TestHubBatchBySize(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{
		BufferSize:     8,
		MaxBatchEvents: 2,
		MaxBatchWait:   time.Minute,
	}, sink)
	defer func() {
		require.NoError(t, hub.Close(context.Background()))
	}()

	hub.Emit(sampleEvent("e1"))
	hub.Emit(sampleEvent("e2"))
	require.Eventually(t, func() bool {
		return len(sink.Batches()) == 1 && len(sink.Batches()[0]) == 2
	}, time.Second, 10*time.Millisecond)
}

// TestHubBatchByTimer verifies the timer-based flush kicks in when the batch is small.
func TestHubBatchByTimer(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{
		BufferSize:     4,
		MaxBatchEvents: 10,
		MaxBatchWait:   25 * time.Millisecond,
	}, sink)
	defer func() {
		require.NoError(t, hub.Close(context.Background()))
	}()

	hub.Emit(sampleEvent("e1"))
	require.Eventually(t, func() bool {
		return len(sink.Batches()) == 1
	}, time.Second, 5*time.Millisecond)
}

// TestHubEmitDropsWhenQueueFull asserts Emit never blocks and that Dropped
// keeps a running total even after the backpressure warning fires.
func TestHubEmitDropsWhenQueueFull(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	blocking := sinkFunc(func(context.Context, []Event) error {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		return nil
	})
	core, logs := observer.New(zap.WarnLevel)
	hub := NewHub(Config{
		BufferSize:     1,
		MaxBatchEvents: 1,
		MaxBatchWait:   time.Minute,
		Logger:         zap.New(core),
	}, blocking)

	hub.Emit(sampleEvent("in-flight"))
	<-entered
	hub.Emit(sampleEvent("queued"))

	start := time.Now()
	for i := 0; i < 3; i++ {
		hub.Emit(sampleEvent(fmt.Sprintf("dropped-%d", i)))
	}
	require.Less(t, time.Since(start), 50*time.Millisecond)
	require.Equal(t, int64(3), hub.Dropped())

	warnings := logs.FilterMessage("rollup events dropped due to backpressure").All()
	require.Len(t, warnings, 1)
	require.Equal(t, int64(1), warnings[0].ContextMap()["dropped"])

	close(release)
	require.NoError(t, hub.Close(context.Background()))
	require.Equal(t, int64(3), hub.Dropped())
}

// TestHubFlushOnClose ensures Close drains any buffered events before returning.
func TestHubFlushOnClose(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{
		BufferSize:     4,
		MaxBatchEvents: 100,
		MaxBatchWait:   time.Minute,
	}, sink)

	hub.Emit(sampleEvent("e1"))

	require.NoError(t, hub.Close(context.Background()))
	require.Len(t, sink.Batches(), 1)
	require.Len(t, sink.Batches()[0], 1)
	require.True(t, sink.closed)

	hub.Emit(sampleEvent("late"))
	require.NoError(t, hub.Close(context.Background()))
	require.Len(t, sink.Batches(), 1, "events after Close are ignored")
}

func TestHubNotifyAssignsID(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{
		BufferSize:     4,
		MaxBatchEvents: 1,
		MaxBatchWait:   time.Minute,
		IDs:            fixedIDs{id: "evt-1"},
	}, sink)

	hub.Notify(sampleSummary())
	require.NoError(t, hub.Close(context.Background()))

	batches := sink.Batches()
	require.Len(t, batches, 1)
	require.Equal(t, "evt-1", batches[0][0].ID)
	require.Equal(t, EventType, batches[0][0].Type)
	require.Equal(t, "u1", batches[0][0].LearnerID)
}

func TestHubNotifyFallsBackWhenIDGenerationFails(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{MaxBatchEvents: 1, IDs: fixedIDs{err: errors.New("entropy")}}, sink)
	hub.Notify(sampleSummary())
	require.NoError(t, hub.Close(context.Background()))

	batches := sink.Batches()
	require.Len(t, batches, 1)
	require.NotEmpty(t, batches[0][0].ID)
}

func TestHubDiscardsInvalidEvents(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{MaxBatchEvents: 1}, sink)
	hub.Notify(contentstate.Summary{LearnerID: "u1", OccurredAt: time.Now()})
	require.NoError(t, hub.Close(context.Background()))
	require.Empty(t, sink.Batches())
}

func TestHubSinkErrorDoesNotStopOthers(t *testing.T) {
	t.Parallel()

	failing := sinkFunc(func(context.Context, []Event) error { return errors.New("down") })
	sink := newStubSink()
	hub := NewHub(Config{MaxBatchEvents: 1}, failing, sink)
	hub.Emit(sampleEvent("e1"))
	require.NoError(t, hub.Close(context.Background()))
	require.Len(t, sink.Batches(), 1)
}

func TestEventValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, sampleEvent("ok").Validate())

	evt := sampleEvent("")
	require.ErrorContains(t, evt.Validate(), "event id")

	evt = sampleEvent("x")
	evt.LearnerID = ""
	require.ErrorContains(t, evt.Validate(), "learner id")

	evt = sampleEvent("x")
	evt.OccurredAt = time.Time{}
	require.ErrorContains(t, evt.Validate(), "timestamp")

	require.Equal(t, 1, sampleEvent("x").CompletedCount())
}

type fixedIDs struct {
	id  string
	err error
}

func (f fixedIDs) NewID() (string, error) { return f.id, f.err }

type stubSink struct {
	mu      sync.Mutex
	batches [][]Event
	closed  bool
}

func newStubSink() *stubSink {
	return &stubSink{batches: [][]Event{}}
}

func (s *stubSink) Consume(_ context.Context, batch []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copyBatch := append([]Event(nil), batch...)
	s.batches = append(s.batches, copyBatch)
	return nil
}

func (s *stubSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *stubSink) Batches() [][]Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]Event, len(s.batches))
	for i, b := range s.batches {
		out[i] = append([]Event(nil), b...)
	}
	return out
}

func sampleSummary() contentstate.Summary {
	return contentstate.Summary{
		LearnerID: "u1",
		Statuses: map[string]contentstate.Status{
			"k1": contentstate.StatusCompleted,
			"k2": contentstate.StatusInProgress,
		},
		OccurredAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func sampleEvent(id string) Event {
	return Event{ID: id, Type: EventType, Summary: sampleSummary()}
}
