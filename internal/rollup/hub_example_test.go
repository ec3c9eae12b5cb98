package rollup

import (
	"context"
	"fmt"
	"time"

	"github.com/JakeFAU/content-progress/internal/contentstate"
)

type exampleCountingSink struct {
	completed int
}

func (s *exampleCountingSink) Consume(_ context.Context, batch []Event) error {
	for _, evt := range batch {
		s.completed += evt.CompletedCount()
	}
	return nil
}

func (s *exampleCountingSink) Close(context.Context) error {
	return nil
}

// ExampleHub_Notify demonstrates forwarding a summary and flushing via Close.
func ExampleHub_Notify() {
	sink := &exampleCountingSink{}
	hub := NewHub(Config{
		BufferSize:     4,
		MaxBatchEvents: 1,
		MaxBatchWait:   time.Second,
	}, sink)

	hub.Notify(contentstate.Summary{
		LearnerID:  "learner-1",
		Statuses:   map[string]contentstate.Status{"key-1": contentstate.StatusCompleted},
		OccurredAt: time.Unix(0, 0),
	})
	if err := hub.Close(context.Background()); err != nil {
		panic(err)
	}

	fmt.Printf("completed items forwarded: %d\n", sink.completed)
	// Output:
	// completed items forwarded: 1
}

type sinkFunc func(context.Context, []Event) error

func (f sinkFunc) Consume(ctx context.Context, batch []Event) error {
	return f(ctx, batch)
}

func (sinkFunc) Close(context.Context) error {
	return nil
}
