package rollup

import "context"

// Sink consumes batches of rollup events. The Hub calls Consume from a single
// goroutine; a sink must honor ctx and may keep the batch slice it is given.
type Sink interface {
	Consume(ctx context.Context, batch []Event) error
	Close(ctx context.Context) error
}
