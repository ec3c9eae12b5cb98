package rollup

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/content-progress/internal/contentstate"
	"github.com/JakeFAU/content-progress/internal/metrics"
)

// Config tunes the Hub. Zero values pick the defaults below.
type Config struct {
	// BufferSize is the queue capacity between Notify and the batcher (1024).
	BufferSize int
	// MaxBatchEvents flushes a batch once it holds this many events (64).
	MaxBatchEvents int
	// MaxBatchWait bounds how long the first event of a batch waits (500ms).
	MaxBatchWait time.Duration
	// SinkTimeout bounds each Consume call (10s).
	SinkTimeout time.Duration
	// BaseContext parents every sink call.
	BaseContext context.Context
	Logger      *zap.Logger
	IDs         IDGenerator
}

const (
	defaultBufferSize     = 1024
	defaultMaxBatchEvents = 64
	defaultMaxBatchWait   = 500 * time.Millisecond
	defaultSinkTimeout    = 10 * time.Second
	dropLogInterval       = 5 * time.Second
)

func (c Config) withDefaults() Config {
	if c.BufferSize <= 0 {
		c.BufferSize = defaultBufferSize
	}
	if c.MaxBatchEvents <= 0 {
		c.MaxBatchEvents = defaultMaxBatchEvents
	}
	if c.MaxBatchWait <= 0 {
		c.MaxBatchWait = defaultMaxBatchWait
	}
	if c.SinkTimeout <= 0 {
		c.SinkTimeout = defaultSinkTimeout
	}
	if c.BaseContext == nil {
		c.BaseContext = context.Background()
	}
	if c.IDs == nil {
		c.IDs = timeFallbackID{}
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Hub queues rollup summaries and delivers them to sinks in batches from a
// single goroutine. Notify and Emit never block; a full queue drops the event.
type Hub struct {
	cfg    Config
	sinks  []Sink
	queue  chan Event
	stop   chan struct{}
	done   chan struct{}
	logger *zap.Logger

	closed    atomic.Bool
	closeOnce sync.Once
	closeCtx  context.Context

	droppedTotal atomic.Int64
	// droppedSinceWarn feeds the periodic backpressure warning only.
	droppedSinceWarn atomic.Int64
	lastWarn         atomic.Int64
}

// NewHub starts the batching goroutine and returns a Hub ready for Notify.
func NewHub(cfg Config, sinks ...Sink) *Hub {
	cfg = cfg.withDefaults()
	h := &Hub{
		cfg:    cfg,
		sinks:  append([]Sink(nil), sinks...),
		queue:  make(chan Event, cfg.BufferSize),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: cfg.Logger.Named("rollup"),
	}
	go h.run()
	return h
}

// Notify implements contentstate.Notifier.
func (h *Hub) Notify(summary contentstate.Summary) {
	if h == nil {
		return
	}
	id, err := h.cfg.IDs.NewID()
	if err != nil {
		h.logger.Warn("rollup event id generation failed", zap.Error(err))
		id, _ = timeFallbackID{}.NewID()
	}
	h.Emit(Event{ID: id, Type: EventType, Summary: summary})
}

// Dropped reports the cumulative number of events discarded because the
// queue was full.
func (h *Hub) Dropped() int64 {
	return h.droppedTotal.Load()
}

// Emit queues evt without blocking. Invalid events and events emitted after
// Close are discarded.
func (h *Hub) Emit(evt Event) {
	if h == nil || h.closed.Load() {
		return
	}
	if err := evt.Validate(); err != nil {
		h.logger.Debug("discarding invalid rollup event", zap.Error(err))
		return
	}
	select {
	case h.queue <- evt:
	default:
		h.recordDrop(time.Now())
	}
}

func (h *Hub) recordDrop(now time.Time) {
	h.droppedTotal.Add(1)
	h.droppedSinceWarn.Add(1)
	metrics.ObserveRollupDropped()

	last := h.lastWarn.Load()
	if now.UnixNano()-last < dropLogInterval.Nanoseconds() {
		return
	}
	if !h.lastWarn.CompareAndSwap(last, now.UnixNano()) {
		return
	}
	h.logger.Warn("rollup events dropped due to backpressure",
		zap.Int64("dropped", h.droppedSinceWarn.Swap(0)),
		zap.Int64("dropped_total", h.droppedTotal.Load()))
}

// Close stops intake, delivers whatever is queued and closes the sinks. It
// returns ctx's error if draining outlives ctx. Repeated calls wait on the
// same shutdown.
func (h *Hub) Close(ctx context.Context) error {
	if h == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		h.closeCtx = ctx
		close(h.stop)
	})
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("rollup hub close wait: %w", ctx.Err())
	}
}

func (h *Hub) run() {
	defer close(h.done)

	batch := make([]Event, 0, h.cfg.MaxBatchEvents)
	var (
		timer    *time.Timer
		deadline <-chan time.Time
	)
	flush := func() {
		if timer != nil {
			timer.Stop()
			timer, deadline = nil, nil
		}
		if len(batch) == 0 {
			return
		}
		h.deliver(batch)
		batch = make([]Event, 0, h.cfg.MaxBatchEvents)
	}
	add := func(evt Event) {
		batch = append(batch, evt)
		switch {
		case len(batch) >= h.cfg.MaxBatchEvents:
			flush()
		case timer == nil:
			timer = time.NewTimer(h.cfg.MaxBatchWait)
			deadline = timer.C
		}
	}

	for {
		select {
		case evt := <-h.queue:
			add(evt)
		case <-deadline:
			flush()
		case <-h.stop:
		drain:
			for {
				select {
				case evt := <-h.queue:
					add(evt)
				default:
					break drain
				}
			}
			flush()
			h.closeSinks()
			return
		}
	}
}

// deliver hands batch to every sink. A failing sink is logged and counted but
// does not stop delivery to the others.
func (h *Hub) deliver(batch []Event) {
	for _, sink := range h.sinks {
		if sink == nil {
			continue
		}
		name := sinkName(sink)
		ctx, cancel := context.WithTimeout(h.cfg.BaseContext, h.cfg.SinkTimeout)
		err := sink.Consume(ctx, batch)
		cancel()
		if err != nil {
			metrics.ObserveRollupDelivery(name, "error")
			h.logger.Warn("rollup sink consume failed",
				zap.String("sink", name), zap.Int("events", len(batch)), zap.Error(err))
			continue
		}
		metrics.ObserveRollupDelivery(name, "ok")
	}
}

func (h *Hub) closeSinks() {
	ctx := h.closeCtx
	if ctx == nil {
		ctx = context.Background()
	}
	for _, sink := range h.sinks {
		if sink == nil {
			continue
		}
		if err := sink.Close(ctx); err != nil {
			h.logger.Warn("rollup sink close failed", zap.String("sink", sinkName(sink)), zap.Error(err))
		}
	}
}

func sinkName(s Sink) string {
	if n, ok := s.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", s)
}
