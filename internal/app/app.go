// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JakeFAU/content-progress/internal/api"
	rediscache "github.com/JakeFAU/content-progress/internal/cache/redis"
	"github.com/JakeFAU/content-progress/internal/clock/system"
	"github.com/JakeFAU/content-progress/internal/config"
	"github.com/JakeFAU/content-progress/internal/contentstate"
	"github.com/JakeFAU/content-progress/internal/hash/sha256"
	"github.com/JakeFAU/content-progress/internal/id/uuid"
	natspublisher "github.com/JakeFAU/content-progress/internal/publisher/nats"
	pubsubpublisher "github.com/JakeFAU/content-progress/internal/publisher/pubsub"
	"github.com/JakeFAU/content-progress/internal/rollup"
	"github.com/JakeFAU/content-progress/internal/rollup/sinks"
	"github.com/JakeFAU/content-progress/internal/storage"
)

// Options tune how NewApp builds services.
type Options struct {
	// Registerer receives the rollup sink collectors. Defaults to the
	// process-wide Prometheus registerer.
	Registerer prometheus.Registerer
	// Backend replaces the configured storage backend when set.
	Backend *storage.Backend
}

type publisher interface {
	sinks.Publisher
	Close() error
}

// App holds all the shared, long-lived services for the application.
// It is initialized once at startup; Close releases everything it opened.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	backend   *storage.Backend
	cache     *rediscache.BatchCache
	publisher publisher
	hub       *rollup.Hub
	ingestor  *contentstate.Ingestor
	server    *api.Server
}

// Logger returns the shared zap logger instance.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Backend exposes the storage backend.
func (a *App) Backend() *storage.Backend {
	return a.backend
}

// Ingestor returns the content state ingestor.
func (a *App) Ingestor() *contentstate.Ingestor {
	return a.ingestor
}

// Hub returns the rollup hub fed by the ingestor.
func (a *App) Hub() *rollup.Hub {
	return a.hub
}

// Handler returns the HTTP handler serving the API.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// NewApp creates and initializes a new App from cfg. It fails fast if any
// critical service cannot be initialized, closing whatever was already open.
func NewApp(ctx context.Context, cfg config.Config, logger *zap.Logger, opts Options) (_ *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("initializing application services")

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = a.shutdown(context.Background())
		}
	}()

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	// 1. Storage: progress records and batch windows.
	a.backend = opts.Backend
	if a.backend == nil {
		a.backend, err = storage.Open(ctx, cfg, logger.Named("storage"))
		if err != nil {
			return nil, err
		}
	}
	var batches contentstate.BatchStore = a.backend.Batches
	checks := map[string]api.ReadinessCheck{"storage": a.backend.Ready}

	// 2. Optional Redis cache in front of batch lookups.
	if cfg.Redis.Enabled {
		logger.Info("caching batch windows in redis", zap.String("addr", cfg.Redis.Addr))
		client := rediscache.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		a.cache = rediscache.NewBatchCache(client, batches, rediscache.Options{
			KeyPrefix: cfg.Redis.KeyPrefix,
			TTL:       cfg.CacheTTL(),
		}, logger)
		batches = a.cache
		checks["redis"] = a.cache.Ping
	}

	// 3. Rollup hub and its sinks.
	rollupSinks, err := a.buildSinks(ctx, opts.Registerer)
	if err != nil {
		return nil, err
	}
	ids := uuid.New()
	a.hub = rollup.NewHub(rollup.Config{
		BufferSize:     cfg.Rollup.BufferSize,
		MaxBatchEvents: cfg.Rollup.BatchSize,
		MaxBatchWait:   cfg.FlushInterval(),
		SinkTimeout:    cfg.SinkTimeout(),
		Logger:         logger,
		IDs:            ids,
	}, rollupSinks...)

	// 4. Merge pipeline.
	clock := system.NewInLocation(loc)
	merger := contentstate.NewMerger(a.backend.Records, sha256.New(), clock, contentstate.MergerConfig{
		MaxAttempts: cfg.Merge.MaxAttempts,
	}, logger.Named("merger"))
	a.ingestor = contentstate.NewIngestor(batches, merger, a.hub, clock, contentstate.IngestorConfig{
		Location: loc,
	}, logger.Named("ingestor"))

	// 5. HTTP surface.
	a.server = api.NewServer(api.Deps{
		Processor: a.ingestor,
		IDs:       ids,
		Logger:    logger,
		Checks:    checks,
	}, cfg)

	logger.Info("application services initialized",
		zap.String("storage", a.backend.Name()),
		zap.String("rollup_transport", cfg.Rollup.Transport),
		zap.Bool("redis", cfg.Redis.Enabled),
	)
	return a, nil
}

func (a *App) buildSinks(ctx context.Context, reg prometheus.Registerer) ([]rollup.Sink, error) {
	promSink, err := sinks.NewPrometheusSink(reg)
	if err != nil {
		return nil, err
	}
	out := []rollup.Sink{promSink}

	switch a.cfg.Rollup.Transport {
	case config.TransportLog:
		a.logger.Info("rollup events are logged only")
		return append(out, sinks.NewLogSink(a.logger.Named("rollup_log"))), nil
	case config.TransportPubSub:
		a.logger.Info("publishing rollup events to pub/sub",
			zap.String("project", a.cfg.PubSub.ProjectID),
			zap.String("topic", a.cfg.PubSub.TopicName))
		pub, err := pubsubpublisher.Open(ctx, a.cfg.PubSub.ProjectID, a.cfg.PubSub.TopicName)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize pubsub publisher: %w", err)
		}
		a.publisher = pub
		return append(out, sinks.NewPublisherSink(pub, a.cfg.PubSub.TopicName, a.logger.Named("pubsub"))), nil
	case config.TransportNATS:
		a.logger.Info("publishing rollup events to nats",
			zap.String("url", a.cfg.NATS.URL),
			zap.String("subject", a.cfg.NATS.Subject))
		pub, err := natspublisher.Connect(a.cfg.NATS.URL, natspublisher.DefaultStream, []string{a.cfg.NATS.Subject}, a.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize nats publisher: %w", err)
		}
		a.publisher = pub
		return append(out, sinks.NewPublisherSink(pub, a.cfg.NATS.Subject, a.logger.Named("nats"))), nil
	default:
		return nil, fmt.Errorf("unknown rollup transport: %s", a.cfg.Rollup.Transport)
	}
}

// Close gracefully shuts down all services in the App container. Pending
// rollup events are flushed before the publisher and storage are closed.
func (a *App) Close(ctx context.Context) error {
	a.logger.Info("shutting down application services")
	return a.shutdown(ctx)
}

func (a *App) shutdown(ctx context.Context) error {
	var errs []error
	if a.hub != nil {
		if err := a.hub.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close rollup hub: %w", err))
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if a.backend != nil {
		a.backend.Close()
	}
	return errors.Join(errs...)
}
