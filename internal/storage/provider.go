// Package storage opens the configured record and batch backends.
// This abstraction keeps the service independent of a specific database
// (Postgres in production, process memory for development and tests).
package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/content-progress/internal/config"
	"github.com/JakeFAU/content-progress/internal/contentstate"
	"github.com/JakeFAU/content-progress/internal/storage/memory"
	"github.com/JakeFAU/content-progress/internal/storage/postgres"
)

// Backend bundles the stores of one storage backend.
type Backend struct {
	Records contentstate.RecordStore
	Batches contentstate.BatchStore

	name  string
	ping  func(context.Context) error
	close func()
}

// Name reports the backend kind.
func (b *Backend) Name() string {
	return b.name
}

// Ready reports whether the backend can serve requests.
func (b *Backend) Ready(ctx context.Context) error {
	if b.ping == nil {
		return nil
	}
	return b.ping(ctx)
}

// Close releases backend resources.
func (b *Backend) Close() {
	if b.close != nil {
		b.close()
	}
}

// Open builds the backend named by cfg.Storage.Backend.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Backend, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		logger.Info("using in-memory storage; records are lost on restart",
			zap.Int("seeded_batches", len(cfg.Storage.Batches)))
		return NewMemoryBackend(seedWindows(cfg.Storage.Batches)...), nil
	case config.BackendPostgres:
		logger.Info("connecting to postgres",
			zap.String("records_table", cfg.Storage.RecordsTable),
			zap.String("batches_table", cfg.Storage.BatchesTable))
		pool, err := postgres.Open(ctx, postgres.PoolConfig{
			DSN:      cfg.DB.DSN,
			MaxConns: int32(cfg.DB.MaxConns),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		backend, err := NewPostgresBackend(ctx, pool, cfg.Storage)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return backend, nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}

// NewMemoryBackend returns a process-local backend seeded with windows.
func NewMemoryBackend(windows ...contentstate.Window) *Backend {
	return &Backend{
		Records: memory.NewRecordStore(),
		Batches: memory.NewBatchStore(windows...),
		name:    config.BackendMemory,
	}
}

// NewPostgresBackend wraps db with the record and batch stores.
func NewPostgresBackend(ctx context.Context, db postgres.DB, cfg config.StorageConfig) (*Backend, error) {
	if cfg.AutoMigrate {
		if err := postgres.EnsureSchema(ctx, db, cfg.RecordsTable, cfg.BatchesTable); err != nil {
			return nil, err
		}
	}
	records, err := postgres.NewRecordStore(db, cfg.RecordsTable)
	if err != nil {
		return nil, fmt.Errorf("records store: %w", err)
	}
	batches, err := postgres.NewBatchStore(db, cfg.BatchesTable)
	if err != nil {
		return nil, fmt.Errorf("batches store: %w", err)
	}
	return &Backend{
		Records: records,
		Batches: batches,
		name:    config.BackendPostgres,
		ping:    records.Ping,
		close:   db.Close,
	}, nil
}

func seedWindows(batches []config.BatchConfig) []contentstate.Window {
	out := make([]contentstate.Window, 0, len(batches))
	for _, b := range batches {
		out = append(out, contentstate.Window{BatchID: b.ID, StartDate: b.StartDate, EndDate: b.EndDate})
	}
	return out
}
