package storage

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/content-progress/internal/config"
	"github.com/JakeFAU/content-progress/internal/contentstate"
)

func TestOpenMemoryBackendSeedsBatches(t *testing.T) {
	t.Parallel()

	cfg := config.Config{Storage: config.StorageConfig{
		Backend: config.BackendMemory,
		Batches: []config.BatchConfig{{ID: "b1", StartDate: "2024-01-01", EndDate: "2024-12-31"}},
	}}
	backend, err := Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer backend.Close()

	require.Equal(t, config.BackendMemory, backend.Name())
	require.NoError(t, backend.Ready(context.Background()))

	w, err := backend.Batches.Lookup(context.Background(), "b1")
	require.NoError(t, err)
	require.Equal(t, "2024-12-31", w.EndDate)

	_, err = backend.Records.Get(context.Background(), "none")
	require.ErrorIs(t, err, contentstate.ErrNotFound)
}

func TestOpenUnknownBackend(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), config.Config{Storage: config.StorageConfig{Backend: "s3"}}, zap.NewNop())
	require.ErrorContains(t, err, "unknown storage backend")
}

func TestNewPostgresBackendMigratesAndPings(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS records").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS records_learner_idx").
		WillReturnResult(pgxmock.NewResult("CREATE INDEX", 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS batches").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectPing()
	mock.ExpectClose()

	backend, err := NewPostgresBackend(context.Background(), mock, config.StorageConfig{
		RecordsTable: "records",
		BatchesTable: "batches",
		AutoMigrate:  true,
	})
	require.NoError(t, err)
	require.Equal(t, config.BackendPostgres, backend.Name())
	require.NoError(t, backend.Ready(context.Background()))
	backend.Close()
	require.NoError(t, mock.ExpectationsWereMet())
}
