package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/content-progress/internal/contentstate"
)

// DefaultBatchesTable is used when no batches table is configured.
const DefaultBatchesTable = "course_batch"

// BatchStore reads batch windows. Dates are kept as text so malformed values
// reach the window check instead of failing the scan.
type BatchStore struct {
	db        DB
	selectSQL string
}

// NewBatchStore builds a BatchStore over db reading from table.
func NewBatchStore(db DB, table string) (*BatchStore, error) {
	if db == nil {
		return nil, fmt.Errorf("pool is required")
	}
	table, err := tableName(table, DefaultBatchesTable)
	if err != nil {
		return nil, err
	}
	return &BatchStore{
		db:        db,
		selectSQL: fmt.Sprintf(`SELECT start_date, end_date FROM %s WHERE batch_id = $1`, table),
	}, nil
}

// Lookup returns the window for batchID.
func (s *BatchStore) Lookup(ctx context.Context, batchID string) (contentstate.Window, error) {
	var (
		start *string
		end   *string
	)
	if err := s.db.QueryRow(ctx, s.selectSQL, batchID).Scan(&start, &end); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return contentstate.Window{}, fmt.Errorf("%w: %s", contentstate.ErrBatchNotFound, batchID)
		}
		return contentstate.Window{}, fmt.Errorf("select batch: %w", err)
	}
	w := contentstate.Window{BatchID: batchID}
	if start != nil {
		w.StartDate = *start
	}
	if end != nil {
		w.EndDate = *end
	}
	return w, nil
}
