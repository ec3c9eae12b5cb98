package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/content-progress/internal/contentstate"
)

// DefaultRecordsTable is used when no records table is configured.
const DefaultRecordsTable = "content_consumption"

// RecordStore persists progress records with version-checked writes.
type RecordStore struct {
	db    DB
	table string

	selectSQL string
	insertSQL string
	updateSQL string
}

// NewRecordStore builds a RecordStore over db writing to table.
func NewRecordStore(db DB, table string) (*RecordStore, error) {
	if db == nil {
		return nil, fmt.Errorf("pool is required")
	}
	table, err := tableName(table, DefaultRecordsTable)
	if err != nil {
		return nil, err
	}
	return &RecordStore{
		db:    db,
		table: table,
		selectSQL: fmt.Sprintf(`
SELECT id, learner_id, content_id, course_id, batch_id, status, progress,
	view_count, completed_count, last_access_time, last_completed_time,
	last_updated_time, version
FROM %s
WHERE id = $1`, table),
		insertSQL: fmt.Sprintf(`
INSERT INTO %s (
	id, learner_id, content_id, course_id, batch_id, status, progress,
	view_count, completed_count, last_access_time, last_completed_time,
	last_updated_time, version
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
)
ON CONFLICT (id) DO NOTHING`, table),
		updateSQL: fmt.Sprintf(`
UPDATE %s SET
	status = $6,
	progress = $7,
	view_count = $8,
	completed_count = $9,
	last_access_time = $10,
	last_completed_time = $11,
	last_updated_time = $12,
	version = $13
WHERE id = $1 AND learner_id = $2 AND content_id = $3 AND course_id = $4
	AND batch_id = $5 AND version = $14`, table),
	}, nil
}

// Table reports the table the store writes to.
func (s *RecordStore) Table() string {
	return s.table
}

// Get loads the record with id.
func (s *RecordStore) Get(ctx context.Context, id string) (contentstate.Record, error) {
	var (
		rec                             contentstate.Record
		status, progress, views, compls int32
		lastAccess, lastCompleted       *time.Time
	)
	err := s.db.QueryRow(ctx, s.selectSQL, id).Scan(
		&rec.ID,
		&rec.LearnerID,
		&rec.ContentID,
		&rec.CourseID,
		&rec.BatchID,
		&status,
		&progress,
		&views,
		&compls,
		&lastAccess,
		&lastCompleted,
		&rec.LastUpdatedTime,
		&rec.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return contentstate.Record{}, fmt.Errorf("%w: record %s", contentstate.ErrNotFound, id)
		}
		return contentstate.Record{}, fmt.Errorf("select record: %w", err)
	}
	rec.Status = contentstate.Status(status)
	rec.Progress = progress
	rec.ViewCount = views
	rec.CompletedCount = compls
	rec.LastAccessTime = lastAccess
	rec.LastCompletedTime = lastCompleted
	return rec, nil
}

// Save inserts rec when prevVersion is 0, otherwise updates it only if the
// stored version is still prevVersion.
func (s *RecordStore) Save(ctx context.Context, rec contentstate.Record, prevVersion int64) error {
	args := []any{
		rec.ID,
		rec.LearnerID,
		rec.ContentID,
		rec.CourseID,
		rec.BatchID,
		int32(rec.Status),
		rec.Progress,
		rec.ViewCount,
		rec.CompletedCount,
		rec.LastAccessTime,
		rec.LastCompletedTime,
		rec.LastUpdatedTime,
		rec.Version,
	}
	query, op := s.insertSQL, "insert"
	if prevVersion != 0 {
		query, op = s.updateSQL, "update"
		args = append(args, prevVersion)
	}
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s record: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s record %s at version %d", contentstate.ErrConflict, op, rec.ID, prevVersion)
	}
	return nil
}

// Ping checks database connectivity.
func (s *RecordStore) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}
