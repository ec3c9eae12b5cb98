package postgres

import (
	"context"
	"fmt"
)

// EnsureSchema creates the records and batches tables if they are missing.
func EnsureSchema(ctx context.Context, db DB, recordsTable, batchesTable string) error {
	records, err := tableName(recordsTable, DefaultRecordsTable)
	if err != nil {
		return err
	}
	batches, err := tableName(batchesTable, DefaultBatchesTable)
	if err != nil {
		return err
	}
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id                  TEXT PRIMARY KEY,
	learner_id          TEXT NOT NULL,
	content_id          TEXT NOT NULL,
	course_id           TEXT NOT NULL,
	batch_id            TEXT NOT NULL DEFAULT '',
	status              INTEGER NOT NULL,
	progress            INTEGER NOT NULL DEFAULT 0,
	view_count          INTEGER NOT NULL DEFAULT 0,
	completed_count     INTEGER NOT NULL DEFAULT 0,
	last_access_time    TIMESTAMPTZ,
	last_completed_time TIMESTAMPTZ,
	last_updated_time   TIMESTAMPTZ NOT NULL,
	version             BIGINT NOT NULL
)`, records),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_learner_idx ON %s (learner_id, course_id, batch_id)`, records, records),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	batch_id   TEXT PRIMARY KEY,
	start_date TEXT,
	end_date   TEXT
)`, batches),
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
