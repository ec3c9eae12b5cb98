package contentstate

import (
	"context"
	"time"
)

// RecordStore persists progress records.
type RecordStore interface {
	// Get loads the record for id or returns ErrNotFound.
	Get(ctx context.Context, id string) (Record, error)
	// Save writes rec if the stored version still equals prevVersion. A
	// prevVersion of 0 means "create only if absent". Returns ErrConflict
	// when the precondition does not hold.
	Save(ctx context.Context, rec Record, prevVersion int64) error
}

// BatchStore resolves a batch id to its open window.
type BatchStore interface {
	// Lookup returns the batch window or ErrBatchNotFound.
	Lookup(ctx context.Context, batchID string) (Window, error)
}

// Notifier receives the rollup summary of a processed request. It must not
// block the caller; delivery failures are the notifier's concern.
type Notifier interface {
	Notify(summary Summary)
}

// Hasher derives the one-way identity digest from key parts.
type Hasher interface {
	HashKey(parts ...string) string
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
