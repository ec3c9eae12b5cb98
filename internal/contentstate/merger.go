package contentstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/content-progress/internal/metrics"
)

const defaultMaxAttempts = 5

// MergerConfig controls Merger behavior.
type MergerConfig struct {
	// MaxAttempts bounds read-merge-save cycles per item when the stored
	// version keeps moving underneath us.
	MaxAttempts int
}

// Merger folds one UpdateItem into the stored record for its identity.
type Merger struct {
	store  RecordStore
	hasher Hasher
	clock  Clock
	cfg    MergerConfig
	logger *zap.Logger
}

// NewMerger constructs a Merger.
func NewMerger(store RecordStore, hasher Hasher, clock Clock, cfg MergerConfig, logger *zap.Logger) *Merger {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Merger{
		store:  store,
		hasher: hasher,
		clock:  clock,
		cfg:    cfg,
		logger: logger,
	}
}

// Merge reads the current record for the item's identity, merges the item
// into it and saves the result. On a version conflict the whole cycle is
// repeated against the fresh record. The saved record is returned.
func (m *Merger) Merge(ctx context.Context, learnerID string, item UpdateItem) (Record, error) {
	if item.CourseID == "" {
		item.CourseID = CourseNotAvailable
	}
	reqAccess, err := ParseTimestamp(item.LastAccessTime)
	if err != nil {
		return Record{}, fmt.Errorf("last access time: %w", err)
	}
	reqCompleted, err := ParseTimestamp(item.LastCompletedTime)
	if err != nil {
		return Record{}, fmt.Errorf("last completed time: %w", err)
	}

	id := IdentityKey(m.hasher, learnerID, item)
	for attempt := 1; ; attempt++ {
		stored, found, err := m.load(ctx, id)
		if err != nil {
			return Record{}, err
		}

		now := m.clock.Now()
		var next Record
		if found {
			next = mergeExisting(stored, item, reqAccess, reqCompleted, now)
		} else {
			next = mergeNew(item, reqAccess, reqCompleted, now)
		}
		next.ID = id
		next.LearnerID = learnerID
		next.ContentID = item.ContentID
		next.CourseID = item.CourseID
		next.BatchID = item.BatchID
		next.Version = stored.Version + 1

		err = m.store.Save(ctx, next, stored.Version)
		if err == nil {
			metrics.ObserveMerge(found)
			return next, nil
		}
		if !errors.Is(err, ErrConflict) {
			return Record{}, fmt.Errorf("%w: save %s: %w", ErrStorage, id, err)
		}

		metrics.ObserveMergeConflict()
		if attempt >= m.cfg.MaxAttempts {
			return Record{}, fmt.Errorf("merge %s gave up after %d attempts: %w", id, attempt, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Record{}, fmt.Errorf("merge %s: %w", id, ctxErr)
		}
		m.logger.Debug("version conflict, retrying merge",
			zap.String("id", id),
			zap.Int("attempt", attempt),
		)
	}
}

func (m *Merger) load(ctx context.Context, id string) (Record, bool, error) {
	rec, err := m.store.Get(ctx, id)
	switch {
	case err == nil:
		return rec, true, nil
	case errors.Is(err, ErrNotFound):
		return Record{}, false, nil
	default:
		return Record{}, false, fmt.Errorf("%w: load %s: %w", ErrStorage, id, err)
	}
}

// mergeNew builds the first record for an identity.
func mergeNew(item UpdateItem, reqAccess, reqCompleted *time.Time, now time.Time) Record {
	rec := Record{
		Status:            StatusNotStarted,
		ViewCount:         1,
		LastAccessTime:    latest(nil, reqAccess, now),
		LastCompletedTime: reqCompleted,
		LastUpdatedTime:   now,
	}
	if item.Status != nil {
		rec.Status = *item.Status
		if rec.Status == StatusCompleted {
			rec.CompletedCount = 1
			rec.LastCompletedTime = latest(nil, reqCompleted, now)
		}
	}
	if item.Progress != nil {
		rec.Progress = *item.Progress
	}
	return rec
}

// mergeExisting folds item into stored. Status, progress and both
// timestamps never move backwards; ViewCount always grows by one and
// CompletedCount grows by one whenever the request resolves to COMPLETED.
func mergeExisting(stored Record, item UpdateItem, reqAccess, reqCompleted *time.Time, now time.Time) Record {
	rec := stored
	if item.Progress != nil {
		rec.Progress = max(stored.Progress, *item.Progress)
	}
	rec.LastAccessTime = latest(stored.LastAccessTime, reqAccess, now)
	rec.LastCompletedTime = latestPresent(stored.LastCompletedTime, reqCompleted)

	if item.Status != nil && *item.Status >= stored.Status {
		rec.Status = *item.Status
		if rec.Status == StatusCompleted {
			rec.CompletedCount = stored.CompletedCount + 1
			rec.LastCompletedTime = latest(stored.LastCompletedTime, reqCompleted, now)
		}
	}

	rec.ViewCount = stored.ViewCount + 1
	rec.LastUpdatedTime = now
	return rec
}
