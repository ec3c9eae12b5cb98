package contentstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/content-progress/internal/metrics"
)

// ItemMerger merges one item for a learner and returns the saved record.
type ItemMerger interface {
	Merge(ctx context.Context, learnerID string, item UpdateItem) (Record, error)
}

// IngestorConfig controls Ingestor behavior.
type IngestorConfig struct {
	// Location is the time zone whose calendar day decides batch windows.
	Location *time.Location
}

// Ingestor runs a request's items through batch-window filtering and the
// merger, collecting per-item outcomes.
type Ingestor struct {
	batches  BatchStore
	merger   ItemMerger
	notifier Notifier
	clock    Clock
	loc      *time.Location
	logger   *zap.Logger
}

// NewIngestor constructs an Ingestor. notifier may be nil.
func NewIngestor(
	batches BatchStore,
	merger ItemMerger,
	notifier Notifier,
	clock Clock,
	cfg IngestorConfig,
	logger *zap.Logger,
) *Ingestor {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{
		batches:  batches,
		merger:   merger,
		notifier: notifier,
		clock:    clock,
		loc:      loc,
		logger:   logger,
	}
}

// Process validates req and handles every item in order. Only an invalid
// request returns an error; item failures are reported in the Result. Once
// validation passes all items are processed even if ctx is canceled.
func (in *Ingestor) Process(ctx context.Context, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	ctx = context.WithoutCancel(ctx)

	res := Result{
		Outcomes: make(map[string]Outcome, len(req.Items)),
		Statuses: make(map[string]Status, len(req.Items)),
	}
	accepted := make([]SummaryItem, 0, len(req.Items))
	today := in.clock.Now().In(in.loc)
	logger := in.logger.With(zap.String("learner_id", req.LearnerID))

	for _, item := range req.Items {
		if item.BatchID != "" {
			open, err := in.batchOpen(ctx, item.BatchID, today)
			switch {
			case errors.Is(err, ErrInvalidDateFormat):
				logger.Warn("batch has malformed dates",
					zap.String("batch_id", item.BatchID),
					zap.Error(err),
				)
			case err != nil:
				logger.Error("batch lookup failed",
					zap.String("batch_id", item.BatchID),
					zap.String("content_id", item.ContentID),
					zap.Error(err),
				)
				in.record(res, item.ContentID, OutcomeFailed)
				continue
			}
			if !open {
				in.record(res, item.ContentID, OutcomeBatchClosed)
				continue
			}
		}
		if item.CourseID == "" {
			item.CourseID = CourseNotAvailable
		}

		rec, err := in.merger.Merge(ctx, req.LearnerID, item)
		if err != nil {
			logger.Error("content state merge failed",
				zap.String("content_id", item.ContentID),
				zap.String("course_id", item.CourseID),
				zap.String("batch_id", item.BatchID),
				zap.Error(err),
			)
			in.record(res, item.ContentID, OutcomeFailed)
			continue
		}
		in.record(res, item.ContentID, OutcomeSuccess)
		res.Statuses[rec.ID] = rec.Status
		accepted = append(accepted, SummaryItem{
			ID:        rec.ID,
			ContentID: rec.ContentID,
			CourseID:  rec.CourseID,
			BatchID:   rec.BatchID,
			Status:    rec.Status,
			Progress:  rec.Progress,
		})
	}
	res.Accepted = accepted

	if in.notifier != nil && len(accepted) > 0 {
		in.notifier.Notify(Summary{
			LearnerID:  req.LearnerID,
			Statuses:   res.Statuses,
			Items:      accepted,
			OccurredAt: in.clock.Now(),
		})
	}
	return res, nil
}

// batchOpen reports whether batchID accepts updates today. A missing batch
// is closed; malformed dates surface as ErrInvalidDateFormat alongside false.
func (in *Ingestor) batchOpen(ctx context.Context, batchID string, today time.Time) (bool, error) {
	window, err := in.batches.Lookup(ctx, batchID)
	if errors.Is(err, ErrBatchNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: lookup batch %s: %w", ErrStorage, batchID, err)
	}
	return window.OpenOn(today)
}

func (in *Ingestor) record(res Result, contentID string, outcome Outcome) {
	res.Outcomes[contentID] = outcome
	metrics.ObserveItem(string(outcome))
}
