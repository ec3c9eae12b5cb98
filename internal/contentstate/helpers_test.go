package contentstate_test

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/content-progress/internal/contentstate"
	"github.com/JakeFAU/content-progress/internal/hash/sha256"
)

var baseNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock(now time.Time) *stepClock {
	return &stepClock{now: now}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func statusPtr(s contentstate.Status) *contentstate.Status { return &s }

func int32Ptr(v int32) *int32 { return &v }

func newMerger(store contentstate.RecordStore, clock contentstate.Clock) *contentstate.Merger {
	return contentstate.NewMerger(store, sha256.New(), clock, contentstate.MergerConfig{}, zap.NewNop())
}

func keyFor(learnerID string, item contentstate.UpdateItem) string {
	if item.CourseID == "" {
		item.CourseID = contentstate.CourseNotAvailable
	}
	return contentstate.IdentityKey(sha256.New(), learnerID, item)
}
