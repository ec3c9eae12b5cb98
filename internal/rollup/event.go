package rollup

import (
	"errors"
	"time"

	"github.com/JakeFAU/content-progress/internal/contentstate"
)

// EventType labels rollup messages on the wire.
const EventType = "content.progress.rollup"

// Event is one summary queued for delivery.
type Event struct {
	// ID uniquely identifies the delivery; consumers may use it to dedupe.
	ID string `json:"eventId"`
	// Type is always EventType.
	Type string `json:"eventType"`
	contentstate.Summary
}

// EventType reports e.Type so transports can label messages without
// decoding the payload.
func (e Event) EventType() string {
	return e.Type
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.ID == "" {
		return errors.New("event id is required")
	}
	if e.LearnerID == "" {
		return errors.New("learner id is required")
	}
	if len(e.Statuses) == 0 {
		return errors.New("statuses must not be empty")
	}
	if e.OccurredAt.IsZero() {
		return errors.New("timestamp is required")
	}
	return nil
}

// CompletedCount reports how many statuses in the summary are completed.
func (e Event) CompletedCount() int {
	n := 0
	for _, s := range e.Statuses {
		if s == contentstate.StatusCompleted {
			n++
		}
	}
	return n
}

// IDGenerator produces event ids.
type IDGenerator interface {
	NewID() (string, error)
}

type timeFallbackID struct{}

func (timeFallbackID) NewID() (string, error) {
	return time.Now().UTC().Format("20060102T150405.000000000"), nil
}
