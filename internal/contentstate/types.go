package contentstate

import (
	"fmt"
	"time"
)

// Status is the ordered completion state of a piece of content.
type Status int32

// Supported statuses. The numeric order is the progression order.
const (
	StatusNotStarted Status = 0
	StatusInProgress Status = 1
	StatusCompleted  Status = 2
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s >= StatusNotStarted && s <= StatusCompleted
}

func (s Status) String() string {
	switch s {
	case StatusNotStarted:
		return "NOT_STARTED"
	case StatusInProgress:
		return "IN_PROGRESS"
	case StatusCompleted:
		return "COMPLETED"
	default:
		return fmt.Sprintf("Status(%d)", int32(s))
	}
}

// CourseNotAvailable is substituted when an item carries no course id.
const CourseNotAvailable = "NA"

// Outcome is the per-item result reported back to the caller.
type Outcome string

// Per-item outcomes.
const (
	OutcomeSuccess     Outcome = "SUCCESS"
	OutcomeFailed      Outcome = "FAILED"
	OutcomeBatchClosed Outcome = "BATCH NOT STARTED OR BATCH CLOSED"
)

// Record is the persisted progress of one learner on one piece of content
// within a course batch.
type Record struct {
	// ID is the hashed identity key; see IdentityKey.
	ID        string
	LearnerID string
	ContentID string
	CourseID  string
	BatchID   string

	Status         Status
	Progress       int32
	ViewCount      int32
	CompletedCount int32

	LastAccessTime    *time.Time
	LastCompletedTime *time.Time
	LastUpdatedTime   time.Time

	// Version is the optimistic-concurrency revision: 1 on create, +1 per write.
	Version int64
}

// UpdateItem is the client-submitted partial state for one content item.
// Timestamps stay in their wire form until the merge so a malformed value
// fails only its own item.
type UpdateItem struct {
	ContentID         string
	CourseID          string
	BatchID           string
	Status            *Status
	Progress          *int32
	LastAccessTime    string
	LastCompletedTime string
}

// Request is a validated batch of updates for one learner.
type Request struct {
	LearnerID string
	Items     []UpdateItem
}

// Result is what the Ingestor produces for one request.
type Result struct {
	// Outcomes maps content id to its outcome; this is the caller's reply.
	Outcomes map[string]Outcome
	// Statuses maps identity key to resolved status for merged items only.
	Statuses map[string]Status
	// Accepted lists the successfully merged items in request order.
	Accepted []SummaryItem
}

// Window is a batch's open period as stored, with YYYY-MM-DD dates. EndDate
// may be empty for an open-ended batch.
type Window struct {
	BatchID   string `json:"batchId"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate,omitempty"`
}

// Summary is the rollup notification emitted after a request completes.
type Summary struct {
	LearnerID  string            `json:"learnerId"`
	Statuses   map[string]Status `json:"statuses"`
	Items      []SummaryItem     `json:"items"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// SummaryItem describes one merged item for the rollup consumer.
type SummaryItem struct {
	ID        string `json:"id"`
	ContentID string `json:"contentId"`
	CourseID  string `json:"courseId"`
	BatchID   string `json:"batchId,omitempty"`
	Status    Status `json:"status"`
	Progress  int32  `json:"progress"`
}
