package contentstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// wireRequest is the inbound JSON shape. Numeric fields are json.Number so
// both 2 and "2" are accepted and range-checked once here.
type wireRequest struct {
	LearnerID string     `json:"learnerId"`
	Contents  []wireItem `json:"contents"`
	Items     []wireItem `json:"items"`
}

type wireItem struct {
	ContentID         string      `json:"contentId"`
	CourseID          string      `json:"courseId"`
	BatchID           string      `json:"batchId"`
	Status            json.Number `json:"status"`
	Progress          json.Number `json:"progress"`
	LastAccessTime    *string     `json:"lastAccessTime"`
	LastCompletedTime *string     `json:"lastCompletedTime"`
}

// DecodeRequest reads and validates a request body. Every failure wraps
// ErrInvalidRequest.
func DecodeRequest(r io.Reader) (Request, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	dec.UseNumber()

	var wire wireRequest
	if err := dec.Decode(&wire); err != nil {
		return Request{}, fmt.Errorf("%w: decode body: %w", ErrInvalidRequest, err)
	}
	if dec.More() {
		return Request{}, fmt.Errorf("%w: trailing data after request object", ErrInvalidRequest)
	}
	if len(wire.Contents) > 0 && len(wire.Items) > 0 {
		return Request{}, fmt.Errorf("%w: use either contents or items, not both", ErrInvalidRequest)
	}

	items := wire.Contents
	if len(items) == 0 {
		items = wire.Items
	}
	req := Request{
		LearnerID: strings.TrimSpace(wire.LearnerID),
		Items:     make([]UpdateItem, 0, len(items)),
	}
	for i, w := range items {
		item, err := w.toItem()
		if err != nil {
			return Request{}, fmt.Errorf("%w: contents[%d]: %w", ErrInvalidRequest, i, err)
		}
		req.Items = append(req.Items, item)
	}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

func (w wireItem) toItem() (UpdateItem, error) {
	item := UpdateItem{
		ContentID: strings.TrimSpace(w.ContentID),
		CourseID:  strings.TrimSpace(w.CourseID),
		BatchID:   strings.TrimSpace(w.BatchID),
	}
	if w.Status != "" {
		v, err := parseInt32(w.Status, "status")
		if err != nil {
			return UpdateItem{}, err
		}
		s := Status(v)
		item.Status = &s
	}
	if w.Progress != "" {
		v, err := parseInt32(w.Progress, "progress")
		if err != nil {
			return UpdateItem{}, err
		}
		item.Progress = &v
	}
	if w.LastAccessTime != nil {
		item.LastAccessTime = *w.LastAccessTime
	}
	if w.LastCompletedTime != nil {
		item.LastCompletedTime = *w.LastCompletedTime
	}
	return item, nil
}

func parseInt32(n json.Number, field string) (int32, error) {
	v, err := strconv.ParseInt(n.String(), 10, 32)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, fmt.Errorf("%s %s out of range [%d, %d]", field, n, math.MinInt32, math.MaxInt32)
		}
		return 0, fmt.Errorf("%s %q is not an integer", field, n.String())
	}
	return int32(v), nil
}

// Validate checks the invariants every request must satisfy before any item
// is processed.
func (r Request) Validate() error {
	if r.LearnerID == "" {
		return fmt.Errorf("%w: learnerId is required", ErrInvalidRequest)
	}
	for i, item := range r.Items {
		if item.ContentID == "" {
			return fmt.Errorf("%w: contents[%d]: contentId is required", ErrInvalidRequest, i)
		}
		if item.Status != nil && !item.Status.Valid() {
			return fmt.Errorf("%w: contents[%d]: unknown status %d", ErrInvalidRequest, i, int32(*item.Status))
		}
		if item.Progress != nil && *item.Progress < 0 {
			return fmt.Errorf("%w: contents[%d]: progress must be >= 0", ErrInvalidRequest, i)
		}
	}
	return nil
}
