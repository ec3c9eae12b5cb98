package contentstate

import (
	"fmt"
	"strings"
	"time"
)

// OpenOn reports whether the batch accepts updates on the calendar day of
// today: start <= today and, if an end date is set, today <= end. Only the
// date part of today in its own location is considered. A missing or
// malformed start, or a malformed end, returns ErrInvalidDateFormat.
func (w Window) OpenOn(today time.Time) (bool, error) {
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	start, err := parseDay(w.StartDate)
	if err != nil {
		return false, fmt.Errorf("batch %s start date: %w", w.BatchID, err)
	}
	var end *time.Time
	if strings.TrimSpace(w.EndDate) != "" {
		e, err := parseDay(w.EndDate)
		if err != nil {
			return false, fmt.Errorf("batch %s end date: %w", w.BatchID, err)
		}
		end = &e
	}

	if day.Before(start) {
		return false, nil
	}
	if end != nil && day.After(*end) {
		return false, nil
	}
	return true, nil
}

func parseDay(raw string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, raw)
	}
	return t, nil
}
