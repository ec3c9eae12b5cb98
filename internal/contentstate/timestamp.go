package contentstate

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the wire layout of access/completion times
// (yyyy-MM-dd HH:mm:ss:SSSZ). Go only reads fractional seconds after a dot,
// so the colon before the milliseconds is swapped at a fixed offset.
const TimestampLayout = "2006-01-02 15:04:05.000-0700"

const fractionSeparatorAt = len("2006-01-02 15:04:05")

// DateLayout is the calendar-day layout of batch start and end dates.
const DateLayout = "2006-01-02"

// ParseTimestamp parses a wire timestamp. Empty strings and the literal
// "null" (any case) are absent and yield nil. RFC 3339 is also accepted.
func ParseTimestamp(raw string) (*time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "null") {
		return nil, nil
	}
	if len(s) > fractionSeparatorAt && s[fractionSeparatorAt] == ':' {
		if t, err := time.Parse(TimestampLayout, s[:fractionSeparatorAt]+"."+s[fractionSeparatorAt+1:]); err == nil {
			return &t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return &t, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidDateFormat, raw)
}

// FormatTimestamp renders t in the wire layout.
func FormatTimestamp(t time.Time) string {
	s := t.Format(TimestampLayout)
	return s[:fractionSeparatorAt] + ":" + s[fractionSeparatorAt+1:]
}

// latest applies the time-merge rule: both absent yields now, one present
// yields that one, both present yields the later.
func latest(stored, requested *time.Time, now time.Time) *time.Time {
	switch {
	case stored == nil && requested == nil:
		return &now
	case stored == nil:
		return requested
	case requested == nil:
		return stored
	case requested.After(*stored):
		return requested
	default:
		return stored
	}
}

// latestPresent is latest without the "now" fallback; nil stays nil.
func latestPresent(stored, requested *time.Time) *time.Time {
	if stored == nil && requested == nil {
		return nil
	}
	return latest(stored, requested, time.Time{})
}
