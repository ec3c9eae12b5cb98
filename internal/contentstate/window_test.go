package contentstate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowOpenOn(t *testing.T) {
	t.Parallel()

	today := time.Date(2024, 6, 15, 23, 30, 0, 0, time.UTC)
	tests := []struct {
		name   string
		window Window
		want   bool
	}{
		{name: "inside", window: Window{StartDate: "2024-06-01", EndDate: "2024-06-30"}, want: true},
		{name: "starts today", window: Window{StartDate: "2024-06-15", EndDate: "2024-06-30"}, want: true},
		{name: "ends today", window: Window{StartDate: "2024-06-01", EndDate: "2024-06-15"}, want: true},
		{name: "open ended", window: Window{StartDate: "2024-01-01"}, want: true},
		{name: "not started", window: Window{StartDate: "2024-06-16"}, want: false},
		{name: "closed", window: Window{StartDate: "2024-01-01", EndDate: "2024-06-14"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tt.window.OpenOn(today)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWindowOpenOnUsesLocalCalendarDay(t *testing.T) {
	t.Parallel()

	// 2024-06-15 23:30 UTC is already 2024-06-16 in Kolkata.
	instant := time.Date(2024, 6, 15, 23, 30, 0, 0, time.UTC)
	kolkata := time.FixedZone("IST", 5*3600+1800)
	w := Window{BatchID: "b1", StartDate: "2024-06-16"}

	open, err := w.OpenOn(instant)
	require.NoError(t, err)
	assert.False(t, open)

	open, err = w.OpenOn(instant.In(kolkata))
	require.NoError(t, err)
	assert.True(t, open)
}

func TestWindowOpenOnMalformedDates(t *testing.T) {
	t.Parallel()

	today := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	for _, w := range []Window{
		{BatchID: "missing-start"},
		{BatchID: "bad-start", StartDate: "15-06-2024"},
		{BatchID: "bad-end", StartDate: "2024-06-01", EndDate: "soon"},
	} {
		open, err := w.OpenOn(today)
		require.ErrorIs(t, err, ErrInvalidDateFormat, w.BatchID)
		assert.False(t, open, w.BatchID)
		assert.Contains(t, err.Error(), w.BatchID)
	}
}
