// Package memory provides in-process record and batch stores for development
// and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JakeFAU/content-progress/internal/contentstate"
)

// RecordStore provides an in-memory, version-checked contentstate.RecordStore.
type RecordStore struct {
	mu      sync.RWMutex
	records map[string]contentstate.Record
}

// NewRecordStore constructs a RecordStore.
func NewRecordStore() *RecordStore {
	return &RecordStore{records: make(map[string]contentstate.Record)}
}

// Get returns a copy of the stored record.
func (s *RecordStore) Get(_ context.Context, id string) (contentstate.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return contentstate.Record{}, fmt.Errorf("%w: record %s", contentstate.ErrNotFound, id)
	}
	return clone(rec), nil
}

// Save stores rec if the current version equals prevVersion.
func (s *RecordStore) Save(_ context.Context, rec contentstate.Record, prevVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, exists := s.records[rec.ID]
	switch {
	case prevVersion == 0 && exists:
		return fmt.Errorf("%w: record %s already exists", contentstate.ErrConflict, rec.ID)
	case prevVersion != 0 && !exists:
		return fmt.Errorf("%w: record %s vanished", contentstate.ErrConflict, rec.ID)
	case exists && current.Version != prevVersion:
		return fmt.Errorf("%w: record %s at version %d, expected %d",
			contentstate.ErrConflict, rec.ID, current.Version, prevVersion)
	}
	s.records[rec.ID] = clone(rec)
	return nil
}

// Len reports how many records are stored.
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func clone(rec contentstate.Record) contentstate.Record {
	rec.LastAccessTime = cloneTime(rec.LastAccessTime)
	rec.LastCompletedTime = cloneTime(rec.LastCompletedTime)
	return rec
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
