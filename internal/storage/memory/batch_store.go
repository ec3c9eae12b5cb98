package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/content-progress/internal/contentstate"
)

// BatchStore holds batch windows keyed by batch id.
type BatchStore struct {
	mu      sync.RWMutex
	windows map[string]contentstate.Window
}

// NewBatchStore constructs a BatchStore seeded with windows.
func NewBatchStore(windows ...contentstate.Window) *BatchStore {
	s := &BatchStore{windows: make(map[string]contentstate.Window, len(windows))}
	for _, w := range windows {
		s.windows[w.BatchID] = w
	}
	return s
}

// Put inserts or replaces a window.
func (s *BatchStore) Put(w contentstate.Window) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows[w.BatchID] = w
}

// Lookup returns the window for batchID.
func (s *BatchStore) Lookup(_ context.Context, batchID string) (contentstate.Window, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.windows[batchID]
	if !ok {
		return contentstate.Window{}, fmt.Errorf("%w: %s", contentstate.ErrBatchNotFound, batchID)
	}
	return w, nil
}
