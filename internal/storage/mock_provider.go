package storage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/JakeFAU/content-progress/internal/contentstate"
)

// MockRecordStore is a mock implementation of contentstate.RecordStore for testing.
type MockRecordStore struct {
	mock.Mock
}

// Get is the mock implementation of the Get method.
func (m *MockRecordStore) Get(ctx context.Context, id string) (contentstate.Record, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(contentstate.Record), args.Error(1) //nolint:wrapcheck
}

// Save is the mock implementation of the Save method.
func (m *MockRecordStore) Save(ctx context.Context, rec contentstate.Record, prevVersion int64) error {
	args := m.Called(ctx, rec, prevVersion)
	return args.Error(0) //nolint:wrapcheck
}

// MockBatchStore is a mock implementation of contentstate.BatchStore for testing.
type MockBatchStore struct {
	mock.Mock
}

// Lookup is the mock implementation of the Lookup method.
func (m *MockBatchStore) Lookup(ctx context.Context, batchID string) (contentstate.Window, error) {
	args := m.Called(ctx, batchID)
	return args.Get(0).(contentstate.Window), args.Error(1) //nolint:wrapcheck
}
