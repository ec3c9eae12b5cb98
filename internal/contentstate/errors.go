package contentstate

import "errors"

var (
	// ErrInvalidRequest rejects a whole request before any item is processed.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidDateFormat marks an unparseable timestamp or batch date.
	ErrInvalidDateFormat = errors.New("invalid date format")
	// ErrBatchNotFound is returned by BatchStore when the batch does not exist.
	ErrBatchNotFound = errors.New("batch not found")
	// ErrNotFound is returned by RecordStore when no record exists for an id.
	ErrNotFound = errors.New("progress record not found")
	// ErrConflict is returned by RecordStore when the stored version moved.
	ErrConflict = errors.New("progress record version conflict")
	// ErrStorage wraps read/write failures of a backing store.
	ErrStorage = errors.New("storage failure")
)
