package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateKey indicates a natural-key collision on create.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrReferenced indicates the row is referenced by dependent records.
	ErrReferenced = errors.New("row has dependent records")
	// ErrSyncInProgress occurs when a calendar synchronization already holds the lock.
	ErrSyncInProgress = errors.New("synchronization already running")
)
