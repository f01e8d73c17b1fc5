package store

import "context"

// RunStoreInterface defines the interface for the generation run ledger.
// This interface enables mocking for testing.
type RunStoreInterface interface {
	// Start records a new run and returns its ID
	Start(app, version, outputDir string, binders []string) (string, error)

	// Finish sets the final status and error message of a run
	Finish(id, status, errMsg string) error

	// Get returns a run by ID, or nil if not found
	Get(id string) (*Run, error)

	// Recent returns the newest runs first
	Recent(limit int) ([]*Run, error)
}

// LockerInterface serializes generation runs across processes
type LockerInterface interface {
	// Acquire takes the lock for key or fails with ErrLocked
	Acquire(ctx context.Context, key string) (func(context.Context) error, error)
}

// Compile-time assertions
var _ RunStoreInterface = (*RunStore)(nil)
var _ LockerInterface = (*RunLock)(nil)
