package task

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store defines the keyed task-record store the orchestrator writes through.
// All methods are safe for concurrent use by multiple workers and any number
// of simultaneous status readers.
// Version: 1.0
type Store interface {
	// Create persists a new record.
	// Returns ErrTaskExists if the task ID is already present.
	Create(ctx context.Context, record *Record) error

	// Get returns an immutable snapshot of the record.
	// Returns ErrTaskNotFound if the task is unknown or already purged.
	Get(ctx context.Context, id uuid.UUID) (Snapshot, error)

	// Update applies fn to the record as an atomic read-modify-write.
	// Two concurrent updates for the same task never interleave. An error
	// from fn aborts the update and is returned unchanged.
	// Returns ErrTaskNotFound if the task is unknown or already purged.
	Update(ctx context.Context, id uuid.UUID, fn func(*Record) error) error

	// ScheduleDelete arranges for the record to be purged once the given
	// duration has elapsed, without blocking the caller. A non-positive
	// duration purges the record immediately. Reads after the purge report
	// ErrTaskNotFound.
	ScheduleDelete(ctx context.Context, id uuid.UUID, after time.Duration) error
}
