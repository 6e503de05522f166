package task

import "errors"

// Errors surfaced synchronously to submitters and status readers.
var (
	// ErrInvalidRequest is returned by Submit when the generation request
	// fails validation. No task is created.
	ErrInvalidRequest = errors.New("invalid generation request")

	// ErrTaskNotFound is returned when a task ID is unknown or its record
	// has already been purged after the retention grace period.
	ErrTaskNotFound = errors.New("task not found")

	// ErrForbidden is returned when a status read comes from a principal
	// other than the task's owner.
	ErrForbidden = errors.New("task belongs to another user")

	// ErrQueueFull is returned by Submit when the worker pool's queue is
	// saturated. The submission is rejected rather than blocking.
	ErrQueueFull = errors.New("generation queue is full")

	// ErrTaskExists is returned by Store.Create for a duplicate task ID.
	ErrTaskExists = errors.New("task already exists")

	// ErrInvalidTransition is returned when a record mutation would move
	// the state machine backwards or out of a terminal state.
	ErrInvalidTransition = errors.New("invalid task state transition")
)

// Stable failure reasons recorded on failed tasks. Provider-reported
// failures carry the provider's message instead.
const (
	ReasonTimeout     = "generation timed out"
	ReasonPersistence = "persistence failed"
	ReasonCanceled    = "generation canceled"
)
