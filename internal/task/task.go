package task

import (
	"time"

	"github.com/google/uuid"

	"github.com/prismworks/prism-api/internal/domain"
)

// State represents the current position of a task in its lifecycle.
type State string

// Possible task states. Transitions are forward-only:
// pending -> processing -> succeeded | failed.
const (
	StatePending    State = "pending"
	StateProcessing State = "processing"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Terminal reports whether no further transitions can leave this state.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Result holds the locations of a successfully persisted artifact.
type Result struct {
	ArtifactID   uuid.UUID `json:"artifact_id"`
	ImageURL     string    `json:"image_url"`
	ThumbnailURL string    `json:"thumbnail_url"`
}

// Record is the single source of truth for one submitted generation task.
// Records are mutated exclusively through Store.Update, which serializes
// writers per task ID; everything outside the store sees only Snapshots.
type Record struct {
	ID            uuid.UUID                `json:"id"`
	OwnerID       uuid.UUID                `json:"owner_id"`
	State         State                    `json:"state"`
	Progress      int                      `json:"progress"`
	Request       domain.GenerationRequest `json:"request"`
	ProviderJobID string                   `json:"provider_job_id,omitempty"`
	Result        *Result                  `json:"result,omitempty"`
	Error         string                   `json:"error,omitempty"`
	CreatedAt     time.Time                `json:"created_at"`
	TerminalAt    time.Time                `json:"terminal_at,omitempty"`
}

// NewRecord creates a pending record for a freshly submitted request.
// The request must already be normalized and validated.
func NewRecord(ownerID uuid.UUID, req domain.GenerationRequest) *Record {
	return &Record{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		State:     StatePending,
		Progress:  0,
		Request:   req,
		CreatedAt: time.Now().UTC(),
	}
}

// MarkProcessing transitions the record from pending to processing.
func (r *Record) MarkProcessing() error {
	if r.State != StatePending {
		return ErrInvalidTransition
	}
	r.State = StateProcessing
	return nil
}

// SetProgress raises the record's progress. Progress is non-decreasing
// while the task is non-terminal; a lower value is silently ignored.
func (r *Record) SetProgress(progress int) error {
	if r.State.Terminal() {
		return ErrInvalidTransition
	}
	if progress > 100 {
		progress = 100
	}
	if progress > r.Progress {
		r.Progress = progress
	}
	return nil
}

// SetProviderJobID records the provider-assigned job ID. Set once.
func (r *Record) SetProviderJobID(jobID string) error {
	if r.ProviderJobID != "" {
		return ErrInvalidTransition
	}
	r.ProviderJobID = jobID
	return nil
}

// MarkSucceeded transitions the record to its successful terminal state,
// forcing progress to 100 and attaching the persisted result.
func (r *Record) MarkSucceeded(result Result) error {
	if r.State != StateProcessing {
		return ErrInvalidTransition
	}
	r.State = StateSucceeded
	r.Progress = 100
	r.Result = &result
	r.TerminalAt = time.Now().UTC()
	return nil
}

// MarkFailed transitions the record to its failed terminal state with a
// human-readable reason. Progress is frozen where it was.
func (r *Record) MarkFailed(reason string) error {
	if r.State.Terminal() {
		return ErrInvalidTransition
	}
	r.State = StateFailed
	r.Error = reason
	r.TerminalAt = time.Now().UTC()
	return nil
}

// Snapshot is an immutable copy of a record handed out to readers.
type Snapshot struct {
	ID            uuid.UUID
	OwnerID       uuid.UUID
	State         State
	Progress      int
	Request       domain.GenerationRequest
	ProviderJobID string
	Result        *Result
	Error         string
	CreatedAt     time.Time
	TerminalAt    time.Time
}

// Snapshot returns a deep copy of the record's current state. Mutating
// the returned value never affects the stored record.
func (r *Record) Snapshot() Snapshot {
	snap := Snapshot{
		ID:            r.ID,
		OwnerID:       r.OwnerID,
		State:         r.State,
		Progress:      r.Progress,
		Request:       r.Request,
		ProviderJobID: r.ProviderJobID,
		Error:         r.Error,
		CreatedAt:     r.CreatedAt,
		TerminalAt:    r.TerminalAt,
	}
	if r.Result != nil {
		result := *r.Result
		snap.Result = &result
	}
	return snap
}
