package task

import "time"

// ProviderStatus is the coarse job status reported by the external
// generation provider on each poll.
type ProviderStatus string

// Possible provider statuses. Anything the provider reports that is not a
// terminal success or failure is treated as running.
const (
	ProviderStatusRunning   ProviderStatus = "running"
	ProviderStatusSucceeded ProviderStatus = "succeeded"
	ProviderStatusFailed    ProviderStatus = "failed"
)

// Action is the polling policy's verdict for one poll iteration.
type Action int

// Possible policy actions.
const (
	// ActionContinue keeps polling after updating progress.
	ActionContinue Action = iota

	// ActionSucceed proceeds to artifact persistence.
	ActionSucceed

	// ActionFailNow fails the task with the provider-supplied reason.
	ActionFailNow

	// ActionFailTimeout fails the task because the attempt budget is
	// exhausted without a terminal provider signal.
	ActionFailTimeout
)

// Decision is the policy's output for one poll iteration.
type Decision struct {
	Action Action

	// Progress is the estimate to record when Action is ActionContinue.
	Progress int

	// Reason is the failure reason when Action is ActionFailNow or
	// ActionFailTimeout.
	Reason string
}

// Policy isolates the numeric progress schedule and the termination
// condition of the polling loop from the I/O that drives it, so both are
// independently testable. Decide is a pure function.
type Policy struct {
	// MaxAttempts bounds how many polls are made before the task is
	// failed with a timeout.
	MaxAttempts int

	// Interval is the sleep between polls.
	Interval time.Duration
}

// DefaultPolicy mirrors the provider's expected latency: up to 30 polls,
// 5 seconds apart.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 30,
		Interval:    5 * time.Second,
	}
}

// Decide maps the provider's reported status and the current attempt count
// (1-based, counting the poll that just completed) to the next action.
//
// While the provider reports running and attempts remain, progress ramps
// linearly from 30 (job just created) toward 80, reserving 80-100 for
// download, persistence, and finalization: min(80, 30 + attempt*50/max).
func (p Policy) Decide(status ProviderStatus, message string, attempt int) Decision {
	switch status {
	case ProviderStatusSucceeded:
		return Decision{Action: ActionSucceed}

	case ProviderStatusFailed:
		if message == "" {
			message = "image generation failed"
		}
		return Decision{Action: ActionFailNow, Reason: message}
	}

	if attempt >= p.MaxAttempts {
		return Decision{Action: ActionFailTimeout, Reason: ReasonTimeout}
	}

	progress := 30 + attempt*50/p.MaxAttempts
	if progress > 80 {
		progress = 80
	}

	return Decision{Action: ActionContinue, Progress: progress}
}
