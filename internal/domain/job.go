package domain

import (
	"time"
)

// JobState represents the lifecycle state of a generation job.
type JobState string

const (
	StatePending   JobState = "PENDING"
	StateRunning   JobState = "RUNNING"
	StateSucceeded JobState = "SUCCEEDED"
	StateFailed    JobState = "FAILED"
	StateTimedOut  JobState = "TIMED_OUT"
)

// IsTerminal returns true if the state represents a final state.
func (s JobState) IsTerminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateTimedOut:
		return true
	}
	return false
}

// FailureKind classifies why a job settled unsuccessfully.
type FailureKind string

const (
	FailureNone       FailureKind = ""
	FailureSubmission FailureKind = "SUBMISSION"
	FailureRemote     FailureKind = "REMOTE"
	FailureTimeout    FailureKind = "TIMEOUT"
	FailureCancelled  FailureKind = "CANCELLED"
)

// JobRequest is the immutable input for one generation job. The payload is
// opaque to the orchestrator; only the vendor collaborator interprets it.
type JobRequest struct {
	Label     string    `json:"label"`
	Payload   []byte    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// JobHandle tracks one submitted job through to settlement. It is owned
// exclusively by the runner that created it until it settles; afterwards it
// is read-only.
type JobHandle struct {
	// TaskID is assigned by the remote service on successful submission.
	// Empty if submission itself failed.
	TaskID      string      `json:"task_id"`
	Label       string      `json:"label"`
	State       JobState    `json:"state"`
	Attempts    int         `json:"attempts"`
	Result      string      `json:"result,omitempty"`
	FailureKind FailureKind `json:"failure_kind,omitempty"`
	Reason      string      `json:"reason,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	CompletedAt time.Time   `json:"completed_at"`
}

// Settle transitions the handle into a terminal state. Once terminal, the
// handle never transitions again.
func (h *JobHandle) Settle(state JobState, kind FailureKind, result, reason string, at time.Time) {
	if h.State.IsTerminal() {
		return
	}
	h.State = state
	h.FailureKind = kind
	h.Result = result
	h.Reason = reason
	h.CompletedAt = at
}

// SettleLatency returns the wall-clock time between creation and settlement.
func (h *JobHandle) SettleLatency() time.Duration {
	if !h.State.IsTerminal() {
		return 0
	}
	return h.CompletedAt.Sub(h.CreatedAt)
}

// BatchResult aggregates every settled handle of one batch invocation.
// Handles appear in settlement order, not submission order. Immutable after
// the batch returns.
type BatchResult struct {
	BatchID   string       `json:"batch_id"`
	Handles   []*JobHandle `json:"handles"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	TimedOut  int          `json:"timed_out"`
	Duration  time.Duration `json:"duration"`
}

// Tally recomputes the per-state counts from the collected handles.
func (b *BatchResult) Tally() {
	b.Succeeded, b.Failed, b.TimedOut = 0, 0, 0
	for _, h := range b.Handles {
		switch h.State {
		case StateSucceeded:
			b.Succeeded++
		case StateFailed:
			b.Failed++
		case StateTimedOut:
			b.TimedOut++
		}
	}
}
