package domain

import (
	"context"
)

// StatusCode is the remote service's view of a task, as reported by one
// status check.
type StatusCode string

const (
	StatusSubmitted  StatusCode = "SUBMITTED"
	StatusProcessing StatusCode = "PROCESSING"
	StatusSucceeded  StatusCode = "SUCCEEDED"
	StatusFailed     StatusCode = "FAILED"
	StatusUnknown    StatusCode = "UNKNOWN"
)

// StatusSnapshot is one observation of a remote task. Payload is set only
// for StatusSucceeded (e.g. a result URL); Reason only for StatusFailed.
type StatusSnapshot struct {
	Code    StatusCode
	Payload string
	Reason  string
}

// Terminal reports whether the snapshot ends polling.
func (s StatusSnapshot) Terminal() bool {
	return s.Code == StatusSucceeded || s.Code == StatusFailed
}

// Submitter submits one generation request to the remote service. Exactly
// one external call per invocation; no implicit retry.
type Submitter interface {
	Submit(ctx context.Context, req JobRequest) (taskID string, err error)
}

// StatusChecker fetches the current status of a previously submitted task.
// An error means the check itself failed (network, malformed response), not
// that the task failed.
type StatusChecker interface {
	CheckStatus(ctx context.Context, taskID string) (StatusSnapshot, error)
}
