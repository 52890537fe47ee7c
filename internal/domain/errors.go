package domain

import "errors"

var (
	// ErrInvalidConcurrency is returned when a batch is configured with
	// max concurrent jobs below 1.
	ErrInvalidConcurrency = errors.New("max concurrent jobs must be at least 1")

	// ErrInvalidRetryBase is returned when the retry policy base delay is
	// zero or negative.
	ErrInvalidRetryBase = errors.New("retry base delay must be positive")

	// ErrInvalidMaxAttempts is returned when a retry or poll attempt budget
	// is negative.
	ErrInvalidMaxAttempts = errors.New("max attempts cannot be negative")

	// ErrInvalidInterval is returned when a poll interval is negative.
	ErrInvalidInterval = errors.New("poll interval cannot be negative")

	// ErrMissingTaskID is returned when the remote service accepts a
	// submission but the response carries no task id.
	ErrMissingTaskID = errors.New("submission response missing task id")

	// ErrBatchCancelled is the settle reason for jobs that never settled
	// before the caller cancelled the batch.
	ErrBatchCancelled = errors.New("batch cancelled before job settled")

	// ErrDuplicateRequest is returned by the dedupe filter when a request
	// fingerprint was already processed in an earlier run.
	ErrDuplicateRequest = errors.New("request already processed")
)
