package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/voxora/maestro/internal/domain"
)

// ---- Submitter mock ----

var _ domain.Submitter = (*Submitter)(nil)

// Submitter is a test double for domain.Submitter.
type Submitter struct {
	mu sync.Mutex

	SubmitFn func(ctx context.Context, req domain.JobRequest) (string, error)

	// Recorded calls for assertions.
	SubmitCalls []domain.JobRequest
}

func (m *Submitter) Submit(ctx context.Context, req domain.JobRequest) (string, error) {
	m.mu.Lock()
	m.SubmitCalls = append(m.SubmitCalls, req)
	n := len(m.SubmitCalls)
	m.mu.Unlock()
	if m.SubmitFn != nil {
		return m.SubmitFn(ctx, req)
	}
	return fmt.Sprintf("task-%d", n), nil // default: accepted
}

// Calls returns the number of recorded submissions.
func (m *Submitter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SubmitCalls)
}

// ---- StatusChecker mock ----

var _ domain.StatusChecker = (*StatusChecker)(nil)

// StatusChecker is a test double for domain.StatusChecker.
type StatusChecker struct {
	mu sync.Mutex

	CheckStatusFn func(ctx context.Context, taskID string) (domain.StatusSnapshot, error)

	CheckCalls []string
}

func (m *StatusChecker) CheckStatus(ctx context.Context, taskID string) (domain.StatusSnapshot, error) {
	m.mu.Lock()
	m.CheckCalls = append(m.CheckCalls, taskID)
	m.mu.Unlock()
	if m.CheckStatusFn != nil {
		return m.CheckStatusFn(ctx, taskID)
	}
	return domain.StatusSnapshot{Code: domain.StatusSucceeded, Payload: "https://example.com/result.mp4"}, nil
}

// Calls returns the number of recorded status checks.
func (m *StatusChecker) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.CheckCalls)
}

// SequenceChecker returns a StatusChecker whose nth call yields the nth
// snapshot; the last snapshot repeats once the sequence is exhausted.
func SequenceChecker(snaps ...domain.StatusSnapshot) *StatusChecker {
	var mu sync.Mutex
	i := 0
	return &StatusChecker{
		CheckStatusFn: func(ctx context.Context, taskID string) (domain.StatusSnapshot, error) {
			mu.Lock()
			defer mu.Unlock()
			snap := snaps[i]
			if i < len(snaps)-1 {
				i++
			}
			return snap, nil
		},
	}
}
