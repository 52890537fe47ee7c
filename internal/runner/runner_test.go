package runner_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/voxora/maestro/internal/client/mock"
	"github.com/voxora/maestro/internal/domain"
	"github.com/voxora/maestro/internal/poller"
	"github.com/voxora/maestro/internal/runner"
)

type captureSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (c *captureSink) Emit(ev domain.Event) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *captureSink) byType(t domain.EventType) []domain.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.Event
	for _, ev := range c.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func newTestRunner(t *testing.T, sub domain.Submitter, chk domain.StatusChecker, maxPoll int, sink domain.EventSink) *runner.Runner {
	t.Helper()
	p, err := poller.New(chk, 0, maxPoll, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return runner.New(sub, p, sink, zap.NewNop())
}

func newRequest(label string) domain.JobRequest {
	return domain.JobRequest{Label: label, Payload: []byte(`{"prompt":"a slow dolly zoom"}`)}
}

// Test: happy path settles succeeded with the poller's payload.
func TestRun_Success(t *testing.T) {
	sink := &captureSink{}
	sub := &mock.Submitter{}
	r := newTestRunner(t, sub, &mock.StatusChecker{}, 5, sink)

	h := r.Run(context.Background(), "b1", "r1", newRequest("clip-001"), nil)

	if h.State != domain.StateSucceeded {
		t.Fatalf("state = %s, want SUCCEEDED", h.State)
	}
	if h.TaskID == "" {
		t.Error("expected task id from submitter")
	}
	if h.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", h.Attempts)
	}
	if h.Result == "" {
		t.Error("expected success payload")
	}
	if h.CompletedAt.IsZero() {
		t.Error("expected completion timestamp")
	}
	if n := len(sink.byType(domain.EventSubmitted)); n != 1 {
		t.Errorf("submitted events = %d, want 1", n)
	}
	if n := len(sink.byType(domain.EventSettled)); n != 1 {
		t.Errorf("settled events = %d, want 1", n)
	}
}

// Test: submission failure settles Failed with zero poll attempts and no
// status checks.
func TestRun_SubmissionFailure(t *testing.T) {
	sub := &mock.Submitter{
		SubmitFn: func(ctx context.Context, req domain.JobRequest) (string, error) {
			return "", errors.New("402 insufficient credits")
		},
	}
	chk := &mock.StatusChecker{}
	r := newTestRunner(t, sub, chk, 5, nil)

	h := r.Run(context.Background(), "b1", "r1", newRequest("clip-001"), nil)

	if h.State != domain.StateFailed {
		t.Fatalf("state = %s, want FAILED", h.State)
	}
	if h.FailureKind != domain.FailureSubmission {
		t.Errorf("kind = %s, want SUBMISSION", h.FailureKind)
	}
	if h.Attempts != 0 {
		t.Errorf("attempts = %d, want 0", h.Attempts)
	}
	if chk.Calls() != 0 {
		t.Errorf("status checks = %d, want 0", chk.Calls())
	}
}

// Test: an accepted submission without a task id is a submission failure.
func TestRun_MissingTaskID(t *testing.T) {
	sub := &mock.Submitter{
		SubmitFn: func(ctx context.Context, req domain.JobRequest) (string, error) {
			return "", nil
		},
	}
	r := newTestRunner(t, sub, &mock.StatusChecker{}, 5, nil)

	h := r.Run(context.Background(), "b1", "r1", newRequest("clip-001"), nil)

	if h.State != domain.StateFailed || h.FailureKind != domain.FailureSubmission {
		t.Fatalf("state/kind = %s/%s, want FAILED/SUBMISSION", h.State, h.FailureKind)
	}
	if !strings.Contains(h.Reason, domain.ErrMissingTaskID.Error()) {
		t.Errorf("reason = %q, want mention of missing task id", h.Reason)
	}
}

// Test: the poller's outcome is adopted verbatim, including remote failure
// detail.
func TestRun_AdoptsRemoteFailure(t *testing.T) {
	chk := mock.SequenceChecker(
		domain.StatusSnapshot{Code: domain.StatusProcessing},
		domain.StatusSnapshot{Code: domain.StatusFailed, Reason: "bad input"},
	)
	r := newTestRunner(t, &mock.Submitter{}, chk, 10, nil)

	h := r.Run(context.Background(), "b1", "r1", newRequest("clip-001"), nil)

	if h.State != domain.StateFailed {
		t.Fatalf("state = %s, want FAILED", h.State)
	}
	if h.FailureKind != domain.FailureRemote {
		t.Errorf("kind = %s, want REMOTE", h.FailureKind)
	}
	if h.Reason != "bad input" {
		t.Errorf("reason = %q, want %q", h.Reason, "bad input")
	}
	if h.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", h.Attempts)
	}
}

// Test: poll events carry the attempt number and task id.
func TestRun_PollEvents(t *testing.T) {
	sink := &captureSink{}
	chk := mock.SequenceChecker(
		domain.StatusSnapshot{Code: domain.StatusSubmitted},
		domain.StatusSnapshot{Code: domain.StatusProcessing},
		domain.StatusSnapshot{Code: domain.StatusSucceeded, Payload: "url"},
	)
	r := newTestRunner(t, &mock.Submitter{}, chk, 10, sink)

	h := r.Run(context.Background(), "b1", "r1", newRequest("clip-001"), nil)

	polls := sink.byType(domain.EventPoll)
	if len(polls) != 3 {
		t.Fatalf("poll events = %d, want 3", len(polls))
	}
	for i, ev := range polls {
		if ev.Attempt != i+1 {
			t.Errorf("poll event %d attempt = %d, want %d", i, ev.Attempt, i+1)
		}
		if ev.TaskID != h.TaskID {
			t.Errorf("poll event %d task id = %q, want %q", i, ev.TaskID, h.TaskID)
		}
	}
}
