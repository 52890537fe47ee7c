package domain_test

import (
	"testing"
	"time"

	"github.com/voxora/maestro/internal/domain"
)

func TestJobState_IsTerminal(t *testing.T) {
	terminal := []domain.JobState{domain.StateSucceeded, domain.StateFailed, domain.StateTimedOut}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []domain.JobState{domain.StatePending, domain.StateRunning} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

// Test: a settled handle never transitions again.
func TestJobHandle_SettleIsFinal(t *testing.T) {
	h := &domain.JobHandle{Label: "clip-001", State: domain.StateRunning, CreatedAt: time.Now().UTC()}

	first := time.Now().UTC()
	h.Settle(domain.StateSucceeded, domain.FailureNone, "https://cdn.example.com/v.mp4", "", first)

	h.Settle(domain.StateFailed, domain.FailureRemote, "", "late failure", first.Add(time.Minute))

	if h.State != domain.StateSucceeded {
		t.Errorf("state = %s, want SUCCEEDED (terminal states are final)", h.State)
	}
	if h.Result != "https://cdn.example.com/v.mp4" {
		t.Errorf("result overwritten after settlement")
	}
	if !h.CompletedAt.Equal(first) {
		t.Errorf("completedAt changed after settlement")
	}
}

func TestJobHandle_SettleLatency(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	h := &domain.JobHandle{State: domain.StateRunning, CreatedAt: created}

	if h.SettleLatency() != 0 {
		t.Error("unsettled handle should report zero latency")
	}

	h.Settle(domain.StateSucceeded, domain.FailureNone, "ok", "", created.Add(42*time.Second))
	if h.SettleLatency() != 42*time.Second {
		t.Errorf("latency = %v, want 42s", h.SettleLatency())
	}
}

func TestStatusSnapshot_Terminal(t *testing.T) {
	if !(domain.StatusSnapshot{Code: domain.StatusSucceeded}).Terminal() {
		t.Error("succeeded should be terminal")
	}
	if !(domain.StatusSnapshot{Code: domain.StatusFailed}).Terminal() {
		t.Error("failed should be terminal")
	}
	for _, c := range []domain.StatusCode{domain.StatusSubmitted, domain.StatusProcessing, domain.StatusUnknown} {
		if (domain.StatusSnapshot{Code: c}).Terminal() {
			t.Errorf("%s should not be terminal", c)
		}
	}
}

func TestBatchResult_Tally(t *testing.T) {
	now := time.Now().UTC()
	mk := func(s domain.JobState) *domain.JobHandle {
		h := &domain.JobHandle{State: domain.StateRunning, CreatedAt: now}
		h.Settle(s, domain.FailureNone, "", "", now)
		return h
	}
	res := &domain.BatchResult{Handles: []*domain.JobHandle{
		mk(domain.StateSucceeded),
		mk(domain.StateSucceeded),
		mk(domain.StateFailed),
		mk(domain.StateTimedOut),
	}}
	res.Tally()

	if res.Succeeded != 2 || res.Failed != 1 || res.TimedOut != 1 {
		t.Errorf("counts = %d/%d/%d, want 2/1/1", res.Succeeded, res.Failed, res.TimedOut)
	}
}
