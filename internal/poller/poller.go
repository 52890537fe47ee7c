// Package poller drives the status-check loop for one submitted task.
package poller

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/voxora/maestro/internal/domain"
	"github.com/voxora/maestro/internal/metrics"
)

// DefaultInterval matches the 10s wait the generation APIs recommend
// between status checks.
const DefaultInterval = 10 * time.Second

// Outcome is the settled result of one polling session.
type Outcome struct {
	State      domain.JobState
	Kind       domain.FailureKind
	Result     string
	Reason     string
	Attempts   int
	LastStatus domain.StatusCode
	Elapsed    time.Duration
}

// Poller repeatedly checks a task's remote status until it is terminal or
// the attempt budget runs out.
type Poller struct {
	checker     domain.StatusChecker
	interval    time.Duration
	maxAttempts int
	logger      *zap.Logger
}

// New creates a Poller. maxAttempts below 1 and negative intervals are
// configuration errors.
func New(checker domain.StatusChecker, interval time.Duration, maxAttempts int, logger *zap.Logger) (*Poller, error) {
	if maxAttempts < 1 {
		return nil, domain.ErrInvalidMaxAttempts
	}
	if interval < 0 {
		return nil, domain.ErrInvalidInterval
	}
	return &Poller{
		checker:     checker,
		interval:    interval,
		maxAttempts: maxAttempts,
		logger:      logger,
	}, nil
}

// Poll blocks until the task reaches a terminal status, the attempt budget
// is exhausted, or ctx is cancelled. A failed status check does not fail the
// job: it consumes one attempt and the loop continues, so a service that
// stays unreachable surfaces as a timeout. onCheck, if non-nil, is invoked
// after every completed status check.
func (p *Poller) Poll(ctx context.Context, taskID string, onCheck func(attempt int, status domain.StatusCode)) Outcome {
	start := time.Now()
	lastStatus := domain.StatusUnknown

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		snap, err := p.checker.CheckStatus(ctx, taskID)
		if err != nil {
			if ctx.Err() != nil {
				return p.cancelled(attempt, lastStatus, start)
			}
			metrics.TransientPollErrors.Inc()
			p.logger.Warn("Status check failed, will retry",
				zap.String("task_id", taskID),
				zap.Int("attempt", attempt),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err),
			)
			snap = domain.StatusSnapshot{Code: domain.StatusUnknown}
		}

		lastStatus = snap.Code
		if onCheck != nil {
			onCheck(attempt, snap.Code)
		}

		p.logger.Debug("Polled task status",
			zap.String("task_id", taskID),
			zap.Int("attempt", attempt),
			zap.String("status", string(snap.Code)),
			zap.Duration("elapsed", time.Since(start)),
		)

		if snap.Terminal() {
			if snap.Code == domain.StatusSucceeded {
				return Outcome{
					State:      domain.StateSucceeded,
					Result:     snap.Payload,
					Attempts:   attempt,
					LastStatus: snap.Code,
					Elapsed:    time.Since(start),
				}
			}
			// Remote failure is terminal here; a fresh submission, if
			// any, happens one layer up.
			return Outcome{
				State:      domain.StateFailed,
				Kind:       domain.FailureRemote,
				Reason:     snap.Reason,
				Attempts:   attempt,
				LastStatus: snap.Code,
				Elapsed:    time.Since(start),
			}
		}

		// Still pending; wait before the next check unless this was the
		// last allowed attempt.
		if attempt < p.maxAttempts {
			if !p.sleep(ctx) {
				return p.cancelled(attempt, lastStatus, start)
			}
		}
	}

	elapsed := time.Since(start)
	p.logger.Warn("Poll attempt budget exhausted",
		zap.String("task_id", taskID),
		zap.Int("attempts", p.maxAttempts),
		zap.String("last_status", string(lastStatus)),
		zap.Duration("elapsed", elapsed),
	)
	return Outcome{
		State:      domain.StateTimedOut,
		Kind:       domain.FailureTimeout,
		Reason:     "no terminal status after " + elapsed.Round(time.Millisecond).String() + ", last status " + string(lastStatus),
		Attempts:   p.maxAttempts,
		LastStatus: lastStatus,
		Elapsed:    elapsed,
	}
}

// sleep waits one poll interval; returns false if ctx was cancelled first.
func (p *Poller) sleep(ctx context.Context) bool {
	if p.interval <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(p.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (p *Poller) cancelled(attempts int, last domain.StatusCode, start time.Time) Outcome {
	return Outcome{
		State:      domain.StateTimedOut,
		Kind:       domain.FailureCancelled,
		Reason:     domain.ErrBatchCancelled.Error(),
		Attempts:   attempts,
		LastStatus: last,
		Elapsed:    time.Since(start),
	}
}
