// Package runner executes one generation job end-to-end: submit the request
// to the remote service, poll its task until terminal, settle the handle.
package runner

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/voxora/maestro/internal/domain"
	"github.com/voxora/maestro/internal/metrics"
	"github.com/voxora/maestro/internal/poller"
)

// Runner settles JobRequests one at a time. Safe for concurrent use; each
// Run owns its handle exclusively until it returns.
type Runner struct {
	submitter domain.Submitter
	poller    *poller.Poller
	sink      domain.EventSink
	logger    *zap.Logger
}

// New creates a Runner. A nil sink discards events.
func New(submitter domain.Submitter, p *poller.Poller, sink domain.EventSink, logger *zap.Logger) *Runner {
	if sink == nil {
		sink = domain.NopSink{}
	}
	return &Runner{
		submitter: submitter,
		poller:    p,
		sink:      sink,
		logger:    logger,
	}
}

// Run submits the request and tracks it to settlement. The returned handle
// is always in a terminal state. Run never returns an error: every failure
// is captured into the handle. onSubmitted, if non-nil, fires once the
// submission call has returned, letting the scheduler pace the next
// submission while this job keeps polling.
func (r *Runner) Run(ctx context.Context, batchID, requestID string, req domain.JobRequest, onSubmitted func()) *domain.JobHandle {
	handle := &domain.JobHandle{
		Label:     req.Label,
		State:     domain.StatePending,
		CreatedAt: time.Now().UTC(),
	}

	// Step 1: submit. Submission failure is terminal for this run; any
	// retry wraps the whole run one layer up.
	r.logger.Info("Submitting job",
		zap.String("batch_id", batchID),
		zap.String("request_id", requestID),
		zap.String("label", req.Label),
	)

	taskID, err := r.submitter.Submit(ctx, req)
	if onSubmitted != nil {
		onSubmitted()
	}
	if err == nil && taskID == "" {
		err = domain.ErrMissingTaskID
	}
	if err != nil {
		kind := domain.FailureSubmission
		state := domain.StateFailed
		if ctx.Err() != nil {
			kind = domain.FailureCancelled
			state = domain.StateTimedOut
		}
		handle.Settle(state, kind, "", err.Error(), time.Now().UTC())
		r.logger.Error("Job submission failed",
			zap.String("batch_id", batchID),
			zap.String("request_id", requestID),
			zap.String("label", req.Label),
			zap.Error(err),
		)
		r.settled(batchID, requestID, handle)
		return handle
	}

	// Step 2: record the external id and move to Running. A submission
	// that lands after cancellation is discarded rather than polled.
	handle.TaskID = taskID
	if ctx.Err() != nil {
		handle.Settle(domain.StateTimedOut, domain.FailureCancelled, "", domain.ErrBatchCancelled.Error(), time.Now().UTC())
		r.settled(batchID, requestID, handle)
		return handle
	}
	handle.State = domain.StateRunning
	metrics.JobsInFlight.Inc()
	defer metrics.JobsInFlight.Dec()

	r.logger.Info("Job submitted",
		zap.String("batch_id", batchID),
		zap.String("request_id", requestID),
		zap.String("task_id", taskID),
		zap.String("label", req.Label),
	)
	r.sink.Emit(domain.Event{
		Time:      time.Now().UTC(),
		Type:      domain.EventSubmitted,
		BatchID:   batchID,
		RequestID: requestID,
		TaskID:    taskID,
		Label:     req.Label,
		State:     domain.StateRunning,
	})

	// Step 3: poll until terminal. The poller's outcome is adopted
	// verbatim; the runner does not reinterpret it.
	start := time.Now()
	out := r.poller.Poll(ctx, taskID, func(attempt int, status domain.StatusCode) {
		handle.Attempts = attempt
		r.sink.Emit(domain.Event{
			Time:      time.Now().UTC(),
			Type:      domain.EventPoll,
			BatchID:   batchID,
			RequestID: requestID,
			TaskID:    taskID,
			Label:     req.Label,
			State:     domain.StateRunning,
			Status:    status,
			Attempt:   attempt,
			Elapsed:   time.Since(start),
		})
	})

	// Step 4: settle.
	handle.Attempts = out.Attempts
	handle.Settle(out.State, out.Kind, out.Result, out.Reason, time.Now().UTC())
	metrics.PollCycles.Observe(float64(out.Attempts))
	metrics.SettleLatency.Observe(handle.SettleLatency().Seconds())

	r.logger.Info("Job settled",
		zap.String("batch_id", batchID),
		zap.String("request_id", requestID),
		zap.String("task_id", taskID),
		zap.String("label", req.Label),
		zap.String("state", string(handle.State)),
		zap.Int("attempts", handle.Attempts),
		zap.Duration("latency", handle.SettleLatency()),
	)
	r.settled(batchID, requestID, handle)
	return handle
}

func (r *Runner) settled(batchID, requestID string, h *domain.JobHandle) {
	metrics.SettlementsTotal.WithLabelValues(string(h.State), string(h.FailureKind)).Inc()
	r.sink.Emit(domain.Event{
		Time:      h.CompletedAt,
		Type:      domain.EventSettled,
		BatchID:   batchID,
		RequestID: requestID,
		TaskID:    h.TaskID,
		Label:     h.Label,
		State:     h.State,
		Attempt:   h.Attempts,
		Elapsed:   h.SettleLatency(),
		Reason:    h.Reason,
	})
}
