// Package scheduler runs batches of generation jobs under a bounded
// concurrency limit with paced submissions.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/voxora/maestro/internal/backoff"
	"github.com/voxora/maestro/internal/domain"
	"github.com/voxora/maestro/internal/metrics"
	"github.com/voxora/maestro/internal/runner"
)

// WindowMode selects how the concurrency bound is enforced.
type WindowMode string

const (
	// WindowChunked starts jobs in consecutive chunks of MaxConcurrent and
	// waits for a full chunk to settle before starting the next. Load is
	// predictable at the cost of some throughput.
	WindowChunked WindowMode = "chunked"

	// WindowSliding keeps up to MaxConcurrent jobs in flight continuously,
	// starting the next job as soon as a slot frees up.
	WindowSliding WindowMode = "sliding"
)

// Config controls one batch invocation.
type Config struct {
	// MaxConcurrent bounds the number of jobs in flight at once. Must be
	// at least 1.
	MaxConcurrent int

	// InterSubmitDelay spaces out successive submissions. A job already
	// running keeps running while the next one waits to start.
	InterSubmitDelay time.Duration

	// MaxSubmitRetries re-runs a job whose submission failed, with
	// RetryBase exponential backoff between attempts. Zero disables
	// submission retries.
	MaxSubmitRetries int

	// RetryBase is the base delay of the submission retry backoff.
	// Defaults to backoff.DefaultBase.
	RetryBase time.Duration

	// Window defaults to WindowChunked.
	Window WindowMode
}

// Scheduler fans JobRequests out to a Runner and collects the settled
// handles. One Scheduler may run many batches; batches do not share state.
type Scheduler struct {
	runner *runner.Runner
	retry  *backoff.Policy
	sink   domain.EventSink
	cfg    Config
	logger *zap.Logger
}

// New validates the configuration and returns a Scheduler. Configuration
// errors surface here, before any job can start.
func New(r *runner.Runner, cfg Config, sink domain.EventSink, logger *zap.Logger) (*Scheduler, error) {
	if cfg.MaxConcurrent < 1 {
		return nil, domain.ErrInvalidConcurrency
	}
	if cfg.MaxSubmitRetries < 0 {
		return nil, domain.ErrInvalidMaxAttempts
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = backoff.DefaultBase
	}
	if cfg.Window == "" {
		cfg.Window = WindowChunked
	}
	retry, err := backoff.New(cfg.RetryBase, cfg.MaxSubmitRetries)
	if err != nil {
		return nil, err
	}
	if sink == nil {
		sink = domain.NopSink{}
	}
	return &Scheduler{
		runner: r,
		retry:  retry,
		sink:   sink,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// RunBatch settles every request and returns one handle per request, in
// settlement order. A job failing or timing out never aborts its siblings.
// When ctx is cancelled, scheduling stops and every not-yet-settled request
// settles as timed out with a cancelled reason.
func (s *Scheduler) RunBatch(ctx context.Context, requests []domain.JobRequest) *domain.BatchResult {
	batchID := uuid.NewString()
	start := time.Now()

	s.logger.Info("Starting batch",
		zap.String("batch_id", batchID),
		zap.Int("requests", len(requests)),
		zap.Int("max_concurrent", s.cfg.MaxConcurrent),
		zap.Duration("inter_submit_delay", s.cfg.InterSubmitDelay),
		zap.String("window", string(s.cfg.Window)),
	)

	res := &domain.BatchResult{BatchID: batchID}
	var mu sync.Mutex
	collect := func(h *domain.JobHandle) {
		mu.Lock()
		res.Handles = append(res.Handles, h)
		mu.Unlock()
	}

	var unstarted []domain.JobRequest
	if s.cfg.Window == WindowSliding {
		unstarted = s.runSliding(ctx, batchID, requests, collect)
	} else {
		unstarted = s.runChunked(ctx, batchID, requests, collect)
	}

	// Requests the cancellation cut off settle here, after every started
	// job has drained, so the batch still yields one handle per request.
	for _, req := range unstarted {
		h := s.cancelledHandle(req)
		s.emitCancelled(batchID, h)
		collect(h)
	}

	res.Duration = time.Since(start)
	res.Tally()

	s.logger.Info("Batch settled",
		zap.String("batch_id", batchID),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed),
		zap.Int("timed_out", res.TimedOut),
		zap.Duration("duration", res.Duration),
	)
	return res
}

// runChunked starts jobs in chunks of MaxConcurrent and waits for each
// chunk to settle before the next begins. Returns the requests that were
// never started because of cancellation.
func (s *Scheduler) runChunked(ctx context.Context, batchID string, requests []domain.JobRequest, collect func(*domain.JobHandle)) []domain.JobRequest {
	for chunkStart := 0; chunkStart < len(requests); chunkStart += s.cfg.MaxConcurrent {
		chunkEnd := chunkStart + s.cfg.MaxConcurrent
		if chunkEnd > len(requests) {
			chunkEnd = len(requests)
		}
		chunk := requests[chunkStart:chunkEnd]

		s.logger.Debug("Starting chunk",
			zap.String("batch_id", batchID),
			zap.Int("from", chunkStart),
			zap.Int("size", len(chunk)),
		)

		var wg sync.WaitGroup
		started := 0
		for i, req := range chunk {
			if i > 0 && !s.pace(ctx) {
				break
			}
			if ctx.Err() != nil {
				break
			}
			submitted := make(chan struct{})
			wg.Add(1)
			go s.startJob(ctx, batchID, req, submitted, &wg, collect)
			started++

			// Job i must be submitted before job i+1 starts; the job
			// keeps polling while the next one is paced in.
			select {
			case <-submitted:
			case <-ctx.Done():
			}
		}
		wg.Wait()

		if ctx.Err() != nil {
			return requests[chunkStart+started:]
		}
	}
	return nil
}

// runSliding keeps up to MaxConcurrent jobs in flight, admitting the next
// job as soon as a slot frees. Submission order is preserved.
func (s *Scheduler) runSliding(ctx context.Context, batchID string, requests []domain.JobRequest, collect func(*domain.JobHandle)) []domain.JobRequest {
	sem := semaphore.NewWeighted(int64(s.cfg.MaxConcurrent))
	var wg sync.WaitGroup
	started := 0

	for i, req := range requests {
		if i > 0 && !s.pace(ctx) {
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		submitted := make(chan struct{})
		wg.Add(1)
		go func(req domain.JobRequest) {
			defer sem.Release(1)
			s.startJob(ctx, batchID, req, submitted, &wg, collect)
		}(req)
		started++

		select {
		case <-submitted:
		case <-ctx.Done():
		}
	}
	wg.Wait()

	if started < len(requests) {
		return requests[started:]
	}
	return nil
}

// startJob runs one job to settlement and collects its handle. A panicking
// collaborator settles its own job as failed instead of taking down the
// batch.
func (s *Scheduler) startJob(ctx context.Context, batchID string, req domain.JobRequest, submitted chan struct{}, wg *sync.WaitGroup, collect func(*domain.JobHandle)) {
	defer wg.Done()

	var once sync.Once
	signal := func() { once.Do(func() { close(submitted) }) }
	// A panicking submitter must not leave the scheduler waiting.
	defer signal()

	requestID := uuid.NewString()
	var h *domain.JobHandle
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Job panicked",
				zap.String("batch_id", batchID),
				zap.String("request_id", requestID),
				zap.String("label", req.Label),
				zap.Any("panic", r),
			)
			now := time.Now().UTC()
			h = &domain.JobHandle{Label: req.Label, State: domain.StatePending, CreatedAt: now}
			h.Settle(domain.StateFailed, domain.FailureSubmission, "", "job panicked", now)
		}
		collect(h)
	}()

	h = s.runJob(ctx, batchID, requestID, req, signal)
}

// runJob wraps the runner with the submission retry policy. Only outright
// submission failures are retried; remote failures and timeouts are final.
func (s *Scheduler) runJob(ctx context.Context, batchID, requestID string, req domain.JobRequest, onSubmitted func()) *domain.JobHandle {
	h := s.runner.Run(ctx, batchID, requestID, req, onSubmitted)
	for attempt := 0; attempt < s.cfg.MaxSubmitRetries; attempt++ {
		if h.FailureKind != domain.FailureSubmission {
			break
		}
		delay := s.retry.Delay(attempt)
		s.logger.Warn("Retrying failed submission",
			zap.String("batch_id", batchID),
			zap.String("request_id", requestID),
			zap.String("label", req.Label),
			zap.Int("retry", attempt+1),
			zap.Duration("delay", delay),
		)
		if !sleepCtx(ctx, delay) {
			break
		}
		h = s.runner.Run(ctx, batchID, requestID, req, nil)
	}
	return h
}

// pace waits the inter-submission delay; returns false on cancellation.
func (s *Scheduler) pace(ctx context.Context) bool {
	return sleepCtx(ctx, s.cfg.InterSubmitDelay)
}

func (s *Scheduler) cancelledHandle(req domain.JobRequest) *domain.JobHandle {
	now := time.Now().UTC()
	h := &domain.JobHandle{Label: req.Label, State: domain.StatePending, CreatedAt: now}
	h.Settle(domain.StateTimedOut, domain.FailureCancelled, "", domain.ErrBatchCancelled.Error(), now)
	return h
}

func (s *Scheduler) emitCancelled(batchID string, h *domain.JobHandle) {
	metrics.SettlementsTotal.WithLabelValues(string(h.State), string(h.FailureKind)).Inc()
	s.sink.Emit(domain.Event{
		Time:    h.CompletedAt,
		Type:    domain.EventSettled,
		BatchID: batchID,
		Label:   h.Label,
		State:   h.State,
		Reason:  h.Reason,
	})
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
