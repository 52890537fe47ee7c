// Package app glues the orchestrator core to its optional stores: dedupe
// claims before a batch runs and batch persistence after it settles. Both
// stores are optional; a nil store turns its step into a no-op.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/voxora/maestro/internal/domain"
	"github.com/voxora/maestro/internal/manifest"
	"github.com/voxora/maestro/internal/repository"
)

// Stores wraps the dedupe and batch stores around one batch run.
type Stores struct {
	dedupe  repository.DedupeStore
	batches repository.BatchStore
	logger  *zap.Logger
}

// NewStores creates the store wrapper. Either store may be nil.
func NewStores(dedupe repository.DedupeStore, batches repository.BatchStore, logger *zap.Logger) *Stores {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stores{
		dedupe:  dedupe,
		batches: batches,
		logger:  logger,
	}
}

// FilterClaimed claims each request's fingerprint and drops the requests
// whose claim is already held by an earlier run. The returned map carries
// the claimed fingerprint per label so Finalize can release the claims of
// requests that do not succeed. Without a dedupe store every request passes
// through untouched.
func (s *Stores) FilterClaimed(ctx context.Context, requests []domain.JobRequest) ([]domain.JobRequest, map[string]string, error) {
	fingerprints := make(map[string]string, len(requests))
	if s.dedupe == nil {
		return requests, fingerprints, nil
	}

	fresh := requests[:0]
	for _, req := range requests {
		fp := manifest.Fingerprint(req)
		claimed, err := s.dedupe.Claim(ctx, fp)
		if err != nil {
			return nil, nil, fmt.Errorf("dedupe claim %s: %w", req.Label, err)
		}
		if !claimed {
			s.logger.Info("Skipping already-processed request",
				zap.String("label", req.Label),
				zap.Error(domain.ErrDuplicateRequest),
			)
			continue
		}
		fingerprints[req.Label] = fp
		fresh = append(fresh, req)
	}
	return fresh, fingerprints, nil
}

// Finalize releases the dedupe claim of every handle that did not succeed,
// so the next run picks those requests up again, then persists the settled
// batch. A release failure is logged and skipped; it must not block the
// releases behind it or the batch write.
func (s *Stores) Finalize(ctx context.Context, res *domain.BatchResult, fingerprints map[string]string) error {
	if s.dedupe != nil {
		for _, h := range res.Handles {
			if h.State == domain.StateSucceeded {
				continue
			}
			fp, ok := fingerprints[h.Label]
			if !ok {
				continue
			}
			if err := s.dedupe.Release(ctx, fp); err != nil {
				s.logger.Warn("Failed to release dedupe claim",
					zap.String("label", h.Label),
					zap.Error(err),
				)
			}
		}
	}

	if s.batches != nil {
		if err := s.batches.SaveBatch(ctx, res); err != nil {
			return fmt.Errorf("persist batch %s: %w", res.BatchID, err)
		}
	}
	return nil
}
