package repository

import (
	"context"

	"github.com/voxora/maestro/internal/domain"
)

// BatchStore persists settled batches for later inspection. The
// orchestrator core never touches it; the CLI writes after settlement.
type BatchStore interface {
	// SaveBatch inserts the batch and every settled handle.
	SaveBatch(ctx context.Context, res *domain.BatchResult) error
}

// DedupeStore remembers request fingerprints across runs so re-running a
// manifest does not resubmit work that already generated.
type DedupeStore interface {
	// Claim attempts to claim a request fingerprint. Returns true if this
	// run is the first to process it, false if it was already claimed.
	Claim(ctx context.Context, fingerprint string) (bool, error)

	// Release drops a claim so the request can be retried in a later run
	// (used when the job did not succeed).
	Release(ctx context.Context, fingerprint string) error
}
