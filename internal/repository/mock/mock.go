package mock

import (
	"context"
	"sync"

	"github.com/voxora/maestro/internal/domain"
	"github.com/voxora/maestro/internal/repository"
)

// ---- BatchStore mock ----

var _ repository.BatchStore = (*BatchStore)(nil)

// BatchStore is a test double for repository.BatchStore.
type BatchStore struct {
	mu sync.Mutex

	SaveBatchFn func(ctx context.Context, res *domain.BatchResult) error

	// Recorded calls for assertions.
	Saved []*domain.BatchResult
}

func (m *BatchStore) SaveBatch(ctx context.Context, res *domain.BatchResult) error {
	m.mu.Lock()
	m.Saved = append(m.Saved, res)
	m.mu.Unlock()
	if m.SaveBatchFn != nil {
		return m.SaveBatchFn(ctx, res)
	}
	return nil
}

// ---- DedupeStore mock ----

var _ repository.DedupeStore = (*DedupeStore)(nil)

// DedupeStore is a test double for repository.DedupeStore.
type DedupeStore struct {
	mu sync.Mutex

	ClaimFn   func(ctx context.Context, fingerprint string) (bool, error)
	ReleaseFn func(ctx context.Context, fingerprint string) error

	ClaimCalls   []string
	ReleaseCalls []string
}

func (m *DedupeStore) Claim(ctx context.Context, fingerprint string) (bool, error) {
	m.mu.Lock()
	m.ClaimCalls = append(m.ClaimCalls, fingerprint)
	m.mu.Unlock()
	if m.ClaimFn != nil {
		return m.ClaimFn(ctx, fingerprint)
	}
	return true, nil // default: first claim
}

func (m *DedupeStore) Release(ctx context.Context, fingerprint string) error {
	m.mu.Lock()
	m.ReleaseCalls = append(m.ReleaseCalls, fingerprint)
	m.mu.Unlock()
	if m.ReleaseFn != nil {
		return m.ReleaseFn(ctx, fingerprint)
	}
	return nil
}
