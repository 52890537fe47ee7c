package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voxora/maestro/internal/domain"
	"github.com/voxora/maestro/internal/repository"
)

var _ repository.BatchStore = (*pgBatchStore)(nil)

type pgBatchStore struct {
	pool *pgxpool.Pool
}

// NewPostgresBatchStore creates a PostgreSQL-backed store for settled batches.
func NewPostgresBatchStore(pool *pgxpool.Pool) repository.BatchStore {
	return &pgBatchStore{pool: pool}
}

func (r *pgBatchStore) SaveBatch(ctx context.Context, res *domain.BatchResult) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const batchQuery = `
		INSERT INTO generation_batches (batch_id, total, succeeded, failed, timed_out, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := tx.Exec(ctx, batchQuery,
		res.BatchID, len(res.Handles), res.Succeeded, res.Failed, res.TimedOut,
		res.Duration.Milliseconds(),
	); err != nil {
		return fmt.Errorf("postgres: insert batch: %w", err)
	}

	rows := make([][]any, 0, len(res.Handles))
	for _, h := range res.Handles {
		rows = append(rows, []any{
			res.BatchID, h.TaskID, h.Label, string(h.State), h.Attempts,
			h.Result, string(h.FailureKind), h.Reason, h.CreatedAt, h.CompletedAt,
		})
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"generation_jobs"},
		[]string{"batch_id", "task_id", "label", "state", "attempts", "result", "failure_kind", "reason", "created_at", "completed_at"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("postgres: insert handles: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}
