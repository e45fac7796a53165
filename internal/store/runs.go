package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nao1215/repocrawl/internal/model"
)

// StartRun records the start of a crawl and returns it with a fresh id.
func (s *Store) StartRun(ctx context.Context) (model.Run, error) {
	run := model.Run{
		ID:        uuid.NewString(),
		StartedAt: s.now(),
	}

	_, err := s.db.NamedExecContext(ctx, `
	INSERT INTO crawl_runs (id, started_at, finished_at, seen, skipped, processed, failed)
	VALUES (:id, :started_at, :finished_at, :seen, :skipped, :processed, :failed)
	`, newRunRow(run))
	if err != nil {
		return model.Run{}, persistErr("start run", err)
	}
	return run, nil
}

// FinishRun stores the counters of run and stamps its finish time
// (now, when run.FinishedAt is zero).
func (s *Store) FinishRun(ctx context.Context, run model.Run) error {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = s.now()
	}

	res, err := s.db.NamedExecContext(ctx, `
	UPDATE crawl_runs SET
		finished_at = :finished_at,
		seen = :seen,
		skipped = :skipped,
		processed = :processed,
		failed = :failed
	WHERE id = :id
	`, newRunRow(run))
	if err != nil {
		return persistErr("finish run", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s: %w", run.ID, ErrNotFound)
	}
	return nil
}

// Runs returns the most recent runs first. limit <= 0 means no limit.
func (s *Store) Runs(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = -1
	}

	var rows []runRow
	err := s.db.SelectContext(ctx, &rows, `
	SELECT id, started_at, finished_at, seen, skipped, processed, failed
	FROM crawl_runs
	ORDER BY started_at DESC
	LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	out := make([]model.Run, len(rows))
	for i, row := range rows {
		out[i] = row.toModel()
	}
	return out, nil
}
