package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nao1215/repocrawl/internal/model"
)

// Tx groups the writes for one repository. Nothing it writes is visible
// until Commit succeeds.
type Tx struct {
	tx   *sqlx.Tx
	now  func() time.Time
	done bool
}

// Begin starts a transaction.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, persistErr("begin", err)
	}
	return &Tx{tx: tx, now: s.now}, nil
}

// UpsertRepository inserts repo or overwrites every column of the row with
// the same id.
func (t *Tx) UpsertRepository(ctx context.Context, repo model.Repository) error {
	if t.done {
		return ErrTxDone
	}

	// ON CONFLICT DO UPDATE keeps the row (and the rows referencing it);
	// INSERT OR REPLACE would delete it first.
	query := `
	INSERT INTO repositories (id, name, url, stars, forks, language, owner, created_at, updated_at)
	VALUES (:id, :name, :url, :stars, :forks, :language, :owner, :created_at, :updated_at)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		url = excluded.url,
		stars = excluded.stars,
		forks = excluded.forks,
		language = excluded.language,
		owner = excluded.owner,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at
	`
	_, err := t.tx.NamedExecContext(ctx, query, newRepositoryRow(repo))
	return persistErr("upsert repository", err)
}

// ReplaceContributors makes contributors the complete contributor set of
// repoID. A login listed twice keeps its last weight.
func (t *Tx) ReplaceContributors(ctx context.Context, repoID int64, contributors []model.Contributor) error {
	if t.done {
		return ErrTxDone
	}

	if _, err := t.tx.ExecContext(ctx, `DELETE FROM contributors WHERE repo_id = ?`, repoID); err != nil {
		return persistErr("delete contributors", err)
	}

	query := `
	INSERT INTO contributors (repo_id, contributor, contributions)
	VALUES (:repo_id, :contributor, :contributions)
	ON CONFLICT(repo_id, contributor) DO UPDATE SET contributions = excluded.contributions
	`
	for _, c := range contributors {
		row := contributorRow{RepoID: repoID, Contributor: c.Login, Contributions: c.Contributions}
		if _, err := t.tx.NamedExecContext(ctx, query, row); err != nil {
			return persistErr("insert contributor", err)
		}
	}
	return nil
}

// MarkProcessed records that the repository is done under the marker's
// partition. Marking twice refreshes processed_at and run_id.
func (t *Tx) MarkProcessed(ctx context.Context, m model.Marker) error {
	if t.done {
		return ErrTxDone
	}

	processedAt := m.ProcessedAt
	if processedAt.IsZero() {
		processedAt = t.now()
	}

	query := `
	INSERT INTO processed_repos (repo_id, language, sort_by, processed_at, run_id)
	VALUES (:repo_id, :language, :sort_by, :processed_at, :run_id)
	ON CONFLICT(repo_id, language, sort_by) DO UPDATE SET
		processed_at = excluded.processed_at,
		run_id = excluded.run_id
	`
	row := markerRow{
		RepoID:      m.RepoID,
		Language:    m.Category,
		SortBy:      m.Sort,
		ProcessedAt: formatTime(processedAt),
		RunID:       m.RunID,
	}
	_, err := t.tx.NamedExecContext(ctx, query, row)
	return persistErr("mark processed", err)
}

// Commit makes every write of the transaction visible at once.
func (t *Tx) Commit() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	return persistErr("commit", t.tx.Commit())
}

// Rollback discards the transaction. It is a no-op after Commit or a
// previous Rollback, so it can be deferred unconditionally.
func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return persistErr("rollback", err)
	}
	return nil
}
