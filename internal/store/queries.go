package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nao1215/repocrawl/internal/model"
)

// IsProcessed reports whether repoID carries a marker for (category, sort).
func (s *Store) IsProcessed(ctx context.Context, repoID int64, category, sort string) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `
	SELECT COUNT(*) FROM processed_repos
	WHERE repo_id = ? AND language = ? AND sort_by = ?
	`, repoID, category, sort)
	if err != nil {
		return false, fmt.Errorf("failed to check processed marker: %w", err)
	}
	return n > 0, nil
}

// ProcessedIDs returns the ids marked for (category, sort).
func (s *Store) ProcessedIDs(ctx context.Context, category, sort string) (map[int64]struct{}, error) {
	var ids []int64
	err := s.db.SelectContext(ctx, &ids, `
	SELECT repo_id FROM processed_repos WHERE language = ? AND sort_by = ?
	`, category, sort)
	if err != nil {
		return nil, fmt.Errorf("failed to list processed ids: %w", err)
	}

	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

const selectRepository = `
SELECT id, name, url, stars, forks, language, owner, created_at, updated_at
FROM repositories
`

// Repository returns the repository with the given id, or ErrNotFound.
func (s *Store) Repository(ctx context.Context, id int64) (model.Repository, error) {
	var row repositoryRow
	if err := s.db.GetContext(ctx, &row, selectRepository+` WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Repository{}, fmt.Errorf("repository %d: %w", id, ErrNotFound)
		}
		return model.Repository{}, fmt.Errorf("failed to get repository: %w", err)
	}
	return row.toModel(), nil
}

// Repositories returns every repository ordered by id.
func (s *Store) Repositories(ctx context.Context) ([]model.Repository, error) {
	var rows []repositoryRow
	if err := s.db.SelectContext(ctx, &rows, selectRepository+` ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}

	repos := make([]model.Repository, len(rows))
	for i, row := range rows {
		repos[i] = row.toModel()
	}
	return repos, nil
}

// Contributors returns the contributor set of repoID, largest weight first.
func (s *Store) Contributors(ctx context.Context, repoID int64) ([]model.Contributor, error) {
	var rows []contributorRow
	err := s.db.SelectContext(ctx, &rows, `
	SELECT repo_id, contributor, contributions FROM contributors
	WHERE repo_id = ?
	ORDER BY contributions DESC, contributor
	`, repoID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contributors: %w", err)
	}

	out := make([]model.Contributor, len(rows))
	for i, row := range rows {
		out[i] = model.Contributor{Login: row.Contributor, Contributions: row.Contributions}
	}
	return out, nil
}

// RepositoryContributor is one row of the joined export: a repository and
// one of its contributors. HasContributor is false for a repository
// without contributors, which appears exactly once.
type RepositoryContributor struct {
	Repository     model.Repository
	Contributor    model.Contributor
	HasContributor bool
}

// RepositoriesWithContributors returns every repository left-joined with
// its contributors, ordered by repository id then weight.
func (s *Store) RepositoriesWithContributors(ctx context.Context) ([]RepositoryContributor, error) {
	var rows []joinedRow
	err := s.db.SelectContext(ctx, &rows, `
	SELECT r.id, r.name, r.url, r.stars, r.forks, r.language, r.owner, r.created_at, r.updated_at,
		c.contributor, c.contributions
	FROM repositories r
	LEFT JOIN contributors c ON c.repo_id = r.id
	ORDER BY r.id, c.contributions DESC, c.contributor
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories with contributors: %w", err)
	}

	out := make([]RepositoryContributor, len(rows))
	for i, row := range rows {
		out[i] = RepositoryContributor{
			Repository:     row.repositoryRow.toModel(),
			HasContributor: row.Contributor.Valid,
		}
		if row.Contributor.Valid {
			out[i].Contributor = model.Contributor{
				Login:         row.Contributor.String,
				Contributions: int(row.Contributions.Int64),
			}
		}
	}
	return out, nil
}

// TopContributors returns contributors across all repositories, one entry
// per login carrying its highest weight, keeping those with at least
// minContributions, heaviest first. limit <= 0 means no limit.
func (s *Store) TopContributors(ctx context.Context, minContributions, limit int) ([]model.Contributor, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	var rows []contributorRow
	err := s.db.SelectContext(ctx, &rows, `
	SELECT contributor, MAX(contributions) AS contributions
	FROM contributors
	GROUP BY contributor
	HAVING MAX(contributions) >= ?
	ORDER BY contributions DESC, contributor
	LIMIT ?
	`, minContributions, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list top contributors: %w", err)
	}

	out := make([]model.Contributor, len(rows))
	for i, row := range rows {
		out[i] = model.Contributor{Login: row.Contributor, Contributions: row.Contributions}
	}
	return out, nil
}

// Markers returns the processed markers of (category, sort). An empty
// category or sort matches every value.
func (s *Store) Markers(ctx context.Context, category, sort string) ([]model.Marker, error) {
	var rows []markerRow
	err := s.db.SelectContext(ctx, &rows, `
	SELECT repo_id, language, sort_by, processed_at, run_id
	FROM processed_repos
	WHERE (? = '' OR language = ?) AND (? = '' OR sort_by = ?)
	ORDER BY language, sort_by, repo_id
	`, category, category, sort, sort)
	if err != nil {
		return nil, fmt.Errorf("failed to list markers: %w", err)
	}

	out := make([]model.Marker, len(rows))
	for i, row := range rows {
		out[i] = row.toModel()
	}
	return out, nil
}

// Counts holds row counts of every table.
type Counts struct {
	Repositories int `db:"repositories"`
	Contributors int `db:"contributors"`
	Markers      int `db:"markers"`
	Runs         int `db:"runs"`
}

// Counts returns the number of rows in each table.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.GetContext(ctx, &c, `
	SELECT
		(SELECT COUNT(*) FROM repositories) AS repositories,
		(SELECT COUNT(*) FROM contributors) AS contributors,
		(SELECT COUNT(*) FROM processed_repos) AS markers,
		(SELECT COUNT(*) FROM crawl_runs) AS runs
	`)
	if err != nil {
		return Counts{}, fmt.Errorf("failed to count rows: %w", err)
	}
	return c, nil
}
