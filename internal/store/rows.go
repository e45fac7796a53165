package store

import (
	"database/sql"

	"github.com/nao1215/repocrawl/internal/model"
)

// repositoryRow mirrors the repositories table.
type repositoryRow struct {
	ID        int64  `db:"id"`
	Name      string `db:"name"`
	URL       string `db:"url"`
	Stars     int    `db:"stars"`
	Forks     int    `db:"forks"`
	Language  string `db:"language"`
	Owner     string `db:"owner"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

func newRepositoryRow(r model.Repository) repositoryRow {
	return repositoryRow{
		ID:        r.ID,
		Name:      r.Name,
		URL:       r.URL,
		Stars:     r.Stars,
		Forks:     r.Forks,
		Language:  r.Language,
		Owner:     r.Owner.Login,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (r repositoryRow) toModel() model.Repository {
	return model.Repository{
		ID:        r.ID,
		Name:      r.Name,
		URL:       r.URL,
		Stars:     r.Stars,
		Forks:     r.Forks,
		Language:  r.Language,
		Owner:     model.Owner{Login: r.Owner},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// contributorRow mirrors the contributors table.
type contributorRow struct {
	RepoID        int64  `db:"repo_id"`
	Contributor   string `db:"contributor"`
	Contributions int    `db:"contributions"`
}

// markerRow mirrors the processed_repos table.
type markerRow struct {
	RepoID      int64  `db:"repo_id"`
	Language    string `db:"language"`
	SortBy      string `db:"sort_by"`
	ProcessedAt string `db:"processed_at"`
	RunID       string `db:"run_id"`
}

func (m markerRow) toModel() model.Marker {
	return model.Marker{
		RepoID:      m.RepoID,
		Category:    m.Language,
		Sort:        m.SortBy,
		ProcessedAt: parseTime(m.ProcessedAt),
		RunID:       m.RunID,
	}
}

// runRow mirrors the crawl_runs table.
type runRow struct {
	ID         string `db:"id"`
	StartedAt  string `db:"started_at"`
	FinishedAt string `db:"finished_at"`
	Seen       int    `db:"seen"`
	Skipped    int    `db:"skipped"`
	Processed  int    `db:"processed"`
	Failed     int    `db:"failed"`
}

func newRunRow(r model.Run) runRow {
	return runRow{
		ID:         r.ID,
		StartedAt:  formatTime(r.StartedAt),
		FinishedAt: formatTime(r.FinishedAt),
		Seen:       r.Seen,
		Skipped:    r.Skipped,
		Processed:  r.Processed,
		Failed:     r.Failed,
	}
}

func (r runRow) toModel() model.Run {
	return model.Run{
		ID:         r.ID,
		StartedAt:  parseTime(r.StartedAt),
		FinishedAt: parseTime(r.FinishedAt),
		Seen:       r.Seen,
		Skipped:    r.Skipped,
		Processed:  r.Processed,
		Failed:     r.Failed,
	}
}

// joinedRow is one row of the repositories LEFT JOIN contributors query.
type joinedRow struct {
	repositoryRow
	Contributor   sql.NullString `db:"contributor"`
	Contributions sql.NullInt64  `db:"contributions"`
}
