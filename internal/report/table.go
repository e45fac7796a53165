package report

import (
	"strconv"

	"github.com/nao1215/repocrawl/internal/model"
	"github.com/nao1215/repocrawl/internal/store"
)

// Table is a dataset ready for rendering: one header row and one row per
// record, all cells as text.
type Table struct {
	// Name titles the table (Markdown heading, XLSX sheet name).
	Name string

	Header []string
	Rows   [][]string

	// Numeric marks the columns holding integers, by header index.
	Numeric []bool
}

var repositoryHeader = []string{"id", "name", "url", "stars", "forks", "language", "owner", "created_at", "updated_at"}

var repositoryNumeric = []bool{true, false, false, true, true, false, false, false, false}

func repositoryCells(r model.Repository) []string {
	return []string{
		strconv.FormatInt(r.ID, 10),
		r.Name,
		r.URL,
		strconv.Itoa(r.Stars),
		strconv.Itoa(r.Forks),
		r.Language,
		r.Owner.Login,
		r.CreatedAt,
		r.UpdatedAt,
	}
}

// RepositoriesTable renders one row per repository.
func RepositoriesTable(repos []model.Repository) Table {
	rows := make([][]string, len(repos))
	for i, r := range repos {
		rows[i] = repositoryCells(r)
	}
	return Table{
		Name:    "repositories",
		Header:  repositoryHeader,
		Rows:    rows,
		Numeric: repositoryNumeric,
	}
}

// JoinedTable renders one row per (repository, contributor) pair. A
// repository without contributors gets one row with empty contributor cells.
func JoinedTable(joined []store.RepositoryContributor) Table {
	rows := make([][]string, len(joined))
	for i, j := range joined {
		contributor, contributions := "", ""
		if j.HasContributor {
			contributor = j.Contributor.Login
			contributions = strconv.Itoa(j.Contributor.Contributions)
		}
		rows[i] = append(repositoryCells(j.Repository), contributor, contributions)
	}

	header := append(append([]string(nil), repositoryHeader...), "contributor", "contributions")
	numeric := append(append([]bool(nil), repositoryNumeric...), false, true)
	return Table{
		Name:    "repositories_contributors",
		Header:  header,
		Rows:    rows,
		Numeric: numeric,
	}
}

// ContributorsTable renders one row per contributor.
func ContributorsTable(contributors []model.Contributor) Table {
	rows := make([][]string, len(contributors))
	for i, c := range contributors {
		rows[i] = []string{c.Login, strconv.Itoa(c.Contributions)}
	}
	return Table{
		Name:    "contributors",
		Header:  []string{"contributor", "contributions"},
		Rows:    rows,
		Numeric: []bool{false, true},
	}
}

// isNumeric reports whether column col holds integers.
func (t Table) isNumeric(col int) bool {
	return col < len(t.Numeric) && t.Numeric[col]
}

// ProfilesTable renders one row per contributor with its public profile.
// profiles is indexed like contributors; a missing entry leaves the
// profile cells empty.
func ProfilesTable(contributors []model.Contributor, profiles []model.Profile) Table {
	rows := make([][]string, len(contributors))
	for i, c := range contributors {
		var p model.Profile
		if i < len(profiles) {
			p = profiles[i]
		}
		rows[i] = []string{c.Login, strconv.Itoa(c.Contributions), p.Name, p.Email, p.Blog, p.Location}
	}
	return Table{
		Name:    "contributor_profiles",
		Header:  []string{"contributor", "contributions", "name", "email", "blog", "location"},
		Rows:    rows,
		Numeric: []bool{false, true, false, false, false, false},
	}
}
