package model

import "strings"

// Owner is the account that owns a repository.
type Owner struct {
	// Login is the account name, e.g. "golang".
	Login string `json:"login"`
}

// Repository is a repository record as returned by the GitHub search API.
// It is the top-level entity of a crawl and is identified by ID, which
// GitHub assigns once and never changes.
//
// Only the fields persisted by the store are decoded; the search API
// returns many more.
type Repository struct {
	// ID is the stable numeric identifier assigned by GitHub.
	ID int64 `json:"id"`

	// Name is the repository name without the owner prefix.
	Name string `json:"name"`

	// URL is the canonical HTML URL of the repository.
	URL string `json:"html_url"`

	// Stars is the stargazer count at crawl time.
	Stars int `json:"stargazers_count"`

	// Forks is the fork count at crawl time.
	Forks int `json:"forks_count"`

	// Language is the primary language detected by GitHub.
	// GitHub reports null for repositories without code; that decodes to "".
	Language string `json:"language"`

	// Owner is the owning account. Stored flattened as the owner login.
	Owner Owner `json:"owner"`

	// CreatedAt and UpdatedAt are kept as the RFC 3339 text GitHub delivers.
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// FullName returns "owner/name".
func (r Repository) FullName() string {
	return r.Owner.Login + "/" + r.Name
}

// Valid reports whether the record carries the fields required to persist
// it and to address its sub-resources.
func (r Repository) Valid() bool {
	return r.ID > 0 && strings.TrimSpace(r.Name) != "" && strings.TrimSpace(r.Owner.Login) != ""
}

// SearchResult is the envelope of a repository search response page.
type SearchResult struct {
	TotalCount        int          `json:"total_count"`
	IncompleteResults bool         `json:"incomplete_results"`
	Items             []Repository `json:"items"`
}

// Contributor is a contributor of one repository.
// Contributors have no global identity in the store: the same login is
// stored once per repository it contributes to.
type Contributor struct {
	// Login is the contributor's account name.
	Login string `json:"login"`

	// Contributions is the number of commits GitHub attributes to the login.
	Contributions int `json:"contributions"`
}
