package github

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/nao1215/repocrawl/internal/model"
)

// ErrInvalidRepository is returned when a repository lacks the owner or
// name needed to address its contributors.
var ErrInvalidRepository = errors.New("repository has no owner or name")

// ErrEmptyLogin is returned when a profile is requested for a blank login.
var ErrEmptyLogin = errors.New("login is empty")

// ErrInvalidLimit is returned when a contributor limit is not positive.
var ErrInvalidLimit = errors.New("contributor limit must be positive")

// Getter fetches one URL and decodes its JSON body into out.
// *fetch.Fetcher implements it.
type Getter interface {
	Get(ctx context.Context, url string, out any) error
}

// SearchQuery addresses one page of a repository search.
type SearchQuery struct {
	// Category is the language filter, e.g. "go".
	Category string

	// Sort is the search sort key, e.g. "stars".
	Sort string

	// Page is 1-based.
	Page int

	// PerPage is the page size (1..100).
	PerPage int
}

// Client issues GitHub API requests through a Getter.
type Client struct {
	getter    Getter
	baseURL   string
	qualifier string
}

// NewClient creates a Client for the API rooted at baseURL.
// qualifier is prepended to every search query ("stars:>1" by default).
func NewClient(getter Getter, baseURL, qualifier string) *Client {
	return &Client{
		getter:    getter,
		baseURL:   strings.TrimRight(baseURL, "/"),
		qualifier: strings.TrimSpace(qualifier),
	}
}

// SearchURL returns the search URL for q.
// Results are always ordered descending by the sort key.
func (c *Client) SearchURL(q SearchQuery) string {
	terms := "language:" + q.Category
	if c.qualifier != "" {
		terms = c.qualifier + " " + terms
	}

	params := url.Values{}
	params.Set("q", terms)
	params.Set("sort", q.Sort)
	params.Set("order", "desc")
	params.Set("per_page", strconv.Itoa(q.PerPage))
	params.Set("page", strconv.Itoa(q.Page))

	return c.baseURL + "/search/repositories?" + params.Encode()
}

// SearchPage fetches one page of repositories as returned by the API.
// Items are not filtered, so the length of the result tells whether the
// search is exhausted; callers skip items that are not Valid.
func (c *Client) SearchPage(ctx context.Context, q SearchQuery) ([]model.Repository, error) {
	var result model.SearchResult
	if err := c.getter.Get(ctx, c.SearchURL(q), &result); err != nil {
		return nil, fmt.Errorf("search %s page %d: %w", q.Category, q.Page, err)
	}
	return result.Items, nil
}

// ContributorsURL returns the contributors URL for repo.
func (c *Client) ContributorsURL(repo model.Repository, limit int) string {
	return fmt.Sprintf("%s/repos/%s/%s/contributors?per_page=%d",
		c.baseURL, url.PathEscape(repo.Owner.Login), url.PathEscape(repo.Name), limit)
}

// Contributors fetches up to limit contributors of repo, in the order
// GitHub returns them (most contributions first). An empty repository
// yields an empty slice.
func (c *Client) Contributors(ctx context.Context, repo model.Repository, limit int) ([]model.Contributor, error) {
	if !repo.Valid() {
		return nil, ErrInvalidRepository
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	var list []model.Contributor
	if err := c.getter.Get(ctx, c.ContributorsURL(repo, limit), &list); err != nil {
		return nil, fmt.Errorf("contributors of %s: %w", repo.FullName(), err)
	}

	out := make([]model.Contributor, 0, min(len(list), limit))
	for _, contributor := range list {
		if len(out) == limit {
			break
		}
		if strings.TrimSpace(contributor.Login) == "" {
			continue
		}
		out = append(out, contributor)
	}
	return out, nil
}

// UserURL returns the profile URL for login.
func (c *Client) UserURL(login string) string {
	return c.baseURL + "/users/" + url.PathEscape(login)
}

// User fetches the public profile of login.
func (c *Client) User(ctx context.Context, login string) (model.Profile, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return model.Profile{}, ErrEmptyLogin
	}

	var profile model.Profile
	if err := c.getter.Get(ctx, c.UserURL(login), &profile); err != nil {
		return model.Profile{}, fmt.Errorf("profile of %s: %w", login, err)
	}
	if profile.Login == "" {
		profile.Login = login
	}
	return profile, nil
}
