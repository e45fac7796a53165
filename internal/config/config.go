package config

import (
	"net/url"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"golang.org/x/text/cases"

	"github.com/nao1215/repocrawl/internal/model"
)

// Default configuration values.
// Out of the box a crawl surveys four languages sorted by forks and by
// stars, 200 repositories per pair and the top five contributors of each.
const (
	// DefaultAPIURL is the GitHub REST API root.
	DefaultAPIURL = "https://api.github.com"

	// DefaultTarget is the number of repositories wanted per (category, sort) pair.
	DefaultTarget = 200

	// DefaultPageSize is the search page size. GitHub accepts at most 100.
	DefaultPageSize = 30

	// DefaultContributorLimit is the number of contributors stored per repository.
	DefaultContributorLimit = 5

	// DefaultRetryBudget is the number of non-rate-limit attempts per request.
	DefaultRetryBudget = 5

	// DefaultBackoffBase is multiplied by 2^n for the n-th retry sleep.
	DefaultBackoffBase = 1 * time.Second

	// DefaultRateLimitMargin is added to every rate-limit reset wait so the
	// retry lands after the server-side window has rolled over.
	DefaultRateLimitMargin = 1 * time.Second

	// DefaultTimeout is the per-request HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultQualifier is prepended to every search query.
	DefaultQualifier = "stars:>1"

	// DefaultUserAgent is sent with every request; GitHub rejects requests without one.
	DefaultUserAgent = "repocrawl/1.0 (+https://github.com/nao1215/repocrawl)"

	// AppName is the application name used for XDG directory paths.
	AppName = "repocrawl"

	// maxPageSize is the largest per_page value GitHub honours.
	maxPageSize = 100
)

// Mark policies decide when a repository counts as processed.
const (
	// MarkAttempted marks a repository even when its contributors could not
	// be fetched.
	MarkAttempted = "attempted"

	// MarkSucceeded only marks a repository whose contributors were fetched,
	// so a later run retries the ones that came back empty.
	MarkSucceeded = "succeeded"
)

// DefaultCategories are the language filters crawled when none are configured.
var DefaultCategories = []string{"java", "c#", "typescript", "javascript"}

// DefaultSorts are the sort criteria crawled when none are configured.
var DefaultSorts = []string{"forks", "stars"}

// validSorts are the sort keys the repository search endpoint accepts.
var validSorts = []string{"stars", "forks", "help-wanted-issues", "updated"}

// Config holds all configuration options for a crawl.
// It is populated from defaults, the configuration file, the environment
// and CLI flags, in that order, and then passed down explicitly.
type Config struct {
	// Token is the GitHub access token sent as a bearer credential.
	Token string

	// APIURL is the API root. Tests point it at an httptest server.
	APIURL string

	// Categories are the language filters, case-folded.
	Categories []string

	// Sorts are the search sort criteria.
	Sorts []string

	// Qualifier is prepended to every search query, e.g. "stars:>1".
	Qualifier string

	// Target is the number of repositories wanted per pair.
	Target int

	// PageSize is the search page size (1..100).
	PageSize int

	// ContributorLimit is the number of contributors stored per repository.
	ContributorLimit int

	// RetryBudget is the number of attempts for non-rate-limit failures.
	RetryBudget int

	// BackoffBase is the unit of the exponential backoff.
	BackoffBase time.Duration

	// RateLimitMargin is added to rate-limit reset waits.
	RateLimitMargin time.Duration

	// RequestsPerSecond paces requests client-side. Zero disables pacing.
	RequestsPerSecond float64

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" form.
	ProxyAddress string

	// UserAgent is the User-Agent header.
	UserAgent string

	// SkipProcessed skips repositories that already carry a marker for the
	// pair being crawled. Disabling it re-crawls everything.
	SkipProcessed bool

	// MarkPolicy is MarkAttempted or MarkSucceeded.
	MarkPolicy string

	// Schedule is an optional cron expression; when set the crawl repeats.
	Schedule string

	// DBDir is the directory holding the SQLite database.
	DBDir string

	// ConfigFilePath is the configuration file that was loaded, if any.
	ConfigFilePath string

	// Verbose enables debug logging.
	Verbose bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		APIURL:           DefaultAPIURL,
		Categories:       slices.Clone(DefaultCategories),
		Sorts:            slices.Clone(DefaultSorts),
		Qualifier:        DefaultQualifier,
		Target:           DefaultTarget,
		PageSize:         DefaultPageSize,
		ContributorLimit: DefaultContributorLimit,
		RetryBudget:      DefaultRetryBudget,
		BackoffBase:      DefaultBackoffBase,
		RateLimitMargin:  DefaultRateLimitMargin,
		Timeout:          DefaultTimeout,
		UserAgent:        DefaultUserAgent,
		SkipProcessed:    true,
		MarkPolicy:       MarkAttempted,
		DBDir:            XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for repocrawl.
// On Linux: ~/.local/share/repocrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for repocrawl.
// On Linux: ~/.config/repocrawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Partitions returns the cross product of categories and sorts in
// configuration order: every sort of the first category, then the next
// category.
func (c *Config) Partitions() []model.Partition {
	parts := make([]model.Partition, 0, len(c.Categories)*len(c.Sorts))
	for _, category := range c.Categories {
		for _, sort := range c.Sorts {
			parts = append(parts, model.Partition{Category: category, Sort: sort})
		}
	}
	return parts
}

// Normalize case-folds categories and lower-cases sorts, trimming blanks
// and dropping duplicates while keeping the first occurrence.
func (c *Config) Normalize() {
	fold := cases.Fold()
	c.Categories = normalizeList(c.Categories, fold.String)
	c.Sorts = normalizeList(c.Sorts, strings.ToLower)
	c.MarkPolicy = strings.ToLower(strings.TrimSpace(c.MarkPolicy))
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
}

func normalizeList(values []string, transform func(string) string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = transform(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Validate checks if the configuration is valid.
// It returns the first problem found; all of them are configuration
// failures and must stop the program before any crawl work begins.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Token) == "" {
		return ErrMissingToken
	}

	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidAPIURL
	}

	if len(c.Categories) == 0 {
		return ErrNoCategories
	}
	if len(c.Sorts) == 0 {
		return ErrNoSorts
	}
	for _, s := range c.Sorts {
		if !slices.Contains(validSorts, s) {
			return &InvalidSortError{Sort: s}
		}
	}

	if c.Target <= 0 {
		return ErrInvalidTarget
	}
	if c.PageSize <= 0 || c.PageSize > maxPageSize {
		return ErrInvalidPageSize
	}
	if c.ContributorLimit <= 0 || c.ContributorLimit > maxPageSize {
		return ErrInvalidContributorLimit
	}
	if c.RetryBudget <= 0 {
		return ErrInvalidRetryBudget
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.RequestsPerSecond < 0 {
		return ErrInvalidRate
	}
	if c.MarkPolicy != MarkAttempted && c.MarkPolicy != MarkSucceeded {
		return ErrInvalidMarkPolicy
	}

	return nil
}
