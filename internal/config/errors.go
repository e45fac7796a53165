package config

import (
	"errors"
	"fmt"
	"strings"
)

// Configuration validation errors.
// These errors are returned by Config.Validate() and LoadConfigFile().
// All of them are fatal at startup.
var (
	// ErrMissingToken is returned when no GitHub token was found in the
	// environment, the .env file or the configuration file.
	ErrMissingToken = errors.New("missing GitHub token: set GITHUB_TOKEN or 'token' in the configuration file")

	// ErrInvalidAPIURL is returned when the API root is not an absolute http(s) URL.
	ErrInvalidAPIURL = errors.New("invalid api url: must be an absolute http or https URL")

	// ErrNoCategories is returned when the category list is empty.
	ErrNoCategories = errors.New("no categories configured")

	// ErrNoSorts is returned when the sort criterion list is empty.
	ErrNoSorts = errors.New("no sort criteria configured")

	// ErrInvalidTarget is returned when the per-pair target is not positive.
	ErrInvalidTarget = errors.New("invalid target: must be positive")

	// ErrInvalidPageSize is returned when the page size is outside 1..100.
	ErrInvalidPageSize = errors.New("invalid page size: must be between 1 and 100")

	// ErrInvalidContributorLimit is returned when the contributor limit is outside 1..100.
	ErrInvalidContributorLimit = errors.New("invalid contributor limit: must be between 1 and 100")

	// ErrInvalidRetryBudget is returned when the retry budget is not positive.
	ErrInvalidRetryBudget = errors.New("invalid retry budget: must be positive")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRate is returned when requests per second is negative.
	ErrInvalidRate = errors.New("invalid requests per second: must be non-negative")

	// ErrInvalidMarkPolicy is returned for an unknown mark policy.
	ErrInvalidMarkPolicy = errors.New("invalid mark policy: must be 'attempted' or 'succeeded'")

	// ErrInvalidSort is matched by InvalidSortError.
	ErrInvalidSort = errors.New("invalid sort criterion")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)

// InvalidSortError reports a sort criterion the search API does not accept.
type InvalidSortError struct {
	Sort string
}

func (e *InvalidSortError) Error() string {
	return fmt.Sprintf("%v %q: must be one of %s", ErrInvalidSort, e.Sort, strings.Join(validSorts, ", "))
}

// Is makes errors.Is(err, ErrInvalidSort) match.
func (e *InvalidSortError) Is(target error) bool {
	return target == ErrInvalidSort
}
