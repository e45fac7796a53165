package crawler

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"sync"

	"github.com/nao1215/repocrawl/internal/fetch"
	"github.com/nao1215/repocrawl/internal/github"
	"github.com/nao1215/repocrawl/internal/model"
)

// PageSource returns one page of search results.
// *github.Client implements it.
type PageSource interface {
	SearchPage(ctx context.Context, q github.SearchQuery) ([]model.Repository, error)
}

// Query describes one walk.
type Query struct {
	Category string
	Sort     string

	// PageSize is the number of items requested per page.
	PageSize int

	// Total is the number of items wanted. The walk yields at most Total.
	Total int
}

// Pages returns ceil(Total / PageSize), the maximum number of page requests.
func (q Query) Pages() int {
	if q.PageSize <= 0 || q.Total <= 0 {
		return 0
	}
	return (q.Total + q.PageSize - 1) / q.PageSize
}

// StopReason tells why a walk ended.
type StopReason int

const (
	// StopTarget means every planned page was consumed or Total was reached.
	StopTarget StopReason = iota
	// StopEmptyPage means a page returned no items.
	StopEmptyPage
	// StopShortPage means a page returned fewer items than requested.
	StopShortPage
	// StopExhausted means a page request ran out of retry budget.
	StopExhausted
	// StopError means a page request failed for another reason.
	StopError
	// StopConsumer means the caller stopped ranging.
	StopConsumer
	// StopCanceled means the context was cancelled.
	StopCanceled
)

// String returns the reason name used in logs.
func (r StopReason) String() string {
	switch r {
	case StopTarget:
		return "target"
	case StopEmptyPage:
		return "empty_page"
	case StopShortPage:
		return "short_page"
	case StopExhausted:
		return "exhausted"
	case StopError:
		return "error"
	case StopConsumer:
		return "consumer"
	case StopCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Stats describes the last walk.
type Stats struct {
	// PagesRequested counts page requests, including a failed one.
	PagesRequested int

	// ItemsYielded counts repositories handed to the consumer.
	ItemsYielded int

	// ItemsDropped counts items skipped because they lack an id, name or
	// owner. They still count toward the page size.
	ItemsDropped int

	// Reason is why the walk ended.
	Reason StopReason

	// Err is the page error or context error that ended the walk, if any.
	Err error
}

// Walker walks search pages sequentially.
type Walker struct {
	source PageSource
	logger *slog.Logger

	mutex sync.Mutex
	stats Stats
}

// Option configures a Walker.
type Option func(*Walker)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Walker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWalker creates a Walker reading pages from source.
func NewWalker(source PageSource, opts ...Option) *Walker {
	w := &Walker{
		source: source,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Walk returns the repositories of q in source order.
// The sequence is single-use: ranging over it again starts a new walk and
// resets Stats.
func (w *Walker) Walk(ctx context.Context, q Query) iter.Seq[model.Repository] {
	return func(yield func(model.Repository) bool) {
		w.reset()

		pages := q.Pages()
		yielded := 0
		for page := 1; page <= pages; page++ {
			if err := ctx.Err(); err != nil {
				w.finish(StopCanceled, err)
				return
			}

			items, err := w.source.SearchPage(ctx, github.SearchQuery{
				Category: q.Category,
				Sort:     q.Sort,
				Page:     page,
				PerPage:  q.PageSize,
			})
			w.pageRequested()
			if err != nil {
				reason := StopError
				switch {
				case ctx.Err() != nil:
					reason = StopCanceled
				case errors.Is(err, fetch.ErrExhausted):
					reason = StopExhausted
				}
				w.logger.Warn("abandoning remaining pages",
					"category", q.Category,
					"sort", q.Sort,
					"page", page,
					"reason", reason.String(),
					"error", err,
				)
				w.finish(reason, err)
				return
			}

			w.logger.Debug("page fetched",
				"category", q.Category,
				"sort", q.Sort,
				"page", page,
				"items", len(items),
			)
			if len(items) == 0 {
				w.finish(StopEmptyPage, nil)
				return
			}

			for _, item := range items {
				if !item.Valid() {
					w.itemDropped()
					w.logger.Debug("dropping incomplete repository",
						"category", q.Category,
						"sort", q.Sort,
						"page", page,
						"id", item.ID,
					)
					continue
				}
				if yielded >= q.Total {
					w.finish(StopTarget, nil)
					return
				}
				yielded++
				w.itemYielded()
				if !yield(item) {
					w.finish(StopConsumer, nil)
					return
				}
			}

			// the raw page length decides exhaustion, dropped items included
			if len(items) < q.PageSize {
				w.finish(StopShortPage, nil)
				return
			}
		}
		w.finish(StopTarget, nil)
	}
}

// Stats returns statistics of the current or last walk.
func (w *Walker) Stats() Stats {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.stats
}

func (w *Walker) reset() {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.stats = Stats{}
}

func (w *Walker) pageRequested() {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.stats.PagesRequested++
}

func (w *Walker) itemYielded() {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.stats.ItemsYielded++
}

func (w *Walker) itemDropped() {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.stats.ItemsDropped++
}

func (w *Walker) finish(reason StopReason, err error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.stats.Reason = reason
	w.stats.Err = err
}
