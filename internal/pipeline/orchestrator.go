package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/repocrawl/internal/config"
	"github.com/nao1215/repocrawl/internal/crawler"
	"github.com/nao1215/repocrawl/internal/fetch"
	"github.com/nao1215/repocrawl/internal/model"
	"github.com/nao1215/repocrawl/internal/store"
)

// MarkPolicy decides when a repository counts as processed.
type MarkPolicy string

const (
	// MarkAttempted marks every stored repository, including those whose
	// contributors were unavailable.
	MarkAttempted MarkPolicy = config.MarkAttempted

	// MarkSucceeded leaves a repository without contributor data unmarked
	// so that the next run fetches it again.
	MarkSucceeded MarkPolicy = config.MarkSucceeded
)

// ContributorSource fetches the contributors of one repository.
// *github.Client implements it.
type ContributorSource interface {
	Contributors(ctx context.Context, repo model.Repository, limit int) ([]model.Contributor, error)
}

// Orchestrator runs crawls. Requests are strictly sequential.
type Orchestrator struct {
	walker       *crawler.Walker
	contributors ContributorSource
	store        *store.Store
	logger       *slog.Logger

	skipProcessed    bool
	markPolicy       MarkPolicy
	pageSize         int
	target           int
	contributorLimit int
}

// Option is a function that configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithSkipProcessed toggles skipping repositories that already carry a
// marker for the partition. Disabled, every repository is re-fetched and
// re-written.
func WithSkipProcessed(skip bool) Option {
	return func(o *Orchestrator) {
		o.skipProcessed = skip
	}
}

// WithMarkPolicy sets the mark policy.
func WithMarkPolicy(policy MarkPolicy) Option {
	return func(o *Orchestrator) {
		if policy == MarkAttempted || policy == MarkSucceeded {
			o.markPolicy = policy
		}
	}
}

// WithPageSize sets the search page size.
func WithPageSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.pageSize = n
		}
	}
}

// WithTarget sets the number of repositories wanted per partition.
func WithTarget(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.target = n
		}
	}
}

// WithContributorLimit sets the number of contributors stored per repository.
func WithContributorLimit(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.contributorLimit = n
		}
	}
}

// New creates an Orchestrator.
func New(walker *crawler.Walker, contributors ContributorSource, st *store.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		walker:           walker,
		contributors:     contributors,
		store:            st,
		skipProcessed:    true,
		markPolicy:       MarkAttempted,
		pageSize:         config.DefaultPageSize,
		target:           config.DefaultTarget,
		contributorLimit: config.DefaultContributorLimit,
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = slog.Default()
	}

	return o
}

// Run crawls every partition in order and returns what happened.
//
// A per-repository failure never stops the crawl. Run returns an error only
// when the run record cannot be created or the context is cancelled; in
// the latter case the summary covers the work done before cancellation.
func (o *Orchestrator) Run(ctx context.Context, partitions []model.Partition) (Summary, error) {
	run, err := o.store.StartRun(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to start run: %w", err)
	}

	summary := Summary{RunID: run.ID}
	o.logger.Info("crawl started", "run", run.ID, "partitions", len(partitions))

	for _, p := range partitions {
		if ctx.Err() != nil {
			break
		}
		summary.add(o.runPartition(ctx, run.ID, p))
	}

	run.Seen = summary.Seen
	run.Skipped = summary.Skipped
	run.Processed = summary.Processed
	run.Failed = summary.Failed
	// the run record is closed even when the crawl was interrupted
	if err := o.store.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		o.logger.Error("failed to finish run", "run", run.ID, "error", err)
	}

	o.logger.Info("crawl finished",
		"run", run.ID,
		"seen", summary.Seen,
		"skipped", summary.Skipped,
		"processed", summary.Processed,
		"unmarked", summary.Unmarked,
		"failed", summary.Failed,
	)

	if err := ctx.Err(); err != nil {
		o.logger.Warn("crawl interrupted", "run", run.ID, "reason", err)
		return summary, err
	}
	return summary, nil
}

// runPartition walks one (category, sort) pair.
func (o *Orchestrator) runPartition(ctx context.Context, runID string, p model.Partition) PartitionSummary {
	ps := PartitionSummary{Partition: p}
	logger := o.logger.With("partition", p.String())
	logger.Info("walking partition", "target", o.target, "page_size", o.pageSize)

	query := crawler.Query{
		Category: p.Category,
		Sort:     p.Sort,
		PageSize: o.pageSize,
		Total:    o.target,
	}

	for repo := range o.walker.Walk(ctx, query) {
		if ctx.Err() != nil {
			break
		}
		ps.Seen++

		if o.skipProcessed {
			done, err := o.store.IsProcessed(ctx, repo.ID, p.Category, p.Sort)
			if err != nil {
				logger.Error("failed to check processed marker", "repo", repo.FullName(), "error", err)
				ps.Failed++
				continue
			}
			if done {
				logger.Info("skipping processed repository", "repo", repo.FullName())
				ps.Skipped++
				continue
			}
		}

		marked, err := o.processRepository(ctx, runID, p, repo)
		if err != nil {
			if ctx.Err() != nil {
				// interrupted before the transaction started; nothing written
				break
			}
			logger.Error("failed to process repository", "repo", repo.FullName(), "error", err)
			ps.Failed++
			continue
		}

		ps.Processed++
		if !marked {
			ps.Unmarked++
		}
	}

	stats := o.walker.Stats()
	ps.Pages = stats.PagesRequested
	ps.Stop = stats.Reason
	logger.Info("partition done",
		"pages", ps.Pages,
		"stop", ps.Stop.String(),
		"seen", ps.Seen,
		"skipped", ps.Skipped,
		"processed", ps.Processed,
		"failed", ps.Failed,
	)
	return ps
}

// processRepository fetches the contributors of repo and commits the
// repository, its contributors and its marker in one transaction. It
// reports whether the marker was written.
func (o *Orchestrator) processRepository(ctx context.Context, runID string, p model.Partition, repo model.Repository) (bool, error) {
	contributors, err := o.contributors.Contributors(ctx, repo, o.contributorLimit)
	hasData := err == nil
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		if errors.Is(err, fetch.ErrExhausted) {
			o.logger.Warn("contributors unavailable, retry budget exhausted", "repo", repo.FullName(), "error", err)
		} else {
			o.logger.Warn("contributors unavailable", "repo", repo.FullName(), "error", err)
		}
	}

	mark := hasData || o.markPolicy == MarkAttempted

	// A started repository is finished even if ctx is cancelled meanwhile.
	wctx := context.WithoutCancel(ctx)

	tx, err := o.store.Begin(wctx)
	if err != nil {
		return false, err
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil {
			o.logger.Error("rollback failed", "repo", repo.FullName(), "error", rbErr)
		}
	}()

	if err := tx.UpsertRepository(wctx, repo); err != nil {
		return false, err
	}
	if hasData {
		if err := tx.ReplaceContributors(wctx, repo.ID, contributors); err != nil {
			return false, err
		}
	}
	if mark {
		if err := tx.MarkProcessed(wctx, model.Marker{
			RepoID:   repo.ID,
			Category: p.Category,
			Sort:     p.Sort,
			RunID:    runID,
		}); err != nil {
			return false, err
		}
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}

	o.logger.Info("repository stored",
		"repo", repo.FullName(),
		"id", repo.ID,
		"contributors", len(contributors),
		"marked", mark,
	)
	if !mark {
		o.logger.Warn("repository left unmarked for retry", "repo", repo.FullName())
	}
	return mark, nil
}
