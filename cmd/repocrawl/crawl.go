package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/nao1215/repocrawl/internal/config"
	"github.com/nao1215/repocrawl/internal/crawler"
	"github.com/nao1215/repocrawl/internal/fetch"
	"github.com/nao1215/repocrawl/internal/github"
	"github.com/nao1215/repocrawl/internal/pipeline"
	"github.com/nao1215/repocrawl/internal/store"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl repositories and their contributors into the database",
		Long: `Crawl walks the repository search for every (language, sort) pair and stores
each repository together with its top contributors.

A repository already stored for a pair is skipped, so running crawl again
after an interruption continues where the previous run stopped. Use --no-skip
to fetch everything again.

Examples:
  # Crawl with the defaults (java, c#, typescript, javascript by forks and stars)
  repocrawl crawl

  # Crawl 50 Go and Rust repositories by stars
  repocrawl crawl --category go --category rust --sort stars --target 50

  # Re-crawl every six hours until interrupted
  repocrawl crawl --schedule "0 */6 * * *"`,
		Args: cobra.NoArgs,
		RunE: runCrawlCmd,
	}

	cmd.Flags().StringSlice("category", nil,
		"Language to crawl (repeatable; default: java, c#, typescript, javascript)")
	cmd.Flags().StringSlice("sort", nil,
		"Sort order to crawl (repeatable; stars, forks, help-wanted-issues, updated)")
	cmd.Flags().IntP("target", "n", config.DefaultTarget,
		"Repositories wanted per (language, sort) pair")
	cmd.Flags().Int("page-size", config.DefaultPageSize,
		"Search page size (1-100)")
	cmd.Flags().Int("contributors", config.DefaultContributorLimit,
		"Contributors stored per repository")
	cmd.Flags().Bool("no-skip", false,
		"Fetch repositories again even if already stored for the pair")
	cmd.Flags().String("mark-policy", config.MarkAttempted,
		"When a repository counts as processed: attempted or succeeded")
	cmd.Flags().Float64("rps", 0,
		"Maximum requests per second (0: unlimited)")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (e.g., 127.0.0.1:1080)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().String("schedule", "",
		"Repeat the crawl on a cron schedule (e.g., @daily)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildCrawlConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd, slog.LevelInfo)

	// Set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout())
}

// buildCrawlConfig layers the file, the environment and the flags that were
// set explicitly onto the defaults.
func buildCrawlConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	config.ResolveToken(cfg, os.LookupEnv)

	flags := cmd.Flags()
	if flags.Changed("category") {
		if cfg.Categories, err = flags.GetStringSlice("category"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("sort") {
		if cfg.Sorts, err = flags.GetStringSlice("sort"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("target") {
		if cfg.Target, err = flags.GetInt("target"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("page-size") {
		if cfg.PageSize, err = flags.GetInt("page-size"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("contributors") {
		if cfg.ContributorLimit, err = flags.GetInt("contributors"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("no-skip") {
		noSkip, err := flags.GetBool("no-skip")
		if err != nil {
			return nil, err
		}
		cfg.SkipProcessed = !noSkip
	}
	if flags.Changed("mark-policy") {
		if cfg.MarkPolicy, err = flags.GetString("mark-policy"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("rps") {
		if cfg.RequestsPerSecond, err = flags.GetFloat64("rps"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("proxy") {
		if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("schedule") {
		if cfg.Schedule, err = flags.GetString("schedule"); err != nil {
			return nil, err
		}
	}

	cfg.Normalize()
	return cfg, nil
}

// runCrawl builds the crawl stack once and runs it, either a single time or
// on the configured schedule.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	logger.Info("starting crawl",
		"categories", cfg.Categories,
		"sorts", cfg.Sorts,
		"target", cfg.Target,
		"config", cfg.ConfigFilePath,
	)

	if cfg.ProxyAddress != "" {
		if err := fetch.CheckProxy(ctx, cfg.ProxyAddress); err != nil {
			return fmt.Errorf("proxy check failed: %w (make sure a SOCKS5 proxy is running at %s)",
				err, cfg.ProxyAddress)
		}
		logger.Info("proxy connection verified", "address", cfg.ProxyAddress)
	}

	st, err := store.Open(cfg.DBDir, store.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()
	logger.Info("database opened", "path", st.Path())

	orch, err := newOrchestrator(cfg, st, logger)
	if err != nil {
		return err
	}

	crawlOnce := func(ctx context.Context) error {
		summary, err := orch.Run(ctx, cfg.Partitions())
		printSummary(out, summary)
		return err
	}

	if cfg.Schedule != "" {
		return runScheduled(ctx, cfg.Schedule, logger, crawlOnce)
	}
	return crawlOnce(ctx)
}

// newGitHubClient builds the rate-limited fetcher and the API client on top of it.
func newGitHubClient(cfg *config.Config, logger *slog.Logger) (*github.Client, error) {
	httpClient, err := fetch.NewHTTPClient(cfg.Timeout, cfg.ProxyAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	fetcher := fetch.New(httpClient, cfg.Token,
		fetch.WithBudget(cfg.RetryBudget),
		fetch.WithBackoffBase(cfg.BackoffBase),
		fetch.WithRateLimitMargin(cfg.RateLimitMargin),
		fetch.WithRequestsPerSecond(cfg.RequestsPerSecond),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithLogger(logger),
	)
	return github.NewClient(fetcher, cfg.APIURL, cfg.Qualifier), nil
}

// newOrchestrator wires the fetcher, the GitHub client, the walker and the
// store into an Orchestrator.
func newOrchestrator(cfg *config.Config, st *store.Store, logger *slog.Logger) (*pipeline.Orchestrator, error) {
	gh, err := newGitHubClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	walker := crawler.NewWalker(gh, crawler.WithLogger(logger))

	return pipeline.New(walker, gh, st,
		pipeline.WithLogger(logger),
		pipeline.WithSkipProcessed(cfg.SkipProcessed),
		pipeline.WithMarkPolicy(pipeline.MarkPolicy(cfg.MarkPolicy)),
		pipeline.WithPageSize(cfg.PageSize),
		pipeline.WithTarget(cfg.Target),
		pipeline.WithContributorLimit(cfg.ContributorLimit),
	), nil
}

// printSummary renders the per-partition results of a run.
func printSummary(out io.Writer, s pipeline.Summary) {
	if s.RunID == "" {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.SetTitle("run " + s.RunID)
	t.AppendHeader(table.Row{"Language", "Sort", "Pages", "Seen", "Skipped", "Processed", "Unmarked", "Failed", "Stop"})
	for _, p := range s.Partitions {
		t.AppendRow(table.Row{
			p.Partition.Category,
			p.Partition.Sort,
			p.Pages,
			p.Seen,
			p.Skipped,
			p.Processed,
			p.Unmarked,
			p.Failed,
			p.Stop.String(),
		})
	}
	t.AppendFooter(table.Row{"", "total", "", s.Seen, s.Skipped, s.Processed, s.Unmarked, s.Failed, ""})
	t.Render()
}

// scheduleParser accepts standard five-field specs and descriptors such as @daily.
var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// runScheduled runs crawlOnce on every tick of spec until ctx is done.
// A tick that fires while the previous crawl is still running is skipped.
func runScheduled(ctx context.Context, spec string, logger *slog.Logger, crawlOnce func(context.Context) error) error {
	schedule, err := scheduleParser.Parse(spec)
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	cl := cronLogger{logger: logger}
	c := cron.New(
		cron.WithParser(scheduleParser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	c.Schedule(schedule, cron.FuncJob(func() {
		if err := crawlOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("scheduled crawl failed", "error", err)
		}
	}))

	c.Start()
	logger.Info("crawl scheduled", "schedule", spec, "next", schedule.Next(time.Now()))

	<-ctx.Done()
	logger.Info("stopping scheduler, waiting for the running crawl")
	<-c.Stop().Done()
	return nil
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
