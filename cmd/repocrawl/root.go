package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/repocrawl/internal/config"
	"github.com/nao1215/repocrawl/internal/log"
)

// envFile is loaded into the environment before any command runs.
const envFile = ".env"

// NewRootCmd creates the root command for repocrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repocrawl",
		Short: "Resumable crawler for GitHub repositories and their contributors",
		Long: `repocrawl collects repositories from the GitHub search API, one
(language, sort) pair at a time, together with their top contributors.

Results are stored in a local SQLite database. A repository that was already
stored for a pair is skipped on the next run, so an interrupted crawl resumes
where it stopped. Rate limits are waited out, other failures are retried with
exponential backoff.

The GitHub token is read from GITHUB_TOKEN (a .env file in the current
directory is loaded first) or from the configuration file.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if err := config.LoadEnv(envFile); err != nil {
				return fmt.Errorf("failed to load %s: %w", envFile, err)
			}
			return nil
		},
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .repocrawl.yaml in current or home directory)")
	cmd.PersistentFlags().String("db-dir", "",
		"Directory holding the database (default: "+config.XDGDataDir()+")")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewExportCmd())
	cmd.AddCommand(NewContributorsCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, log.Scrub(err.Error()))
		os.Exit(1)
	}
}

// getBoolFlag retrieves a boolean flag, including inherited global flags.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		return false
	}
	return v
}

// newLogger creates the logger for cmd. base is the level used without -v.
// Output goes to the command's stderr so tests can capture it.
func newLogger(cmd *cobra.Command, base slog.Level) *slog.Logger {
	level := log.Level(getBoolFlag(cmd, "verbose"), base)
	var w io.Writer = cmd.ErrOrStderr()
	if getBoolFlag(cmd, "log-json") {
		return log.NewSecureJSONLogger(w, level)
	}
	return log.NewSecureLogger(w, level)
}

// loadConfig builds a Config from defaults and the configuration file.
// A missing file is an error only when its path was given explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	explicitPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	path := config.FindConfigFile(explicitPath)
	switch {
	case path != "":
		file, err := config.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		file.Apply(cfg)
		cfg.ConfigFilePath = path
	case explicitPath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, explicitPath)
	}

	if cmd.Flags().Changed("db-dir") {
		if cfg.DBDir, err = cmd.Flags().GetString("db-dir"); err != nil {
			return nil, err
		}
	}
	cfg.Verbose = getBoolFlag(cmd, "verbose")

	return cfg, nil
}
