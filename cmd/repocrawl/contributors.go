package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nao1215/repocrawl/internal/config"
	"github.com/nao1215/repocrawl/internal/model"
	"github.com/nao1215/repocrawl/internal/report"
)

// defaultContributorRows is the number of contributors listed by default.
const defaultContributorRows = 20

// NewContributorsCmd creates the contributors command.
func NewContributorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contributors",
		Short: "List the most active stored contributors",
		Long: `Contributors lists logins across all stored repositories, ordered by their
largest contribution count to a single repository.

Examples:
  # Top 20 contributors
  repocrawl contributors

  # Everyone with at least 1000 contributions, as CSV
  repocrawl contributors --min 1000 --limit 0 --csv

  # Top 10 with their public name, email, blog and location
  repocrawl contributors -n 10 --profiles

--profiles requests one profile per listed contributor from the API, so it
needs a token like crawl does.`,
		Args: cobra.NoArgs,
		RunE: runContributorsCmd,
	}

	cmd.Flags().Int("min", 0, "Minimum contributions")
	cmd.Flags().IntP("limit", "n", defaultContributorRows, "Maximum rows (0: no limit)")
	cmd.Flags().Bool("csv", false, "Write CSV instead of a table")
	cmd.Flags().Bool("profiles", false, "Fetch each contributor's public profile from the API")

	return cmd
}

// runContributorsCmd executes the contributors command.
func runContributorsCmd(cmd *cobra.Command, _ []string) error {
	minContributions, err := cmd.Flags().GetInt("min")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	asCSV, err := cmd.Flags().GetBool("csv")
	if err != nil {
		return err
	}
	withProfiles, err := cmd.Flags().GetBool("profiles")
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st, err := openExisting(cfg.DBDir)
	if err != nil {
		return err
	}
	defer st.Close()

	contributors, err := st.TopContributors(cmd.Context(), minContributions, limit)
	if err != nil {
		return fmt.Errorf("failed to read contributors: %w", err)
	}

	if withProfiles {
		profiles, err := fetchProfiles(cmd, cfg, contributors)
		if err != nil {
			return err
		}
		if asCSV {
			return report.NewCSVWriter(cmd.OutOrStdout()).Write(report.ProfilesTable(contributors, profiles))
		}
		renderProfiles(cmd.OutOrStdout(), contributors, profiles)
		return nil
	}

	if asCSV {
		return report.NewCSVWriter(cmd.OutOrStdout()).Write(report.ContributorsTable(contributors))
	}
	renderContributors(cmd.OutOrStdout(), contributors)
	return nil
}

// fetchProfiles requests the profile of every contributor, in order.
// A profile that cannot be fetched is logged and left empty; only
// cancellation aborts.
func fetchProfiles(cmd *cobra.Command, cfg *config.Config, contributors []model.Contributor) ([]model.Profile, error) {
	config.ResolveToken(cfg, os.LookupEnv)
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd, slog.LevelWarn)
	gh, err := newGitHubClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	profiles := make([]model.Profile, len(contributors))
	for i, c := range contributors {
		profile, err := gh.User(ctx, c.Login)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("profile unavailable", "login", c.Login, "error", err)
			continue
		}
		profiles[i] = profile
	}
	return profiles, nil
}

// renderProfiles prints contributors with their public profile fields.
func renderProfiles(out io.Writer, contributors []model.Contributor, profiles []model.Profile) {
	p := message.NewPrinter(language.English)

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Contributor", "Contributions", "Name", "Contact", "Location"})
	for i, c := range contributors {
		profile := profiles[i]
		t.AppendRow(table.Row{i + 1, c.Login, p.Sprintf("%d", c.Contributions), profile.Name, profile.Contact(), profile.Location})
	}
	t.Render()
}

// renderContributors prints a ranked table with grouped digits.
func renderContributors(out io.Writer, contributors []model.Contributor) {
	p := message.NewPrinter(language.English)

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Contributor", "Contributions"})
	for i, c := range contributors {
		t.AppendRow(table.Row{i + 1, c.Login, p.Sprintf("%d", c.Contributions)})
	}
	t.Render()
}
