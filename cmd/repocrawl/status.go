package main

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nao1215/repocrawl/internal/model"
	"github.com/nao1215/repocrawl/internal/store"
)

// defaultStatusRuns is the number of runs listed by default.
const defaultStatusRuns = 10

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show database totals and recent crawl runs",
		Args:  cobra.NoArgs,
		RunE:  runStatusCmd,
	}

	cmd.Flags().Int("runs", defaultStatusRuns, "Number of recent runs to list")

	return cmd
}

// runStatusCmd executes the status command.
func runStatusCmd(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("runs")
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

	counts, err := st.Counts(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to count rows: %w", err)
	}
	runs, err := st.Runs(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("failed to read runs: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Database: %s\n", st.Path())
	renderCounts(out, counts)
	renderRuns(out, runs)
	return nil
}

// renderCounts prints the row count of every table.
func renderCounts(out io.Writer, c store.Counts) {
	p := message.NewPrinter(language.English)

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Table", "Rows"})
	t.AppendRows([]table.Row{
		{"repositories", p.Sprintf("%d", c.Repositories)},
		{"contributors", p.Sprintf("%d", c.Contributors)},
		{"processed markers", p.Sprintf("%d", c.Markers)},
		{"runs", p.Sprintf("%d", c.Runs)},
	})
	t.Render()
}

// renderRuns prints the most recent runs, newest first.
func renderRuns(out io.Writer, runs []model.Run) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Started", "Duration", "Seen", "Skipped", "Processed", "Failed"})
	for _, r := range runs {
		duration := "running"
		if r.Finished() {
			duration = r.Duration().Round(time.Second).String()
		}
		t.AppendRow(table.Row{
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			duration,
			r.Seen,
			r.Skipped,
			r.Processed,
			r.Failed,
		})
	}
	t.Render()
}
