package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/repocrawl/internal/report"
	"github.com/nao1215/repocrawl/internal/store"
)

// errAppendUnsupported is returned when --append is used with a format that
// cannot be appended to.
var errAppendUnsupported = errors.New("--append is only supported for csv")

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored repositories",
		Long: `Export writes the stored repositories as CSV, Markdown, XLSX or JSON.

By default one row is written per repository. With --joined one row is written
per (repository, contributor) pair; repositories without contributors keep a
single row with empty contributor columns.

Examples:
  # Print repositories as CSV
  repocrawl export

  # Write repositories with their contributors to an Excel workbook
  repocrawl export --joined --format xlsx -o repos.xlsx

  # Append to an existing CSV file (the header is written only once)
  repocrawl export -o repos.csv --append

  # Write every format into the export directory
  repocrawl export --all -o export`,
		Args: cobra.NoArgs,
		RunE: runExportCmd,
	}

	cmd.Flags().StringP("format", "f", string(report.FormatCSV),
		"Output format: csv, markdown, xlsx or json")
	cmd.Flags().BoolP("joined", "j", false,
		"One row per (repository, contributor) pair")
	cmd.Flags().Bool("all", false,
		"Write every format into the directory given by --output")
	cmd.Flags().StringP("output", "o", "",
		"Output file (directory with --all; default: stdout)")
	cmd.Flags().Bool("append", false,
		"Append to the output file instead of overwriting it (csv only)")

	return cmd
}

// exportOptions holds the export command flags.
type exportOptions struct {
	format report.Format
	joined bool
	all    bool
	output string
	append bool
}

// runExportCmd executes the export command.
func runExportCmd(cmd *cobra.Command, _ []string) error {
	opts, err := parseExportFlags(cmd)
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

	tbl, err := loadTable(cmd.Context(), st, opts.joined)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, slog.LevelWarn)
	logger.Debug("exporting", "table", tbl.Name, "rows", len(tbl.Rows), "format", string(opts.format), "all", opts.all)
	if len(tbl.Rows) == 0 {
		logger.Warn("nothing to export, the database holds no repositories", "path", st.Path())
	}

	if opts.all {
		return exportAll(cmd.Context(), tbl, opts.output, cmd.OutOrStdout())
	}
	return exportTable(tbl, opts, cmd.OutOrStdout())
}

// parseExportFlags reads and checks the export flags.
func parseExportFlags(cmd *cobra.Command) (exportOptions, error) {
	var opts exportOptions

	name, err := cmd.Flags().GetString("format")
	if err != nil {
		return opts, err
	}
	if opts.format, err = report.ParseFormat(name); err != nil {
		return opts, err
	}
	if opts.joined, err = cmd.Flags().GetBool("joined"); err != nil {
		return opts, err
	}
	if opts.all, err = cmd.Flags().GetBool("all"); err != nil {
		return opts, err
	}
	if opts.output, err = cmd.Flags().GetString("output"); err != nil {
		return opts, err
	}
	if opts.append, err = cmd.Flags().GetBool("append"); err != nil {
		return opts, err
	}

	if opts.append {
		if opts.all || !opts.format.Appendable() {
			return opts, errAppendUnsupported
		}
		if opts.output == "" {
			return opts, errors.New("--append requires --output")
		}
	}
	return opts, nil
}

// openExisting opens the database without creating it.
func openExisting(dbDir string) (*store.Store, error) {
	opts := store.DefaultOptions()
	opts.CreateIfNotExists = false
	st, err := store.Open(dbDir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return st, nil
}

// loadTable reads the rows to export.
func loadTable(ctx context.Context, st *store.Store, joined bool) (report.Table, error) {
	if joined {
		rows, err := st.RepositoriesWithContributors(ctx)
		if err != nil {
			return report.Table{}, fmt.Errorf("failed to read repositories: %w", err)
		}
		return report.JoinedTable(rows), nil
	}

	repos, err := st.Repositories(ctx)
	if err != nil {
		return report.Table{}, fmt.Errorf("failed to read repositories: %w", err)
	}
	return report.RepositoriesTable(repos), nil
}

// exportTable writes tbl to the output file, or to stdout when none is set.
func exportTable(tbl report.Table, opts exportOptions, stdout io.Writer) error {
	if opts.output == "" {
		w, err := report.NewWriter(opts.format, stdout, true)
		if err != nil {
			return err
		}
		return w.Write(tbl)
	}

	f, withHeader, err := openOutput(opts.output, opts.append)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := report.NewWriter(opts.format, f, withHeader)
	if err != nil {
		return err
	}
	if err := w.Write(tbl); err != nil {
		return fmt.Errorf("failed to write %s: %w", opts.output, err)
	}
	return f.Close()
}

// exportAll writes tbl once per format into dir, concurrently.
func exportAll(ctx context.Context, tbl report.Table, dir string, stdout io.Writer) error {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	paths := make([]string, len(report.Formats))
	g, ctx := errgroup.WithContext(ctx)
	for i, format := range report.Formats {
		path := filepath.Join(dir, tbl.Name+format.Extension())
		paths[i] = path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return exportTable(tbl, exportOptions{format: format, output: path}, nil)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, path := range paths {
		fmt.Fprintf(stdout, "Wrote %s\n", path)
	}
	return nil
}

// openOutput opens path for writing and reports whether a header row is
// needed. An appended file needs a header only while it is still empty.
func openOutput(path string, appendTo bool) (*os.File, bool, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, false, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	flag := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendTo {
		flag = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(path, flag, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, false, fmt.Errorf("failed to create output file: %w", err)
	}

	if !appendTo {
		return f, true, nil
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, false, fmt.Errorf("failed to stat output file: %w", err)
	}
	return f, info.Size() == 0, nil
}
