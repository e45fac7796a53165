package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // SQLite driver
)

// FileName is the database file created inside the data directory.
const FileName = "repocrawl.db"

// timeLayout is the text format of every timestamp column.
const timeLayout = time.RFC3339Nano

// Store is the crawl database.
type Store struct {
	db     *sqlx.DB
	dbPath string
	now    func() time.Time
}

// Options configures Store behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if needed.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so readers (export) don't block
	// a running crawl.
	EnableWAL bool

	// BusyTimeout is how long a statement waits for a lock held by another
	// process before failing.
	BusyTimeout time.Duration
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
		BusyTimeout:       5 * time.Second,
	}
}

// Open opens or creates the database in dbDir and migrates the schema.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*Store, error) {
	dbPath := filepath.Join(dbDir, FileName)

	mode := "rw"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		mode = "rwc"
	} else if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found at %s: run 'repocrawl crawl' first", dbPath)
	} else if err != nil {
		return nil, fmt.Errorf("failed to check database path: %w", err)
	}

	// Connection pragmas go into the DSN so that every pooled connection
	// gets them, not only the first one.
	dsn := fmt.Sprintf("%s?mode=%s&_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)",
		dbPath, mode, opts.BusyTimeout.Milliseconds())

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// "sqlite3" selects sqlx's '?' bindvars for named queries
	st := New(sqlx.NewDb(sqlDB, "sqlite3"))
	st.dbPath = dbPath

	ctx := context.Background()
	if opts.EnableWAL {
		if _, err := st.db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = st.db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return st, nil
}

// New wraps an existing handle. It does not migrate; call Migrate when the
// schema may be missing.
func New(db *sqlx.DB) *Store {
	return &Store{
		db:  db,
		now: time.Now,
	}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path, or "" for a wrapped handle.
func (s *Store) Path() string {
	return s.dbPath
}

// Migrate creates the schema if it doesn't exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

const schema = `
-- One row per repository; re-crawls overwrite in place
CREATE TABLE IF NOT EXISTS repositories (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	url TEXT NOT NULL DEFAULT '',
	stars INTEGER NOT NULL DEFAULT 0,
	forks INTEGER NOT NULL DEFAULT 0,
	language TEXT NOT NULL DEFAULT '',
	owner TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS contributors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	repo_id INTEGER NOT NULL REFERENCES repositories(id) ON DELETE CASCADE,
	contributor TEXT NOT NULL CHECK (contributor <> ''),
	contributions INTEGER NOT NULL DEFAULT 0,
	UNIQUE(repo_id, contributor)
);

CREATE INDEX IF NOT EXISTS idx_contributors_login ON contributors(contributor);

-- Skip-list: presence means "done under this (language, sort_by)"
CREATE TABLE IF NOT EXISTS processed_repos (
	repo_id INTEGER NOT NULL REFERENCES repositories(id) ON DELETE CASCADE,
	language TEXT NOT NULL,
	sort_by TEXT NOT NULL,
	processed_at TEXT NOT NULL,
	run_id TEXT NOT NULL DEFAULT '',
	UNIQUE(repo_id, language, sort_by)
);

CREATE INDEX IF NOT EXISTS idx_processed_partition ON processed_repos(language, sort_by);

CREATE TABLE IF NOT EXISTS crawl_runs (
	id TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL DEFAULT '',
	seen INTEGER NOT NULL DEFAULT 0,
	skipped INTEGER NOT NULL DEFAULT 0,
	processed INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0
);
`

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
