package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/repocrawl/internal/config"
	"github.com/nao1215/repocrawl/internal/model"
	"github.com/nao1215/repocrawl/internal/store"
)

// fakeGitHub serves two pages of two repositories and one contributor per
// repository, and counts contributor requests.
type fakeGitHub struct {
	server       *httptest.Server
	contributors atomic.Int32
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	t.Helper()

	f := &fakeGitHub{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /search/repositories", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))

		var items []model.Repository
		if page == 1 || page == 2 {
			for i := 1; i <= 2; i++ {
				id := int64((page-1)*2 + i)
				items = append(items, model.Repository{
					ID:        id,
					Name:      fmt.Sprintf("repo%d", id),
					URL:       fmt.Sprintf("https://github.com/octo/repo%d", id),
					Stars:     int(100 - id),
					Forks:     int(id),
					Language:  "Go",
					Owner:     model.Owner{Login: "octo"},
					CreatedAt: "2020-01-01T00:00:00Z",
					UpdatedAt: "2024-01-01T00:00:00Z",
				})
			}
		}
		_ = json.NewEncoder(w).Encode(model.SearchResult{TotalCount: 4, Items: items})
	})
	mux.HandleFunc("GET /repos/{owner}/{name}/contributors", func(w http.ResponseWriter, r *http.Request) {
		f.contributors.Add(1)
		_ = json.NewEncoder(w).Encode([]model.Contributor{
			{Login: "dev-" + r.PathValue("name"), Contributions: 10},
		})
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

// crawlConfig returns a configuration file for the fake server.
func crawlConfig(t *testing.T, apiURL, dbDir string) string {
	t.Helper()

	return writeConfig(t, fmt.Sprintf(`token: test-token
api_url: %s
categories: [Go]
sorts: [stars]
target: 4
page_size: 2
contributors: 1
db_dir: %s
`, apiURL, dbDir))
}

func TestCrawlResumesWithoutRefetching(t *testing.T) {
	t.Parallel()

	gh := newFakeGitHub(t)
	dbDir := t.TempDir()
	cfgPath := crawlConfig(t, gh.server.URL, dbDir)
	csvPath := filepath.Join(t.TempDir(), "repos.csv")

	stdout, stderr, err := executeCmd(t, "crawl", "-c", cfgPath)
	if err != nil {
		t.Fatalf("first crawl failed: %v\n%s", err, stderr)
	}
	if !strings.Contains(strings.ToLower(stdout), "total") {
		t.Errorf("expected summary table, got %q", stdout)
	}
	if got := gh.contributors.Load(); got != 4 {
		t.Fatalf("expected 4 contributor requests, got %d", got)
	}

	if _, _, err := executeCmd(t, "export", "-c", cfgPath, "-o", csvPath); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	first, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(first)), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header and 4 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "id,name,url") {
		t.Errorf("expected header row, got %q", lines[0])
	}

	st, err := store.Open(dbDir, store.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	markers, err := st.Markers(context.Background(), "go", "stars")
	_ = st.Close()
	if err != nil {
		t.Fatal(err)
	}
	if len(markers) != 4 {
		t.Fatalf("expected 4 markers, got %d", len(markers))
	}

	if _, stderr, err := executeCmd(t, "crawl", "-c", cfgPath); err != nil {
		t.Fatalf("second crawl failed: %v\n%s", err, stderr)
	}
	if got := gh.contributors.Load(); got != 4 {
		t.Errorf("expected no new contributor requests, got %d in total", got)
	}

	if _, _, err := executeCmd(t, "export", "-c", cfgPath, "-o", csvPath); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	second, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Errorf("expected identical export after rerun\nfirst:\n%s\nsecond:\n%s", first, second)
	}

	stdout, _, err = executeCmd(t, "status", "-c", cfgPath)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(stdout, "repositories") || !strings.Contains(stdout, "processed markers") {
		t.Errorf("expected counts table, got %q", stdout)
	}

	stdout, _, err = executeCmd(t, "contributors", "-c", cfgPath, "--csv")
	if err != nil {
		t.Fatalf("contributors failed: %v", err)
	}
	if got := strings.Count(strings.TrimSpace(stdout), "\n"); got != 4 {
		t.Errorf("expected header and 4 contributors, got %q", stdout)
	}
}

func TestCrawlNoSkipRefetches(t *testing.T) {
	t.Parallel()

	gh := newFakeGitHub(t)
	cfgPath := crawlConfig(t, gh.server.URL, t.TempDir())

	for range 2 {
		if _, stderr, err := executeCmd(t, "crawl", "-c", cfgPath, "--no-skip"); err != nil {
			t.Fatalf("crawl failed: %v\n%s", err, stderr)
		}
	}
	if got := gh.contributors.Load(); got != 8 {
		t.Errorf("expected 8 contributor requests, got %d", got)
	}
}

func TestCrawlRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfig(t, "token: test-token\ndb_dir: "+t.TempDir()+"\n")

	_, _, err := executeCmd(t, "crawl", "-c", cfgPath, "--sort", "popularity")
	if err == nil {
		t.Fatal("expected configuration error")
	}
	if !strings.Contains(err.Error(), "configuration error") {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestBuildCrawlConfig(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfig(t, `token: file-token
categories: [java]
sorts: [forks]
target: 10
mark_policy: attempted
`)

	cmd := NewRootCmd()
	sub, _, err := cmd.Find([]string{"crawl"})
	if err != nil {
		t.Fatal(err)
	}
	err = sub.ParseFlags([]string{
		"-c", cfgPath,
		"--category", " Go ", "--category", "RUST",
		"--target", "25",
		"--no-skip",
		"--mark-policy", "Succeeded",
		"--rps", "2.5",
		"--schedule", "@daily",
	})
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := buildCrawlConfig(sub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !slices.Equal(cfg.Categories, []string{"go", "rust"}) {
		t.Errorf("expected [go rust], got %v", cfg.Categories)
	}
	if !slices.Equal(cfg.Sorts, []string{"forks"}) {
		t.Errorf("expected sorts from file, got %v", cfg.Sorts)
	}
	if cfg.Target != 25 {
		t.Errorf("expected 25, got %d", cfg.Target)
	}
	if cfg.PageSize != config.DefaultPageSize {
		t.Errorf("expected default page size, got %d", cfg.PageSize)
	}
	if cfg.SkipProcessed {
		t.Error("expected skip to be disabled")
	}
	if cfg.MarkPolicy != config.MarkSucceeded {
		t.Errorf("expected %s, got %s", config.MarkSucceeded, cfg.MarkPolicy)
	}
	if cfg.RequestsPerSecond != 2.5 {
		t.Errorf("expected 2.5, got %v", cfg.RequestsPerSecond)
	}
	if cfg.Schedule != "@daily" {
		t.Errorf("expected @daily, got %s", cfg.Schedule)
	}
}

func TestRunScheduled(t *testing.T) {
	t.Parallel()

	logger := newLogger(NewRootCmd(), slog.LevelError)

	t.Run("invalid spec", func(t *testing.T) {
		t.Parallel()

		err := runScheduled(context.Background(), "every day", logger, func(context.Context) error { return nil })
		if err == nil || !strings.Contains(err.Error(), "invalid schedule") {
			t.Errorf("expected invalid schedule error, got %v", err)
		}
	})

	t.Run("returns when cancelled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		var calls atomic.Int32
		err := runScheduled(ctx, "@yearly", logger, func(context.Context) error {
			calls.Add(1)
			return nil
		})
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if calls.Load() != 0 {
			t.Errorf("expected no crawl before the first tick, got %d", calls.Load())
		}
	})
}
