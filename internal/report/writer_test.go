package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/nao1215/repocrawl/internal/model"
	"github.com/nao1215/repocrawl/internal/store"
)

// createTestRepositories returns two repositories for table tests.
func createTestRepositories() []model.Repository {
	return []model.Repository{
		{
			ID:        101,
			Name:      "alpha",
			URL:       "https://github.com/octo/alpha",
			Stars:     1500,
			Forks:     42,
			Language:  "Go",
			Owner:     model.Owner{Login: "octo"},
			CreatedAt: "2020-01-02T03:04:05Z",
			UpdatedAt: "2024-05-06T07:08:09Z",
		},
		{
			ID:       202,
			Name:     "beta|gamma",
			URL:      "https://github.com/hub/beta",
			Stars:    7,
			Language: "Java",
			Owner:    model.Owner{Login: "hub"},
		},
	}
}

func TestRepositoriesTable(t *testing.T) {
	t.Parallel()

	tbl := RepositoriesTable(createTestRepositories())

	if len(tbl.Header) != 9 {
		t.Fatalf("expected 9 columns, got %d", len(tbl.Header))
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(tbl.Rows))
	}
	want := []string{"101", "alpha", "https://github.com/octo/alpha", "1500", "42", "Go", "octo", "2020-01-02T03:04:05Z", "2024-05-06T07:08:09Z"}
	for i, cell := range want {
		if tbl.Rows[0][i] != cell {
			t.Errorf("column %s: expected %q, got %q", tbl.Header[i], cell, tbl.Rows[0][i])
		}
	}
	if !tbl.isNumeric(3) || tbl.isNumeric(1) || tbl.isNumeric(99) {
		t.Error("unexpected numeric column flags")
	}
}

func TestJoinedTable(t *testing.T) {
	t.Parallel()

	repos := createTestRepositories()
	joined := []store.RepositoryContributor{
		{Repository: repos[0], Contributor: model.Contributor{Login: "alice", Contributions: 30}, HasContributor: true},
		{Repository: repos[0], Contributor: model.Contributor{Login: "bob", Contributions: 3}, HasContributor: true},
		{Repository: repos[1]},
	}

	tbl := JoinedTable(joined)

	if len(tbl.Header) != 11 {
		t.Fatalf("expected 11 columns, got %d", len(tbl.Header))
	}
	if tbl.Header[9] != "contributor" || tbl.Header[10] != "contributions" {
		t.Errorf("unexpected trailing columns: %v", tbl.Header[9:])
	}
	if len(tbl.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(tbl.Rows))
	}
	if tbl.Rows[1][9] != "bob" || tbl.Rows[1][10] != "3" {
		t.Errorf("expected bob/3, got %s/%s", tbl.Rows[1][9], tbl.Rows[1][10])
	}
	if tbl.Rows[2][9] != "" || tbl.Rows[2][10] != "" {
		t.Errorf("expected empty contributor cells, got %q/%q", tbl.Rows[2][9], tbl.Rows[2][10])
	}

	// The shared repository header must not be modified.
	if len(repositoryHeader) != 9 {
		t.Errorf("expected repository header to keep 9 columns, got %d", len(repositoryHeader))
	}
}

func TestProfilesTable(t *testing.T) {
	t.Parallel()

	contributors := []model.Contributor{{Login: "alice", Contributions: 9}, {Login: "bob", Contributions: 2}}
	profiles := []model.Profile{{Login: "alice", Name: "Alice", Email: "alice@example.com", Location: "Oslo"}}

	tbl := ProfilesTable(contributors, profiles)
	if len(tbl.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(tbl.Rows))
	}
	if got := strings.Join(tbl.Rows[0], ","); got != "alice,9,Alice,alice@example.com,,Oslo" {
		t.Errorf("unexpected first row %q", got)
	}
	if got := strings.Join(tbl.Rows[1], ","); got != "bob,2,,,," {
		t.Errorf("expected empty profile cells, got %q", got)
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "csv", want: FormatCSV},
		{in: " CSV ", want: FormatCSV},
		{in: "md", want: FormatMarkdown},
		{in: "markdown", want: FormatMarkdown},
		{in: "xlsx", want: FormatXLSX},
		{in: "excel", want: FormatXLSX},
		{in: "json", want: FormatJSON},
		{in: "yaml", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestFormatExtension(t *testing.T) {
	t.Parallel()

	want := map[Format]string{
		FormatCSV:      ".csv",
		FormatMarkdown: ".md",
		FormatXLSX:     ".xlsx",
		FormatJSON:     ".json",
	}
	for _, f := range Formats {
		if got := f.Extension(); got != want[f] {
			t.Errorf("%s: expected %s, got %s", f, want[f], got)
		}
	}
	if !FormatCSV.Appendable() || FormatXLSX.Appendable() {
		t.Error("expected only CSV to be appendable")
	}
}

func TestCSVWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and rows", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := NewCSVWriter(&buf).Write(RepositoriesTable(createTestRepositories())); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		records, err := csv.NewReader(&buf).ReadAll()
		if err != nil {
			t.Fatalf("output is not valid CSV: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("expected 3 records, got %d", len(records))
		}
		if records[0][0] != "id" {
			t.Errorf("expected header row, got %v", records[0])
		}
		if records[2][1] != "beta|gamma" {
			t.Errorf("expected beta|gamma, got %s", records[2][1])
		}
	})

	t.Run("appends without header", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		tbl := RepositoriesTable(createTestRepositories())
		if err := NewCSVWriter(&buf).Write(tbl); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := NewCSVWriter(&buf, WithoutHeader()).Write(tbl); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		records, err := csv.NewReader(&buf).ReadAll()
		if err != nil {
			t.Fatalf("output is not valid CSV: %v", err)
		}
		if len(records) != 5 {
			t.Errorf("expected 5 records, got %d", len(records))
		}
		if got := strings.Count(buf.String(), "id,name,url"); got != 1 {
			t.Errorf("expected one header row, got %d", got)
		}
	})

	t.Run("quotes commas", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		tbl := Table{Header: []string{"a"}, Rows: [][]string{{"x,y"}}}
		if err := NewCSVWriter(&buf, WithoutHeader()).Write(tbl); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := buf.String(); got != "\"x,y\"\n" {
			t.Errorf("expected quoted cell, got %q", got)
		}
	})
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := NewMarkdownWriter(&buf).Write(RepositoriesTable(createTestRepositories())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "# repositories") {
		t.Error("expected output to contain title")
	}
	if !strings.Contains(output, "stars") {
		t.Error("expected output to contain header")
	}
	if !strings.Contains(output, `beta\|gamma`) {
		t.Error("expected pipe in cell to be escaped")
	}
	if !strings.Contains(output, "2 rows") {
		t.Error("expected output to contain row count")
	}
}

func TestEscapeCell(t *testing.T) {
	t.Parallel()

	if got := escapeCell("a|b\nc"); got != `a\|b c` {
		t.Errorf("expected %q, got %q", `a\|b c`, got)
	}
}

func TestXLSXWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := NewXLSXWriter(&buf).Write(RepositoriesTable(createTestRepositories())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("output is not a valid workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) != 1 || sheets[0] != "repositories" {
		t.Fatalf("expected single sheet repositories, got %v", sheets)
	}

	rows, err := f.GetRows("repositories")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "id" {
		t.Errorf("expected header id, got %s", rows[0][0])
	}
	if rows[1][1] != "alpha" {
		t.Errorf("expected alpha, got %s", rows[1][1])
	}

	stars, err := f.GetCellValue("repositories", "D2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stars != "1500" {
		t.Errorf("expected 1500, got %s", stars)
	}
}

func TestSheetName(t *testing.T) {
	t.Parallel()

	if got := sheetName(""); got != "Sheet1" {
		t.Errorf("expected Sheet1, got %s", got)
	}
	if got := sheetName(strings.Repeat("x", 40)); len(got) != maxSheetName {
		t.Errorf("expected %d characters, got %d", maxSheetName, len(got))
	}
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes objects keyed by column", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := NewJSONWriter(&buf).Write(RepositoriesTable(createTestRepositories())); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var records []map[string]any
		if err := json.Unmarshal(buf.Bytes(), &records); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
		if records[0]["name"] != "alpha" {
			t.Errorf("expected alpha, got %v", records[0]["name"])
		}
		if stars, ok := records[0]["stars"].(float64); !ok || stars != 1500 {
			t.Errorf("expected numeric stars 1500, got %v", records[0]["stars"])
		}
	})

	t.Run("empty numeric cell is null", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		joined := []store.RepositoryContributor{{Repository: createTestRepositories()[0]}}
		if err := NewJSONWriter(&buf).Write(JoinedTable(joined)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), `"contributions":null`) {
			t.Errorf("expected null contributions, got %s", buf.String())
		}
	})

	t.Run("empty table is an empty array", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := NewJSONWriter(&buf).Write(RepositoriesTable(nil)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := strings.TrimSpace(buf.String()); got != "[]" {
			t.Errorf("expected [], got %s", got)
		}
	})
}

func TestWithIndent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewJSONWriter(&buf, WithIndent("", "\t"))
	if err := w.Write(ContributorsTable([]model.Contributor{{Login: "alice", Contributions: 3}})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "\n\t{") {
		t.Errorf("expected tab indentation, got %q", buf.String())
	}
}

func TestNewWriter(t *testing.T) {
	t.Parallel()

	for _, f := range Formats {
		w, err := NewWriter(f, &bytes.Buffer{}, true)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", f, err)
		}
		if w == nil {
			t.Errorf("%s: expected writer", f)
		}
	}

	if _, err := NewWriter(Format("pdf"), &bytes.Buffer{}, true); err == nil {
		t.Error("expected error for unsupported format")
	}

	var buf bytes.Buffer
	w, err := NewWriter(FormatCSV, &buf, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.Write(ContributorsTable([]model.Contributor{{Login: "alice", Contributions: 3}})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := buf.String(); got != "alice,3\n" {
		t.Errorf("expected headerless row, got %q", got)
	}
}
