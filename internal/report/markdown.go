package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/markdown"
)

// MarkdownWriter outputs a table as a Markdown document.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs t in Markdown format.
func (w *MarkdownWriter) Write(t Table) error {
	md := markdown.NewMarkdown(w.output)

	md.H1(t.Name)
	md.PlainText("")

	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = escapeCell(cell)
		}
		rows[i] = cells
	}
	md.Table(markdown.TableSet{
		Header: t.Header,
		Rows:   rows,
	})
	md.PlainText("")
	md.PlainText(fmt.Sprintf("%d rows", len(t.Rows)))

	return md.Build()
}

// escapeCell keeps a value from breaking the table layout.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
