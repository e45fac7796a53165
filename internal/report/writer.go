package report

import (
	"fmt"
	"io"
	"strings"
)

// Writer renders a Table to its output.
type Writer interface {
	Write(t Table) error
}

// Format is an export file format.
type Format string

const (
	// FormatCSV is comma-separated values with a header row.
	FormatCSV Format = "csv"
	// FormatMarkdown is a Markdown document with one table.
	FormatMarkdown Format = "markdown"
	// FormatXLSX is an Excel workbook with one sheet.
	FormatXLSX Format = "xlsx"
	// FormatJSON is an array of objects keyed by column name.
	FormatJSON Format = "json"
)

// Formats lists every supported format.
var Formats = []Format{FormatCSV, FormatMarkdown, FormatXLSX, FormatJSON}

// ParseFormat accepts a format name or a common alias ("md").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported format %q: use csv, markdown, xlsx or json", s)
	}
}

// Extension returns the file extension for the format, with the dot.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatXLSX:
		return ".xlsx"
	case FormatJSON:
		return ".json"
	default:
		return ".csv"
	}
}

// Appendable reports whether output in this format can be appended to an
// existing file.
func (f Format) Appendable() bool {
	return f == FormatCSV
}

// NewWriter returns the Writer for format. withHeader only affects CSV.
func NewWriter(format Format, output io.Writer, withHeader bool) (Writer, error) {
	switch format {
	case FormatCSV:
		if withHeader {
			return NewCSVWriter(output), nil
		}
		return NewCSVWriter(output, WithoutHeader()), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output), nil
	case FormatXLSX:
		return NewXLSXWriter(output), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint()), nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
