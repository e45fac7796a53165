package report

import (
	"encoding/json"
	"io"
	"strconv"
)

// JSONWriter outputs a table as an array of objects keyed by column name.
// This format is designed for tool integration and programmatic processing.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs t as JSON. Integer columns become JSON numbers and empty
// integer cells become null.
func (w *JSONWriter) Write(t Table) error {
	records := make([]map[string]any, len(t.Rows))
	for i, row := range t.Rows {
		record := make(map[string]any, len(t.Header))
		for j, name := range t.Header {
			var v any
			if j < len(row) {
				v = row[j]
			}
			if t.isNumeric(j) {
				v = nil
				if j < len(row) {
					if n, err := strconv.ParseInt(row[j], 10, 64); err == nil {
						v = n
					}
				}
			}
			record[name] = v
		}
		records[i] = record
	}

	enc := json.NewEncoder(w.output)
	if w.indent {
		enc.SetIndent(w.indentPrefix, w.indentString)
	}
	return enc.Encode(records)
}
