package report

import (
	"encoding/csv"
	"io"
)

// CSVWriter outputs a header row followed by one row per record.
type CSVWriter struct {
	baseWriter

	// header controls whether the header row is written. Appending to an
	// existing file turns it off.
	header bool
}

// CSVWriterOption configures a CSVWriter.
type CSVWriterOption func(*CSVWriter)

// WithoutHeader suppresses the header row.
func WithoutHeader() CSVWriterOption {
	return func(w *CSVWriter) {
		w.header = false
	}
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer, opts ...CSVWriterOption) *CSVWriter {
	w := &CSVWriter{
		baseWriter: newBaseWriter(output),
		header:     true,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs t as CSV.
func (w *CSVWriter) Write(t Table) error {
	cw := csv.NewWriter(w.output)
	if w.header {
		if err := cw.Write(t.Header); err != nil {
			return err
		}
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}
