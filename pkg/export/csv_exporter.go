package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
)

// Dataset defines tabular export content. Notes are free-form lines printed
// above the table; CSV writes them as comment lines. Widths are optional
// relative column weights aligned with Headers.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
	Notes   []string
	Widths  []float64
}

// CSVComment prefixes note lines. Readers skip them with csv.Reader.Comment.
const CSVComment = '#'

var errNoHeaders = errors.New("csv requires at least one header")

// CSVExporter renders a Dataset as CSV: note lines first, then the header
// row, then one record per row in header order.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the dataset.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, errNoHeaders
	}

	var buf bytes.Buffer
	for _, note := range data.Notes {
		buf.WriteRune(CSVComment)
		buf.WriteByte(' ')
		buf.WriteString(flattenNote(note))
		buf.WriteByte('\n')
	}

	w := csv.NewWriter(&buf)
	records := make([][]string, 0, len(data.Rows)+1)
	records = append(records, data.Headers)
	for _, row := range data.Rows {
		records = append(records, recordFor(data.Headers, row))
	}
	// WriteAll flushes.
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

func recordFor(headers []string, row map[string]string) []string {
	record := make([]string, len(headers))
	for i, h := range headers {
		record[i] = row[h]
	}
	return record
}

// flattenNote keeps a note on one comment line.
func flattenNote(note string) string {
	return strings.Join(strings.Fields(note), " ")
}
