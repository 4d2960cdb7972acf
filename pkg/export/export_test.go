package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slipDataset() Dataset {
	return Dataset{
		Headers: []string{"Code", "Title", "Credits"},
		Rows: []map[string]string{
			{"Code": "CS101", "Title": "Introduction to Programming", "Credits": "3"},
			{"Code": "MATH201", "Title": "Linear Algebra, Part I", "Credits": "4"},
		},
		Notes: []string{"Term: Fall 2024"},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(slipDataset())
	require.NoError(t, err)
	assert.Equal(t, "# Term: Fall 2024\nCode,Title,Credits\nCS101,Introduction to Programming,3\nMATH201,\"Linear Algebra, Part I\",4\n", string(out))
}

func TestCSVExporterNotesPrecedeHeaderAndParseAsComments(t *testing.T) {
	data := slipDataset()
	data.Notes = []string{"Ali Ahmed (23FA-003-SE)", "Term credits:\n 7 of 21"}

	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("# Ali Ahmed (23FA-003-SE)\n# Term credits: 7 of 21\nCode,")))

	reader := csv.NewReader(bytes.NewReader(out))
	reader.Comment = CSVComment
	records, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, data.Headers, records[0])
	assert.Equal(t, []string{"MATH201", "Linear Algebra, Part I", "4"}, records[2])
}

func TestCSVExporterWithoutNotes(t *testing.T) {
	data := slipDataset()
	data.Notes = nil
	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("Code,Title,Credits\n")))
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{}, "slip")
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(slipDataset(), "Registration slip")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestColumnWidths(t *testing.T) {
	data := slipDataset()
	assert.InDeltaSlice(t, []float64{190.0 / 3, 190.0 / 3, 190.0 / 3}, columnWidths(data), 0.001)

	data.Widths = []float64{1, 3, 1}
	assert.InDeltaSlice(t, []float64{38, 114, 38}, columnWidths(data), 0.001)

	data.Widths = []float64{1, 0, 1}
	assert.InDeltaSlice(t, []float64{190.0 / 3, 190.0 / 3, 190.0 / 3}, columnWidths(data), 0.001)
}

func TestPDFExporterPaginatesLongSlips(t *testing.T) {
	data := slipDataset()
	for i := 0; i < 80; i++ {
		data.Rows = append(data.Rows, map[string]string{"Code": "CS999", "Title": "A very long seminar title that will not fit inside a narrow column at all", "Credits": "1"})
	}
	data.Widths = []float64{1, 2, 1}
	out, err := NewPDFExporter().Render(data, "Registration slip")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	short, err := NewPDFExporter().Render(slipDataset(), "Registration slip")
	require.NoError(t, err)
	assert.Greater(t, len(out), len(short))
}
