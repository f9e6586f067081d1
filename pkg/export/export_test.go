package export

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRenderWritesBOMAndRows(t *testing.T) {
	out, err := NewCSVExporter().Render(Dataset{
		Headers: []string{"Student ID", "Total"},
		Rows:    []map[string]string{{"Student ID": "S1", "Total": "300"}},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, utf8BOM))
	assert.Equal(t, "Student ID,Total\nS1,300\n", string(out[len(utf8BOM):]))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestReadCSVNormalisesHeadersAndKeepsLines(t *testing.T) {
	input := "\xEF\xBB\xBFCourseId, Date ,price,studentId\nC1,2025-07-01,100,S1\n\nC2,2025-07-02,,S2\nC3\n"
	records, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, 2, records[0].Line)
	assert.Equal(t, "C1", records[0].Get("courseId"))
	assert.Equal(t, "2025-07-01", records[0].Get("date"))
	assert.Empty(t, records[0].Missing("courseId", "date", "price", "studentId"))

	assert.Equal(t, 4, records[1].Line)
	assert.Equal(t, []string{"price"}, records[1].Missing("courseId", "date", "price", "studentId"))

	assert.Equal(t, []string{"date", "price", "studentId"}, records[2].Missing("courseId", "date", "price", "studentId"))
}

func TestReadCSVKeepsReadingPastBrokenQuotes(t *testing.T) {
	input := "studentId,courseId,date,price\nS1,C1,2025-07-01,100\nS2,C\"1,2025-07-02,200\nS3,C1,2025-07-03,300\n"
	records, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.NoError(t, records[0].Err)
	assert.Equal(t, "S1", records[0].Get("studentId"))

	require.Error(t, records[1].Err)
	assert.Equal(t, 3, records[1].Line)
	assert.ErrorIs(t, records[1].Err, csv.ErrBareQuote)

	assert.NoError(t, records[2].Err)
	assert.Equal(t, 4, records[2].Line)
	assert.Equal(t, "S3", records[2].Get("studentId"))
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestBuildZipDeduplicatesNames(t *testing.T) {
	data, err := BuildZip([]ArchiveEntry{
		{Name: "2025_07_S1.pdf", Data: []byte("a")},
		{Name: "2025_07_S1.pdf", Data: []byte("b")},
		{Name: "2025_07_S2.pdf", Data: []byte("c")},
	})
	require.NoError(t, err)

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var names []string
	for _, f := range reader.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"2025_07_S1.pdf", "2025_07_S1_2.pdf", "2025_07_S2.pdf"}, names)
}

func TestStatementRendererProducesPDF(t *testing.T) {
	out, err := NewStatementRenderer("").Render(StatementDocument{
		Organization:     "Tuition Center",
		Title:            "Monthly Statement",
		PartyLabel:       "Student",
		PartyName:        "Amy Chen",
		PartyID:          "S1",
		Period:           "2025-07",
		CounterpartLabel: "Teacher",
		Lines: []StatementLine{
			{Date: "2025-07-02", Course: "3", Subject: "Math", Party: "Mr Lee", Amount: "200"},
			{Date: "2025-07-01", Course: "3", Subject: "Math", Party: "Mr Lee", Amount: "100"},
		},
		Total:  "300",
		Footer: "Pay by the 10th.",
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestStatementRendererRejectsEmpty(t *testing.T) {
	_, err := NewStatementRenderer("").Render(StatementDocument{PartyID: "S1"})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter("").Render(Dataset{
		Headers: []string{"Teacher", "Amount"},
		Rows:    []map[string]string{{"Teacher": "T1", "Amount": "500"}},
	}, "Revenue")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}
