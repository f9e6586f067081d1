package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Record is one data row of an uploaded CSV keyed by normalised header. Err is
// set when the row itself could not be parsed; such a record carries no values.
type Record struct {
	Line   int
	Err    error
	values map[string]string
}

// Get returns the trimmed value for header, matched case-insensitively.
func (r Record) Get(header string) string {
	return r.values[normaliseHeader(header)]
}

// Missing lists which of the required headers are empty in this record.
func (r Record) Missing(required ...string) []string {
	var missing []string
	for _, h := range required {
		if r.Get(h) == "" {
			missing = append(missing, h)
		}
	}
	return missing
}

// NewRecord builds a record from explicit values, mainly for tests and
// programmatic imports.
func NewRecord(line int, values map[string]string) Record {
	normalised := make(map[string]string, len(values))
	for k, v := range values {
		normalised[normaliseHeader(k)] = strings.TrimSpace(v)
	}
	return Record{Line: line, values: normalised}
}

// ReadCSV parses an uploaded CSV with a header row. Ragged rows are accepted;
// absent cells read as empty so the caller can count them as invalid instead of
// rejecting the whole file. A row with broken quoting becomes a Record with Err
// set and reading continues with the next line.
func ReadCSV(r io.Reader) ([]Record, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv is empty")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range headers {
		headers[i] = normaliseHeader(headers[i])
	}

	var records []Record
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			records = append(records, Record{Line: parseErr.StartLine, Err: parseErr})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if isBlank(row) {
			continue
		}
		values := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(row) {
				values[h] = strings.TrimSpace(row[i])
			}
		}
		records = append(records, Record{Line: line, values: values})
	}
	return records, nil
}

func normaliseHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
