package pipeline

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"variation-pipeline/internal/model"
	"variation-pipeline/pkg/utils"
)

// WriteTable writes a flat table as CSV, header first. A table without
// columns produces an empty file.
func WriteTable(path string, table *model.FlatTable) error {
	var buf bytes.Buffer
	if len(table.Columns) > 0 {
		writer := csv.NewWriter(&buf)
		if err := writer.WriteAll(table.Records()); err != nil {
			return fmt.Errorf("failed to encode %s: %w", path, err)
		}
	}
	if err := utils.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ReadTable reads a CSV written by WriteTable. The table is named after the file stem.
// Carriage returns inside quoted cells survive the read; a header that names
// the same column twice is rejected with ErrDuplicateColumn.
func ReadTable(path string) (*model.FlatTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	data, escaped := escapeQuotedCR(data)
	field := func(s string) string { return s }
	if escaped {
		field = unescapeQuotedCR
	}

	table := &model.FlatTable{
		Name:    utils.Stem(path),
		Columns: make([]string, 0),
		Rows:    make([]model.FlatRow, 0),
	}

	reader := csv.NewReader(bytes.NewReader(data))
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return table, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		h = field(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		if seen[h] {
			return nil, fmt.Errorf("%s: %w: %q", path, ErrDuplicateColumn, h)
		}
		seen[h] = true
		table.Columns = append(table.Columns, h)
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		row := make(model.FlatRow, len(header))
		for i, c := range table.Columns {
			row[c] = field(record[i])
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// crEscape marks an escaped byte: crEscape 'r' is a CR from inside quotes,
// crEscape crEscape is a literal crEscape.
const crEscape = '\x00'

// escapeQuotedCR hides CRs inside quoted fields from encoding/csv, which
// folds a quoted "\r\n" into "\n". It reports whether data was rewritten.
func escapeQuotedCR(data []byte) ([]byte, bool) {
	if bytes.IndexByte(data, '\r') < 0 {
		return data, false
	}
	out := make([]byte, 0, len(data)+16)
	inQuotes := false
	for _, b := range data {
		switch {
		case b == '"':
			inQuotes = !inQuotes
			out = append(out, b)
		case b == '\r' && inQuotes:
			out = append(out, crEscape, 'r')
		case b == crEscape:
			out = append(out, crEscape, crEscape)
		default:
			out = append(out, b)
		}
	}
	return out, true
}

func unescapeQuotedCR(s string) string {
	if strings.IndexByte(s, crEscape) < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == crEscape && i+1 < len(s) {
			i++
			if s[i] == 'r' {
				b.WriteByte('\r')
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
