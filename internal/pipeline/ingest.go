package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"variation-pipeline/pkg/utils"

	"github.com/xuri/excelize/v2"
)

// ReadIdentifiers reads the identifier column of a spreadsheet (.xlsx/.xlsm,
// first sheet) or CSV file. Values are trimmed, blank cells skipped and
// duplicates kept in order.
func ReadIdentifiers(path, column string) ([]string, error) {
	var rows [][]string
	var err error

	switch utils.GetFileType(path) {
	case "excel":
		rows, err = readExcelRows(path)
	case "csv":
		rows, err = readCSVRows(path)
	default:
		return nil, fmt.Errorf("unsupported input file type: %s", path)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %q in %s (file is empty)", ErrIdentifierColumn, column, path)
	}

	idx := -1
	for i, h := range rows[0] {
		cleanHeader := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if cleanHeader == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q in %s", ErrIdentifierColumn, column, path)
	}

	ids := make([]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if idx >= len(row) {
			continue
		}
		id := strings.TrimSpace(row[idx])
		if id == "" {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func readExcelRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q of %s: %w", sheets[0], path, err)
	}
	return rows, nil
}

func readCSVRows(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("CSV read error in %s: %w", path, err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}
