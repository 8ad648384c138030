package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadSheet decodes an uploaded .xlsx or .csv file into a raw cell grid.
// Header detection happens later in the structural parser, so the whole
// sheet is returned as-is.
func ReadSheet(file io.Reader, fileName string) ([][]string, error) {
	lowerName := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(lowerName, ".xlsx"):
		return readExcelGrid(file)
	case strings.HasSuffix(lowerName, ".csv"):
		return readCSVGrid(file)
	default:
		return nil, structuralErrorf("unsupported file format %q: must be .csv or .xlsx", fileName)
	}
}

// readCSVGrid reads every CSV row, tolerating ragged row lengths.
func readCSVGrid(file io.Reader) ([][]string, error) {
	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, structuralErrorf("file contains no rows")
	}
	return rows, nil
}

// readExcelGrid reads the first sheet of an xlsx workbook.
func readExcelGrid(file io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(rows) == 0 {
		return nil, structuralErrorf("file contains no rows")
	}
	return rows, nil
}

// cellAt returns the trimmed cell at column idx, or "" when the row is too
// short or idx is -1.
func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
