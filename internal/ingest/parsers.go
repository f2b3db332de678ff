package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"scoreboard/internal/apperr"
)

// Parser turns an uploaded file into raw records, header included.
type Parser interface {
	Parse(data []byte) ([][]string, error)
}

// GetParser picks a parser by file extension. Files without an extension are
// treated as CSV.
func GetParser(fileName string) (Parser, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv", ".txt", "":
		return CSVParser{}, nil
	case ".xlsx":
		return XLSXParser{}, nil
	default:
		return nil, apperr.Validation("file", "unsupported file type: %s (must be .csv or .xlsx)", fileName)
	}
}

type CSVParser struct{}

func (CSVParser) Parse(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	// row width is checked against the header later, with a better message
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, apperr.Validation("file", "invalid CSV: %v", err)
	}
	return records, nil
}

type XLSXParser struct{}

// Parse reads the first sheet. Trailing empty cells are dropped by excelize,
// so a row with an empty score fails the width check.
func (XLSXParser) Parse(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.Validation("file", "failed to parse XLSX: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperr.Validation("file", "XLSX file contains no sheets")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	return rows, nil
}
