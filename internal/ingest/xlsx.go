package ingest

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadXLSX decodes the first worksheet of a workbook. Cells are read with
// their display formatting. Blank rows are dropped and the first non-blank
// row is the header.
func ReadXLSX(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrSheetMissing
	}
	sheet := sheets[0]

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	defer rows.Close()

	var rawHeader []string
	var records [][]string
	width := 0

	for rows.Next() {
		cells, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		if blankRow(cells) {
			continue
		}
		if rawHeader == nil {
			rawHeader = cells
			width = len(cells)
			continue
		}
		if len(cells) > width {
			width = len(cells)
		}
		records = append(records, cells)
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	if rawHeader == nil {
		return nil, ErrEmptySpreadsheet
	}

	for len(rawHeader) < width {
		rawHeader = append(rawHeader, "")
	}

	table := buildTable(path, normalizeHeader(rawHeader), records)
	table.Sheet = sheet
	return table, nil
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
