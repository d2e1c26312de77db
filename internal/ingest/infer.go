package ingest

import (
	"math"
	"strconv"
	"strings"
)

// InferColumns picks INTEGER, REAL or TEXT per column and converts the
// cells. Blank cells are NULL and do not take part in inference; a column
// with no values at all is TEXT.
func InferColumns(header []string, records [][]string) ([]Column, [][]any) {
	columns := make([]Column, len(header))
	for j, name := range header {
		columns[j] = Column{Name: name, Type: inferType(records, j)}
	}

	rows := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, len(header))
		for j := range header {
			var cell string
			if j < len(rec) {
				cell = rec[j]
			}
			row[j] = convertCell(cell, columns[j].Type)
		}
		rows[i] = row
	}

	return columns, rows
}

func inferType(records [][]string, col int) ColumnType {
	allInt, allFloat := true, true
	values := 0

	for _, rec := range records {
		if col >= len(rec) {
			continue
		}
		v := strings.TrimSpace(rec[col])
		if v == "" {
			continue
		}
		values++

		if allInt {
			if _, ok := parseInt(v); !ok {
				allInt = false
			}
		}
		if allFloat {
			if _, ok := parseFloat(v); !ok {
				allFloat = false
			}
		}
		if !allInt && !allFloat {
			return TypeText
		}
	}

	switch {
	case values == 0:
		return TypeText
	case allInt:
		return TypeInteger
	case allFloat:
		return TypeReal
	default:
		return TypeText
	}
}

func convertCell(cell string, typ ColumnType) any {
	v := strings.TrimSpace(cell)
	if v == "" {
		return nil
	}

	switch typ {
	case TypeInteger:
		n, _ := parseInt(v)
		return n
	case TypeReal:
		f, _ := parseFloat(v)
		return f
	default:
		return cell
	}
}

func parseInt(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}

func parseFloat(s string) (float64, bool) {
	if strings.ContainsAny(s, "xX_pP") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
