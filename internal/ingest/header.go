package ingest

import (
	"fmt"
	"strings"
)

// normalizeHeader names blank header cells "Unnamed: <i>" and renames
// repeats to "<name>.1", "<name>.2". SQLite column names are case
// insensitive, so repeats are detected ignoring case.
func normalizeHeader(raw []string) []string {
	header := make([]string, len(raw))
	seen := make(map[string]bool, len(raw))
	counts := make(map[string]int)

	for i, name := range raw {
		if strings.TrimSpace(name) == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}

		key := strings.ToLower(name)
		if seen[key] {
			base := name
			n := counts[key]
			for {
				n++
				name = fmt.Sprintf("%s.%d", base, n)
				if !seen[strings.ToLower(name)] {
					break
				}
			}
			counts[key] = n
		}

		seen[strings.ToLower(name)] = true
		header[i] = name
	}

	return header
}

// padRecords extends short records with empty cells, which become NULL.
func padRecords(records [][]string, width int) {
	for i, rec := range records {
		if len(rec) < width {
			padded := make([]string, width)
			copy(padded, rec)
			records[i] = padded
		}
	}
}

func buildTable(source string, header []string, records [][]string) *Table {
	padRecords(records, len(header))
	columns, rows := InferColumns(header, records)
	return &Table{
		Name:    TableNameForPath(source),
		Columns: columns,
		Rows:    rows,
		Source:  source,
	}
}
