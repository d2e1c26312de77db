package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadCSV(t *testing.T) {
	path := writeFile(t, t.TempDir(), "order-details.csv", []byte(
		"orderID,productID,unitPrice,quantity,discount\n"+
			"10248,11,14,12,0\n"+
			"10248,42,9.8,10,0\n"+
			"10249,14,18.6,9,0,extra\n"+
			"10250,41,7.7\n"))

	table, err := ReadCSV(path, CSVOptions{OnBadLines: BadLinesSkip})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}

	if table.Name != "order_details" {
		t.Errorf("unexpected table name %s", table.Name)
	}
	if len(table.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(table.Rows))
	}
	if table.SkippedLines != 1 {
		t.Errorf("expected 1 skipped line, got %d", table.SkippedLines)
	}
	if table.Columns[2].Type != TypeReal || table.Columns[0].Type != TypeInteger {
		t.Errorf("unexpected column types: %+v", table.Columns)
	}
	if table.Rows[2][3] != nil || table.Rows[2][4] != nil {
		t.Errorf("short row should be padded with NULL: %#v", table.Rows[2])
	}
	if table.Encoding != "ascii" {
		t.Errorf("unexpected encoding %s", table.Encoding)
	}
}

func TestReadCSVErrorPolicy(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.csv", []byte("a,b\n1,2\n3,4,5\n"))

	_, err := ReadCSV(path, CSVOptions{OnBadLines: BadLinesError})
	if !errors.Is(err, ErrBadLine) {
		t.Fatalf("expected ErrBadLine, got %v", err)
	}
}

func TestReadCSVEmpty(t *testing.T) {
	path := writeFile(t, t.TempDir(), "empty.csv", nil)

	_, err := ReadCSV(path, CSVOptions{})
	if !errors.Is(err, ErrEmptySpreadsheet) {
		t.Fatalf("expected ErrEmptySpreadsheet, got %v", err)
	}
}

func TestReadCSVLegacyCharset(t *testing.T) {
	path := writeFile(t, t.TempDir(), "ventes.csv", []byte("produit,prix\ncaf\xe9,2.5\ncr\xe8me,3\n"))

	table, err := ReadCSV(path, CSVOptions{})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if table.Encoding != "windows-1252" {
		t.Errorf("unexpected encoding %s", table.Encoding)
	}
	if table.Rows[0][0] != "café" || table.Rows[1][0] != "crème" {
		t.Errorf("text not decoded: %#v", table.Rows)
	}
}

func TestReadCSVUTF16(t *testing.T) {
	text := "id,name\n1,ünï\n"
	data := []byte{0xFF, 0xFE}
	for _, r := range text {
		data = append(data, byte(r), byte(r>>8))
	}
	path := writeFile(t, t.TempDir(), "wide.csv", data)

	table, err := ReadCSV(path, CSVOptions{})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if table.Columns[0].Name != "id" || table.Rows[0][1] != "ünï" {
		t.Errorf("unexpected table: %+v %#v", table.Columns, table.Rows)
	}
}
