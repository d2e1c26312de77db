package ingest

import "testing"

func TestInferColumns(t *testing.T) {
	header := []string{"id", "price", "name", "empty", "mixed"}
	records := [][]string{
		{"1", "2.5", "Widget", "", "10"},
		{"007", "3", "Gadget", "", "n/a"},
		{"", "", "", "", ""},
	}

	columns, rows := InferColumns(header, records)

	wantTypes := []ColumnType{TypeInteger, TypeReal, TypeText, TypeText, TypeText}
	for i, want := range wantTypes {
		if columns[i].Type != want {
			t.Errorf("column %s: expected %s, got %s", columns[i].Name, want, columns[i].Type)
		}
	}

	if rows[1][0] != int64(7) {
		t.Errorf("expected int64 7, got %#v", rows[1][0])
	}
	if rows[1][1] != float64(3) {
		t.Errorf("expected float64 3, got %#v", rows[1][1])
	}
	if rows[0][4] != "10" {
		t.Errorf("text column should keep strings, got %#v", rows[0][4])
	}
	for j := range header {
		if rows[2][j] != nil {
			t.Errorf("blank cell %d should be NULL, got %#v", j, rows[2][j])
		}
	}
}

func TestInferRejectsSpecialFloats(t *testing.T) {
	columns, _ := InferColumns([]string{"v"}, [][]string{{"NaN"}, {"Inf"}})
	if columns[0].Type != TypeText {
		t.Errorf("expected TEXT, got %s", columns[0].Type)
	}
}

func TestNormalizeHeader(t *testing.T) {
	got := normalizeHeader([]string{"id", "", "id", "ID", " "})
	want := []string{"id", "Unnamed: 1", "id.1", "ID.2", "Unnamed: 4"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("header[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
