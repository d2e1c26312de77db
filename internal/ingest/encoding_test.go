package ingest

import (
	"io"
	"strings"
	"testing"
)

func TestDetectEncoding(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		want   string
		hasBOM bool
	}{
		{"empty", nil, "utf-8", false},
		{"ascii", []byte("id,name\n1,foo\n"), "ascii", false},
		{"utf8", []byte("id,name\n1,café\n"), "utf-8", false},
		{"utf8 bom", append([]byte{0xEF, 0xBB, 0xBF}, "id\n1\n"...), "utf-8", true},
		{"utf16le bom", []byte{0xFF, 0xFE, 'i', 0, 'd', 0}, "utf-16le", true},
		{"utf16le no bom", []byte{'i', 0, 'd', 0, '\n', 0, '1', 0}, "utf-16le", false},
		{"windows-1252", []byte("id,name\n1,caf\xe9 cr\xe8me\n"), "windows-1252", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectEncoding(tt.data)
			if got.Encoding != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got.Encoding)
			}
			if got.HasBOM != tt.hasBOM {
				t.Errorf("expected HasBOM=%v", tt.hasBOM)
			}
		})
	}
}

func TestNewUTF8Reader(t *testing.T) {
	data := []byte("caf\xe9")
	detected := DetectEncoding(data)

	out, err := io.ReadAll(NewUTF8Reader(strings.NewReader(string(data)), detected))
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "café" {
		t.Errorf("expected café, got %q", out)
	}

	bom := append([]byte{0xEF, 0xBB, 0xBF}, "id"...)
	out, _ = io.ReadAll(NewUTF8Reader(strings.NewReader(string(bom)), DetectEncoding(bom)))
	if string(out) != "id" {
		t.Errorf("BOM not stripped: %q", out)
	}
}
