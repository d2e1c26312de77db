package tools

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateShortContentUnchanged(t *testing.T) {
	for _, mode := range []TruncateMode{TruncateHead, TruncateTail, TruncateMiddle, TruncateSmart} {
		if got := Truncate("short", 100, mode); got != "short" {
			t.Errorf("%s: expected unchanged, got %q", mode, got)
		}
	}
}

func TestTruncateModes(t *testing.T) {
	content := strings.Repeat("a", 200) + strings.Repeat("z", 200)

	head := Truncate(content, 100, TruncateHead)
	if !strings.HasPrefix(head, "aaaa") || !strings.Contains(head, "omitted") {
		t.Errorf("head: %q", head)
	}

	tail := Truncate(content, 100, TruncateTail)
	if !strings.HasSuffix(tail, "zzzz") {
		t.Errorf("tail: %q", tail)
	}

	middle := Truncate(content, 100, TruncateMiddle)
	if !strings.HasPrefix(middle, "aaaa") || !strings.HasSuffix(middle, "zzzz") {
		t.Errorf("middle: %q", middle)
	}

	for _, out := range []string{head, tail, middle} {
		if len(out) > 100 {
			t.Errorf("expected at most 100 bytes, got %d", len(out))
		}
	}
}

func TestTruncateSmartKeepsWholeLines(t *testing.T) {
	var lines []string
	for i := 0; i < 50; i++ {
		lines = append(lines, "line of text")
	}
	out := Truncate(strings.Join(lines, "\n"), 120, TruncateSmart)

	if !strings.Contains(out, "more lines)") {
		t.Errorf("expected line indicator, got %q", out)
	}
	for _, line := range strings.Split(out, "\n") {
		if line != "line of text" && !strings.HasPrefix(line, "...") {
			t.Errorf("partial line %q", line)
		}
	}
}

func TestTruncateKeepsRunesIntact(t *testing.T) {
	content := strings.Repeat("é", 300)
	for _, mode := range []TruncateMode{TruncateHead, TruncateTail, TruncateMiddle, TruncateSmart} {
		out := Truncate(content, 101, mode)
		if !utf8.ValidString(out) {
			t.Errorf("%s: produced invalid UTF-8", mode)
		}
	}
}
