package tools

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

type TruncateMode string

const (
	TruncateHead   TruncateMode = "head"
	TruncateTail   TruncateMode = "tail"
	TruncateMiddle TruncateMode = "middle"
	TruncateSmart  TruncateMode = "smart"
)

// Truncate caps content at roughly maxLen bytes, marking what was dropped.
// Cuts never split a UTF-8 sequence.
func Truncate(content string, maxLen int, mode TruncateMode) string {
	if maxLen <= 0 || len(content) <= maxLen {
		return content
	}

	switch mode {
	case TruncateHead:
		return truncateHead(content, maxLen)
	case TruncateTail:
		return truncateTail(content, maxLen)
	case TruncateMiddle:
		return truncateMiddle(content, maxLen)
	default:
		return truncateSmart(content, maxLen)
	}
}

// truncateHead keeps the beginning.
func truncateHead(content string, maxLen int) string {
	marker := fmt.Sprintf("\n[... %d chars omitted]", len(content)-maxLen)
	keep := maxLen - len(marker)
	if keep < 0 {
		keep = 0
	}
	return prefix(content, keep) + marker
}

// truncateTail keeps the end.
func truncateTail(content string, maxLen int) string {
	marker := fmt.Sprintf("[%d chars omitted ...]\n", len(content)-maxLen)
	keep := maxLen - len(marker)
	if keep < 0 {
		keep = 0
	}
	return marker + suffix(content, keep)
}

func truncateMiddle(content string, maxLen int) string {
	marker := fmt.Sprintf("\n[... %d chars ...]\n", len(content)-maxLen)
	keep := maxLen - len(marker)
	if keep < 0 {
		keep = 0
	}
	return prefix(content, keep/2) + marker + suffix(content, keep-keep/2)
}

// truncateSmart keeps whole lines from the top and reports how many were
// dropped. A single oversized line falls back to a head cut.
func truncateSmart(content string, maxLen int) string {
	lines := strings.Split(content, "\n")

	var b strings.Builder
	kept := 0
	for _, line := range lines {
		if b.Len()+len(line)+1 > maxLen {
			break
		}
		if kept > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		kept++
	}

	if kept == 0 {
		return truncateHead(content, maxLen)
	}

	indicator := fmt.Sprintf("\n... (%d more lines)", len(lines)-kept)
	out := b.String()
	if len(out)+len(indicator) > maxLen {
		out = prefix(out, maxLen-len(indicator))
	}
	return out + indicator
}

func prefix(s string, n int) string {
	if n >= len(s) {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func suffix(s string, n int) string {
	if n >= len(s) {
		return s
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}
