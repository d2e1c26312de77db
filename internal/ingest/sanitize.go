package ingest

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SanitizeTableName maps name onto ^[A-Za-z_][A-Za-z0-9_]*$. Accented
// letters are folded to their ASCII base first, so "Ventes_été" becomes
// "Ventes_ete" rather than "Ventes_t_".
func SanitizeTableName(name string) string {
	folded := foldToASCII(name)

	var b strings.Builder
	b.Grow(len(folded) + 1)
	for _, r := range folded {
		if isIdentChar(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}

	out := b.String()
	if out == "" {
		return "_"
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "_" + out
	}
	return out
}

// TableNameForPath derives the table name from the file name without its
// extension.
func TableNameForPath(path string) string {
	base := filepath.Base(path)
	return SanitizeTableName(strings.TrimSuffix(base, filepath.Ext(base)))
}

func isIdentChar(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}

func foldToASCII(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
