package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

func FormatForPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, true
	case ".xlsx", ".xlsm":
		return FormatXLSX, true
	case ".xls":
		return FormatXLS, true
	default:
		return "", false
	}
}

// Matches reports whether the base name of path is selected by include and
// not rejected by exclude.
func Matches(path string, include, exclude []string) bool {
	base := filepath.Base(path)
	if _, ok := FormatForPath(base); !ok {
		return false
	}

	for _, pattern := range exclude {
		if matchFold(pattern, base) {
			return false
		}
	}

	for _, pattern := range include {
		if matchFold(pattern, base) {
			return true
		}
	}
	return false
}

func matchFold(pattern, name string) bool {
	if ok, _ := doublestar.Match(pattern, name); ok {
		return true
	}
	ok, _ := doublestar.Match(strings.ToLower(pattern), strings.ToLower(name))
	return ok
}

// Discover lists the spreadsheets at the top level of dir, sorted by path.
func Discover(dir string, include, exclude []string) ([]Spreadsheet, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrInputDirMissing, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}

	var sheets []Spreadsheet
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if !Matches(path, include, exclude) {
			continue
		}
		format, _ := FormatForPath(path)
		sheets = append(sheets, Spreadsheet{Path: path, Format: format})
	}

	sort.Slice(sheets, func(i, j int) bool { return sheets[i].Path < sheets[j].Path })

	files := make([]string, len(sheets))
	for i, s := range sheets {
		files[i] = s.Path
	}
	log.Info("Discovered spreadsheet files", "files", files)

	return sheets, nil
}
