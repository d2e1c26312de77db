package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

type BadLinePolicy string

const (
	BadLinesSkip  BadLinePolicy = "skip"
	BadLinesError BadLinePolicy = "error"
)

type CSVOptions struct {
	OnBadLines BadLinePolicy
}

// ReadCSV decodes a delimited text file. The first record is the header.
// Records wider than the header are bad lines; narrower ones are padded.
func ReadCSV(path string, opts CSVOptions) (*Table, error) {
	detected, err := ProbeFileEncoding(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(NewUTF8Reader(file, detected))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rawHeader, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptySpreadsheet
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header := normalizeHeader(rawHeader)

	var records [][]string
	skipped := 0
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		var parseErr *csv.ParseError
		switch {
		case errors.As(err, &parseErr):
			line := parseErr.StartLine
			if opts.OnBadLines == BadLinesError {
				return nil, fmt.Errorf("%w: line %d: %v", ErrBadLine, line, parseErr.Err)
			}
			skipped++
			log.Debug("skipping malformed line", "file", path, "line", line, "error", parseErr.Err)
			continue
		case err != nil:
			return nil, err
		}

		if len(rec) > len(header) {
			line, _ := reader.FieldPos(0)
			if opts.OnBadLines == BadLinesError {
				return nil, fmt.Errorf("%w: line %d: expected %d fields, saw %d", ErrBadLine, line, len(header), len(rec))
			}
			skipped++
			log.Debug("skipping bad line", "file", path, "line", line, "fields", len(rec), "expected", len(header))
			continue
		}

		records = append(records, rec)
	}

	if skipped > 0 {
		log.Warn("skipped bad lines", "file", path, "count", skipped)
	}

	table := buildTable(path, header, records)
	table.Encoding = detected.Encoding
	table.SkippedLines = skipped
	return table, nil
}
