package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrInputDirMissing   = errors.New("input directory does not exist")
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")
	ErrEmptySpreadsheet  = errors.New("spreadsheet has no header row")
	ErrBadLine           = errors.New("bad line")
	ErrSheetMissing      = errors.New("workbook has no sheets")
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
)

type Spreadsheet struct {
	Path   string `json:"path"`
	Format Format `json:"format"`
}

type ColumnType string

const (
	TypeInteger ColumnType = "INTEGER"
	TypeReal    ColumnType = "REAL"
	TypeText    ColumnType = "TEXT"
)

type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Table is a decoded spreadsheet ready to be written. Rows hold int64,
// float64, string or nil values matching Columns.
type Table struct {
	Name         string
	Columns      []Column
	Rows         [][]any
	Source       string
	Sheet        string
	Encoding     string
	SkippedLines int
}

type TableResult struct {
	File         string `json:"file" yaml:"file"`
	Table        string `json:"table" yaml:"table"`
	Sheet        string `json:"sheet,omitempty" yaml:"sheet,omitempty"`
	RowCount     int    `json:"row_count" yaml:"row_count"`
	Columns      int    `json:"columns" yaml:"columns"`
	Encoding     string `json:"encoding,omitempty" yaml:"encoding,omitempty"`
	SkippedLines int    `json:"skipped_lines,omitempty" yaml:"skipped_lines,omitempty"`
}

type FileError struct {
	File string
	Err  error
}

type fileErrorView struct {
	File  string `json:"file" yaml:"file"`
	Error string `json:"error" yaml:"error"`
}

func (e FileError) view() fileErrorView {
	v := fileErrorView{File: e.File}
	if e.Err != nil {
		v.Error = e.Err.Error()
	}
	return v
}

func (e FileError) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.view())
}

func (e FileError) MarshalYAML() (any, error) {
	return e.view(), nil
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e FileError) Unwrap() error {
	return e.Err
}

type Validation struct {
	Table    string `json:"table" yaml:"table"`
	RowCount int64  `json:"row_count" yaml:"row_count"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

type Report struct {
	Imported  []TableResult `json:"imported" yaml:"imported"`
	Unchanged []string      `json:"unchanged" yaml:"unchanged"`
	Failed    []FileError   `json:"failed" yaml:"failed"`
	Validated []Validation  `json:"validated" yaml:"validated"`
}
