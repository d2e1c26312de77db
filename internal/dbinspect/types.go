package dbinspect

import (
	"errors"
	"fmt"
)

var (
	ErrObjectNotFound  = errors.New("object not found")
	ErrViewNotFound    = errors.New("view not found")
	ErrReadOnlyQuery   = errors.New("only a single SELECT, WITH or VALUES statement is allowed")
	ErrDatabaseMissing = errors.New("database file does not exist; run the import first")
)

// NotFoundError carries the message shown to callers, e.g.
// "Object 'orders' not found.".
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' not found.", e.Kind, e.Name)
}

func (e *NotFoundError) Is(target error) bool {
	switch e.Kind {
	case "View":
		return target == ErrViewNotFound
	default:
		return target == ErrObjectNotFound
	}
}

type Objects struct {
	Tables []string `json:"tables" yaml:"tables"`
	Views  []string `json:"views" yaml:"views"`
}

type ColumnInfo struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

type Summary struct {
	RowCount   int64            `json:"row_count" yaml:"row_count"`
	SampleRows []map[string]any `json:"sample_rows" yaml:"sample_rows"`
}

type QueryResult struct {
	Columns   []string `json:"columns" yaml:"columns"`
	Rows      [][]any  `json:"rows" yaml:"rows"`
	Truncated bool     `json:"truncated" yaml:"truncated"`
}
