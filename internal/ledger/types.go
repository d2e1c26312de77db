package ledger

import "time"

type Status string

const (
	StatusImported Status = "imported"
	StatusFailed   Status = "failed"
	StatusRemoved  Status = "removed"
)

// Entry records the last import attempt for one spreadsheet file.
type Entry struct {
	ID           int64     `json:"id" yaml:"id"`
	Path         string    `json:"path" yaml:"path"`
	ContentHash  string    `json:"content_hash" yaml:"content_hash"`
	Encoding     string    `json:"encoding,omitempty" yaml:"encoding,omitempty"`
	Format       string    `json:"format" yaml:"format"`
	TableName    string    `json:"table_name" yaml:"table_name"`
	Sheet        string    `json:"sheet,omitempty" yaml:"sheet,omitempty"`
	RowCount     int64     `json:"row_count" yaml:"row_count"`
	ColumnCount  int       `json:"column_count" yaml:"column_count"`
	SkippedLines int       `json:"skipped_lines" yaml:"skipped_lines"`
	Status       Status    `json:"status" yaml:"status"`
	ErrorMessage string    `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	ImportedAt   time.Time `json:"imported_at" yaml:"imported_at"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"updated_at"`
}

type Stats struct {
	TotalFiles     int       `json:"total_files" yaml:"total_files"`
	ImportedFiles  int       `json:"imported_files" yaml:"imported_files"`
	FailedFiles    int       `json:"failed_files" yaml:"failed_files"`
	RemovedFiles   int       `json:"removed_files" yaml:"removed_files"`
	TotalRows      int64     `json:"total_rows" yaml:"total_rows"`
	LastImportedAt time.Time `json:"last_imported_at" yaml:"last_imported_at"`
}
