package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// sqliteMaxVariables is SQLITE_MAX_VARIABLE_NUMBER for the bundled build.
const sqliteMaxVariables = 32766

// OpenDatabase opens the target database for writing, creating the parent
// directory when needed.
func OpenDatabase(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}

type Writer struct {
	db        *sql.DB
	batchSize int
}

func NewWriter(db *sql.DB, batchSize int) *Writer {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Writer{db: db, batchSize: batchSize}
}

// Replace swaps table in atomically: the old table is dropped and the new
// one created and filled inside one transaction.
func (w *Writer) Replace(ctx context.Context, table *Table) error {
	if len(table.Columns) == 0 {
		return fmt.Errorf("table %s has no columns", table.Name)
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	name := QuoteIdent(table.Name)
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+name); err != nil {
		return fmt.Errorf("drop %s: %w", table.Name, err)
	}

	if _, err := tx.ExecContext(ctx, createTableSQL(table)); err != nil {
		return fmt.Errorf("create %s: %w", table.Name, err)
	}

	if err := w.insertRows(ctx, tx, table); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", table.Name, err)
	}
	return nil
}

func (w *Writer) insertRows(ctx context.Context, tx *sql.Tx, table *Table) error {
	width := len(table.Columns)
	perStmt := w.batchSize
	if limit := sqliteMaxVariables / width; perStmt > limit {
		perStmt = limit
	}
	if perStmt < 1 {
		perStmt = 1
	}

	var stmt *sql.Stmt
	stmtRows := 0
	defer func() {
		if stmt != nil {
			stmt.Close()
		}
	}()

	args := make([]any, 0, perStmt*width)
	for start := 0; start < len(table.Rows); start += perStmt {
		end := start + perStmt
		if end > len(table.Rows) {
			end = len(table.Rows)
		}
		n := end - start

		if stmt == nil || stmtRows != n {
			if stmt != nil {
				stmt.Close()
			}
			var err error
			stmt, err = tx.PrepareContext(ctx, insertSQL(table, n))
			if err != nil {
				return fmt.Errorf("prepare insert into %s: %w", table.Name, err)
			}
			stmtRows = n
		}

		args = args[:0]
		for _, row := range table.Rows[start:end] {
			args = append(args, row...)
		}

		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert into %s: %w", table.Name, err)
		}
	}

	return nil
}

// Drop removes a table if it exists.
func (w *Writer) Drop(ctx context.Context, name string) error {
	if _, err := w.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+QuoteIdent(name)); err != nil {
		return fmt.Errorf("drop %s: %w", name, err)
	}
	return nil
}

// QuoteIdent double-quotes an SQLite identifier.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func createTableSQL(table *Table) string {
	defs := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		defs[i] = QuoteIdent(col.Name) + " " + string(col.Type)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", QuoteIdent(table.Name), strings.Join(defs, ", "))
}

func insertSQL(table *Table, rows int) string {
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(table.Columns)), ", ") + ")"

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s VALUES ", QuoteIdent(table.Name))
	for i := 0; i < rows; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(placeholder)
	}
	return b.String()
}

// Validate counts the rows of each table. Failures are logged and recorded
// but do not stop the remaining checks.
func Validate(ctx context.Context, db *sql.DB, tables []string) []Validation {
	results := make([]Validation, 0, len(tables))
	for _, table := range tables {
		v := Validation{Table: table}
		err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+QuoteIdent(table)).Scan(&v.RowCount)
		if err != nil {
			v.Error = err.Error()
			log.Warn("Validation failed for table", "table", table, "error", err)
		} else {
			log.Info("Validated table", "table", table, "row_count", v.RowCount)
		}
		results = append(results, v)
	}
	return results
}
