package dbinspect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	_ "modernc.org/sqlite"

	"github.com/alucardeht/spreadsheet-agent/internal/logger"
)

var log = logger.ForComponent("dbinspect")

const (
	cacheSize = 128
	cacheTTL  = 30 * time.Second

	DefaultQueryLimit = 100
	MaxQueryLimit     = 1000
	sampleRowCount    = 3
)

// Inspector answers questions about the imported database over a
// read-only handle.
type Inspector struct {
	db    *sql.DB
	path  string
	cache *expirable.LRU[string, any]
}

// Open connects to the database at path without write access. The file
// must already exist.
func Open(path string) (*Inspector, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(abs); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrDatabaseMissing, path)
	}

	db, err := sql.Open("sqlite", readOnlyDSN(abs))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s read-only: %w", path, err)
	}

	return New(db, abs), nil
}

// New wraps an existing handle. The caller is responsible for it being
// read-only.
func New(db *sql.DB, path string) *Inspector {
	return &Inspector{
		db:    db,
		path:  path,
		cache: expirable.NewLRU[string, any](cacheSize, nil, cacheTTL),
	}
}

func readOnlyDSN(path string) string {
	escaped := strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23").Replace(filepath.ToSlash(path))
	return "file:" + escaped + "?mode=ro&_pragma=query_only(1)&_pragma=busy_timeout(5000)"
}

func (in *Inspector) Path() string {
	return in.path
}

func (in *Inspector) Close() error {
	return in.db.Close()
}

// Invalidate drops every cached answer. It is called after imports.
func (in *Inspector) Invalidate() {
	in.cache.Purge()
}

// ListTablesAndViews skips SQLite's internal objects.
func (in *Inspector) ListTablesAndViews(ctx context.Context) (*Objects, error) {
	log.Info("Listing tables and views")

	rows, err := in.db.QueryContext(ctx,
		`SELECT type, name FROM sqlite_master WHERE type IN ('table', 'view') ORDER BY name`)
	if err != nil {
		log.Error("Failed to list tables and views", "error", err)
		return nil, err
	}
	defer rows.Close()

	objects := &Objects{Tables: []string{}, Views: []string{}}
	for rows.Next() {
		var typ, name string
		if err := rows.Scan(&typ, &name); err != nil {
			return nil, err
		}
		if strings.Contains(name, "sqlite_") {
			continue
		}
		if typ == "table" {
			objects.Tables = append(objects.Tables, name)
		} else {
			objects.Views = append(objects.Views, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	log.Debug("Finished listing tables and views", "tables", len(objects.Tables), "views", len(objects.Views))
	return objects, nil
}

func (in *Inspector) objectExists(ctx context.Context, name string) (bool, error) {
	var n int
	err := in.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type IN ('table', 'view') AND name = ?`, name).Scan(&n)
	return n > 0, err
}

func (in *Inspector) ObjectColumns(ctx context.Context, name string) ([]ColumnInfo, error) {
	log.Info("Getting object columns", "object_name", name)

	key := "columns:" + name
	if cached, ok := in.cache.Get(key); ok {
		return cached.([]ColumnInfo), nil
	}

	exists, err := in.objectExists(ctx, name)
	if err != nil {
		log.Error("Failed to get object columns", "object_name", name, "error", err)
		return nil, err
	}
	if !exists {
		log.Warn("Object not found for columns", "object_name", name)
		return nil, &NotFoundError{Kind: "Object", Name: name}
	}

	rows, err := in.db.QueryContext(ctx, "PRAGMA table_info("+quoteIdent(name)+")")
	if err != nil {
		log.Error("Failed to get object columns", "object_name", name, "error", err)
		return nil, err
	}
	defer rows.Close()

	columns := []ColumnInfo{}
	for rows.Next() {
		var cid, notNull, pk int
		var colName string
		var colType sql.NullString
		var dflt any
		if err := rows.Scan(&cid, &colName, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		columns = append(columns, ColumnInfo{Name: colName, Type: colType.String})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	in.cache.Add(key, columns)
	log.Debug("Finished getting object columns", "object_name", name, "columns", len(columns))
	return columns, nil
}

func (in *Inspector) ObjectSummary(ctx context.Context, name string) (*Summary, error) {
	log.Info("Getting object summary", "object_name", name)

	key := "summary:" + name
	if cached, ok := in.cache.Get(key); ok {
		return cached.(*Summary), nil
	}

	exists, err := in.objectExists(ctx, name)
	if err != nil {
		log.Error("Failed to get object summary", "object_name", name, "error", err)
		return nil, err
	}
	if !exists {
		log.Warn("Object not found for summary", "object_name", name)
		return nil, &NotFoundError{Kind: "Object", Name: name}
	}

	summary := &Summary{SampleRows: []map[string]any{}}
	if err := in.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteIdent(name)).Scan(&summary.RowCount); err != nil {
		log.Error("Failed to get object summary", "object_name", name, "error", err)
		return nil, err
	}

	result, err := in.collect(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", quoteIdent(name), sampleRowCount), sampleRowCount)
	if err != nil {
		log.Error("Failed to get object summary", "object_name", name, "error", err)
		return nil, err
	}
	for _, row := range result.Rows {
		sample := make(map[string]any, len(result.Columns))
		for i, col := range result.Columns {
			sample[col] = row[i]
		}
		summary.SampleRows = append(summary.SampleRows, sample)
	}

	in.cache.Add(key, summary)
	log.Debug("Finished getting object summary", "object_name", name, "row_count", summary.RowCount)
	return summary, nil
}

func (in *Inspector) ViewDefinition(ctx context.Context, name string) (string, error) {
	log.Info("Getting view definition", "view_name", name)

	var def sql.NullString
	err := in.db.QueryRowContext(ctx,
		`SELECT sql FROM sqlite_master WHERE type = 'view' AND name = ?`, name).Scan(&def)
	if errors.Is(err, sql.ErrNoRows) {
		log.Warn("View not found", "view_name", name)
		return "", &NotFoundError{Kind: "View", Name: name}
	}
	if err != nil {
		log.Error("Failed to get view definition", "view_name", name, "error", err)
		return "", err
	}

	return def.String, nil
}

// Query runs one read-only statement and returns at most limit rows.
func (in *Inspector) Query(ctx context.Context, query string, limit int) (*QueryResult, error) {
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	if limit > MaxQueryLimit {
		limit = MaxQueryLimit
	}

	stmt, err := checkReadOnly(query)
	if err != nil {
		return nil, err
	}

	log.Info("Running read-only query", "limit", limit)
	return in.collect(ctx, stmt, limit)
}

func (in *Inspector) collect(ctx context.Context, query string, limit int) (*QueryResult, error) {
	rows, err := in.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &QueryResult{Columns: columns, Rows: [][]any{}}
	for rows.Next() {
		if len(result.Rows) == limit {
			result.Truncated = true
			break
		}

		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}

	return result, rows.Err()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
