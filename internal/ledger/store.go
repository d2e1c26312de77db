package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
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

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) initSchema() error {
	var cleanLines []string
	for _, line := range strings.Split(schemaSQL, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "--") && trimmed != "" {
			cleanLines = append(cleanLines, line)
		}
	}

	if _, err := s.db.Exec(strings.Join(cleanLines, "\n")); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	_, _ = s.db.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, SchemaVersion)
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Upsert(entry *Entry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if entry.ImportedAt.IsZero() && entry.Status == StatusImported {
		entry.ImportedAt = now
	}

	var importedAt any
	if !entry.ImportedAt.IsZero() {
		importedAt = entry.ImportedAt.UTC()
	}

	_, err := s.db.Exec(`
		INSERT INTO imports (path, content_hash, encoding, format, table_name, sheet, row_count,
			column_count, skipped_lines, status, error_message, imported_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			content_hash = excluded.content_hash,
			encoding = excluded.encoding,
			format = excluded.format,
			table_name = excluded.table_name,
			sheet = excluded.sheet,
			row_count = excluded.row_count,
			column_count = excluded.column_count,
			skipped_lines = excluded.skipped_lines,
			status = excluded.status,
			error_message = excluded.error_message,
			imported_at = COALESCE(excluded.imported_at, imports.imported_at),
			updated_at = excluded.updated_at
	`, entry.Path, entry.ContentHash, entry.Encoding, entry.Format, entry.TableName, entry.Sheet,
		entry.RowCount, entry.ColumnCount, entry.SkippedLines, string(entry.Status), entry.ErrorMessage,
		importedAt, now)
	if err != nil {
		return 0, fmt.Errorf("upsert import: %w", err)
	}

	var id int64
	if err := s.db.QueryRow("SELECT id FROM imports WHERE path = ?", entry.Path).Scan(&id); err != nil {
		return 0, fmt.Errorf("get import id: %w", err)
	}
	entry.ID = id
	entry.UpdatedAt = now

	return id, nil
}

const entryColumns = `id, path, content_hash, encoding, format, table_name, sheet, row_count,
	column_count, skipped_lines, status, error_message, imported_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	entry := &Entry{}
	var hash, encoding, sheet, errorMsg sql.NullString
	var importedAt, updatedAt sql.NullTime

	err := row.Scan(
		&entry.ID, &entry.Path, &hash, &encoding, &entry.Format, &entry.TableName, &sheet,
		&entry.RowCount, &entry.ColumnCount, &entry.SkippedLines, &entry.Status, &errorMsg,
		&importedAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.ContentHash = hash.String
	entry.Encoding = encoding.String
	entry.Sheet = sheet.String
	entry.ErrorMessage = errorMsg.String
	if importedAt.Valid {
		entry.ImportedAt = importedAt.Time
	}
	if updatedAt.Valid {
		entry.UpdatedAt = updatedAt.Time
	}

	return entry, nil
}

// Get returns nil without error when path has never been recorded.
func (s *Store) Get(path string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, err := scanEntry(s.db.QueryRow(`SELECT `+entryColumns+` FROM imports WHERE path = ?`, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get import: %w", err)
	}
	return entry, nil
}

func (s *Store) List() ([]*Entry, error) {
	return s.query(`SELECT ` + entryColumns + ` FROM imports ORDER BY path`)
}

func (s *Store) ListByStatus(status Status) ([]*Entry, error) {
	return s.query(`SELECT `+entryColumns+` FROM imports WHERE status = ? ORDER BY path`, string(status))
}

func (s *Store) query(q string, args ...any) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// MarkRemoved flags the entry for path as removed. It reports whether an
// entry existed.
func (s *Store) MarkRemoved(path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(`
		UPDATE imports SET status = ?, error_message = NULL, updated_at = ?
		WHERE path = ?
	`, string(StatusRemoved), time.Now().UTC(), path)
	if err != nil {
		return false, fmt.Errorf("mark removed: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) Stats() (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{}

	rows, err := s.db.Query(`SELECT status, COUNT(*), COALESCE(SUM(row_count), 0) FROM imports GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("import stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status Status
		var count int
		var total int64
		if err := rows.Scan(&status, &count, &total); err != nil {
			return nil, err
		}
		stats.TotalFiles += count
		switch status {
		case StatusImported:
			stats.ImportedFiles = count
			stats.TotalRows = total
		case StatusFailed:
			stats.FailedFiles = count
		case StatusRemoved:
			stats.RemovedFiles = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var last sql.NullString
	if err := s.db.QueryRow(`SELECT MAX(imported_at) FROM imports WHERE status = ?`, string(StatusImported)).Scan(&last); err != nil {
		return nil, fmt.Errorf("last import: %w", err)
	}
	if last.Valid {
		if t, err := parseTime(last.String); err == nil {
			stats.LastImportedAt = t
		}
	}

	return stats, nil
}

// parseTime handles the text form modernc uses for time.Time parameters,
// which MAX() hands back without the DATETIME column affinity.
func parseTime(s string) (time.Time, error) {
	layouts := []string{
		"2006-01-02 15:04:05.999999999 -0700 MST",
		"2006-01-02 15:04:05.999999999-07:00",
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}
