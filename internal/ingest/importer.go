package ingest

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/alucardeht/spreadsheet-agent/internal/config"
	"github.com/alucardeht/spreadsheet-agent/internal/ledger"
	"github.com/alucardeht/spreadsheet-agent/internal/logger"
)

var log = logger.ForComponent("ingest")

type Options struct {
	DataDir    string
	DBPath     string
	Include    []string
	Exclude    []string
	OnBadLines BadLinePolicy
	BatchSize  int
	Force      bool
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		DataDir:    cfg.DataDir,
		DBPath:     cfg.DBPath,
		Include:    cfg.Import.Include,
		Exclude:    cfg.Import.Exclude,
		OnBadLines: BadLinePolicy(cfg.Import.OnBadLines),
		BatchSize:  cfg.Import.BatchSize,
		Force:      cfg.Import.Force,
	}
}

type Importer struct {
	opts   Options
	db     *sql.DB
	writer *Writer
	ledger *ledger.Store

	// mu serializes every write to the target database.
	mu sync.Mutex

	hooksMu sync.RWMutex
	hooks   []func(tables []string)
}

// NewImporter writes into db. store may be nil, in which case every run
// re-imports every file.
func NewImporter(db *sql.DB, store *ledger.Store, opts Options) *Importer {
	if opts.OnBadLines == "" {
		opts.OnBadLines = BadLinesSkip
	}
	return &Importer{
		opts:   opts,
		db:     db,
		writer: NewWriter(db, opts.BatchSize),
		ledger: store,
	}
}

func (im *Importer) Options() Options {
	return im.opts
}

// OnImported registers fn to be called with the names of tables that were
// created, replaced or dropped.
func (im *Importer) OnImported(fn func(tables []string)) {
	im.hooksMu.Lock()
	defer im.hooksMu.Unlock()
	im.hooks = append(im.hooks, fn)
}

func (im *Importer) fire(tables []string) {
	if len(tables) == 0 {
		return
	}
	im.hooksMu.RLock()
	hooks := append([]func([]string){}, im.hooks...)
	im.hooksMu.RUnlock()

	for _, fn := range hooks {
		fn(tables)
	}
}

// Run imports every spreadsheet in the data directory. A file that fails
// is reported and skipped; only setup problems return an error.
func (im *Importer) Run(ctx context.Context) (*Report, error) {
	if _, err := os.Stat(im.opts.DataDir); errors.Is(err, fs.ErrNotExist) {
		log.Error("Input directory does not exist", "input_dir", im.opts.DataDir)
		return nil, fmt.Errorf("%w: %s", ErrInputDirMissing, im.opts.DataDir)
	}
	if err := os.MkdirAll(filepath.Dir(im.opts.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	sheets, err := Discover(im.opts.DataDir, im.opts.Include, im.opts.Exclude)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	if len(sheets) == 0 {
		log.Info("No spreadsheet files found in input directory.")
		return report, nil
	}

	var tables []string
	for _, group := range groupByTable(sheets) {
		// The last file of a group owns the table, so a change anywhere in
		// the group rewrites the whole group in path order.
		force := len(group) > 1 && im.groupChanged(ctx, group)

		var owner string
		for _, sheet := range group {
			if err := ctx.Err(); err != nil {
				return report, err
			}

			name := filepath.Base(sheet.Path)
			log.Info("Processing spreadsheet file", "file", name)

			result, err := im.importSpreadsheet(ctx, sheet, force)
			if err != nil {
				report.Failed = append(report.Failed, FileError{File: sheet.Path, Err: err})
				log.Warn("Skipped file due to import error", "file", name)
				continue
			}
			if result == nil {
				report.Unchanged = append(report.Unchanged, sheet.Path)
				continue
			}

			if owner != "" {
				log.Warn("table replaced by later file", "table", result.Table, "previous", owner, "file", sheet.Path)
			} else {
				tables = append(tables, result.Table)
			}
			owner = sheet.Path
			report.Imported = append(report.Imported, *result)
		}
	}

	report.Validated = Validate(ctx, im.db, tables)
	im.fire(tables)

	return report, nil
}

// ImportFile imports a single spreadsheet. It returns a nil result when the
// file is unchanged since its last import, or when a live file later in
// path order owns the same table.
func (im *Importer) ImportFile(ctx context.Context, path string) (*TableResult, error) {
	format, ok := FormatForPath(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}

	if im.ledger != nil {
		owner, err := im.laterOwner(ledgerKey(path), TableNameForPath(path))
		if err != nil {
			return nil, err
		}
		if owner != "" {
			log.Info("table owned by later file, not overwriting", "file", filepath.Base(path), "owner", owner)
			return nil, nil
		}
	}

	result, err := im.importSpreadsheet(ctx, Spreadsheet{Path: path, Format: format}, false)
	if err != nil || result == nil {
		return result, err
	}

	Validate(ctx, im.db, []string{result.Table})
	im.fire([]string{result.Table})
	return result, nil
}

func (im *Importer) importSpreadsheet(ctx context.Context, sheet Spreadsheet, force bool) (*TableResult, error) {
	im.mu.Lock()
	defer im.mu.Unlock()

	key := ledgerKey(sheet.Path)
	name := filepath.Base(sheet.Path)

	hash, err := hashFile(sheet.Path)
	if err != nil {
		im.recordFailure(key, sheet, "", err)
		return nil, err
	}

	if !force && !im.opts.Force {
		if table, ok := im.upToDate(ctx, key, hash); ok {
			log.Info("Skipping unchanged file", "file", name, "table", table)
			return nil, nil
		}
	}

	table, err := readSpreadsheet(sheet, im.opts.OnBadLines)
	if err != nil {
		im.logFailure(sheet, err)
		im.recordFailure(key, sheet, hash, err)
		return nil, err
	}

	if err := im.writer.Replace(ctx, table); err != nil {
		im.logFailure(sheet, err)
		im.recordFailure(key, sheet, hash, err)
		return nil, err
	}

	result := &TableResult{
		File:         sheet.Path,
		Table:        table.Name,
		Sheet:        table.Sheet,
		RowCount:     len(table.Rows),
		Columns:      len(table.Columns),
		Encoding:     table.Encoding,
		SkippedLines: table.SkippedLines,
	}

	if sheet.Format == FormatCSV {
		log.Info("Imported CSV as table", "file", name, "table", table.Name, "row_count", result.RowCount)
	} else {
		log.Info("Imported Excel sheet as table", "file", name, "sheet", table.Sheet, "table", table.Name, "row_count", result.RowCount)
	}

	if im.ledger != nil {
		_, err := im.ledger.Upsert(&ledger.Entry{
			Path:         key,
			ContentHash:  hash,
			Encoding:     table.Encoding,
			Format:       string(sheet.Format),
			TableName:    table.Name,
			Sheet:        table.Sheet,
			RowCount:     int64(result.RowCount),
			ColumnCount:  result.Columns,
			SkippedLines: table.SkippedLines,
			Status:       ledger.StatusImported,
		})
		if err != nil {
			log.Warn("ledger update failed", "file", name, "error", err)
		}
	}

	return result, nil
}

// Remove drops the table that was imported from path. When another live
// file maps to the same table, the table is kept: if path was the last of
// them in path order, the remaining owner is re-imported so the table holds
// its data. The returned name is empty when the table was not dropped.
func (im *Importer) Remove(ctx context.Context, path string) (string, error) {
	table, owner, err := im.removeLocked(ctx, path)
	if err != nil {
		return "", err
	}

	if owner != "" {
		if owner < ledgerKey(path) {
			format, _ := FormatForPath(owner)
			result, err := im.importSpreadsheet(ctx, Spreadsheet{Path: owner, Format: format}, true)
			if err != nil {
				return "", err
			}
			Validate(ctx, im.db, []string{result.Table})
			im.fire([]string{result.Table})
		}
		return "", nil
	}

	log.Info("Dropped table for removed file", "file", filepath.Base(path), "table", table)
	im.fire([]string{table})
	return table, nil
}

func (im *Importer) removeLocked(ctx context.Context, path string) (table, owner string, err error) {
	im.mu.Lock()
	defer im.mu.Unlock()

	key := ledgerKey(path)
	table = TableNameForPath(path)

	if im.ledger != nil {
		entry, err := im.ledger.Get(key)
		if err != nil {
			return "", "", err
		}
		if entry != nil {
			table = entry.TableName
		}

		owner, err = im.otherOwner(key, table)
		if err != nil {
			return "", "", err
		}
		if owner != "" {
			log.Info("table still owned by another file", "table", table, "file", owner)
			_, err := im.ledger.MarkRemoved(key)
			return table, owner, err
		}
	}

	if err := im.writer.Drop(ctx, table); err != nil {
		return "", "", err
	}

	if im.ledger != nil {
		if _, err := im.ledger.MarkRemoved(key); err != nil {
			log.Warn("ledger update failed", "file", path, "error", err)
		}
	}
	return table, "", nil
}

// upToDate reports whether the ledger holds an import of key with the same
// content hash whose table still exists.
func (im *Importer) upToDate(ctx context.Context, key, hash string) (string, bool) {
	if im.ledger == nil {
		return "", false
	}
	entry, err := im.ledger.Get(key)
	if err != nil {
		log.Warn("ledger lookup failed", "file", filepath.Base(key), "error", err)
		return "", false
	}
	if entry == nil || entry.Status != ledger.StatusImported || entry.ContentHash != hash {
		return "", false
	}
	return entry.TableName, im.tableExists(ctx, entry.TableName)
}

func (im *Importer) groupChanged(ctx context.Context, group []Spreadsheet) bool {
	if im.opts.Force {
		return true
	}
	for _, sheet := range group {
		hash, err := hashFile(sheet.Path)
		if err != nil {
			return true
		}
		if _, ok := im.upToDate(ctx, ledgerKey(sheet.Path), hash); !ok {
			return true
		}
	}
	return false
}

// groupByTable splits path-sorted sheets into runs sharing a table name.
// SQLite names are case-insensitive, so grouping is too. Path order is
// kept inside each group and groups follow their first member.
func groupByTable(sheets []Spreadsheet) [][]Spreadsheet {
	index := make(map[string]int)
	var groups [][]Spreadsheet
	for _, sheet := range sheets {
		name := strings.ToLower(TableNameForPath(sheet.Path))
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], sheet)
	}
	return groups
}

// otherOwner returns the last live imported file, other than key, mapped
// to table.
func (im *Importer) otherOwner(key, table string) (string, error) {
	return im.findOwner(key, table, func(path string) bool { return true })
}

// laterOwner is otherOwner restricted to files after key in path order.
func (im *Importer) laterOwner(key, table string) (string, error) {
	return im.findOwner(key, table, func(path string) bool { return path > key })
}

func (im *Importer) findOwner(key, table string, accept func(path string) bool) (string, error) {
	entries, err := im.ledger.ListByStatus(ledger.StatusImported)
	if err != nil {
		return "", err
	}
	var owner string
	for _, e := range entries {
		if e.Path == key || !strings.EqualFold(e.TableName, table) || !accept(e.Path) {
			continue
		}
		if _, err := os.Stat(e.Path); err == nil && e.Path > owner {
			owner = e.Path
		}
	}
	return owner, nil
}

func (im *Importer) tableExists(ctx context.Context, table string) bool {
	var n int
	err := im.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ? COLLATE NOCASE`, table).Scan(&n)
	return err == nil && n > 0
}

func (im *Importer) logFailure(sheet Spreadsheet, err error) {
	msg := "Failed to import Excel sheet"
	if sheet.Format == FormatCSV {
		msg = "Failed to import CSV"
	}
	log.Error(msg, "file", filepath.Base(sheet.Path), "error", err)
}

func (im *Importer) recordFailure(key string, sheet Spreadsheet, hash string, cause error) {
	if im.ledger == nil {
		return
	}
	_, err := im.ledger.Upsert(&ledger.Entry{
		Path:         key,
		ContentHash:  hash,
		Format:       string(sheet.Format),
		TableName:    TableNameForPath(sheet.Path),
		Status:       ledger.StatusFailed,
		ErrorMessage: cause.Error(),
	})
	if err != nil {
		log.Warn("ledger update failed", "file", sheet.Path, "error", err)
	}
}

func readSpreadsheet(sheet Spreadsheet, policy BadLinePolicy) (*Table, error) {
	switch sheet.Format {
	case FormatCSV:
		return ReadCSV(sheet.Path, CSVOptions{OnBadLines: policy})
	case FormatXLSX:
		return ReadXLSX(sheet.Path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(sheet.Path))
	}
}

func ledgerKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
