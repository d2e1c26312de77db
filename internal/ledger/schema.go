package ledger

const SchemaVersion = 1

const schemaSQL = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);

-- One row per spreadsheet file ever seen in the data directory
CREATE TABLE IF NOT EXISTS imports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT UNIQUE NOT NULL,
    content_hash TEXT,
    encoding TEXT,
    format TEXT NOT NULL,
    table_name TEXT NOT NULL,
    sheet TEXT,
    row_count INTEGER DEFAULT 0,
    column_count INTEGER DEFAULT 0,
    skipped_lines INTEGER DEFAULT 0,
    status TEXT NOT NULL,
    error_message TEXT,
    imported_at DATETIME,
    updated_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_imports_status ON imports(status);
CREATE INDEX IF NOT EXISTS idx_imports_table ON imports(table_name);
`
