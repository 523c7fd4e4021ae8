// Package index provides the SQLite-backed document index with optional FTS5
// full-text search.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	path                 TEXT PRIMARY KEY,
	title                TEXT NOT NULL DEFAULT '',
	root_type            TEXT NOT NULL DEFAULT '',
	checksum             TEXT NOT NULL DEFAULT '',
	definitions_checksum TEXT NOT NULL DEFAULT '',
	status               TEXT NOT NULL DEFAULT '',
	error_kind           TEXT NOT NULL DEFAULT '',
	error                TEXT NOT NULL DEFAULT '',
	body                 TEXT NOT NULL DEFAULT '',
	updated_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS definitions (
	path TEXT NOT NULL,
	id   TEXT NOT NULL,
	type TEXT NOT NULL DEFAULT '',
	line INTEGER NOT NULL DEFAULT 0,
	UNIQUE(path, id)
);

CREATE TABLE IF NOT EXISTS embeds (
	path   TEXT NOT NULL,
	source TEXT NOT NULL DEFAULT '',
	target TEXT NOT NULL,
	UNIQUE(path, source, target)
);

CREATE TABLE IF NOT EXISTS warnings (
	path       TEXT NOT NULL,
	diagram_id TEXT NOT NULL,
	depth      INTEGER NOT NULL,
	max_depth  INTEGER NOT NULL,
	chain      TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_definitions_id ON definitions(id);
CREATE INDEX IF NOT EXISTS idx_embeds_target ON embeds(target);
CREATE INDEX IF NOT EXISTS idx_warnings_path ON warnings(path);
CREATE INDEX IF NOT EXISTS idx_documents_root_type ON documents(root_type);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
