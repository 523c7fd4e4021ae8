package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/nestmaid/internal/apperr"
	"github.com/starford/nestmaid/internal/diagram"
	"github.com/starford/nestmaid/internal/document"
	"github.com/starford/nestmaid/internal/models"
	"github.com/starford/nestmaid/internal/nested"
)

// DocumentRow represents a row in the documents table.
type DocumentRow struct {
	Path                string
	Title               string
	RootType            string
	Checksum            string
	DefinitionsChecksum string
	Status              string
	ErrorKind           string
	Error               string
	UpdatedAt           time.Time
}

// Entry is everything stored for one document.
type Entry struct {
	Row         DocumentRow
	Body        string
	Definitions []document.DefinitionRef
	Embeds      []models.Embed
	Warnings    []nested.NestingWarning
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string
	Title   string
	Snippet string
}

// Dependent is a diagram that embeds a given definition id. Source is empty
// when the embedding diagram is the document's root.
type Dependent struct {
	Path   string
	Source string
}

// UpsertDocument replaces a document, its FTS entry, definitions, embeds and
// warnings within a transaction.
func (db *DB) UpsertDocument(e Entry) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	r := e.Row
	_, err = tx.Exec(`
		INSERT INTO documents (path, title, root_type, checksum, definitions_checksum,
		                       status, error_kind, error, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title                = excluded.title,
			root_type            = excluded.root_type,
			checksum             = excluded.checksum,
			definitions_checksum = excluded.definitions_checksum,
			status               = excluded.status,
			error_kind           = excluded.error_kind,
			error                = excluded.error,
			body                 = excluded.body,
			updated_at           = excluded.updated_at
	`, r.Path, r.Title, r.RootType, r.Checksum, r.DefinitionsChecksum,
		r.Status, r.ErrorKind, r.Error, e.Body, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	ids := make([]string, 0, len(e.Definitions))
	for _, d := range e.Definitions {
		ids = append(ids, d.ID)
	}
	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, r.Path, r.Title, e.Body, ids); err != nil {
		return err
	}

	if err := clearChildren(tx, r.Path); err != nil {
		return err
	}
	if err := insertDefinitions(tx, r.Path, e.Definitions); err != nil {
		return err
	}
	if err := insertEmbeds(tx, r.Path, e.Embeds); err != nil {
		return err
	}
	if err := insertWarnings(tx, r.Path, e.Warnings); err != nil {
		return err
	}

	return tx.Commit()
}

func clearChildren(tx *sql.Tx, path string) error {
	for _, q := range []string{
		`DELETE FROM definitions WHERE path = ?`,
		`DELETE FROM embeds WHERE path = ?`,
		`DELETE FROM warnings WHERE path = ?`,
	} {
		if _, err := tx.Exec(q, path); err != nil {
			return fmt.Errorf("index: clear children: %w", err)
		}
	}
	return nil
}

func insertDefinitions(tx *sql.Tx, path string, defs []document.DefinitionRef) error {
	if len(defs) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO definitions (path, id, type, line) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare definition insert: %w", err)
	}
	defer stmt.Close()
	for _, d := range defs {
		if _, err := stmt.Exec(path, d.ID, string(d.Type), d.Line); err != nil {
			return fmt.Errorf("index: insert definition: %w", err)
		}
	}
	return nil
}

func insertEmbeds(tx *sql.Tx, path string, embeds []models.Embed) error {
	if len(embeds) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO embeds (path, source, target) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare embed insert: %w", err)
	}
	defer stmt.Close()
	for _, e := range embeds {
		if _, err := stmt.Exec(path, e.Source, e.Target); err != nil {
			return fmt.Errorf("index: insert embed: %w", err)
		}
	}
	return nil
}

func insertWarnings(tx *sql.Tx, path string, warnings []nested.NestingWarning) error {
	if len(warnings) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`INSERT INTO warnings (path, diagram_id, depth, max_depth, chain) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare warning insert: %w", err)
	}
	defer stmt.Close()
	for _, w := range warnings {
		chain, _ := json.Marshal(w.Path)
		if _, err := stmt.Exec(path, w.DiagramID, w.CurrentDepth, w.MaxDepth, string(chain)); err != nil {
			return fmt.Errorf("index: insert warning: %w", err)
		}
	}
	return nil
}

// DeleteDocument removes a document and everything derived from it.
func (db *DB) DeleteDocument(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	if err := clearChildren(tx, path); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM documents WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete document: %w", err)
	}

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a document, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// GetDefinitionsChecksum returns the stored definitions digest for a
// document, or empty string if not found.
func (db *DB) GetDefinitionsChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT definitions_checksum FROM documents WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get definitions checksum: %w", err)
	}
	return cs, nil
}

const documentColumns = `path, title, root_type, checksum, definitions_checksum, status, error_kind, error, updated_at`

func scanDocument(s interface{ Scan(...any) error }) (DocumentRow, error) {
	var r DocumentRow
	err := s.Scan(&r.Path, &r.Title, &r.RootType, &r.Checksum, &r.DefinitionsChecksum,
		&r.Status, &r.ErrorKind, &r.Error, &r.UpdatedAt)
	return r, err
}

// GetDocument returns the row for path or apperr.ErrNotFound.
func (db *DB) GetDocument(path string) (*DocumentRow, error) {
	row := db.conn.QueryRow(`SELECT `+documentColumns+` FROM documents WHERE path = ?`, path)
	r, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get document: %w", err)
	}
	return &r, nil
}

// ListDocuments returns a page of documents ordered by path, optionally
// filtered by root diagram type, plus the total count for the filter.
func (db *DB) ListDocuments(limit, offset int, rootType string) ([]DocumentRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	where := ""
	var args []any
	if rootType != "" {
		where = ` WHERE root_type = ?`
		args = append(args, rootType)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count documents: %w", err)
	}

	rows, err := db.conn.Query(`SELECT `+documentColumns+` FROM documents`+where+` ORDER BY path LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentRow
	for rows.Next() {
		r, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// Definitions returns the definition blocks indexed for path, ordered by id.
func (db *DB) Definitions(path string) ([]document.DefinitionRef, error) {
	rows, err := db.conn.Query(`SELECT id, type, line FROM definitions WHERE path = ? ORDER BY id`, path)
	if err != nil {
		return nil, fmt.Errorf("index: definitions: %w", err)
	}
	defer rows.Close()

	var out []document.DefinitionRef
	for rows.Next() {
		var d document.DefinitionRef
		var typ string
		if err := rows.Scan(&d.ID, &typ, &d.Line); err != nil {
			return nil, err
		}
		d.Type = diagram.Type(typ)
		out = append(out, d)
	}
	return out, rows.Err()
}

// Warnings returns the nesting warnings of the last resolution of path.
func (db *DB) Warnings(path string) ([]nested.NestingWarning, error) {
	rows, err := db.conn.Query(`SELECT diagram_id, depth, max_depth, chain FROM warnings WHERE path = ? ORDER BY depth, rowid`, path)
	if err != nil {
		return nil, fmt.Errorf("index: warnings: %w", err)
	}
	defer rows.Close()

	var out []nested.NestingWarning
	for rows.Next() {
		var w nested.NestingWarning
		var chain string
		if err := rows.Scan(&w.DiagramID, &w.CurrentDepth, &w.MaxDepth, &chain); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(chain), &w.Path); err != nil {
			return nil, fmt.Errorf("index: decode warning chain: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// Dependents returns every diagram, across all documents, that embeds id.
func (db *DB) Dependents(id string) ([]Dependent, error) {
	rows, err := db.conn.Query(`SELECT path, source FROM embeds WHERE target = ? ORDER BY path, source`, id)
	if err != nil {
		return nil, fmt.Errorf("index: dependents: %w", err)
	}
	defer rows.Close()

	var out []Dependent
	for rows.Next() {
		var d Dependent
		if err := rows.Scan(&d.Path, &d.Source); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DefinedIn returns the paths of documents that define id.
func (db *DB) DefinedIn(id string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT path FROM definitions WHERE id = ? ORDER BY path`, id)
	if err != nil {
		return nil, fmt.Errorf("index: defined in: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AllPaths returns every indexed document path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all paths: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// AllChecksums returns path -> checksum for every indexed document.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// Count returns the number of indexed documents.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}
