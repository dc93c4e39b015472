// Package storage persists request history, collections and aliases in a
// SQLite database inside the drivethru data directory.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/vedsharma/drivethru/internal/model"
)

const (
	dbFile = "drivethru.db"

	// HistoryLimit is the number of entries kept; older ones are pruned.
	HistoryLimit = 100

	secureFileMode = 0600
	secureDirMode  = 0700
)

// ErrNotFound is returned by lookups of unknown IDs or names.
var ErrNotFound = errors.New("not found")

// Store is the SQLite backed store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database inside dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, secureDirMode); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	if err := ensureSecureFile(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// ensureSecureFile creates path with owner-only permissions, or tightens
// the permissions of an existing file.
func ensureSecureFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, secureFileMode)
		if err != nil {
			return fmt.Errorf("failed to create secure file: %w", err)
		}
		return f.Close()
	}
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	if info.Mode().Perm() != secureFileMode {
		if err := os.Chmod(path, secureFileMode); err != nil {
			return fmt.Errorf("failed to set secure permissions: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS history (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		method TEXT NOT NULL,
		url TEXT NOT NULL,
		headers TEXT DEFAULT '{}',
		body TEXT DEFAULT '',
		accepted INTEGER,
		response_status_code INTEGER,
		response_status_message TEXT,
		response_headers TEXT,
		response_body TEXT,
		response_duration_ms INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_history_timestamp ON history(timestamp DESC);

	CREATE TABLE IF NOT EXISTS collections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT UNIQUE NOT NULL
	);

	CREATE TABLE IF NOT EXISTS saved_requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		collection_id INTEGER NOT NULL,
		name TEXT DEFAULT '',
		method TEXT NOT NULL,
		url TEXT NOT NULL,
		headers TEXT DEFAULT '{}',
		body TEXT DEFAULT '',
		position INTEGER NOT NULL,
		FOREIGN KEY (collection_id) REFERENCES collections(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_saved_requests_collection ON saved_requests(collection_id, position);

	CREATE TABLE IF NOT EXISTS aliases (
		name TEXT PRIMARY KEY,
		url TEXT NOT NULL
	);
	`)
	return err
}

func encodeHeaders(h map[string]string) (string, error) {
	if h == nil {
		h = map[string]string{}
	}
	data, err := json.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("failed to encode headers: %w", err)
	}
	return string(data), nil
}

func decodeHeaders(s string) (map[string]string, error) {
	headers := make(map[string]string)
	if s == "" {
		return headers, nil
	}
	if err := json.Unmarshal([]byte(s), &headers); err != nil {
		return headers, fmt.Errorf("failed to parse headers JSON: %w", err)
	}
	if headers == nil {
		headers = make(map[string]string)
	}
	return headers, nil
}

// =============================================================================
// History
// =============================================================================

const historyColumns = `id, timestamp, method, url, headers, body, accepted,
	response_status_code, response_status_message, response_headers,
	response_body, response_duration_ms`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (model.Entry, error) {
	var e model.Entry
	var headersJSON string
	var accepted sql.NullBool
	var code, duration sql.NullInt64
	var message, respHeaders, respBody sql.NullString

	if err := row.Scan(&e.ID, &e.Timestamp, &e.Method, &e.URL, &headersJSON, &e.Body, &accepted,
		&code, &message, &respHeaders, &respBody, &duration); err != nil {
		return e, err
	}

	// A corrupt header column should not hide the rest of the entry.
	e.Headers, _ = decodeHeaders(headersJSON)
	if accepted.Valid {
		v := accepted.Bool
		e.Accepted = &v
	}
	if code.Valid {
		e.Response = &model.Response{
			StatusCode:    int(code.Int64),
			StatusMessage: message.String,
			Body:          respBody.String,
			DurationMs:    duration.Int64,
		}
		e.Response.Headers, _ = decodeHeaders(respHeaders.String)
	}
	return e, nil
}

// AddHistory stores e and prunes everything beyond HistoryLimit.
func (s *Store) AddHistory(e model.Entry) error {
	headersJSON, err := encodeHeaders(e.Headers)
	if err != nil {
		return err
	}

	var accepted sql.NullBool
	if e.Accepted != nil {
		accepted = sql.NullBool{Bool: *e.Accepted, Valid: true}
	}

	var code, duration sql.NullInt64
	var message, respHeaders, respBody sql.NullString
	if r := e.Response; r != nil {
		h, err := encodeHeaders(r.Headers)
		if err != nil {
			return err
		}
		code = sql.NullInt64{Int64: int64(r.StatusCode), Valid: true}
		message = sql.NullString{String: r.StatusMessage, Valid: true}
		respHeaders = sql.NullString{String: h, Valid: true}
		respBody = sql.NullString{String: r.Body, Valid: true}
		duration = sql.NullInt64{Int64: r.DurationMs, Valid: true}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO history (`+historyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp, e.Method, e.URL, headersJSON, e.Body, accepted,
		code, message, respHeaders, respBody, duration,
	); err != nil {
		return fmt.Errorf("failed to save history entry: %w", err)
	}

	if _, err := tx.Exec(`
		DELETE FROM history
		WHERE id NOT IN (
			SELECT id FROM history ORDER BY timestamp DESC LIMIT ?
		)`, HistoryLimit); err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}

	return tx.Commit()
}

// ListHistory returns up to limit entries, newest first. A limit of zero
// or less returns everything kept.
func (s *Store) ListHistory(limit int) ([]model.Entry, error) {
	if limit <= 0 {
		limit = HistoryLimit
	}
	rows, err := s.db.Query(`SELECT `+historyColumns+` FROM history
		ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []model.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetHistory returns the entry with the given ID, or ErrNotFound.
func (s *Store) GetHistory(id string) (*model.Entry, error) {
	e, err := scanEntry(s.db.QueryRow(`SELECT `+historyColumns+` FROM history WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("history entry %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ClearHistory deletes every entry.
func (s *Store) ClearHistory() error {
	_, err := s.db.Exec("DELETE FROM history")
	return err
}

// =============================================================================
// Collections
// =============================================================================

// ListCollections returns every collection with its requests, ordered by
// name.
func (s *Store) ListCollections() ([]model.Collection, error) {
	rows, err := s.db.Query("SELECT name FROM collections ORDER BY name")
	if err != nil {
		return nil, err
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, err
		}
		names = append(names, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	collections := make([]model.Collection, 0, len(names))
	for _, name := range names {
		c, err := s.GetCollection(name)
		if err != nil {
			return nil, err
		}
		collections = append(collections, *c)
	}
	return collections, nil
}

// CreateCollection creates an empty collection. Creating an existing one
// is a no-op.
func (s *Store) CreateCollection(name string) error {
	_, err := s.db.Exec("INSERT OR IGNORE INTO collections (name) VALUES (?)", name)
	return err
}

// DeleteCollection deletes a collection and its requests.
func (s *Store) DeleteCollection(name string) error {
	res, err := s.db.Exec("DELETE FROM collections WHERE name = ?", name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("collection %q: %w", name, ErrNotFound)
	}
	return nil
}

// GetCollection returns the named collection, or ErrNotFound.
func (s *Store) GetCollection(name string) (*model.Collection, error) {
	var id int64
	err := s.db.QueryRow("SELECT id FROM collections WHERE name = ?", name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("collection %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT name, method, url, headers, body
		FROM saved_requests
		WHERE collection_id = ?
		ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	c := &model.Collection{Name: name, Requests: []model.SavedRequest{}}
	for rows.Next() {
		var req model.SavedRequest
		var headersJSON string
		if err := rows.Scan(&req.Name, &req.Method, &req.URL, &headersJSON, &req.Body); err != nil {
			return nil, err
		}
		req.Headers, _ = decodeHeaders(headersJSON)
		c.Requests = append(c.Requests, req)
	}
	return c, rows.Err()
}

// AddToCollection appends req to the named collection, creating it if
// needed.
func (s *Store) AddToCollection(name string, req model.SavedRequest) error {
	headersJSON, err := encodeHeaders(req.Headers)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRow("SELECT id FROM collections WHERE name = ?", name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		res, err := tx.Exec("INSERT INTO collections (name) VALUES (?)", name)
		if err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	var maxPos sql.NullInt64
	if err := tx.QueryRow("SELECT MAX(position) FROM saved_requests WHERE collection_id = ?", id).Scan(&maxPos); err != nil {
		return err
	}
	next := int64(0)
	if maxPos.Valid {
		next = maxPos.Int64 + 1
	}

	if _, err := tx.Exec(`
		INSERT INTO saved_requests (collection_id, name, method, url, headers, body, position)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, req.Name, req.Method, req.URL, headersJSON, req.Body, next); err != nil {
		return fmt.Errorf("failed to save request: %w", err)
	}

	return tx.Commit()
}

// =============================================================================
// Aliases
// =============================================================================

// ListAliases returns every alias mapped to its base URL.
func (s *Store) ListAliases() (map[string]string, error) {
	rows, err := s.db.Query("SELECT name, url FROM aliases")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	aliases := make(map[string]string)
	for rows.Next() {
		var name, url string
		if err := rows.Scan(&name, &url); err != nil {
			return nil, err
		}
		aliases[name] = url
	}
	return aliases, rows.Err()
}

// SetAlias creates or replaces an alias.
func (s *Store) SetAlias(name, url string) error {
	_, err := s.db.Exec(`
		INSERT INTO aliases (name, url) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET url = excluded.url`,
		name, url)
	return err
}

// DeleteAlias deletes an alias, or returns ErrNotFound.
func (s *Store) DeleteAlias(name string) error {
	res, err := s.db.Exec("DELETE FROM aliases WHERE name = ?", name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("alias %q: %w", name, ErrNotFound)
	}
	return nil
}

// GetAlias returns the base URL of an alias and whether it exists.
func (s *Store) GetAlias(name string) (string, bool, error) {
	var url string
	err := s.db.QueryRow("SELECT url FROM aliases WHERE name = ?", name).Scan(&url)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return url, true, nil
}
