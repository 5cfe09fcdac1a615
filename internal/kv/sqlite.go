package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQLite implements Store on a single-table embedded database. Payloads are
// stored as blobs keyed by name, one row per key.
type SQLite struct {
	db   *sql.DB
	path string
}

// NewSQLite opens (creating if necessary) the database at path and ensures
// the state table exists.
func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		path = "compliancecore.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		key TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return &SQLite{db: db, path: path}, nil
}

// Driver returns the backend identifier.
func (s *SQLite) Driver() Driver { return DriverSQLite }

// Path returns the configured database path.
func (s *SQLite) Path() string { return s.path }

// Close releases the underlying database handle.
func (s *SQLite) Close() error { return s.db.Close() }

// Load returns the payload stored under key.
func (s *SQLite) Load(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM state WHERE key = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return payload, nil
}

// Save upserts the payload under key.
func (s *SQLite) Save(ctx context.Context, key string, payload []byte) error {
	if _, err := s.db.ExecContext(ctx, `INSERT INTO state(key,payload) VALUES(?,?) ON CONFLICT(key) DO UPDATE SET payload=excluded.payload`, key, payload); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

// Delete removes the payload under key. Deleting an absent key is a no-op.
func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM state WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
