package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

const (
	postgresDriverName = "pgx"
	defaultPostgresDSN = "postgres://localhost/compliancecore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Postgres implements Store on a PostgreSQL state table with one row per key.
type Postgres struct {
	db *sql.DB
}

// NewPostgres connects using the provided DSN (falls back to a local default),
// verifies connectivity, and ensures the state table exists.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		dsn = defaultPostgresDSN
	}
	openMu.Lock()
	db, err := sqlOpen(postgresDriverName, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS state (
		key TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure state table: %w", err)
	}
	return &Postgres{db: db}, nil
}

// Driver returns the backend identifier.
func (p *Postgres) Driver() Driver { return DriverPostgres }

// DB exposes the underlying sql.DB for integration testing hooks.
func (p *Postgres) DB() *sql.DB { return p.db }

// Close releases the underlying database handle.
func (p *Postgres) Close() error { return p.db.Close() }

// Load returns the payload stored under key.
func (p *Postgres) Load(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := p.db.QueryRowContext(ctx, `SELECT payload FROM state WHERE key = $1`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return payload, nil
}

// Save upserts the payload under key.
func (p *Postgres) Save(ctx context.Context, key string, payload []byte) error {
	if _, err := p.db.ExecContext(ctx, `INSERT INTO state(key,payload) VALUES($1,$2) ON CONFLICT(key) DO UPDATE SET payload=EXCLUDED.payload`, key, payload); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

// Delete removes the payload under key. Deleting an absent key is a no-op.
func (p *Postgres) Delete(ctx context.Context, key string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM state WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
