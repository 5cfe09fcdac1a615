// Package kv persists named payloads in a keyed local medium. It is the
// module's stand-in for browser-persistent storage: a load returns exactly
// what the last save wrote under the key, and nothing here interprets the
// payload.
package kv

import (
	"context"
	"errors"
)

// Driver identifies a concrete storage backend implementation.
type Driver string

const (
	DriverMemory   Driver = "memory"   // in-memory only (tests / ephemeral)
	DriverFile     Driver = "file"     // one document per key on disk (default, dev)
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file
	DriverPostgres Driver = "postgres" // PostgreSQL server
)

// Fixed keys used by the application. The controls snapshot is owned by the
// compliance store; the session payload is owned by the auth collaborator.
const (
	KeyControls = "controls"
	KeySession  = "currentUser"
)

// ErrNotFound is returned by Load when no payload exists under the key.
var ErrNotFound = errors.New("kv: key not found")

// Store is a minimal abstraction over durable keyed payloads. Save replaces
// the full payload under key; partial writes are never observable.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, payload []byte) error
	Delete(ctx context.Context, key string) error
	Driver() Driver
}
