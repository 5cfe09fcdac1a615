package kv

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Environment variables controlling backend selection.
const (
	EnvStorageDriver = "COMPLIANCECORE_STORAGE_DRIVER"
	EnvFileRoot      = "COMPLIANCECORE_FILE_ROOT"
	EnvSQLitePath    = "COMPLIANCECORE_SQLITE_PATH"
	EnvPostgresDSN   = "COMPLIANCECORE_POSTGRES_DSN"
)

// Open selects and constructs a Store from process environment. An unset or
// empty driver falls back to the file backend under ./data.
func Open(ctx context.Context) (Store, error) {
	driver := Driver(strings.ToLower(strings.TrimSpace(os.Getenv(EnvStorageDriver))))
	switch driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverFile, "":
		root := os.Getenv(EnvFileRoot)
		if root == "" {
			root = "data"
		}
		return NewFile(root)
	case DriverSQLite:
		return NewSQLite(os.Getenv(EnvSQLitePath))
	case DriverPostgres:
		return NewPostgres(ctx, os.Getenv(EnvPostgresDSN))
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
}
