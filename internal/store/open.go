package store

import (
	"context"
	"fmt"
)

// Options selects and configures a backend.
type Options struct {
	Backend     string // memory, sqlite or postgres
	Path        string // sqlite file
	DatabaseURL string // postgres DSN
	QuotaBytes  int
}

// Open returns the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "memory":
		return NewMemory(opts.QuotaBytes), nil
	case "sqlite":
		return OpenSQLite(opts.Path, opts.QuotaBytes)
	case "postgres":
		return OpenPostgres(ctx, opts.DatabaseURL, opts.QuotaBytes)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
