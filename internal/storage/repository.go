// Package storage contains storage-agnostic contracts and the backend
// factory. Concrete backends (postgres, sqlite, mysql, mssql) register
// themselves at init time; callers select one by kind and stay otherwise
// backend-agnostic.
package storage

import (
	"context"
	"fmt"
	"sync"
)

// Config selects and parameterizes a storage backend.
type Config struct {
	// Kind names the backend, e.g. "postgres" or "sqlite".
	Kind string

	// DSN is the backend connection string.
	DSN string

	// Table is the fully qualified load target, e.g. "curated.market_data".
	Table string

	// Columns is the ordered list of destination columns.
	Columns []string

	// KeyColumns is the conflict target for Upsert. Empty means the backend
	// falls back to plain inserts.
	KeyColumns []string
}

// Repository abstracts a relational store for one load target. Backends
// implement bulk insert with their most efficient primitive (Postgres COPY,
// MSSQL bulk copy, transactional prepared inserts elsewhere).
type Repository interface {
	// CopyFrom bulk-inserts rows aligned to columns into the configured
	// table and reports the number of rows written.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)

	// Upsert merges rows into the configured table on the configured key
	// columns, replacing the non-key columns of existing rows.
	Upsert(ctx context.Context, columns []string, rows [][]any) (int64, error)

	// Exec runs a single statement, typically DDL.
	Exec(ctx context.Context, sql string) error

	// Count reports the number of rows in the named table.
	Count(ctx context.Context, table string) (int64, error)

	// Close releases the underlying pool or connection.
	Close()
}

// Factory constructs a Repository from a Config.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) a backend factory for the given storage
// kind. It is typically called from backend packages' init functions.
func Register(kind string, fn Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[kind] = fn
}

// New opens a Repository for cfg.Kind. Unknown kinds return an error naming
// the kind so misconfiguration surfaces immediately.
func New(ctx context.Context, cfg Config) (Repository, error) {
	regMu.RLock()
	fn, ok := factories[cfg.Kind]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return fn(ctx, cfg)
}

// ListKinds returns a snapshot of the registered backend kinds.
func ListKinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	return kinds
}
