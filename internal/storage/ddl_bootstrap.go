package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/bened18/crypto-stock-etl/internal/schema"
)

// DDLBootstrapper is a backend-specific function that renders the inferred
// table definition into the backend's dialect and applies it via repo.Exec.
// Backends register their implementation for a given storage kind at init
// time, next to their factory registration.
type DDLBootstrapper func(ctx context.Context, repo Repository, tbl schema.Table) error

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLBootstrapper{}
)

// RegisterDDL registers (or replaces) a DDLBootstrapper for the given
// storage kind.
func RegisterDDL(kind string, fn DDLBootstrapper) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = fn
}

// EnsureTable locates the DDLBootstrapper for kind and invokes it. Callers
// pass the inferred definition and the already-open Repository without
// branching on the backend themselves.
func EnsureTable(ctx context.Context, kind string, repo Repository, tbl schema.Table) error {
	ddlMu.RLock()
	fn, ok := ddlFns[kind]
	ddlMu.RUnlock()
	if !ok {
		return fmt.Errorf("no DDL bootstrapper registered for storage.kind=%q", kind)
	}
	return fn(ctx, repo, tbl)
}

// TableDropper drops the named table if it exists, using the backend's
// identifier dialect. Replace-mode syncs rely on it before recreating the
// target from the inferred definition.
type TableDropper func(ctx context.Context, repo Repository, tbl schema.Table) error

var (
	dropMu  sync.RWMutex
	dropFns = map[string]TableDropper{}
)

// RegisterDrop registers (or replaces) a TableDropper for the given
// storage kind.
func RegisterDrop(kind string, fn TableDropper) {
	dropMu.Lock()
	defer dropMu.Unlock()
	dropFns[kind] = fn
}

// DropTable locates the TableDropper for kind and invokes it.
func DropTable(ctx context.Context, kind string, repo Repository, tbl schema.Table) error {
	dropMu.RLock()
	fn, ok := dropFns[kind]
	dropMu.RUnlock()
	if !ok {
		return fmt.Errorf("no table dropper registered for storage.kind=%q", kind)
	}
	return fn(ctx, repo, tbl)
}
