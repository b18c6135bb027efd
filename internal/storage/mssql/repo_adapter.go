// This adapter wires the MSSQL backend into the storage-agnostic factory.

package mssql

import (
	"context"

	"github.com/bened18/crypto-stock-etl/internal/schema"
	"github.com/bened18/crypto-stock-etl/internal/storage"
	msddl "github.com/bened18/crypto-stock-etl/internal/storage/mssql/ddl"
)

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace this variable to avoid real DB connections.
var newRepository = NewRepository

var _ storage.Repository = (*wrappedRepo)(nil)

func init() {
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{
			DSN:        cfg.DSN,
			Table:      cfg.Table,
			Columns:    cfg.Columns,
			KeyColumns: cfg.KeyColumns,
		})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})

	storage.RegisterDDL("mssql",
		func(ctx context.Context, repo storage.Repository, tbl schema.Table) error {
			return msddl.EnsureTable(ctx, repo, tbl)
		})

	storage.RegisterDrop("mssql", msddl.DropTable)
}

// wrappedRepo adapts *mssql.Repository to storage.Repository and provides
// Close.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}
