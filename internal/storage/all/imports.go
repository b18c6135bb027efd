// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) causes the init functions of each concrete storage backend to run,
// which in turn register their factories and DDL bootstrappers with the
// storage package.
//
// In other words, importing this package makes the following storage kinds
// available at runtime:
//
//   - "postgres" (internal/storage/postgres)
//   - "mysql"    (internal/storage/mysql)
//   - "mssql"    (internal/storage/mssql)
//   - "sqlite"   (internal/storage/sqlite)
//
// Typical usage (in cmd/etl/main.go or a similar wiring layer):
//
//	package main
//
//	import (
//	    "context"
//
//	    _ "github.com/bened18/crypto-stock-etl/internal/storage/all" // enable all built-in backends
//
//	    "github.com/bened18/crypto-stock-etl/internal/storage"
//	)
//
//	func main() {
//	    ctx := context.Background()
//
//	    // Columns and key columns come from schema inference, so the
//	    // repository is opened after the dataset has been transformed.
//	    repo, err := storage.New(ctx, storage.Config{
//	        Kind:       "postgres",
//	        DSN:        dsn,
//	        Table:      "curated.market_data",
//	        Columns:    tbl.ColumnNames(),
//	        KeyColumns: []string{"coin_id"},
//	    })
//	    if err != nil {
//	        // handle error
//	    }
//	    defer repo.Close()
//
//	    // Create the destination table (and its namespace) if missing.
//	    if err := storage.EnsureTable(ctx, "postgres", repo, tbl); err != nil {
//	        // handle DDL error
//	    }
//
//	    // From this point on, the caller can remain fully backend-agnostic.
//	    // Writes all go through the storage.Repository interface, regardless
//	    // of whether the underlying backend is Postgres, MySQL, MSSQL, or
//	    // SQLite.
//	}
//
// This pattern keeps backend-specific wiring in a single, small package and
// allows the rest of the application (planner, transforms, CLI) to depend
// only on the storage abstraction rather than individual backends.
//
// Note: if you want a binary that supports only a subset of backends, you can
// define alternative wiring packages (e.g., storage/postgresonly) that import
// only the required backends instead of this package.
package all

import (
	_ "github.com/bened18/crypto-stock-etl/internal/storage/mssql"
	_ "github.com/bened18/crypto-stock-etl/internal/storage/mysql"
	_ "github.com/bened18/crypto-stock-etl/internal/storage/postgres"
	_ "github.com/bened18/crypto-stock-etl/internal/storage/sqlite"
)
