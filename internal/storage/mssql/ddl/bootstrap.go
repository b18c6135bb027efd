package ddl

import (
	"context"
	"fmt"

	"github.com/bened18/crypto-stock-etl/internal/schema"
	"github.com/bened18/crypto-stock-etl/internal/storage"
)

// EnsureTable creates the target SQL Server schema and table if they do not
// already exist. Both statements are guarded, so the operation is
// idempotent and safe to call on every run.
func EnsureTable(ctx context.Context, repo storage.Repository, tbl schema.Table) error {
	if tbl.Namespace != "" {
		guard := fmt.Sprintf(
			"IF SCHEMA_ID(N'%s') IS NULL EXEC(N'CREATE SCHEMA %s');",
			tbl.Namespace,
			quoteIdent(tbl.Namespace),
		)
		if err := repo.Exec(ctx, guard); err != nil {
			return fmt.Errorf("create schema %s: %w", tbl.Namespace, err)
		}
	}
	sql, err := BuildCreateTableSQL(tbl)
	if err != nil {
		return err
	}
	return repo.Exec(ctx, sql)
}

// DropTable removes the target table if it exists.
func DropTable(ctx context.Context, repo storage.Repository, tbl schema.Table) error {
	sql := fmt.Sprintf("DROP TABLE IF EXISTS %s;", quoteFQN(tbl.FQN()))
	return repo.Exec(ctx, sql)
}
