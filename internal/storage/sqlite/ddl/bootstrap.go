package ddl

import (
	"context"

	"github.com/bened18/crypto-stock-etl/internal/schema"
	"github.com/bened18/crypto-stock-etl/internal/storage"
)

// EnsureTable creates the flattened target table if it does not exist. It
// is idempotent and issues the CREATE TABLE IF NOT EXISTS via the
// repository's Exec method.
func EnsureTable(ctx context.Context, repo storage.Repository, tbl schema.Table) error {
	sql, err := BuildCreateTableSQL(tbl)
	if err != nil {
		return err
	}
	return repo.Exec(ctx, sql)
}

// DropTable removes the flattened target table if it exists.
func DropTable(ctx context.Context, repo storage.Repository, tbl schema.Table) error {
	sql := "DROP TABLE IF EXISTS " + quoteIdent(FlatName(tbl)) + ";"
	return repo.Exec(ctx, sql)
}
