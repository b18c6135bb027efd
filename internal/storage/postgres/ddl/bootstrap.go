package ddl

import (
	"context"
	"fmt"

	"github.com/bened18/crypto-stock-etl/internal/schema"
	"github.com/bened18/crypto-stock-etl/internal/storage"
)

// EnsureTable creates the target Postgres table (and its schema namespace)
// if they do not exist. It is idempotent and issues plain DDL via the
// repository's Exec method.
func EnsureTable(ctx context.Context, repo storage.Repository, tbl schema.Table) error {
	if tbl.Namespace != "" {
		createSchema := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s;", quoteIdent(tbl.Namespace))
		if err := repo.Exec(ctx, createSchema); err != nil {
			return fmt.Errorf("create schema %s: %w", tbl.Namespace, err)
		}
	}
	sql, err := BuildCreateTableSQL(tbl)
	if err != nil {
		return err
	}
	return repo.Exec(ctx, sql)
}

// DropTable removes the target table if it exists. CASCADE also removes
// dependent objects such as the reporting views, which the schema script
// recreates after the sync.
func DropTable(ctx context.Context, repo storage.Repository, tbl schema.Table) error {
	sql := fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE;", quoteFQN(tbl.FQN()))
	return repo.Exec(ctx, sql)
}
