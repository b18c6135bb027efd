// Package postgres implements a Postgres repository using pgx v5. Bulk
// inserts use the native COPY protocol; upserts COPY into a temporary table
// and merge into the target with ON CONFLICT.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN        string   // connection string for pgxpool
	Table      string   // fully qualified target table name, e.g. "curated.market_data"
	Columns    []string // ordered columns for COPY and INSERT
	KeyColumns []string // conflict target columns
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
	cfg  Config
}

// NewRepository constructs a Repository and returns a Close function for
// cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	closeFn := func() { pool.Close() }
	return &Repository{pool: pool, cfg: cfg}, closeFn, nil
}

// CopyFrom bulk-inserts rows into the configured table via the COPY
// protocol.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	return r.pool.CopyFrom(ctx, splitFQN(r.cfg.Table), columns, pgx.CopyFromRows(rows))
}

// Upsert merges rows into the configured table on the configured key
// columns: COPY into a session temp table, then INSERT ... SELECT with an
// ON CONFLICT clause that replaces the non-key columns. With no key columns
// configured it degrades to a plain CopyFrom.
func (r *Repository) Upsert(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	keys := r.cfg.KeyColumns
	if len(keys) == 0 {
		return r.CopyFrom(ctx, columns, rows)
	}

	tmp := "tmp_" + strings.ReplaceAll(r.cfg.Table, ".", "_")
	fqTable := pgFQN(r.cfg.Table)

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	create := fmt.Sprintf(
		"CREATE TEMP TABLE %s AS SELECT %s FROM %s WHERE false",
		pgIdent(tmp), strings.Join(mapIdent(columns), ","), fqTable,
	)
	if _, err := conn.Exec(ctx, create); err != nil {
		return 0, fmt.Errorf("create temp: %w", err)
	}
	defer func() { _, _ = conn.Exec(ctx, "DROP TABLE IF EXISTS "+pgIdent(tmp)) }()

	copied, err := conn.CopyFrom(ctx, pgx.Identifier{tmp}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Detail != "" {
			return 0, fmt.Errorf("copy into temp: %s (%s)", pgErr.Detail, pgErr.SQLState())
		}
		return 0, fmt.Errorf("copy into temp: %w", err)
	}

	merge := fmt.Sprintf(
		"INSERT INTO %s (%s)\nSELECT %s FROM %s\n%s",
		fqTable,
		strings.Join(mapIdent(columns), ", "),
		strings.Join(mapIdent(columns), ", "),
		pgIdent(tmp),
		conflictClause(columns, keys),
	)
	if _, err := conn.Exec(ctx, merge); err != nil {
		return 0, fmt.Errorf("merge phase: %w", err)
	}
	return copied, nil
}

// conflictClause renders the ON CONFLICT tail of the merge statement. When
// every column is part of the key there is nothing to update and the clause
// degrades to DO NOTHING.
func conflictClause(columns, keys []string) string {
	keySet := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		keySet[k] = struct{}{}
	}
	var updates []string
	for _, col := range columns {
		if _, isKey := keySet[col]; !isKey {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", pgIdent(col), pgIdent(col)))
		}
	}
	target := strings.Join(mapIdent(keys), ", ")
	if len(updates) == 0 {
		return fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", target)
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", target, strings.Join(updates, ", "))
}

// Exec implements storage.Repository.Exec for Postgres.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	_, err := r.pool.Exec(ctx, sql)
	return err
}

// Count reports the number of rows in the named table.
func (r *Repository) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+pgFQN(table)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// pgIdent safely quotes a single identifier segment for Postgres.
func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// pgFQN quotes a possibly schema-qualified name like "curated.market_data"
// to "curated"."market_data". If no dot is present, returns a single quoted
// ident.
func pgFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pgIdent(p)
	}
	return strings.Join(parts, ".")
}

// mapIdent maps a list of column names to their quoted forms.
func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = pgIdent(c)
	}
	return out
}

// splitFQN converts "schema.table" into a pgx.Identifier {"schema","table"}.
// If no dot is present, returns {"table"}.
func splitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			id = append(id, p)
		}
	}
	return id
}
