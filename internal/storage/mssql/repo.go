// Package mssql implements a Microsoft SQL Server repository using the
// go-mssqldb bulk copy API. Bulk inserts go straight into the target table;
// upserts bulk-copy into a session temp table and MERGE into the target.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"
)

// Config holds MSSQL repository configuration.
type Config struct {
	DSN        string
	Table      string
	Columns    []string
	KeyColumns []string
}

// Repository is an MSSQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository constructs a Repository and returns a Close function for
// cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	// Parse the DSN before opening the pool so bad strings error here.
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mssql dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	closeFn := func() { _ = db.Close() }
	return &Repository{db: db, cfg: cfg}, closeFn, nil
}

// CopyFrom performs a bulk insert directly into the configured target table.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	rollback := func() { _ = tx.Rollback() }

	n, err := bulkCopy(ctx, tx, r.cfg.Table, columns, rows)
	if err != nil {
		rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// Upsert bulk-copies rows into a session temp table and merges them into
// the target on the configured key columns. With no key columns configured
// it degrades to a plain CopyFrom.
func (r *Repository) Upsert(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	keys := r.cfg.KeyColumns
	if len(keys) == 0 {
		return r.CopyFrom(ctx, columns, rows)
	}

	tmp := "#tmp_" + strings.ReplaceAll(r.cfg.Table, ".", "_")
	fqTable := msFQN(r.cfg.Table)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	rollback := func() { _ = tx.Rollback() }

	// Temp table with the same shape as the target.
	create := fmt.Sprintf(
		"SELECT TOP 0 %s INTO %s FROM %s",
		strings.Join(mapIdent(columns), ","),
		msIdent(tmp),
		fqTable,
	)
	if _, err := tx.ExecContext(ctx, create); err != nil {
		rollback()
		return 0, fmt.Errorf("create temp: %w", err)
	}

	copied, err := bulkCopy(ctx, tx, tmp, columns, rows)
	if err != nil {
		rollback()
		return 0, err
	}

	if _, err := tx.ExecContext(ctx, mergeStatement(fqTable, msIdent(tmp), columns, keys)); err != nil {
		rollback()
		return 0, fmt.Errorf("merge phase: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return copied, nil
}

// bulkCopy streams rows into table via the driver's bulk copy protocol and
// reports the row count from the final flush.
func bulkCopy(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) (int64, error) {
	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(table, mssql.BulkOptions{}, columns...))
	if err != nil {
		return 0, fmt.Errorf("prepare bulk: %w", err)
	}
	for i := range rows {
		if _, err := stmt.ExecContext(ctx, rows[i]...); err != nil {
			_ = stmt.Close()
			return 0, fmt.Errorf("bulk row %d: %w", i, err)
		}
	}
	res, err := stmt.ExecContext(ctx)
	if cerr := stmt.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("bulk finalize: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// mergeStatement renders the T-SQL MERGE from the temp table into the
// target. When every column is part of the key the WHEN MATCHED clause is
// omitted and existing rows stay untouched.
func mergeStatement(target, source string, columns, keys []string) string {
	keySet := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		keySet[k] = struct{}{}
	}

	conds := make([]string, 0, len(keys))
	for _, k := range keys {
		conds = append(conds, fmt.Sprintf("T.%s = S.%s", msIdent(k), msIdent(k)))
	}

	var updates []string
	for _, col := range columns {
		if _, isKey := keySet[col]; !isKey {
			updates = append(updates, fmt.Sprintf("T.%s = S.%s", msIdent(col), msIdent(col)))
		}
	}

	sourceCols := make([]string, 0, len(columns))
	for _, col := range columns {
		sourceCols = append(sourceCols, "S."+msIdent(col))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "MERGE %s AS T\nUSING %s AS S\nON %s\n", target, source, strings.Join(conds, " AND "))
	if len(updates) > 0 {
		fmt.Fprintf(&b, "WHEN MATCHED THEN UPDATE SET %s\n", strings.Join(updates, ", "))
	}
	fmt.Fprintf(&b, "WHEN NOT MATCHED THEN INSERT (%s) VALUES (%s);",
		strings.Join(mapIdent(columns), ", "),
		strings.Join(sourceCols, ", "),
	)
	return b.String()
}

// Exec executes a SQL statement against the pool.
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	_, err := r.db.ExecContext(ctx, sqlText)
	return err
}

// Count reports the number of rows in the named table.
func (r *Repository) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	q := "SELECT COUNT(*) FROM " + msFQN(table)
	if err := r.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// msIdent safely quotes a SQL Server identifier using [brackets], escaping ].
func msIdent(id string) string { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }

// msFQN quotes a possibly schema-qualified name like "curated.market_data"
// to "[curated].[market_data]". If no dot is present, returns a single
// quoted ident.
func msFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = msIdent(p)
	}
	return strings.Join(parts, ".")
}

// mapIdent maps a list of column names to their quoted forms.
func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = msIdent(c)
	}
	return out
}
