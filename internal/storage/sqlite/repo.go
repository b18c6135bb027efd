// Package sqlite implements a SQLite-backed storage.Repository using
// database/sql. It performs batched INSERTs inside a transaction; SQLite
// does not have a dedicated bulk-load API like Postgres COPY, but
// transactions keep performance acceptable for snapshot volumes.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure-Go driver, no cgo
)

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository opens a SQLite connection using the provided DSN and
// returns a Repository plus a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	// Enable foreign keys by default; ignore error if driver doesn't support it.
	_, _ = db.ExecContext(ctx, "PRAGMA foreign_keys = ON;")

	closeFn := func() { db.Close() }
	return &Repository{db: db, cfg: cfg}, closeFn, nil
}

// CopyFrom inserts the given rows into the configured table using a single
// transaction and a prepared INSERT statement. len(row) must equal
// len(columns) for every row.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	stmtSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(TableName(r.cfg.Table)),
		strings.Join(quoteAll(columns), ", "),
		placeholders(len(columns)),
	)
	return r.execRows(ctx, stmtSQL, columns, rows)
}

// Upsert merges rows on the configured key columns using SQLite's
// ON CONFLICT clause. With no key columns configured it degrades to a plain
// CopyFrom.
func (r *Repository) Upsert(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	keys := r.cfg.KeyColumns
	if len(keys) == 0 {
		return r.CopyFrom(ctx, columns, rows)
	}

	keySet := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		keySet[k] = struct{}{}
	}
	var updates []string
	for _, col := range columns {
		if _, isKey := keySet[col]; !isKey {
			updates = append(updates, fmt.Sprintf("%s = excluded.%s", quoteIdent(col), quoteIdent(col)))
		}
	}
	conflict := fmt.Sprintf("ON CONFLICT(%s) DO NOTHING", strings.Join(quoteAll(keys), ", "))
	if len(updates) > 0 {
		conflict = fmt.Sprintf(
			"ON CONFLICT(%s) DO UPDATE SET %s",
			strings.Join(quoteAll(keys), ", "),
			strings.Join(updates, ", "),
		)
	}

	stmtSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) %s",
		quoteIdent(TableName(r.cfg.Table)),
		strings.Join(quoteAll(columns), ", "),
		placeholders(len(columns)),
		conflict,
	)
	return r.execRows(ctx, stmtSQL, columns, rows)
}

// execRows runs the prepared statement once per row inside one transaction.
func (r *Repository) execRows(ctx context.Context, stmtSQL string, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("sqlite: columns must not be empty")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	var written int64
	for _, row := range rows {
		if len(row) != len(columns) {
			_ = tx.Rollback()
			return 0, fmt.Errorf("sqlite: row length %d != columns length %d", len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("sqlite: insert: %w", err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return written, nil
}

// Exec executes an arbitrary SQL statement (typically DDL) using the
// underlying database/sql connection.
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	if strings.TrimSpace(sqlText) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, sqlText); err != nil {
		return fmt.Errorf("sqlite: exec: %w", err)
	}
	return nil
}

// Count reports the number of rows in the named table. The name is
// flattened the same way as the load target.
func (r *Repository) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	q := "SELECT COUNT(*) FROM " + quoteIdent(TableName(table))
	if err := r.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count %s: %w", table, err)
	}
	return n, nil
}

// TableName flattens a qualified name like "curated.market_data" into a
// plain SQLite table name.
func TableName(fqn string) string {
	return strings.ReplaceAll(strings.TrimSpace(fqn), ".", "_")
}

func quoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func quoteAll(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = quoteIdent(c)
	}
	return out
}

func placeholders(n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = "?"
	}
	return strings.Join(ps, ", ")
}
