// Package mysql implements a MySQL-backed storage.Repository using
// database/sql and go-sql-driver. Bulk inserts use multi-row INSERT
// statements inside a transaction; upserts use ON DUPLICATE KEY UPDATE and
// therefore rely on the table's primary or unique key.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// insertChunk bounds the rows per multi-row INSERT so statements stay well
// under the server packet and placeholder limits.
const insertChunk = 1000

// Config holds MySQL repository configuration.
type Config struct {
	DSN        string   // e.g. "user:pass@tcp(localhost:3306)/curated?parseTime=true"
	Table      string   // possibly schema-qualified target, e.g. "curated.market_data"
	Columns    []string // ordered destination columns
	KeyColumns []string // carried for parity; the merge key is the table's unique key
}

// Repository is a MySQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository validates the DSN, opens a connection pool and returns a
// Repository plus a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if _, err := mysql.ParseDSN(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mysql dsn: %w", err)
	}
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sql.Open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("mysql: ping: %w", err)
	}

	closeFn := func() { _ = db.Close() }
	return &Repository{db: db, cfg: cfg}, closeFn, nil
}

// CopyFrom inserts rows into the configured table with chunked multi-row
// INSERT statements inside one transaction.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	return r.insertRows(ctx, columns, rows, "")
}

// Upsert merges rows with ON DUPLICATE KEY UPDATE over the non-key columns.
// When every column is part of the key the statement degrades to INSERT
// IGNORE semantics via a no-op self-assignment on the first key column.
func (r *Repository) Upsert(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	keys := r.cfg.KeyColumns
	if len(keys) == 0 {
		return r.CopyFrom(ctx, columns, rows)
	}
	return r.insertRows(ctx, columns, rows, upsertTail(columns, keys))
}

// upsertTail renders the ON DUPLICATE KEY UPDATE clause over the non-key
// columns. When every column is part of the key, a no-op self-assignment on
// the first key column keeps the statement valid while leaving existing
// rows untouched.
func upsertTail(columns, keys []string) string {
	keySet := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		keySet[k] = struct{}{}
	}
	var updates []string
	for _, col := range columns {
		if _, isKey := keySet[col]; !isKey {
			updates = append(updates, fmt.Sprintf("%s = VALUES(%s)", myIdent(col), myIdent(col)))
		}
	}
	if len(updates) == 0 {
		k := myIdent(keys[0])
		updates = []string{fmt.Sprintf("%s = %s", k, k)}
	}
	return " ON DUPLICATE KEY UPDATE " + strings.Join(updates, ", ")
}

func (r *Repository) insertRows(ctx context.Context, columns []string, rows [][]any, tail string) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("mysql: columns must not be empty")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mysql: begin tx: %w", err)
	}
	rollback := func() { _ = tx.Rollback() }

	valueTuple := "(" + placeholders(len(columns)) + ")"
	head := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES ",
		myFQN(r.cfg.Table),
		strings.Join(mapIdent(columns), ", "),
	)

	var written int64
	for start := 0; start < len(rows); start += insertChunk {
		end := start + insertChunk
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		tuples := make([]string, len(chunk))
		args := make([]any, 0, len(chunk)*len(columns))
		for i, row := range chunk {
			if len(row) != len(columns) {
				rollback()
				return 0, fmt.Errorf("mysql: row length %d != columns length %d", len(row), len(columns))
			}
			tuples[i] = valueTuple
			args = append(args, row...)
		}

		stmt := head + strings.Join(tuples, ", ") + tail
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			rollback()
			return 0, fmt.Errorf("mysql: insert chunk at %d: %w", start, err)
		}
		written += int64(len(chunk))
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mysql: commit: %w", err)
	}
	return written, nil
}

// Exec executes a SQL statement against the pool.
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	if strings.TrimSpace(sqlText) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, sqlText); err != nil {
		return fmt.Errorf("mysql: exec: %w", err)
	}
	return nil
}

// Count reports the number of rows in the named table.
func (r *Repository) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	q := "SELECT COUNT(*) FROM " + myFQN(table)
	if err := r.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("mysql: count %s: %w", table, err)
	}
	return n, nil
}

// myIdent quotes a MySQL identifier with backticks, escaping embedded
// backticks.
func myIdent(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

// myFQN quotes a possibly schema-qualified name like "curated.market_data"
// to `curated`.`market_data`.
func myFQN(name string) string {
	parts := strings.Split(name, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, myIdent(p))
		}
	}
	return strings.Join(out, ".")
}

func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = myIdent(c)
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
