package sqlite

import (
	"context"
	"path/filepath"
	"testing"
)

// newRepo opens a repository against a throwaway database file. modernc's
// pure-Go driver makes these tests hermetic: no external service, no cgo.
func newRepo(tb testing.TB, cfg Config) *Repository {
	tb.Helper()
	if cfg.DSN == "" {
		cfg.DSN = filepath.Join(tb.TempDir(), "etl.db")
	}
	r, closeFn, err := NewRepository(context.Background(), cfg)
	if err != nil {
		tb.Fatalf("NewRepository: %v", err)
	}
	tb.Cleanup(closeFn)
	return r
}

func mustExec(tb testing.TB, r *Repository, sqlStmt string) {
	tb.Helper()
	if err := r.Exec(context.Background(), sqlStmt); err != nil {
		tb.Fatalf("exec %q: %v", sqlStmt, err)
	}
}

func TestCopyFromAndCount(t *testing.T) {
	t.Parallel()

	r := newRepo(t, Config{Table: "curated.market_data"})
	ctx := context.Background()

	mustExec(t, r, `CREATE TABLE "curated_market_data" ("coin_id" TEXT NOT NULL PRIMARY KEY, "price" REAL)`)

	n, err := r.CopyFrom(ctx, []string{"coin_id", "price"}, [][]any{
		{"bitcoin", 50000.5},
		{"ethereum", 2500.25},
	})
	if err != nil {
		t.Fatalf("CopyFrom: %v", err)
	}
	if n != 2 {
		t.Fatalf("CopyFrom inserted %d, want 2", n)
	}

	got, err := r.Count(ctx, "curated.market_data")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if got != 2 {
		t.Fatalf("Count = %d, want 2", got)
	}
}

func TestCopyFromEmptyRows(t *testing.T) {
	t.Parallel()

	r := newRepo(t, Config{Table: "events"})
	n, err := r.CopyFrom(context.Background(), []string{"a"}, nil)
	if err != nil {
		t.Fatalf("CopyFrom: %v", err)
	}
	if n != 0 {
		t.Fatalf("CopyFrom inserted %d, want 0", n)
	}
}

func TestCopyFromRowLengthMismatch(t *testing.T) {
	t.Parallel()

	r := newRepo(t, Config{Table: "events"})
	mustExec(t, r, `CREATE TABLE "events" ("a" TEXT, "b" TEXT)`)

	_, err := r.CopyFrom(context.Background(), []string{"a", "b"}, [][]any{{"only one"}})
	if err == nil {
		t.Fatal("expected error for row/column length mismatch")
	}
}

func TestUpsertReplacesExistingRows(t *testing.T) {
	t.Parallel()

	r := newRepo(t, Config{Table: "curated.market_data", KeyColumns: []string{"coin_id"}})
	ctx := context.Background()

	mustExec(t, r, `CREATE TABLE "curated_market_data" ("coin_id" TEXT NOT NULL PRIMARY KEY, "price" REAL)`)

	if _, err := r.Upsert(ctx, []string{"coin_id", "price"}, [][]any{{"bitcoin", 100.0}}); err != nil {
		t.Fatalf("first Upsert: %v", err)
	}
	if _, err := r.Upsert(ctx, []string{"coin_id", "price"}, [][]any{{"bitcoin", 200.0}}); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	n, err := r.Count(ctx, "curated.market_data")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Fatalf("Count after conflicting upserts = %d, want 1", n)
	}

	var price float64
	row := r.db.QueryRowContext(ctx, `SELECT "price" FROM "curated_market_data" WHERE "coin_id" = ?`, "bitcoin")
	if err := row.Scan(&price); err != nil {
		t.Fatalf("scan price: %v", err)
	}
	if price != 200.0 {
		t.Fatalf("price after upsert = %v, want 200", price)
	}
}

func TestUpsertWithoutKeysFallsBackToInsert(t *testing.T) {
	t.Parallel()

	r := newRepo(t, Config{Table: "events"})
	ctx := context.Background()

	mustExec(t, r, `CREATE TABLE "events" ("a" TEXT)`)

	if _, err := r.Upsert(ctx, []string{"a"}, [][]any{{"x"}, {"x"}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	n, err := r.Count(ctx, "events")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Fatalf("Count = %d, want 2 plain inserts", n)
	}
}

func TestTableName(t *testing.T) {
	t.Parallel()

	if got := TableName("curated.market_data"); got != "curated_market_data" {
		t.Fatalf("TableName = %s, want curated_market_data", got)
	}
	if got := TableName("events"); got != "events" {
		t.Fatalf("TableName = %s, want events", got)
	}
}
