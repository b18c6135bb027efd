package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/bened18/crypto-stock-etl/internal/schema"
	"github.com/bened18/crypto-stock-etl/internal/storage"
)

// TestAdapterRegistration verifies that the init registration routes
// storage.New to this backend and that Close invokes the cleanup hook.
// It swaps the construction hook, so it must not run in parallel with
// tests that reach storage.New.
func TestAdapterRegistration(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var gotCfg Config
	closed := false
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		gotCfg = cfg
		return &Repository{}, func() { closed = true }, nil
	}

	repo, err := storage.New(context.Background(), storage.Config{
		Kind:       "sqlite",
		DSN:        "etl.db",
		Table:      "curated.market_data",
		Columns:    []string{"coin_id"},
		KeyColumns: []string{"coin_id"},
	})
	if err != nil {
		t.Fatalf("storage.New error: %v", err)
	}
	if gotCfg.DSN != "etl.db" || gotCfg.Table != "curated.market_data" {
		t.Fatalf("adapter passed cfg %+v", gotCfg)
	}

	repo.Close()
	if !closed {
		t.Fatalf("Close() did not invoke closeFn")
	}
}

// TestDDLBootstrapCreatesTable drives the registered bootstrapper through
// the storage-agnostic dispatcher against a real database file.
func TestDDLBootstrapCreatesTable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo, err := storage.New(ctx, storage.Config{
		Kind: "sqlite",
		DSN:  filepath.Join(t.TempDir(), "etl.db"),
	})
	if err != nil {
		t.Fatalf("storage.New error: %v", err)
	}
	defer repo.Close()

	tbl := schema.Table{
		Namespace: "curated",
		Name:      "market_data",
		Columns: []schema.Column{
			{Name: "coin_id", SQLType: schema.TypeVarchar, PrimaryKey: true},
			{Name: "price", SQLType: schema.TypeDecimal, Nullable: true},
		},
	}
	if err := storage.EnsureTable(ctx, "sqlite", repo, tbl); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	// Idempotent: applying the same definition twice must not error.
	if err := storage.EnsureTable(ctx, "sqlite", repo, tbl); err != nil {
		t.Fatalf("EnsureTable (second run): %v", err)
	}

	n, err := repo.Count(ctx, "curated.market_data")
	if err != nil {
		t.Fatalf("Count after bootstrap: %v", err)
	}
	if n != 0 {
		t.Fatalf("fresh table row count = %d, want 0", n)
	}
}
