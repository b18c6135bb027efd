//go:build integration

package mssql

import (
	"context"
	"os"
	"testing"
	"time"
)

// getTestDSN reads the MSSQL_TEST_DSN environment variable.
// If it is empty, the caller should skip the test.
func getTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("MSSQL_TEST_DSN")
	if dsn == "" {
		t.Skip("MSSQL_TEST_DSN not set; skipping MSSQL integration tests")
	}
	return dsn
}

// TestNewRepositoryIntegration verifies that NewRepository can successfully
// connect to a real SQL Server and that the returned Close function works.
func TestNewRepositoryIntegration(t *testing.T) {
	dsn := getTestDSN(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	repo, closeFn, err := NewRepository(ctx, Config{DSN: dsn, Table: "tempdb.dbo.repo_integration_test"})
	if err != nil {
		t.Fatalf("NewRepository() error = %v, want nil", err)
	}
	if repo == nil {
		t.Fatalf("NewRepository() repo = nil, want non-nil")
	}
	closeFn()
}

// TestCopyFromUpsertCountIntegration exercises the full write surface
// against a real SQL Server: create a scratch table, bulk insert, merge an
// updated snapshot, and verify the counts.
func TestCopyFromUpsertCountIntegration(t *testing.T) {
	dsn := getTestDSN(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, closeFn, err := NewRepository(ctx, Config{
		DSN:        dsn,
		Table:      "tempdb.dbo.repo_upsert_test",
		Columns:    []string{"coin_id", "price"},
		KeyColumns: []string{"coin_id"},
	})
	if err != nil {
		t.Fatalf("NewRepository() error = %v, want nil", err)
	}
	defer closeFn()

	_ = repo.Exec(ctx, "IF OBJECT_ID('tempdb.dbo.repo_upsert_test', 'U') IS NOT NULL DROP TABLE tempdb.dbo.repo_upsert_test;")
	if err := repo.Exec(ctx, `
		CREATE TABLE tempdb.dbo.repo_upsert_test (
			coin_id NVARCHAR(100) NOT NULL PRIMARY KEY,
			price DECIMAL(20,8) NULL
		);`); err != nil {
		t.Fatalf("Exec(CREATE TABLE) error = %v", err)
	}

	rows := [][]any{
		{"bitcoin", 100.0},
		{"ethereum", 50.0},
	}
	n, err := repo.CopyFrom(ctx, []string{"coin_id", "price"}, rows)
	if err != nil {
		t.Fatalf("CopyFrom() error = %v, want nil", err)
	}
	if n != int64(len(rows)) {
		t.Fatalf("CopyFrom() inserted = %d, want %d", n, len(rows))
	}

	// Merge an updated bitcoin row plus a new coin.
	if _, err := repo.Upsert(ctx, []string{"coin_id", "price"}, [][]any{
		{"bitcoin", 200.0},
		{"tether", 1.0},
	}); err != nil {
		t.Fatalf("Upsert() error = %v, want nil", err)
	}

	total, err := repo.Count(ctx, "tempdb.dbo.repo_upsert_test")
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if total != 3 {
		t.Fatalf("Count() = %d, want 3", total)
	}
}
