package mysql

import (
	"context"
	"testing"

	"github.com/bened18/crypto-stock-etl/internal/storage"
)

func TestUpsertTail(t *testing.T) {
	t.Parallel()

	got := upsertTail([]string{"coin_id", "symbol", "price"}, []string{"coin_id"})
	want := " ON DUPLICATE KEY UPDATE `symbol` = VALUES(`symbol`), `price` = VALUES(`price`)"
	if got != want {
		t.Fatalf("upsertTail = %q, want %q", got, want)
	}

	got = upsertTail([]string{"coin_id"}, []string{"coin_id"})
	want = " ON DUPLICATE KEY UPDATE `coin_id` = `coin_id`"
	if got != want {
		t.Fatalf("upsertTail = %q, want %q", got, want)
	}
}

func TestIdentQuoting(t *testing.T) {
	t.Parallel()

	if got := myIdent("weird`name"); got != "`weird``name`" {
		t.Fatalf("myIdent = %q", got)
	}
	if got := myFQN("curated.market_data"); got != "`curated`.`market_data`" {
		t.Fatalf("myFQN = %q", got)
	}
	if got := myFQN("events"); got != "`events`" {
		t.Fatalf("myFQN = %q", got)
	}
}

func TestNewRepositoryRejectsBadDSN(t *testing.T) {
	t.Parallel()

	_, _, err := NewRepository(context.Background(), Config{DSN: "://not-a-dsn"})
	if err == nil {
		t.Fatal("expected error for invalid DSN")
	}
}

// TestAdapterRegistration verifies init wiring through the factory without
// opening a real connection. It swaps the construction hook, so it stays
// sequential.
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
		Kind:       "mysql",
		DSN:        "user:pass@tcp(localhost:3306)/curated?parseTime=true",
		Table:      "curated.market_data",
		Columns:    []string{"coin_id"},
		KeyColumns: []string{"coin_id"},
	})
	if err != nil {
		t.Fatalf("storage.New error: %v", err)
	}
	if gotCfg.Table != "curated.market_data" {
		t.Fatalf("adapter passed cfg %+v", gotCfg)
	}
	repo.Close()
	if !closed {
		t.Fatalf("Close() did not invoke closeFn")
	}
}
