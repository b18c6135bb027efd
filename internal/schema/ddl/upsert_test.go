package ddl

import (
	"strings"
	"testing"
)

func TestUpsert(t *testing.T) {
	t.Parallel()

	got := Upsert("curated.market_data", []string{"coin_id", "symbol", "price"}, "coin_id")
	want := strings.Join([]string{
		"INSERT INTO curated.market_data (coin_id, symbol, price)",
		"VALUES ($1, $2, $3)",
		"ON CONFLICT (coin_id)",
		"DO UPDATE SET",
		"    symbol = EXCLUDED.symbol,",
		"    price = EXCLUDED.price;",
	}, "\n")
	if got != want {
		t.Fatalf("Upsert =\n%s\nwant\n%s", got, want)
	}
}

func TestUpsertKeyOnly(t *testing.T) {
	t.Parallel()

	got := Upsert("curated.coins", []string{"coin_id"}, "coin_id")
	want := strings.Join([]string{
		"INSERT INTO curated.coins (coin_id)",
		"VALUES ($1)",
		"ON CONFLICT (coin_id)",
		"DO NOTHING;",
	}, "\n")
	if got != want {
		t.Fatalf("Upsert =\n%s\nwant\n%s", got, want)
	}
}
