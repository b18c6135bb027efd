package ddl

import (
	"strings"
	"testing"
	"time"

	"github.com/bened18/crypto-stock-etl/internal/schema"
)

func marketFixture() schema.Table {
	return schema.Table{
		Namespace: "curated",
		Name:      "market_data",
		Columns: []schema.Column{
			{Name: "coin_id", SQLType: schema.TypeVarchar, PrimaryKey: true},
			{Name: "symbol", SQLType: schema.TypeVarchar},
			{Name: "market_cap_rank", SQLType: schema.TypeInteger, Nullable: true},
		},
	}
}

func historicalFixture() schema.Table {
	return schema.Table{
		Namespace: "curated",
		Name:      "historical_data",
		Columns: []schema.Column{
			{Name: "coin_id", SQLType: schema.TypeVarchar},
			{Name: "price_usd", SQLType: schema.TypeDecimal, Nullable: true},
		},
	}
}

func TestScript(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)
	got := Script(marketFixture(), historicalFixture(), at)

	for _, want := range []string{
		"-- COINGECKO ETL DATABASE SCHEMA",
		"-- Automatically generated 2026-02-14 09:30:00",
		"CREATE SCHEMA IF NOT EXISTS staging;",
		"CREATE SCHEMA IF NOT EXISTS curated;",
		"CREATE TABLE curated.market_data (",
		"CREATE TABLE curated.historical_data (",
		"CREATE INDEX idx_market_data_symbol ON curated.market_data (symbol);",
		"COMMENT ON TABLE curated.market_data IS 'Current cryptocurrency market data from CoinGecko';",
		"COMMENT ON TABLE curated.historical_data IS 'Historical cryptocurrency data from CoinGecko';",
		"CREATE OR REPLACE VIEW curated.top_market_cap AS",
		"CREATE OR REPLACE VIEW curated.top_gainers_24h AS",
		"CREATE OR REPLACE VIEW curated.top_losers_24h AS",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("script missing %q:\n%s", want, got)
		}
	}

	if idx := strings.Index(got, "REPORTING VIEWS"); idx < strings.Index(got, "historical_data") {
		t.Fatalf("views emitted before historical section")
	}
}

func TestScriptMarketOnly(t *testing.T) {
	t.Parallel()

	got := Script(marketFixture(), schema.Table{}, time.Now())
	if strings.Contains(got, "historical_data") {
		t.Fatalf("empty historical table still rendered:\n%s", got)
	}
	if !strings.Contains(got, "curated.top_market_cap") {
		t.Fatalf("views missing from market-only script:\n%s", got)
	}
}

func TestScriptHistoricalOnly(t *testing.T) {
	t.Parallel()

	got := Script(schema.Table{}, historicalFixture(), time.Now())
	if strings.Contains(got, "market_data") {
		t.Fatalf("empty market table still rendered:\n%s", got)
	}
	if strings.Contains(got, "REPORTING VIEWS") {
		t.Fatalf("views rendered without market table:\n%s", got)
	}
}

func TestScriptEmpty(t *testing.T) {
	t.Parallel()

	if got := Script(schema.Table{}, schema.Table{}, time.Now()); got != "" {
		t.Fatalf("Script over empty definitions = %q, want empty", got)
	}
}
