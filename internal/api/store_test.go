package api

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
)

// fakeRow feeds scanCoin the column layout pgx would produce: strings for
// identity columns, nullable floats and timestamps for the rest.
type fakeRow struct {
	vals []any
}

func (r fakeRow) Scan(dest ...any) error {
	if len(dest) != len(r.vals) {
		return fmt.Errorf("scan arity %d, want %d", len(dest), len(r.vals))
	}
	for i, v := range r.vals {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case **float64:
			if v == nil {
				*d = nil
			} else {
				f := v.(float64)
				*d = &f
			}
		case **time.Time:
			if v == nil {
				*d = nil
			} else {
				ts := v.(time.Time)
				*d = &ts
			}
		default:
			return fmt.Errorf("unsupported dest %T", dest[i])
		}
	}
	return nil
}

func TestScanCoin(t *testing.T) {
	t.Parallel()

	updated := time.Date(2026, 8, 21, 12, 30, 0, 0, time.FixedZone("CEST", 2*3600))
	extracted := time.Date(2026, 8, 21, 10, 0, 0, 0, time.UTC)
	row := fakeRow{vals: []any{
		"bitcoin", "btc", "Bitcoin",
		64000.5, 1.26e12, 1.0, 3.4e10, -2.15,
		updated, extracted,
	}}

	c, err := scanCoin(row)
	if err != nil {
		t.Fatalf("scanCoin: %v", err)
	}
	if c.CoinID != "bitcoin" || c.Symbol != "btc" || c.Name != "Bitcoin" {
		t.Errorf("identity columns wrong: %+v", c)
	}
	if c.CurrentPriceUSD != 64000.5 || c.PriceChange24h != -2.15 {
		t.Errorf("price columns wrong: %+v", c)
	}
	if c.MarketCapUSD != 1_260_000_000_000 || c.MarketCapRank != 1 || c.TotalVolumeUSD != 34_000_000_000 {
		t.Errorf("integer columns wrong: %+v", c)
	}
	if c.LastUpdated != "2026-08-21T10:30:00Z" {
		t.Errorf("LastUpdated = %q, want UTC-normalized RFC3339", c.LastUpdated)
	}
	if c.ExtractionTimestamp != "2026-08-21T10:00:00Z" {
		t.Errorf("ExtractionTimestamp = %q", c.ExtractionTimestamp)
	}
}

func TestScanCoinNulls(t *testing.T) {
	t.Parallel()

	row := fakeRow{vals: []any{
		"newcoin", "new", "New Coin",
		nil, nil, nil, nil, nil,
		nil, nil,
	}}

	c, err := scanCoin(row)
	if err != nil {
		t.Fatalf("scanCoin: %v", err)
	}
	if c.CurrentPriceUSD != 0 || c.MarketCapUSD != 0 || c.MarketCapRank != 0 {
		t.Errorf("null numerics should map to zero: %+v", c)
	}
	if c.LastUpdated != "" || c.ExtractionTimestamp != "" {
		t.Errorf("null timestamps should map to empty strings: %+v", c)
	}
}

func TestCoinsRejectsUnknownSortColumn(t *testing.T) {
	t.Parallel()

	// pool is nil: reaching the query would panic, so an error here proves
	// the column never gets interpolated.
	db := &DB{cfg: Config{MarketTable: "curated.market_data"}}
	_, err := db.Coins(context.Background(), CoinsParams{Limit: 10, SortBy: "name; DROP TABLE x"})
	if err == nil {
		t.Fatal("expected an error for a non-whitelisted sort column")
	}
	if !strings.Contains(err.Error(), "unsortable column") {
		t.Errorf("err = %v, want unsortable column", err)
	}
}
