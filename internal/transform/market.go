package transform

import (
	"errors"
	"strings"

	"github.com/bened18/crypto-stock-etl/internal/dataset"
	"github.com/bened18/crypto-stock-etl/pkg/records"
)

// MarketColumns is the fixed column order of a transformed market snapshot.
var MarketColumns = []string{
	"coin_id",
	"symbol",
	"name",
	"current_price_usd",
	"high_24h_usd",
	"low_24h_usd",
	"market_cap_usd",
	"market_cap_rank",
	"fully_diluted_valuation_usd",
	"total_volume_usd",
	"price_change_24h_usd",
	"price_change_percentage_24h",
	"market_cap_change_24h_usd",
	"market_cap_change_percentage_24h",
	"circulating_supply",
	"total_supply",
	"max_supply",
	"ath_usd",
	"ath_change_percentage",
	"ath_date",
	"atl_usd",
	"atl_change_percentage",
	"atl_date",
	"last_updated",
	"extraction_timestamp",
	"price_to_ath_ratio",
	"price_to_atl_ratio",
	"market_cap_to_volume_ratio",
}

var errMissingCoinID = errors.New("missing coin id")

// MarketRows transforms one market snapshot into a typed dataset. Each raw
// record becomes one row; a record that cannot be transformed is logged and
// skipped, never aborting the batch. The result is sorted ascending by
// market_cap_rank with unranked coins last. When no record survives, the
// canonical empty dataset is returned.
func (t *Transformer) MarketRows(recs []records.Record) *dataset.Table {
	t.log.Infof("transforming market data: %d raw records", len(recs))

	out := dataset.New(MarketColumns)
	skipped := 0
	for _, rec := range recs {
		row, err := marketRow(rec)
		if err != nil {
			t.log.Errorf("market transform: skipping record %q: %v", rec.String("id", "unknown"), err)
			skipped++
			continue
		}
		if err := out.Append(row); err != nil {
			t.log.Errorf("market transform: skipping record %q: %v", rec.String("id", "unknown"), err)
			skipped++
		}
	}
	if out.Len() == 0 {
		t.log.Warnf("market transform produced no rows (%d skipped)", skipped)
		return dataset.New(nil)
	}

	out.SortByNumeric("market_cap_rank")
	t.log.Infof("market transform completed: %d valid records, %d skipped", out.Len(), skipped)
	return out
}

// marketRow maps one raw record to the MarketColumns order. Derived ratios
// are computed from the raw payload values, not from the already-coerced
// cells.
func marketRow(rec records.Record) ([]any, error) {
	id := rec.String("id", "")
	if strings.TrimSpace(id) == "" {
		return nil, errMissingCoinID
	}

	return []any{
		id,
		strings.ToUpper(rec.String("symbol", "")),
		nullString(rec["name"]),

		nullFloat(rec["current_price"]),
		nullFloat(rec["high_24h"]),
		nullFloat(rec["low_24h"]),

		nullInt(rec["market_cap"]),
		nullInt(rec["market_cap_rank"]),
		nullInt(rec["fully_diluted_valuation"]),

		nullInt(rec["total_volume"]),

		nullFloat(rec["price_change_24h"]),
		nullFloat(rec["price_change_percentage_24h"]),
		nullFloat(rec["market_cap_change_24h"]),
		nullFloat(rec["market_cap_change_percentage_24h"]),

		nullFloat(rec["circulating_supply"]),
		nullFloat(rec["total_supply"]),
		nullFloat(rec["max_supply"]),

		nullFloat(rec["ath"]),
		nullFloat(rec["ath_change_percentage"]),
		nullTime(rec["ath_date"]),
		nullFloat(rec["atl"]),
		nullFloat(rec["atl_change_percentage"]),
		nullTime(rec["atl_date"]),

		nullTime(rec["last_updated"]),
		nullTime(rec["extraction_timestamp"]),

		nullRatio(rec["current_price"], rec["ath"]),
		nullRatio(rec["current_price"], rec["atl"]),
		nullRatio(rec["market_cap"], rec["total_volume"]),
	}, nil
}
