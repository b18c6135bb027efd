package transform

import (
	"strings"

	"github.com/bened18/crypto-stock-etl/internal/dataset"
	"github.com/bened18/crypto-stock-etl/pkg/records"
)

// HistoricalColumns is the fixed column order of a transformed historical
// snapshot: prices per major currency, caps and volumes per currency, plus
// identity and extraction metadata.
var HistoricalColumns = []string{
	"coin_id",
	"symbol",
	"name",
	"price_usd",
	"price_eur",
	"price_btc",
	"price_eth",
	"market_cap_usd",
	"market_cap_eur",
	"market_cap_btc",
	"total_volume_usd",
	"total_volume_eur",
	"total_volume_btc",
	"extraction_timestamp",
}

// HistoricalRows transforms one historical snapshot record into a
// single-row dataset. A record without market_data yields the canonical
// empty dataset and a warning, not an error.
func (t *Transformer) HistoricalRows(rec records.Record) *dataset.Table {
	t.log.Info("transforming historical data")

	marketData := rec.Map("market_data")
	if len(marketData) == 0 {
		t.log.Warn("no market data found in historical record")
		return dataset.New(nil)
	}

	price := marketData.Map("current_price")
	marketCap := marketData.Map("market_cap")
	volume := marketData.Map("total_volume")

	out := dataset.New(HistoricalColumns)
	row := []any{
		nullString(rec["id"]),
		strings.ToUpper(rec.String("symbol", "")),
		nullString(rec["name"]),

		nullFloat(price["usd"]),
		nullFloat(price["eur"]),
		nullFloat(price["btc"]),
		nullFloat(price["eth"]),

		nullInt(marketCap["usd"]),
		nullInt(marketCap["eur"]),
		nullInt(marketCap["btc"]),

		nullInt(volume["usd"]),
		nullInt(volume["eur"]),
		nullInt(volume["btc"]),

		nullTime(rec["extraction_timestamp"]),
	}
	if err := out.Append(row); err != nil {
		t.log.Errorf("historical transform: %v", err)
		return dataset.New(nil)
	}

	t.log.Info("historical transform completed")
	return out
}
