package ddl

import (
	"strings"
	"time"

	"github.com/bened18/crypto-stock-etl/internal/schema"
)

const banner = "-- ========================================"

// marketComments document the market table for operators browsing the
// store. Only the columns every snapshot carries are annotated.
var marketComments = []string{
	"COMMENT ON TABLE curated.market_data IS 'Current cryptocurrency market data from CoinGecko';",
	"COMMENT ON COLUMN curated.market_data.coin_id IS 'Unique cryptocurrency identifier';",
	"COMMENT ON COLUMN curated.market_data.current_price_usd IS 'Current price in USD';",
	"COMMENT ON COLUMN curated.market_data.market_cap_usd IS 'Market cap in USD';",
	"COMMENT ON COLUMN curated.market_data.extraction_timestamp IS 'Timestamp of when the data was extracted';",
}

var historicalComments = []string{
	"COMMENT ON TABLE curated.historical_data IS 'Historical cryptocurrency data from CoinGecko';",
	"COMMENT ON COLUMN curated.historical_data.coin_id IS 'Unique cryptocurrency identifier';",
	"COMMENT ON COLUMN curated.historical_data.price_usd IS 'Price in USD for the historical date';",
}

var reportingViews = []string{
	"-- Top 10 by market cap",
	"CREATE OR REPLACE VIEW curated.top_market_cap AS",
	"SELECT coin_id, symbol, name, current_price_usd, market_cap_usd, market_cap_rank",
	"FROM curated.market_data",
	"WHERE market_cap_rank <= 10",
	"ORDER BY market_cap_rank;",
	"",
	"-- Best 24h performers",
	"CREATE OR REPLACE VIEW curated.top_gainers_24h AS",
	"SELECT coin_id, symbol, name, current_price_usd, price_change_percentage_24h",
	"FROM curated.market_data",
	"WHERE price_change_percentage_24h > 0",
	"ORDER BY price_change_percentage_24h DESC",
	"LIMIT 10;",
	"",
	"-- Worst 24h performers",
	"CREATE OR REPLACE VIEW curated.top_losers_24h AS",
	"SELECT coin_id, symbol, name, current_price_usd, price_change_percentage_24h",
	"FROM curated.market_data",
	"WHERE price_change_percentage_24h < 0",
	"ORDER BY price_change_percentage_24h ASC",
	"LIMIT 10;",
}

// Script assembles the full schema artifact: banner, schema declarations,
// both table definitions with their indexes and documentation comments, and
// the reporting views. A table with no columns is skipped; when both are
// empty the script is empty and the caller emits nothing.
//
// The market table additionally feeds the reporting views, so the view
// block is only emitted when the market section is.
func Script(market, historical schema.Table, generatedAt time.Time) string {
	if len(market.Columns) == 0 && len(historical.Columns) == 0 {
		return ""
	}

	var lines []string
	lines = append(lines,
		banner,
		"-- COINGECKO ETL DATABASE SCHEMA",
		"-- Automatically generated "+generatedAt.Format("2006-01-02 15:04:05"),
		banner,
		"",
		"-- Create schemas",
		"CREATE SCHEMA IF NOT EXISTS staging;",
		"CREATE SCHEMA IF NOT EXISTS curated;",
		"",
	)

	if len(market.Columns) > 0 {
		lines = append(lines,
			banner,
			"-- TABLE: Current market data",
			banner,
			"",
			tableSection(market),
			"",
			"-- Comments on the table",
		)
		lines = append(lines, marketComments...)
		lines = append(lines, "")
	}

	if len(historical.Columns) > 0 {
		lines = append(lines,
			banner,
			"-- TABLE: Historical data",
			banner,
			"",
			tableSection(historical),
			"",
			"-- Comments on the table",
		)
		lines = append(lines, historicalComments...)
		lines = append(lines, "")
	}

	if len(market.Columns) > 0 {
		lines = append(lines,
			banner,
			"-- REPORTING VIEWS",
			banner,
			"",
		)
		lines = append(lines, reportingViews...)
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}

func tableSection(tbl schema.Table) string {
	parts := []string{CreateTable(tbl)}
	if idx := Indexes(tbl); len(idx) > 0 {
		parts = append(parts, "", "-- Indexes to improve performance")
		parts = append(parts, idx...)
	}
	return strings.Join(parts, "\n")
}
