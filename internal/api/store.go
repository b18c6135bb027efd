// Package api serves the curated tables over HTTP. The store queries
// Postgres through pgx directly rather than reusing the sync repositories:
// reads are shaped per endpoint and return JSON-ready rows.
package api

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound reports that a lookup matched no row.
var ErrNotFound = errors.New("not found")

// sortColumns are the orderable coin-listing columns, in the order they
// are reported to clients on a rejected sort_by.
var sortColumns = []string{
	"market_cap_rank",
	"current_price_usd",
	"price_change_percentage_24h",
	"total_volume_usd",
}

// Coin is one row of the curated market table as served to clients.
// Nullable numerics render as zero and nullable timestamps as "".
type Coin struct {
	CoinID              string  `json:"coin_id"`
	Symbol              string  `json:"symbol"`
	Name                string  `json:"name"`
	CurrentPriceUSD     float64 `json:"current_price_usd"`
	MarketCapUSD        int64   `json:"market_cap_usd"`
	MarketCapRank       int64   `json:"market_cap_rank"`
	TotalVolumeUSD      int64   `json:"total_volume_usd"`
	PriceChange24h      float64 `json:"price_change_percentage_24h"`
	LastUpdated         string  `json:"last_updated"`
	ExtractionTimestamp string  `json:"extraction_timestamp"`
}

// HistoricalEntry is one row of the curated historical table.
type HistoricalEntry struct {
	CoinID              string  `json:"coin_id"`
	Symbol              string  `json:"symbol"`
	Name                string  `json:"name"`
	PriceUSD            float64 `json:"price_usd"`
	PriceEUR            float64 `json:"price_eur"`
	PriceBTC            float64 `json:"price_btc"`
	MarketCapUSD        int64   `json:"market_cap_usd"`
	TotalVolumeUSD      int64   `json:"total_volume_usd"`
	ExtractionTimestamp string  `json:"extraction_timestamp"`
}

// Stats aggregates the market table.
type Stats struct {
	TotalCoins     int64   `json:"total_coins"`
	TotalMarketCap int64   `json:"total_market_cap"`
	AvgPrice       float64 `json:"avg_price"`
	LastUpdate     string  `json:"last_update"`
}

// CoinsParams paginates and orders the coin listing. The handler validates
// all fields before they reach the store.
type CoinsParams struct {
	Limit  int
	Offset int
	SortBy string
	Order  string
}

// Config locates the curated tables.
type Config struct {
	DSN             string // connection string for pgxpool
	MarketTable     string // fully qualified, e.g. "curated.market_data"
	HistoricalTable string
}

// DB answers API queries from Postgres.
type DB struct {
	pool *pgxpool.Pool
	cfg  Config
}

// Open connects a pool and returns the store plus a close function for
// cleanup.
func Open(ctx context.Context, cfg Config) (*DB, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	closeFn := func() { pool.Close() }
	return &DB{pool: pool, cfg: cfg}, closeFn, nil
}

const coinColumns = `coin_id, symbol, name, current_price_usd, market_cap_usd,
	market_cap_rank, total_volume_usd, price_change_percentage_24h,
	last_updated, extraction_timestamp`

const historicalColumns = `coin_id, symbol, name, price_usd, price_eur, price_btc,
	market_cap_usd, total_volume_usd, extraction_timestamp`

// Coins lists market rows ordered and paginated per params.
func (db *DB) Coins(ctx context.Context, p CoinsParams) ([]Coin, error) {
	// sortColumns membership was checked by the handler; check again here
	// because the column name is interpolated, not bound.
	if !slices.Contains(sortColumns, p.SortBy) {
		return nil, fmt.Errorf("unsortable column %q", p.SortBy)
	}
	dir := "ASC"
	if strings.EqualFold(p.Order, "desc") {
		dir = "DESC"
	}
	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s %s LIMIT $1 OFFSET $2",
		coinColumns, db.cfg.MarketTable, p.SortBy, dir)
	return db.selectCoins(ctx, q, p.Limit, p.Offset)
}

// Coin returns a single market row by coin id.
func (db *DB) Coin(ctx context.Context, id string) (Coin, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE coin_id = $1", coinColumns, db.cfg.MarketTable)
	c, err := scanCoin(db.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Coin{}, ErrNotFound
	}
	return c, err
}

// Historical returns the historical row for a coin id.
func (db *DB) Historical(ctx context.Context, id string) (HistoricalEntry, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE coin_id = $1",
		historicalColumns, db.cfg.HistoricalTable)

	var (
		h              HistoricalEntry
		usd, eur, btc  *float64
		capUSD, volume *float64
		extracted      *time.Time
	)
	err := db.pool.QueryRow(ctx, q, id).Scan(
		&h.CoinID, &h.Symbol, &h.Name, &usd, &eur, &btc, &capUSD, &volume, &extracted)
	if errors.Is(err, pgx.ErrNoRows) {
		return HistoricalEntry{}, ErrNotFound
	}
	if err != nil {
		return HistoricalEntry{}, err
	}
	h.PriceUSD = deref(usd)
	h.PriceEUR = deref(eur)
	h.PriceBTC = deref(btc)
	h.MarketCapUSD = int64(deref(capUSD))
	h.TotalVolumeUSD = int64(deref(volume))
	h.ExtractionTimestamp = timeStr(extracted)
	return h, nil
}

// TopMovers lists the strongest 24h movers. Gainers keeps positive movers
// ordered best-first; otherwise negative movers ordered worst-first.
func (db *DB) TopMovers(ctx context.Context, gainers bool, limit int) ([]Coin, error) {
	cmp, dir := "<", "ASC"
	if gainers {
		cmp, dir = ">", "DESC"
	}
	q := fmt.Sprintf(
		"SELECT %s FROM %s WHERE price_change_percentage_24h %s 0 ORDER BY price_change_percentage_24h %s LIMIT $1",
		coinColumns, db.cfg.MarketTable, cmp, dir)
	return db.selectCoins(ctx, q, limit)
}

// Stats aggregates the market table in one query.
func (db *DB) Stats(ctx context.Context) (Stats, error) {
	q := fmt.Sprintf(`SELECT COUNT(*), COALESCE(SUM(market_cap_usd), 0),
		COALESCE(AVG(current_price_usd), 0), MAX(extraction_timestamp) FROM %s`,
		db.cfg.MarketTable)

	var (
		s       Stats
		capSum  float64
		avg     float64
		updated *time.Time
	)
	if err := db.pool.QueryRow(ctx, q).Scan(&s.TotalCoins, &capSum, &avg, &updated); err != nil {
		return Stats{}, err
	}
	s.TotalMarketCap = int64(capSum)
	s.AvgPrice = avg
	s.LastUpdate = timeStr(updated)
	return s, nil
}

// Search matches q case-insensitively against name, symbol, and coin id,
// best-ranked first.
func (db *DB) Search(ctx context.Context, query string, limit int) ([]Coin, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	q := fmt.Sprintf(`SELECT %s FROM %s
		WHERE LOWER(name) LIKE $1 OR LOWER(symbol) LIKE $1 OR LOWER(coin_id) LIKE $1
		ORDER BY market_cap_rank ASC LIMIT $2`,
		coinColumns, db.cfg.MarketTable)
	return db.selectCoins(ctx, q, pattern, limit)
}

// Counts returns row counts for the market and historical tables.
func (db *DB) Counts(ctx context.Context) (market, historical int64, err error) {
	if err = db.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+db.cfg.MarketTable).Scan(&market); err != nil {
		return 0, 0, err
	}
	if err = db.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+db.cfg.HistoricalTable).Scan(&historical); err != nil {
		return 0, 0, err
	}
	return market, historical, nil
}

func (db *DB) selectCoins(ctx context.Context, q string, args ...any) ([]Coin, error) {
	rows, err := db.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Coin{}
	for rows.Next() {
		c, err := scanCoin(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// scanCoin reads one market row. Numeric columns scan through *float64 so
// BIGINT and DECIMAL columns both land, then narrow to the served type.
func scanCoin(row pgx.Row) (Coin, error) {
	var (
		c                  Coin
		price, capUSD      *float64
		rank, volume       *float64
		change             *float64
		updated, extracted *time.Time
	)
	err := row.Scan(&c.CoinID, &c.Symbol, &c.Name,
		&price, &capUSD, &rank, &volume, &change, &updated, &extracted)
	if err != nil {
		return Coin{}, err
	}
	c.CurrentPriceUSD = deref(price)
	c.MarketCapUSD = int64(deref(capUSD))
	c.MarketCapRank = int64(deref(rank))
	c.TotalVolumeUSD = int64(deref(volume))
	c.PriceChange24h = deref(change)
	c.LastUpdated = timeStr(updated)
	c.ExtractionTimestamp = timeStr(extracted)
	return c, nil
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func timeStr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
