// Package config defines the canonical configuration model for the ETL
// application. It is intentionally small and explicit so a run can be
// described by one YAML file and passed through the program without
// additional glue code.
//
// Design goals:
//
//  1. Stability: changes to this package should be additive and backwards-
//     compatible whenever possible.
//  2. Clarity: Go field names mirror the YAML structure used in
//     configs/*.yaml.
//  3. Predictability: defaults and environment overrides are applied in one
//     place (Load), never lazily at call sites.
//
// Example (trimmed):
//
//	job: coingecko_etl
//	data_dir: data
//	provider:
//	  coins: [bitcoin, ethereum]
//	  timeout: 30s
//	storage:
//	  kind: postgres
//	  market_table: curated.market_data
//	sync:
//	  mode: replace
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config is the top-level object decoded from a config file.
type Config struct {
	// Job names the run for metrics labeling and log correlation.
	Job string `yaml:"job"`

	// DataDir is the artifact directory shared by all stages.
	DataDir string `yaml:"data_dir"`

	Provider Provider `yaml:"provider"`
	Storage  Storage  `yaml:"storage"`
	Sync     Sync     `yaml:"sync"`
	API      API      `yaml:"api"`
}

// Provider holds CoinGecko client settings.
type Provider struct {
	// BaseURL is the API root. Empty means the public API.
	BaseURL string `yaml:"base_url"`

	// Coins lists coin IDs inline. When CoinsFile is also set, the file wins.
	Coins []string `yaml:"coins"`

	// CoinsFile points at a line-per-ID list file.
	CoinsFile string `yaml:"coins_file"`

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `yaml:"timeout"`
}

// Storage selects the sink used to persist transformed datasets.
type Storage struct {
	// Kind selects the storage backend: postgres, mysql, mssql, or sqlite.
	Kind string `yaml:"kind"`

	// DSN is the full connection string. When empty and Kind is postgres,
	// the connection string is assembled from DB.
	DSN string `yaml:"dsn"`

	// DB carries connection parts for postgres-style assembly.
	DB DB `yaml:"db"`

	// MarketTable and HistoricalTable are the destination FQNs.
	MarketTable     string `yaml:"market_table"`
	HistoricalTable string `yaml:"historical_table"`
}

// DB holds a single database connection as parts. Environment variables
// POSTGRES_HOST, POSTGRES_PORT, POSTGRES_DB, POSTGRES_USER, and
// POSTGRES_PASSWORD override these after the file is decoded.
type DB struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
}

// Sync controls how transformed datasets reach the store.
type Sync struct {
	// Mode is "replace" (delete-and-insert semantics) or "upsert" (merge on
	// the inferred conflict key).
	Mode string `yaml:"mode"`

	// BatchSize caps rows per bulk write.
	BatchSize int `yaml:"batch_size"`
}

// API holds read-API server settings.
type API struct {
	// Listen is the address the HTTP server binds, e.g. ":8000".
	Listen string `yaml:"listen"`
}

// Sync modes accepted by Validate.
const (
	SyncModeReplace = "replace"
	SyncModeUpsert  = "upsert"
)

// Default returns a Config carrying every default, the same values a Load
// of an empty file would produce.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	c.applyEnvOverrides()
	return c
}

func (c *Config) applyDefaults() {
	if c.Job == "" {
		c.Job = "coingecko_etl"
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if len(c.Provider.Coins) == 0 && c.Provider.CoinsFile == "" {
		c.Provider.Coins = []string{"bitcoin", "ethereum", "cardano", "solana"}
	}
	if c.Provider.Timeout <= 0 {
		c.Provider.Timeout = 30 * time.Second
	}
	if c.Storage.Kind == "" {
		c.Storage.Kind = "postgres"
	}
	if c.Storage.DB.Host == "" {
		c.Storage.DB.Host = "localhost"
	}
	if c.Storage.DB.Port == 0 {
		c.Storage.DB.Port = 5432
	}
	if c.Storage.DB.Name == "" {
		c.Storage.DB.Name = "coingecko_etl"
	}
	if c.Storage.DB.User == "" {
		c.Storage.DB.User = "coingecko_user"
	}
	if c.Storage.DB.Password == "" {
		c.Storage.DB.Password = "coingecko_password"
	}
	if c.Storage.DB.SSLMode == "" {
		c.Storage.DB.SSLMode = "disable"
	}
	if c.Storage.MarketTable == "" {
		c.Storage.MarketTable = "curated.market_data"
	}
	if c.Storage.HistoricalTable == "" {
		c.Storage.HistoricalTable = "curated.historical_data"
	}
	if c.Sync.Mode == "" {
		c.Sync.Mode = SyncModeReplace
	}
	if c.Sync.BatchSize <= 0 {
		c.Sync.BatchSize = 1000
	}
	if c.API.Listen == "" {
		c.API.Listen = ":8000"
	}
}

// applyEnvOverrides lets the POSTGRES_* environment win over file values,
// matching how the deployment images configure the store.
func (c *Config) applyEnvOverrides() {
	c.Storage.DB.Host = envOr("POSTGRES_HOST", c.Storage.DB.Host)
	if p, err := strconv.Atoi(os.Getenv("POSTGRES_PORT")); err == nil && p > 0 {
		c.Storage.DB.Port = p
	}
	c.Storage.DB.Name = envOr("POSTGRES_DB", c.Storage.DB.Name)
	c.Storage.DB.User = envOr("POSTGRES_USER", c.Storage.DB.User)
	c.Storage.DB.Password = envOr("POSTGRES_PASSWORD", c.Storage.DB.Password)
}

// ResolveDSN returns the connection string for the configured backend. An
// explicit dsn always wins; otherwise a postgresql:// URL is assembled from
// the DB parts.
func (s Storage) ResolveDSN() string {
	if s.DSN != "" {
		return s.DSN
	}
	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(s.DB.User, s.DB.Password),
		Host:   fmt.Sprintf("%s:%d", s.DB.Host, s.DB.Port),
		Path:   "/" + s.DB.Name,
	}
	if s.DB.SSLMode != "" {
		q := url.Values{}
		q.Set("sslmode", s.DB.SSLMode)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// envOr returns the environment value for key, or def when unset or empty.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
