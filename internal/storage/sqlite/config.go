package sqlite

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:etl.db?cache=shared"
	//   "etl.db" (interpreted by the driver)
	DSN string

	// Table is the target table name for inserts. SQLite has no schema
	// namespaces, so qualified names like "curated.market_data" are
	// flattened to "curated_market_data".
	Table string

	// Columns is the ordered list of destination columns.
	Columns []string

	// KeyColumns is the conflict target for Upsert.
	KeyColumns []string
}
