// Package ddl contains SQLite-specific helpers for applying inferred table
// definitions.
package ddl

import "github.com/bened18/crypto-stock-etl/internal/schema"

// MapType translates a canonical column type into a SQLite column type.
//
// SQLite uses dynamic typing, so the mapping prefers canonical affinities:
// integers stay INTEGER, decimals become REAL, booleans become INTEGER
// (0/1), timestamps are stored as ISO-8601 TEXT.
func MapType(canonical string) string {
	switch canonical {
	case schema.TypeInteger, schema.TypeBigint:
		return "INTEGER"
	case schema.TypeDecimal:
		return "REAL"
	case schema.TypeBoolean:
		return "INTEGER" // 0/1
	case schema.TypeTimestamp:
		return "TEXT" // ISO-8601 strings
	case schema.TypeVarchar, schema.TypeText:
		return "TEXT"
	default:
		return "TEXT"
	}
}
