// Package ddl contains MSSQL-specific helpers for applying inferred table
// definitions.
package ddl

import "github.com/bened18/crypto-stock-etl/internal/schema"

// MapType translates a canonical column type into a SQL Server column type.
// Text becomes NVARCHAR since SQL Server's TEXT type is deprecated, and
// timezone-aware timestamps become DATETIMEOFFSET.
func MapType(canonical string) string {
	switch canonical {
	case schema.TypeInteger:
		return "INT"
	case schema.TypeBigint:
		return "BIGINT"
	case schema.TypeDecimal:
		return "DECIMAL(20,8)"
	case schema.TypeTimestamp:
		return "DATETIMEOFFSET"
	case schema.TypeBoolean:
		return "BIT"
	case schema.TypeVarchar:
		return "NVARCHAR(255)"
	case schema.TypeText:
		return "NVARCHAR(MAX)"
	default:
		return "NVARCHAR(MAX)"
	}
}
