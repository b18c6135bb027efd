package ddl

import (
	"fmt"
	"strings"

	"github.com/bened18/crypto-stock-etl/internal/schema"
)

// BuildCreateTableSQL returns a SQLite CREATE TABLE IF NOT EXISTS statement
// for the given table definition. Namespaced names are flattened, so
// "curated.market_data" becomes the table "curated_market_data". Types are
// mapped through MapType; primary keys render inline and are always NOT
// NULL.
func BuildCreateTableSQL(tbl schema.Table) (string, error) {
	if strings.TrimSpace(tbl.Name) == "" {
		return "", fmt.Errorf("sqlite ddl: table name must not be empty")
	}
	if len(tbl.Columns) == 0 {
		return "", fmt.Errorf("sqlite ddl: at least one column is required")
	}

	cols := make([]string, 0, len(tbl.Columns))
	for _, c := range tbl.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return "", fmt.Errorf("sqlite ddl: column with empty name in table %s", tbl.Name)
		}

		var sb strings.Builder
		sb.WriteString(quoteIdent(c.Name))
		sb.WriteByte(' ')
		sb.WriteString(MapType(c.SQLType))
		if !c.Nullable || c.PrimaryKey {
			sb.WriteString(" NOT NULL")
		}
		if c.PrimaryKey {
			sb.WriteString(" PRIMARY KEY")
		}
		cols = append(cols, sb.String())
	}

	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s\n);",
		quoteIdent(FlatName(tbl)),
		strings.Join(cols, ",\n  "),
	), nil
}

// FlatName joins namespace and table name with an underscore, matching the
// repository's flattening of qualified load targets.
func FlatName(tbl schema.Table) string {
	if tbl.Namespace == "" {
		return tbl.Name
	}
	return tbl.Namespace + "_" + tbl.Name
}

func quoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
