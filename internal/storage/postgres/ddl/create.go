package ddl

import (
	"fmt"
	"strings"

	"github.com/bened18/crypto-stock-etl/internal/schema"
)

// BuildCreateTableSQL builds a deterministic Postgres CREATE TABLE IF NOT
// EXISTS statement for the given table definition.
//
// Rules:
//   - The definition must name a table and carry at least one column.
//   - Primary-key columns are always rendered NOT NULL.
//   - Identifiers are double-quoted; embedded double-quotes are escaped.
func BuildCreateTableSQL(tbl schema.Table) (string, error) {
	if strings.TrimSpace(tbl.Name) == "" {
		return "", fmt.Errorf("postgres ddl: table name must not be empty")
	}
	if len(tbl.Columns) == 0 {
		return "", fmt.Errorf("postgres ddl: at least one column is required")
	}

	cols := make([]string, 0, len(tbl.Columns))
	for _, c := range tbl.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return "", fmt.Errorf("postgres ddl: column with empty name in table %s", tbl.FQN())
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
		quoteFQN(tbl.FQN()),
		strings.Join(cols, ",\n  "),
	), nil
}

// quoteIdent quotes a single identifier segment for Postgres, escaping
// embedded double quotes.
func quoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// quoteFQN quotes a possibly schema-qualified name like "curated.market_data"
// to "curated"."market_data". Empty segments are ignored.
func quoteFQN(fqn string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, quoteIdent(p))
	}
	return strings.Join(out, ".")
}
