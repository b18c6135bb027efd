// Package ddl renders inferred table definitions into SQL. Everything here
// is pure string building; no I/O happens until a caller hands the text to
// a store.
//
// Rendered identifiers are not quoted. Every name that reaches this package
// has already passed identifier normalization.
package ddl

import (
	"fmt"
	"strings"

	"github.com/bened18/crypto-stock-etl/internal/schema"
)

// CreateTable emits one CREATE TABLE statement: columns in declared order,
// NOT NULL where the dataset had no missing values, PRIMARY KEY on the
// chosen column.
func CreateTable(tbl schema.Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", tbl.FQN())
	for i, col := range tbl.Columns {
		b.WriteString("    ")
		b.WriteString(col.Name)
		b.WriteByte(' ')
		b.WriteString(col.SQLType)
		if !col.Nullable {
			b.WriteString(" NOT NULL")
		}
		if col.PrimaryKey {
			b.WriteString(" PRIMARY KEY")
		}
		if i < len(tbl.Columns)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString(");")
	return b.String()
}

// indexedColumns are the columns that get a secondary index when present.
var indexedColumns = []string{"extraction_timestamp", "symbol", "market_cap_rank"}

// Indexes emits CREATE INDEX statements for the well-known query columns,
// each conditioned on the column's presence in the definition. Index names
// embed the bare table name, never the namespace, so they stay valid
// identifiers.
func Indexes(tbl schema.Table) []string {
	present := make(map[string]bool, len(tbl.Columns))
	for _, c := range tbl.Columns {
		present[c.Name] = true
	}
	var out []string
	for _, col := range indexedColumns {
		if present[col] {
			out = append(out, fmt.Sprintf("CREATE INDEX idx_%s_%s ON %s (%s);", tbl.Name, col, tbl.FQN(), col))
		}
	}
	return out
}
