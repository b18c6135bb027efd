package ddl

import (
	"fmt"
	"strings"
)

// Upsert emits an insert-or-update statement with positional placeholders
// ($1..$n) whose conflict clause updates every non-key column from the
// incoming row. When every column is part of the key there is nothing to
// update and the conflict clause degrades to DO NOTHING.
//
// The conflict column comes from schema.ConflictKey and is not validated
// here; a non-unique column shows up as an execution error on the store.
func Upsert(fqn string, columns []string, conflictCol string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s)\n", fqn, strings.Join(columns, ", "))
	fmt.Fprintf(&b, "VALUES (%s)\n", strings.Join(placeholders, ", "))
	fmt.Fprintf(&b, "ON CONFLICT (%s)\n", conflictCol)

	var updates []string
	for _, col := range columns {
		if col != conflictCol {
			updates = append(updates, fmt.Sprintf("    %s = EXCLUDED.%s", col, col))
		}
	}
	if len(updates) == 0 {
		b.WriteString("DO NOTHING;")
		return b.String()
	}
	b.WriteString("DO UPDATE SET\n")
	b.WriteString(strings.Join(updates, ",\n"))
	b.WriteString(";")
	return b.String()
}
