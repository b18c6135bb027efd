// Package schema derives relational table definitions from observed
// datasets. Inference is pure and deterministic: the same dataset always
// yields the same definition, so tests construct datasets directly and
// assert on the result without a store dependency.
package schema

// Canonical column types. Storage backends translate these into their own
// dialect; the emitter renders them verbatim for PostgreSQL.
const (
	TypeInteger   = "INTEGER"
	TypeBigint    = "BIGINT"
	TypeDecimal   = "DECIMAL(20,8)"
	TypeTimestamp = "TIMESTAMP WITH TIME ZONE"
	TypeBoolean   = "BOOLEAN"
	TypeVarchar   = "VARCHAR(255)"
	TypeText      = "TEXT"
)

// Column describes a single inferred column.
//
// Fields:
//   - Name: logical column name (unquoted; quoting happens at render time)
//   - SQLType: one of the canonical type constants
//   - Nullable: whether NULL is allowed, judged on the observed dataset only
//   - PrimaryKey: whether this column was chosen as the primary key
type Column struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
}

// Table is an ordered column list plus the target table identity. Namespace
// is the schema qualifier ("curated"); an empty namespace renders a bare
// table name.
type Table struct {
	Name      string
	Namespace string
	Columns   []Column
}

// FQN returns the dotted fully-qualified name.
func (t Table) FQN() string {
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

// ColumnNames returns the column names in declared order.
func (t Table) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// PrimaryKey returns the primary-key column name, or "" when the table has
// none.
func (t Table) PrimaryKey() string {
	for _, c := range t.Columns {
		if c.PrimaryKey {
			return c.Name
		}
	}
	return ""
}
