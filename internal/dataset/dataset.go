// Package dataset provides the in-memory tabular shape the pipeline moves
// between stages: ordered columns, row-wise storage, and the per-column
// queries (nullability, uniqueness, maxima) schema inference is built on.
//
// Cell values are one of: string, int64, float64, bool, time.Time, or nil.
// All queries are pure reads; SortByNumeric is the only mutating operation
// besides Append. An empty table (zero rows, zero or defined columns) is a
// valid terminal state and every consumer treats it as "nothing to do".
package dataset

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Table is a column-ordered, row-stored dataset.
type Table struct {
	cols  []string
	index map[string]int
	rows  [][]any
}

// New returns an empty table with the given column order. A nil or empty
// column list produces the canonical empty dataset.
func New(cols []string) *Table {
	t := &Table{
		cols:  append([]string(nil), cols...),
		index: make(map[string]int, len(cols)),
	}
	for i, c := range t.cols {
		t.index[c] = i
	}
	return t
}

// Columns returns the column names in declared order. The returned slice is
// a copy; mutating it does not affect the table.
func (t *Table) Columns() []string {
	return append([]string(nil), t.cols...)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns the i-th row. The slice is the table's backing storage;
// callers must not modify it.
func (t *Table) Row(i int) []any {
	return t.rows[i]
}

// Rows returns all rows in order, sharing backing storage with the table.
func (t *Table) Rows() [][]any {
	return t.rows
}

// Append adds one row. The row length must match the column count.
func (t *Table) Append(row []any) error {
	if len(row) != len(t.cols) {
		return fmt.Errorf("dataset: row has %d values, table has %d columns", len(row), len(t.cols))
	}
	t.rows = append(t.rows, row)
	return nil
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// Value returns the cell at row i, column name, and whether the column
// exists.
func (t *Table) Value(i int, name string) (any, bool) {
	c, ok := t.index[name]
	if !ok || i < 0 || i >= len(t.rows) {
		return nil, false
	}
	return t.rows[i][c], true
}

// HasNull reports whether the column contains at least one nil cell.
// Unknown columns read as fully null.
func (t *Table) HasNull(name string) bool {
	c, ok := t.index[name]
	if !ok {
		return true
	}
	for _, row := range t.rows {
		if row[c] == nil {
			return true
		}
	}
	return false
}

// IsUnique reports whether every value in the column is present and
// distinct. Any nil cell disqualifies the column outright: a column with
// missing values is never a uniqueness candidate. Empty tables and unknown
// columns are not unique.
func (t *Table) IsUnique(name string) bool {
	c, ok := t.index[name]
	if !ok || len(t.rows) == 0 {
		return false
	}
	seen := make(map[string]struct{}, len(t.rows))
	for _, row := range t.rows {
		v := row[c]
		if v == nil {
			return false
		}
		k := Render(v)
		if _, dup := seen[k]; dup {
			return false
		}
		seen[k] = struct{}{}
	}
	return true
}

// MaxStringLength returns the longest string rendering of any value in the
// column (nil renders as the empty string). Zero for unknown columns.
func (t *Table) MaxStringLength(name string) int {
	c, ok := t.index[name]
	if !ok {
		return 0
	}
	max := 0
	for _, row := range t.rows {
		if n := len(Render(row[c])); n > max {
			max = n
		}
	}
	return max
}

// Max returns the largest numeric value in the column. ok is false when the
// column is unknown or holds no numeric values.
func (t *Table) Max(name string) (float64, bool) {
	c, ok := t.index[name]
	if !ok {
		return 0, false
	}
	var (
		max   float64
		found bool
	)
	for _, row := range t.rows {
		f, ok := numeric(row[c])
		if !ok {
			continue
		}
		if !found || f > max {
			max = f
			found = true
		}
	}
	return max, found
}

// SortByNumeric orders rows ascending by the named column's numeric value.
// Rows whose value is nil or non-numeric sort last; the sort is stable so
// ties and the null block keep their relative order. Unknown columns leave
// the table untouched.
func (t *Table) SortByNumeric(name string) {
	c, ok := t.index[name]
	if !ok {
		return
	}
	sort.SliceStable(t.rows, func(a, b int) bool {
		av, aok := numeric(t.rows[a][c])
		bv, bok := numeric(t.rows[b][c])
		switch {
		case aok && bok:
			return av < bv
		case aok:
			return true
		default:
			return false
		}
	})
}

// Render converts one cell value into its canonical string form. Floats
// always carry a decimal or exponent marker so integral-valued floats stay
// distinguishable from true integers after a CSV round trip.
func Render(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		s := strconv.FormatFloat(x, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}

func numeric(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}
