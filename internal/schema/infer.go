package schema

import (
	"strings"
	"time"

	"github.com/bened18/crypto-stock-etl/internal/dataset"
)

// maxInteger is the cutoff above which integral columns widen to BIGINT.
const maxInteger = 2147483647

// Infer derives a table definition from the observed dataset. Per column,
// in declared order:
//
//  1. integral values   -> INTEGER when the name contains "id"
//     (case-insensitive) or the maximum stays below 2,147,483,647,
//     BIGINT otherwise
//  2. floating-point    -> DECIMAL(20,8)
//  3. temporal          -> TIMESTAMP WITH TIME ZONE
//  4. boolean           -> BOOLEAN
//  5. anything else     -> VARCHAR(255) up to 255 rendered characters,
//     TEXT beyond
//
// A column is NOT NULL iff the dataset holds no nil cell for it; this is a
// statement about the current sample, not a cross-run guarantee. The
// primary key is the first "id"-named unique column, else the first unique
// column, else none. An empty dataset infers an empty definition.
func Infer(t *dataset.Table, namespace, name string) Table {
	out := Table{Name: name, Namespace: namespace}
	if t == nil || t.Len() == 0 {
		return out
	}

	pk := primaryKey(t)
	for _, col := range t.Columns() {
		out.Columns = append(out.Columns, Column{
			Name:       col,
			SQLType:    inferType(t, col),
			Nullable:   t.HasNull(col),
			PrimaryKey: col == pk,
		})
	}
	return out
}

// ConflictKey selects the upsert conflict column with the same precedence
// as the primary key, but degrades to the dataset's first column when no
// column is unique. The fallback may not be a real key; callers still get
// a syntactically complete statement.
func ConflictKey(t *dataset.Table) string {
	if t == nil || t.Len() == 0 {
		return ""
	}
	if pk := primaryKey(t); pk != "" {
		return pk
	}
	return t.Columns()[0]
}

func primaryKey(t *dataset.Table) string {
	for _, col := range t.Columns() {
		if strings.Contains(strings.ToLower(col), "id") && t.IsUnique(col) {
			return col
		}
	}
	for _, col := range t.Columns() {
		if t.IsUnique(col) {
			return col
		}
	}
	return ""
}

func inferType(t *dataset.Table, col string) string {
	switch kindOf(t, col) {
	case colIntegral:
		if strings.Contains(strings.ToLower(col), "id") {
			return TypeInteger
		}
		if max, ok := t.Max(col); ok && max < maxInteger {
			return TypeInteger
		}
		return TypeBigint
	case colFloat:
		return TypeDecimal
	case colTemporal:
		return TypeTimestamp
	case colBoolean:
		return TypeBoolean
	default:
		if t.MaxStringLength(col) <= 255 {
			return TypeVarchar
		}
		return TypeText
	}
}

type colKind int

const (
	colTextual colKind = iota
	colIntegral
	colFloat
	colTemporal
	colBoolean
)

// kindOf classifies a column by its non-nil cell types. Mixed columns read
// as textual, matching the string fallback of the type policy.
func kindOf(t *dataset.Table, col string) colKind {
	var (
		kind colKind
		seen bool
	)
	for i := 0; i < t.Len(); i++ {
		v, _ := t.Value(i, col)
		if v == nil {
			continue
		}
		var k colKind
		switch v.(type) {
		case int64, int:
			k = colIntegral
		case float64:
			k = colFloat
		case time.Time:
			k = colTemporal
		case bool:
			k = colBoolean
		default:
			return colTextual
		}
		if !seen {
			kind, seen = k, true
			continue
		}
		if k != kind {
			return colTextual
		}
	}
	if !seen {
		return colTextual
	}
	return kind
}
