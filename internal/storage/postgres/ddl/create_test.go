package ddl

import (
	"strings"
	"testing"

	"github.com/bened18/crypto-stock-etl/internal/schema"
)

func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	tbl := schema.Table{
		Namespace: "curated",
		Name:      "market_data",
		Columns: []schema.Column{
			{Name: "coin_id", SQLType: schema.TypeVarchar, PrimaryKey: true},
			{Name: "price", SQLType: schema.TypeDecimal, Nullable: true},
		},
	}

	got, err := BuildCreateTableSQL(tbl)
	if err != nil {
		t.Fatalf("BuildCreateTableSQL error: %v", err)
	}
	want := strings.Join([]string{
		`CREATE TABLE IF NOT EXISTS "curated"."market_data" (`,
		`  "coin_id" VARCHAR(255) NOT NULL PRIMARY KEY,`,
		`  "price" DECIMAL(20,8)`,
		`);`,
	}, "\n")
	if got != want {
		t.Fatalf("BuildCreateTableSQL =\n%s\nwant\n%s", got, want)
	}
}

func TestBuildCreateTableSQLRejectsInvalid(t *testing.T) {
	t.Parallel()

	if _, err := BuildCreateTableSQL(schema.Table{Name: "t"}); err == nil {
		t.Fatal("expected error for zero columns")
	}
	if _, err := BuildCreateTableSQL(schema.Table{
		Name:    "",
		Columns: []schema.Column{{Name: "c", SQLType: schema.TypeText}},
	}); err == nil {
		t.Fatal("expected error for empty table name")
	}
}

func TestMapTypeIdentity(t *testing.T) {
	t.Parallel()

	for _, typ := range []string{
		schema.TypeInteger, schema.TypeBigint, schema.TypeDecimal,
		schema.TypeTimestamp, schema.TypeBoolean, schema.TypeVarchar, schema.TypeText,
	} {
		if got := MapType(typ); got != typ {
			t.Fatalf("MapType(%s) = %s, want identity", typ, got)
		}
	}
}
