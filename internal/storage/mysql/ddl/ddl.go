// Package ddl contains MySQL-specific helpers for applying inferred table
// definitions.
package ddl

import (
	"context"
	"fmt"
	"strings"

	"github.com/bened18/crypto-stock-etl/internal/schema"
	"github.com/bened18/crypto-stock-etl/internal/storage"
)

// MapType translates a canonical column type into its MySQL spelling.
// MySQL has no timezone-aware timestamp, so temporal columns become
// DATETIME(6) and the loader writes UTC values.
func MapType(canonical string) string {
	switch canonical {
	case schema.TypeInteger:
		return "INT"
	case schema.TypeBigint:
		return "BIGINT"
	case schema.TypeDecimal:
		return "DECIMAL(20,8)"
	case schema.TypeTimestamp:
		return "DATETIME(6)"
	case schema.TypeBoolean:
		return "TINYINT(1)"
	case schema.TypeVarchar:
		return "VARCHAR(255)"
	case schema.TypeText:
		return "TEXT"
	default:
		return "TEXT"
	}
}

// BuildCreateTableSQL returns a MySQL CREATE TABLE IF NOT EXISTS statement
// for the given table definition.
func BuildCreateTableSQL(tbl schema.Table) (string, error) {
	if strings.TrimSpace(tbl.Name) == "" {
		return "", fmt.Errorf("mysql ddl: table name must not be empty")
	}
	if len(tbl.Columns) == 0 {
		return "", fmt.Errorf("mysql ddl: at least one column is required")
	}

	cols := make([]string, 0, len(tbl.Columns))
	for _, c := range tbl.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return "", fmt.Errorf("mysql ddl: column with empty name in table %s", tbl.FQN())
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

// EnsureTable creates the target schema and table if they do not exist.
// CREATE SCHEMA is a synonym for CREATE DATABASE in MySQL, which gives the
// namespaced FQN a home without separate provisioning.
func EnsureTable(ctx context.Context, repo storage.Repository, tbl schema.Table) error {
	if tbl.Namespace != "" {
		createSchema := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s;", quoteIdent(tbl.Namespace))
		if err := repo.Exec(ctx, createSchema); err != nil {
			return fmt.Errorf("create schema %s: %w", tbl.Namespace, err)
		}
	}
	sql, err := BuildCreateTableSQL(tbl)
	if err != nil {
		return err
	}
	return repo.Exec(ctx, sql)
}

// DropTable removes the target table if it exists.
func DropTable(ctx context.Context, repo storage.Repository, tbl schema.Table) error {
	sql := fmt.Sprintf("DROP TABLE IF EXISTS %s;", quoteFQN(tbl.FQN()))
	return repo.Exec(ctx, sql)
}

func quoteIdent(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

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
