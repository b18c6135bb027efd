package ddl

import (
	"fmt"
	"strings"

	"github.com/bened18/crypto-stock-etl/internal/schema"
)

// BuildCreateTableSQL returns a T-SQL script that creates a table matching
// the provided definition if it does not already exist. T-SQL has no
// CREATE TABLE IF NOT EXISTS, so the statement is wrapped in an
// IF OBJECT_ID(...) IS NULL guard:
//
//	IF OBJECT_ID(N'[curated].[market_data]', N'U') IS NULL
//	BEGIN
//	  CREATE TABLE [curated].[market_data] (
//	    [coin_id] NVARCHAR(255) NOT NULL PRIMARY KEY,
//	    [price] DECIMAL(20,8)
//	  );
//	END
func BuildCreateTableSQL(tbl schema.Table) (string, error) {
	if strings.TrimSpace(tbl.Name) == "" {
		return "", fmt.Errorf("mssql ddl: table name must not be empty")
	}
	if len(tbl.Columns) == 0 {
		return "", fmt.Errorf("mssql ddl: at least one column is required")
	}

	cols := make([]string, 0, len(tbl.Columns))
	for _, c := range tbl.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return "", fmt.Errorf("mssql ddl: column with empty name in table %s", tbl.FQN())
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

	fqn := quoteFQN(tbl.FQN())
	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n  CREATE TABLE %s (\n    %s\n  );\nEND",
		fqn,
		fqn,
		strings.Join(cols, ",\n    "),
	), nil
}

// quoteIdent quotes a SQL Server identifier using [brackets], escaping ].
func quoteIdent(id string) string { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }

// quoteFQN quotes a possibly schema-qualified name, segment by segment.
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
