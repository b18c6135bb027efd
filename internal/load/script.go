package load

import (
	"context"
	"fmt"
	"strings"

	"github.com/bened18/crypto-stock-etl/internal/storage"
)

// ExecScript applies a multi-statement SQL script to the store, one
// statement at a time. Failing statements are logged and skipped rather
// than aborting the script: generated schema scripts carry Postgres-only
// statements (COMMENT ON, CREATE OR REPLACE VIEW) that other backends
// reject, and a partially applicable script is still useful. Statements do
// not run inside a transaction.
//
// It returns the number of executed and failed statements. The error is
// non-nil only when the store cannot be opened or the context ends
// mid-script.
func (p *Planner) ExecScript(ctx context.Context, script string) (executed, failed int, err error) {
	stmts := splitStatements(script)
	if len(stmts) == 0 {
		return 0, 0, nil
	}

	repo, err := p.open(ctx, storage.Config{Kind: p.cfg.Kind, DSN: p.cfg.DSN})
	if err != nil {
		return 0, 0, fmt.Errorf("load: open %s store: %w", p.cfg.Kind, err)
	}
	defer repo.Close()

	for _, stmt := range stmts {
		if err := ctx.Err(); err != nil {
			return executed, failed, err
		}
		if err := repo.Exec(ctx, stmt); err != nil {
			failed++
			p.log.Warnw("statement failed, continuing", "statement", abbreviate(stmt, 60), "error", err)
			continue
		}
		executed++
	}

	p.log.Infow("schema script applied", "executed", executed, "failed", failed)
	return executed, failed, nil
}

// splitStatements splits a SQL script on semicolons into executable
// statements. Comment lines and blank lines are stripped first, so a
// statement preceded by "--" commentary still executes; fragments that
// were comments only are dropped. Semicolons inside string literals are
// not handled; the generated schema scripts never contain them.
func splitStatements(script string) []string {
	var out []string
	for _, frag := range strings.Split(script, ";") {
		var lines []string
		for _, ln := range strings.Split(frag, "\n") {
			t := strings.TrimSpace(ln)
			if t == "" || strings.HasPrefix(t, "--") {
				continue
			}
			lines = append(lines, t)
		}
		if len(lines) == 0 {
			continue
		}
		out = append(out, strings.Join(lines, "\n"))
	}
	return out
}

// abbreviate shortens s to at most n runes for log lines.
func abbreviate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
