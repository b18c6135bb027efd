// This file adds a lightweight linter/validator for Config values. It
// performs static checks over a decoded Config and returns a list of issues
// (errors and warnings) that callers can surface in a CLI or tests.

package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is a dotted path into the config (e.g. "storage.kind",
// "provider.coins"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue in the slice is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static validation of the config.
//
// It does not mutate the config. Callers decide whether to treat warnings
// as fatal or not; errors should always abort.
func (c *Config) Validate() []Issue {
	var issues []Issue

	if strings.TrimSpace(c.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling and identifying runs",
		})
	}
	if strings.TrimSpace(c.DataDir) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "data_dir",
			Message:  "data_dir must not be empty; every stage reads and writes artifacts there",
		})
	}

	issues = append(issues, validateProvider(c.Provider)...)
	issues = append(issues, validateStorage(c.Storage)...)
	issues = append(issues, validateSync(c.Sync)...)

	return issues
}

// validateProvider validates extraction settings.
func validateProvider(p Provider) []Issue {
	var issues []Issue

	if len(p.Coins) == 0 && strings.TrimSpace(p.CoinsFile) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "provider.coins",
			Message:  "no coin ids configured; set provider.coins or provider.coins_file",
		})
	}
	if len(p.Coins) > 0 && strings.TrimSpace(p.CoinsFile) != "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "provider.coins_file",
			Message:  "both coins and coins_file are set; the file wins",
		})
	}
	if p.Timeout <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "provider.timeout",
			Message:  fmt.Sprintf("timeout=%s; non-positive timeouts fall back to the client default", p.Timeout),
		})
	}

	return issues
}

// validateStorage validates storage configuration and DB settings.
func validateStorage(s Storage) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  "storage.kind must not be empty",
		})
		return issues
	}

	known := map[string]struct{}{
		"postgres": {},
		"mysql":    {},
		"mssql":    {},
		"sqlite":   {},
	}
	if _, ok := known[s.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Kind),
		})
	}

	// Non-postgres backends have no parts assembly, so they need a full DSN.
	if s.Kind != "postgres" && strings.TrimSpace(s.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.dsn",
			Message:  fmt.Sprintf("storage.dsn must be set for kind %q; only postgres assembles one from storage.db", s.Kind),
		})
	}

	if strings.TrimSpace(s.MarketTable) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.market_table",
			Message:  "storage.market_table must not be empty",
		})
	}
	if strings.TrimSpace(s.HistoricalTable) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.historical_table",
			Message:  "storage.historical_table must not be empty",
		})
	}

	return issues
}

// validateSync validates sync settings.
func validateSync(s Sync) []Issue {
	var issues []Issue

	switch s.Mode {
	case SyncModeReplace, SyncModeUpsert:
	case "":
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "sync.mode",
			Message:  "sync.mode must not be empty",
		})
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "sync.mode",
			Message:  fmt.Sprintf("unknown sync mode %q; use %q or %q", s.Mode, SyncModeReplace, SyncModeUpsert),
		})
	}

	if s.BatchSize <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "sync.batch_size",
			Message:  fmt.Sprintf("batch_size=%d; non-positive batch sizes may hurt throughput", s.BatchSize),
		})
	}

	return issues
}
