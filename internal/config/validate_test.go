package config

import (
	"strings"
	"testing"
)

// hasIssue reports whether issues contains an Issue with the given severity,
// path, and a Message containing msgSubstr.
func hasIssue(t *testing.T, issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	t.Helper()
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

// validConfig returns a config that passes validation with zero issues.
func validConfig() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func TestValidateCleanConfig(t *testing.T) {
	t.Parallel()

	if issues := validConfig().Validate(); len(issues) != 0 {
		t.Fatalf("Validate() = %v, want no issues", issues)
	}
}

func TestValidateMissingJob(t *testing.T) {
	t.Parallel()

	c := validConfig()
	c.Job = ""

	issues := c.Validate()
	if !hasIssue(t, issues, SeverityError, "job", "must not be empty") {
		t.Fatalf("Validate() = %v, want error at job", issues)
	}
	if HasErrors(issues) != true {
		t.Fatalf("HasErrors() = false, want true")
	}
}

func TestValidateMissingDataDir(t *testing.T) {
	t.Parallel()

	c := validConfig()
	c.DataDir = "  "

	if issues := c.Validate(); !hasIssue(t, issues, SeverityError, "data_dir", "must not be empty") {
		t.Fatalf("Validate() = %v, want error at data_dir", issues)
	}
}

func TestValidateNoCoinSource(t *testing.T) {
	t.Parallel()

	c := validConfig()
	c.Provider.Coins = nil
	c.Provider.CoinsFile = ""

	if issues := c.Validate(); !hasIssue(t, issues, SeverityError, "provider.coins", "no coin ids") {
		t.Fatalf("Validate() = %v, want error at provider.coins", issues)
	}
}

func TestValidateBothCoinSourcesWarns(t *testing.T) {
	t.Parallel()

	c := validConfig()
	c.Provider.CoinsFile = "coins.txt"

	issues := c.Validate()
	if !hasIssue(t, issues, SeverityWarning, "provider.coins_file", "the file wins") {
		t.Fatalf("Validate() = %v, want warning at provider.coins_file", issues)
	}
	if HasErrors(issues) {
		t.Fatalf("Validate() = %v, want warnings only", issues)
	}
}

func TestValidateStorageKind(t *testing.T) {
	t.Parallel()

	t.Run("empty kind is an error", func(t *testing.T) {
		t.Parallel()
		c := validConfig()
		c.Storage.Kind = ""
		if issues := c.Validate(); !hasIssue(t, issues, SeverityError, "storage.kind", "must not be empty") {
			t.Fatalf("Validate() = %v, want error at storage.kind", issues)
		}
	})

	t.Run("unknown kind is a warning", func(t *testing.T) {
		t.Parallel()
		c := validConfig()
		c.Storage.Kind = "clickhouse"
		c.Storage.DSN = "clickhouse://localhost:9000"
		if issues := c.Validate(); !hasIssue(t, issues, SeverityWarning, "storage.kind", "unknown storage kind") {
			t.Fatalf("Validate() = %v, want warning at storage.kind", issues)
		}
	})
}

func TestValidateNonPostgresNeedsDSN(t *testing.T) {
	t.Parallel()

	c := validConfig()
	c.Storage.Kind = "sqlite"
	c.Storage.DSN = ""

	if issues := c.Validate(); !hasIssue(t, issues, SeverityError, "storage.dsn", "must be set") {
		t.Fatalf("Validate() = %v, want error at storage.dsn", issues)
	}

	c.Storage.DSN = "file:etl.db"
	if issues := c.Validate(); HasErrors(issues) {
		t.Fatalf("Validate() = %v, want no errors once dsn is set", issues)
	}
}

func TestValidateTables(t *testing.T) {
	t.Parallel()

	c := validConfig()
	c.Storage.MarketTable = ""
	c.Storage.HistoricalTable = " "

	issues := c.Validate()
	if !hasIssue(t, issues, SeverityError, "storage.market_table", "must not be empty") {
		t.Errorf("Validate() = %v, want error at storage.market_table", issues)
	}
	if !hasIssue(t, issues, SeverityError, "storage.historical_table", "must not be empty") {
		t.Errorf("Validate() = %v, want error at storage.historical_table", issues)
	}
}

func TestValidateSyncMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mode    string
		wantSev IssueSeverity
		wantMsg string
	}{
		{"replace is fine", SyncModeReplace, "", ""},
		{"upsert is fine", SyncModeUpsert, "", ""},
		{"empty is an error", "", SeverityError, "must not be empty"},
		{"unknown is an error", "append", SeverityError, "unknown sync mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := validConfig()
			c.Sync.Mode = tt.mode

			issues := c.Validate()
			if tt.wantSev == "" {
				if HasErrors(issues) {
					t.Fatalf("Validate() = %v, want no errors", issues)
				}
				return
			}
			if !hasIssue(t, issues, tt.wantSev, "sync.mode", tt.wantMsg) {
				t.Fatalf("Validate() = %v, want %s at sync.mode", issues, tt.wantSev)
			}
		})
	}
}

func TestValidateBatchSizeWarning(t *testing.T) {
	t.Parallel()

	c := validConfig()
	c.Sync.BatchSize = 0

	issues := c.Validate()
	if !hasIssue(t, issues, SeverityWarning, "sync.batch_size", "batch_size=0") {
		t.Fatalf("Validate() = %v, want warning at sync.batch_size", issues)
	}
	if HasErrors(issues) {
		t.Fatalf("Validate() = %v, want warnings only", issues)
	}
}

func TestIssueError(t *testing.T) {
	t.Parallel()

	iss := Issue{Severity: SeverityError, Path: "storage.kind", Message: "boom"}
	if got := iss.Error(); got != "error at storage.kind: boom" {
		t.Fatalf("Error() = %q", got)
	}
}
