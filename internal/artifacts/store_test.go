package artifacts

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/bened18/crypto-stock-etl/internal/dataset"
	"github.com/bened18/crypto-stock-etl/pkg/records"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewStore() error = %v, want nil", err)
	}
	s.now = func() time.Time {
		return time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)
	}
	return s
}

func mustAppend(t *testing.T, tbl *dataset.Table, rows ...[]any) {
	t.Helper()
	for _, row := range rows {
		if err := tbl.Append(row); err != nil {
			t.Fatalf("Append() error = %v, want nil", err)
		}
	}
}

func TestWriteTableRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	stamp := time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)

	tbl := dataset.New([]string{"coin_id", "price", "market_cap", "extraction_timestamp"})
	mustAppend(t, tbl,
		[]any{"bitcoin", 43250.5, int64(847000000000), stamp},
		[]any{"ethereum", 2280.12, int64(274000000000), stamp},
	)

	csvPath, jsonPath, dig, err := s.WriteTable(PrefixMarket, tbl)
	if err != nil {
		t.Fatalf("WriteTable() error = %v, want nil", err)
	}
	if want := filepath.Join(s.Dir(), "transformed_market_data_20260214_093000.csv"); csvPath != want {
		t.Errorf("csv path = %q, want %q", csvPath, want)
	}
	if want := filepath.Join(s.Dir(), "transformed_market_data_20260214_093000.json"); jsonPath != want {
		t.Errorf("json path = %q, want %q", jsonPath, want)
	}
	if !regexp.MustCompile(`^[0-9a-f]{16}$`).MatchString(dig) {
		t.Errorf("digest = %q, want 16 hex digits", dig)
	}

	got, err := s.ReadTable(csvPath)
	if err != nil {
		t.Fatalf("ReadTable() error = %v, want nil", err)
	}
	if got.Len() != 2 {
		t.Fatalf("replayed rows = %d, want 2", got.Len())
	}
	row := got.Row(0)
	if row[0] != "bitcoin" {
		t.Errorf("coin_id = %v, want bitcoin", row[0])
	}
	if row[1] != 43250.5 {
		t.Errorf("price = %v (%T), want 43250.5", row[1], row[1])
	}
	if row[2] != int64(847000000000) {
		t.Errorf("market_cap = %v (%T), want int64 847000000000", row[2], row[2])
	}
	ts, ok := row[3].(time.Time)
	if !ok || !ts.Equal(stamp) {
		t.Errorf("extraction_timestamp = %v (%T), want %v", row[3], row[3], stamp)
	}
}

func TestLatestPicksNewest(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	tbl := dataset.New([]string{"coin_id"})
	mustAppend(t, tbl, []any{"bitcoin"})

	if _, _, _, err := s.WriteTable(PrefixMarket, tbl); err != nil {
		t.Fatalf("WriteTable() error = %v, want nil", err)
	}
	s.now = func() time.Time {
		return time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC)
	}
	csvPath, _, _, err := s.WriteTable(PrefixMarket, tbl)
	if err != nil {
		t.Fatalf("WriteTable() error = %v, want nil", err)
	}

	latest, err := s.Latest(PrefixMarket, "csv")
	if err != nil {
		t.Fatalf("Latest() error = %v, want nil", err)
	}
	if latest != csvPath {
		t.Fatalf("Latest() = %q, want %q", latest, csvPath)
	}
}

func TestLatestIgnoresOtherPrefixesAndExts(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	for _, name := range []string{
		"transformed_market_data_20260214_093000.json",
		"transformed_historical_data_20260214_093000.csv",
		"unrelated.txt",
	} {
		if err := os.WriteFile(filepath.Join(s.Dir(), name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
	}

	if _, err := s.Latest(PrefixMarket, "csv"); !errors.Is(err, ErrNoArtifact) {
		t.Fatalf("Latest() error = %v, want ErrNoArtifact", err)
	}
}

func TestLatestNoArtifact(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	_, err := s.Latest(PrefixSchema, "sql")
	if !errors.Is(err, ErrNoArtifact) {
		t.Fatalf("Latest() error = %v, want ErrNoArtifact", err)
	}
}

func TestWriteRawMarketRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	recs := []records.Record{
		{"id": "bitcoin", "current_price": 43250.5},
		{"id": "ethereum", "current_price": 2280.12},
	}

	path, dig, err := s.WriteRaw(PrefixRawMarket, recs)
	if err != nil {
		t.Fatalf("WriteRaw() error = %v, want nil", err)
	}
	if !strings.HasSuffix(path, "coingecko_market_data_20260214_093000.json") {
		t.Errorf("path = %q, want coingecko_market_data_20260214_093000.json suffix", path)
	}
	if dig == "" {
		t.Errorf("digest is empty")
	}

	got, err := s.ReadRaw(path)
	if err != nil {
		t.Fatalf("ReadRaw() error = %v, want nil", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(ReadRaw()) = %d, want 2", len(got))
	}
	if id := got[0].String("id", ""); id != "bitcoin" {
		t.Errorf("got[0].id = %q, want bitcoin", id)
	}
}

func TestWriteRawHistoryRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	rec := records.Record{
		"id":          "bitcoin",
		"market_data": map[string]any{"current_price": map[string]any{"usd": 43100.25}},
	}

	path, _, err := s.WriteRaw(PrefixRawHistorical, rec)
	if err != nil {
		t.Fatalf("WriteRaw() error = %v, want nil", err)
	}

	got, err := s.ReadRaw(path)
	if err != nil {
		t.Fatalf("ReadRaw() error = %v, want nil", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(ReadRaw()) = %d, want 1 (single object wraps)", len(got))
	}
	if got[0].Map("market_data") == nil {
		t.Errorf("market_data lost in round trip")
	}
}

func TestWriteSchema(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	script := "CREATE SCHEMA IF NOT EXISTS curated;\n"

	path, dig, err := s.WriteSchema(script)
	if err != nil {
		t.Fatalf("WriteSchema() error = %v, want nil", err)
	}
	if !strings.HasSuffix(path, "schema_coingecko_20260214_093000.sql") {
		t.Errorf("path = %q, want schema_coingecko_20260214_093000.sql suffix", path)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(b) != script {
		t.Errorf("content = %q, want %q", b, script)
	}

	// Identical bytes always produce an identical digest.
	_, dig2, err := s.WriteSchema(script)
	if err != nil {
		t.Fatalf("WriteSchema() error = %v, want nil", err)
	}
	if dig != dig2 {
		t.Errorf("digest changed for identical bytes: %q vs %q", dig, dig2)
	}
}

func TestNewStoreRejectsEmptyDir(t *testing.T) {
	t.Parallel()

	if _, err := NewStore("", nil); err == nil {
		t.Fatalf("NewStore(\"\") error = nil, want non-nil")
	}
}
