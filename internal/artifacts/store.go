// Package artifacts persists each pipeline stage's output under a single
// directory so any stage can be replayed without re-running the ones before
// it.
//
// Filenames are <prefix>_<YYYYMMDD_HHMMSS>.<ext> with zero-padded UTC
// timestamps, which makes lexicographic order equal temporal order and keeps
// Latest a plain string comparison. Every write also returns the xxh3 digest
// of the encoded bytes; runs log it so byte-identical re-emissions are easy
// to spot.
//
// Two runs writing into one directory race on Latest. The store does no
// locking.
package artifacts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"github.com/bened18/crypto-stock-etl/internal/dataset"
	"github.com/bened18/crypto-stock-etl/pkg/records"
)

// Artifact filename prefixes, one per pipeline product.
const (
	PrefixRawMarket     = "coingecko_market_data"
	PrefixRawHistorical = "coingecko_historical_data"
	PrefixMarket        = "transformed_market_data"
	PrefixHistorical    = "transformed_historical_data"
	PrefixSchema        = "schema_coingecko"
)

// stampLayout renders UTC instants as 20260214_093000.
const stampLayout = "20060102_150405"

// ErrNoArtifact is returned by Latest when no file matches the prefix and
// extension. Callers treat it as "nothing to replay", not as a failure.
var ErrNoArtifact = errors.New("artifacts: no artifact found")

// Store reads and writes pipeline artifacts in one directory.
type Store struct {
	dir string
	log *zap.SugaredLogger

	// now is injectable so tests get deterministic filenames.
	now func() time.Time
}

// NewStore creates the directory if needed and returns a store over it.
// A nil logger disables write logging.
func NewStore(dir string, log *zap.SugaredLogger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("artifacts: directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("artifacts: create directory: %w", err)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Store{dir: dir, log: log, now: time.Now}, nil
}

// Dir returns the directory the store operates on.
func (s *Store) Dir() string {
	return s.dir
}

// WriteRaw writes v, a raw provider payload ([]records.Record for markets,
// records.Record for history), as indented JSON under prefix. It returns the
// written path and the digest of the encoded bytes.
func (s *Store) WriteRaw(prefix string, v any) (string, string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", "", fmt.Errorf("artifacts: encode raw %s: %w", prefix, err)
	}
	return s.write(prefix, "json", buf.Bytes())
}

// WriteTable writes tbl under prefix as a CSV and JSON pair sharing one
// timestamp. It returns both paths and the digest of the CSV bytes, which
// are the canonical replay source.
func (s *Store) WriteTable(prefix string, tbl *dataset.Table) (string, string, string, error) {
	var csvBuf bytes.Buffer
	if err := tbl.EncodeCSV(&csvBuf); err != nil {
		return "", "", "", fmt.Errorf("artifacts: encode %s csv: %w", prefix, err)
	}
	var jsonBuf bytes.Buffer
	if err := tbl.EncodeJSON(&jsonBuf); err != nil {
		return "", "", "", fmt.Errorf("artifacts: encode %s json: %w", prefix, err)
	}

	stamp := s.now().UTC().Format(stampLayout)
	csvPath := filepath.Join(s.dir, prefix+"_"+stamp+".csv")
	jsonPath := filepath.Join(s.dir, prefix+"_"+stamp+".json")

	if err := os.WriteFile(csvPath, csvBuf.Bytes(), 0o644); err != nil {
		return "", "", "", fmt.Errorf("artifacts: write %s: %w", csvPath, err)
	}
	if err := os.WriteFile(jsonPath, jsonBuf.Bytes(), 0o644); err != nil {
		return "", "", "", fmt.Errorf("artifacts: write %s: %w", jsonPath, err)
	}

	d := digest(csvBuf.Bytes())
	s.log.Infow("artifact written",
		"path", csvPath,
		"rows", tbl.Len(),
		"bytes", csvBuf.Len(),
		"xxh3", d,
	)
	return csvPath, jsonPath, d, nil
}

// WriteSchema writes a DDL script as a .sql artifact and returns the path
// and digest.
func (s *Store) WriteSchema(script string) (string, string, error) {
	return s.write(PrefixSchema, "sql", []byte(script))
}

// Latest returns the path of the newest artifact matching prefix and ext,
// found as the lexicographically greatest filename. It returns ErrNoArtifact
// when nothing matches.
func (s *Store) Latest(prefix, ext string) (string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", fmt.Errorf("artifacts: read directory: %w", err)
	}

	var best string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, prefix+"_") || !strings.HasSuffix(name, "."+ext) {
			continue
		}
		if name > best {
			best = name
		}
	}
	if best == "" {
		return "", fmt.Errorf("%w: %s_*.%s", ErrNoArtifact, prefix, ext)
	}
	return filepath.Join(s.dir, best), nil
}

// ReadTable replays a CSV artifact into a dataset, re-inferring cell types
// from the rendered values.
func (s *Store) ReadTable(path string) (*dataset.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("artifacts: open %s: %w", path, err)
	}
	defer f.Close()

	tbl, err := dataset.DecodeCSV(f)
	if err != nil {
		return nil, fmt.Errorf("artifacts: decode %s: %w", path, err)
	}
	return tbl, nil
}

// ReadRaw replays a raw JSON artifact. Array payloads decode directly;
// single-object payloads (the history shape) come back as a one-element
// slice, so callers always range.
func (s *Store) ReadRaw(path string) ([]records.Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("artifacts: open %s: %w", path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var recs []records.Record
	if err := dec.Decode(&recs); err == nil {
		return recs, nil
	}

	dec = json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var rec records.Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("artifacts: decode %s: %w", path, err)
	}
	if rec == nil {
		return nil, nil
	}
	return []records.Record{rec}, nil
}

// write stores data under a fresh timestamped name and logs the digest.
func (s *Store) write(prefix, ext string, data []byte) (string, string, error) {
	path := filepath.Join(s.dir, prefix+"_"+s.now().UTC().Format(stampLayout)+"."+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", "", fmt.Errorf("artifacts: write %s: %w", path, err)
	}
	d := digest(data)
	s.log.Infow("artifact written", "path", path, "bytes", len(data), "xxh3", d)
	return path, d, nil
}

// digest returns the xxh3 hash of b as 16 hex digits.
func digest(b []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(b))
}
