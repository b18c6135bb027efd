package load

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/bened18/crypto-stock-etl/internal/dataset"
	"github.com/bened18/crypto-stock-etl/internal/schema"
	"github.com/bened18/crypto-stock-etl/internal/storage"

	"go.uber.org/zap"
)

// fakeRepo records repository calls. Bulk writes copy their rows because
// the batch loader reuses its batch slice between flushes.
type fakeRepo struct {
	mu        sync.Mutex
	execs     []string
	copyCalls [][][]any
	upserts   [][][]any
	counts    map[string]int64

	execErr  func(sql string) error
	copyErr  error
	countErr error
	closed   bool
}

func copyRows(rows [][]any) [][]any {
	cp := make([][]any, len(rows))
	for i, r := range rows {
		cp[i] = append([]any(nil), r...)
	}
	return cp
}

func (f *fakeRepo) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.copyErr != nil {
		return 0, f.copyErr
	}
	f.copyCalls = append(f.copyCalls, copyRows(rows))
	return int64(len(rows)), nil
}

func (f *fakeRepo) Upsert(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, copyRows(rows))
	return int64(len(rows)), nil
}

func (f *fakeRepo) Exec(ctx context.Context, sql string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.execErr != nil {
		if err := f.execErr(sql); err != nil {
			return err
		}
	}
	f.execs = append(f.execs, sql)
	return nil
}

func (f *fakeRepo) Count(ctx context.Context, table string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.counts[table], nil
}

func (f *fakeRepo) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

// newTestPlanner wires a planner to the fake repo, recording the opened
// storage configs and the drop/ensure dispatches.
func newTestPlanner(cfg Config, fr *fakeRepo) (*Planner, *plannerCalls) {
	calls := &plannerCalls{}
	p := NewPlanner(cfg, zap.NewNop().Sugar())
	p.open = func(ctx context.Context, sc storage.Config) (storage.Repository, error) {
		calls.opened = append(calls.opened, sc)
		if calls.openErr != nil {
			return nil, calls.openErr
		}
		return fr, nil
	}
	p.drop = func(ctx context.Context, kind string, repo storage.Repository, tbl schema.Table) error {
		calls.dropped = append(calls.dropped, tbl.FQN())
		return calls.dropErr
	}
	p.ensure = func(ctx context.Context, kind string, repo storage.Repository, tbl schema.Table) error {
		calls.ensured = append(calls.ensured, tbl.FQN())
		return calls.ensureErr
	}
	return p, calls
}

type plannerCalls struct {
	opened  []storage.Config
	dropped []string
	ensured []string

	openErr   error
	dropErr   error
	ensureErr error
}

func marketTable() schema.Table {
	return schema.Table{
		Namespace: "curated",
		Name:      "market_data",
		Columns: []schema.Column{
			{Name: "coin_id", SQLType: schema.TypeVarchar, PrimaryKey: true},
			{Name: "current_price_usd", SQLType: schema.TypeDecimal, Nullable: true},
		},
	}
}

func marketData(t *testing.T, n int) *dataset.Table {
	t.Helper()
	d := dataset.New([]string{"coin_id", "current_price_usd"})
	ids := []string{"bitcoin", "ethereum", "cardano", "solana", "tether"}
	for i := 0; i < n; i++ {
		if err := d.Append([]any{ids[i%len(ids)], float64(100 * (i + 1))}); err != nil {
			t.Fatalf("append row %d: %v", i, err)
		}
	}
	return d
}

func TestSyncReplace(t *testing.T) {
	t.Parallel()

	fr := &fakeRepo{}
	p, calls := newTestPlanner(Config{Kind: "postgres", DSN: "dsn", BatchSize: 2}, fr)

	res := p.Sync(context.Background(), marketTable(), marketData(t, 3))

	if res.Err != nil {
		t.Fatalf("Sync error: %v", res.Err)
	}
	if res.Status != StatusSuccess {
		t.Fatalf("Status = %q, want %q", res.Status, StatusSuccess)
	}
	if res.Table != "curated.market_data" {
		t.Fatalf("Table = %q, want curated.market_data", res.Table)
	}
	if res.RowCount != 3 {
		t.Fatalf("RowCount = %d, want 3", res.RowCount)
	}

	if len(calls.opened) != 1 {
		t.Fatalf("opened %d repos, want 1", len(calls.opened))
	}
	sc := calls.opened[0]
	if sc.Kind != "postgres" || sc.DSN != "dsn" || sc.Table != "curated.market_data" {
		t.Fatalf("opened config = %+v", sc)
	}
	if len(sc.KeyColumns) != 1 || sc.KeyColumns[0] != "coin_id" {
		t.Fatalf("KeyColumns = %v, want [coin_id]", sc.KeyColumns)
	}

	if len(calls.dropped) != 1 || calls.dropped[0] != "curated.market_data" {
		t.Fatalf("dropped = %v, want one curated.market_data", calls.dropped)
	}
	if len(calls.ensured) != 1 {
		t.Fatalf("ensured = %v, want one entry", calls.ensured)
	}

	// Batch size 2 over 3 rows means two bulk writes.
	if len(fr.copyCalls) != 2 {
		t.Fatalf("CopyFrom called %d times, want 2", len(fr.copyCalls))
	}
	if len(fr.copyCalls[0]) != 2 || len(fr.copyCalls[1]) != 1 {
		t.Fatalf("batch sizes = %d,%d; want 2,1", len(fr.copyCalls[0]), len(fr.copyCalls[1]))
	}
	if got := fr.copyCalls[0][0][0]; got != "bitcoin" {
		t.Fatalf("first row coin_id = %v, want bitcoin", got)
	}
	if len(fr.upserts) != 0 {
		t.Fatalf("Upsert called %d times in replace mode", len(fr.upserts))
	}
	if !fr.closed {
		t.Fatalf("repository not closed")
	}
}

func TestSyncUpsert(t *testing.T) {
	t.Parallel()

	fr := &fakeRepo{}
	p, calls := newTestPlanner(Config{Kind: "sqlite", DSN: "file:x.db", Mode: ModeUpsert}, fr)

	res := p.Sync(context.Background(), marketTable(), marketData(t, 2))

	if res.Status != StatusSuccess || res.RowCount != 2 {
		t.Fatalf("result = %+v", res)
	}
	if len(calls.dropped) != 0 {
		t.Fatalf("dropped = %v, want none in upsert mode", calls.dropped)
	}
	if len(calls.ensured) != 1 {
		t.Fatalf("ensured = %v, want one entry", calls.ensured)
	}
	if len(fr.upserts) != 1 || len(fr.upserts[0]) != 2 {
		t.Fatalf("upserts = %v", fr.upserts)
	}
	if len(fr.copyCalls) != 0 {
		t.Fatalf("CopyFrom called in upsert mode")
	}
}

func TestSyncSkipsEmptyDataset(t *testing.T) {
	t.Parallel()

	for name, data := range map[string]*dataset.Table{
		"nil":     nil,
		"zeroRow": dataset.New([]string{"coin_id"}),
	} {
		t.Run(name, func(t *testing.T) {
			fr := &fakeRepo{}
			p, calls := newTestPlanner(Config{Kind: "postgres", DSN: "dsn"}, fr)

			res := p.Sync(context.Background(), marketTable(), data)

			if res.Status != StatusSkipped {
				t.Fatalf("Status = %q, want %q", res.Status, StatusSkipped)
			}
			if res.Err != nil || res.RowCount != 0 {
				t.Fatalf("result = %+v", res)
			}
			if len(calls.opened) != 0 {
				t.Fatalf("store opened for an empty dataset")
			}
		})
	}
}

func TestSyncUnknownMode(t *testing.T) {
	t.Parallel()

	fr := &fakeRepo{}
	p, calls := newTestPlanner(Config{Kind: "postgres", DSN: "dsn"}, fr)
	p.cfg.Mode = "append"

	res := p.Sync(context.Background(), marketTable(), marketData(t, 1))

	if res.Status != StatusError {
		t.Fatalf("Status = %q, want %q", res.Status, StatusError)
	}
	if res.Err == nil || !strings.Contains(res.Err.Error(), `unknown sync mode "append"`) {
		t.Fatalf("Err = %v", res.Err)
	}
	if len(calls.opened) != 0 {
		t.Fatalf("store opened despite invalid mode")
	}
}

func TestSyncColumnMismatch(t *testing.T) {
	t.Parallel()

	fr := &fakeRepo{}
	p, calls := newTestPlanner(Config{Kind: "postgres", DSN: "dsn"}, fr)

	d := dataset.New([]string{"current_price_usd", "coin_id"}) // reversed
	if err := d.Append([]any{1.0, "bitcoin"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	res := p.Sync(context.Background(), marketTable(), d)

	if res.Status != StatusError {
		t.Fatalf("Status = %q, want %q", res.Status, StatusError)
	}
	if res.Err == nil || !strings.Contains(res.Err.Error(), "do not match") {
		t.Fatalf("Err = %v", res.Err)
	}
	if len(calls.opened) != 0 {
		t.Fatalf("store opened despite column mismatch")
	}
}

func TestSyncOpenError(t *testing.T) {
	t.Parallel()

	fr := &fakeRepo{}
	p, calls := newTestPlanner(Config{Kind: "postgres", DSN: "dsn"}, fr)
	calls.openErr = errors.New("connection refused")

	res := p.Sync(context.Background(), marketTable(), marketData(t, 1))

	if res.Status != StatusError {
		t.Fatalf("Status = %q, want %q", res.Status, StatusError)
	}
	if !errors.Is(res.Err, calls.openErr) {
		t.Fatalf("Err = %v, want wrapped %v", res.Err, calls.openErr)
	}
}

func TestSyncDropAndEnsureErrors(t *testing.T) {
	t.Parallel()

	t.Run("drop", func(t *testing.T) {
		fr := &fakeRepo{}
		p, calls := newTestPlanner(Config{Kind: "postgres", DSN: "dsn"}, fr)
		calls.dropErr = errors.New("permission denied")

		res := p.Sync(context.Background(), marketTable(), marketData(t, 1))
		if res.Status != StatusError || !errors.Is(res.Err, calls.dropErr) {
			t.Fatalf("result = %+v", res)
		}
		if len(fr.copyCalls) != 0 {
			t.Fatalf("rows written after drop failure")
		}
	})

	t.Run("ensure", func(t *testing.T) {
		fr := &fakeRepo{}
		p, calls := newTestPlanner(Config{Kind: "postgres", DSN: "dsn"}, fr)
		calls.ensureErr = errors.New("syntax error")

		res := p.Sync(context.Background(), marketTable(), marketData(t, 1))
		if res.Status != StatusError || !errors.Is(res.Err, calls.ensureErr) {
			t.Fatalf("result = %+v", res)
		}
		if len(fr.copyCalls) != 0 {
			t.Fatalf("rows written after create failure")
		}
	})
}

func TestSyncWriteError(t *testing.T) {
	t.Parallel()

	fr := &fakeRepo{copyErr: errors.New("disk full")}
	p, _ := newTestPlanner(Config{Kind: "postgres", DSN: "dsn"}, fr)

	res := p.Sync(context.Background(), marketTable(), marketData(t, 3))

	if res.Status != StatusError || !errors.Is(res.Err, fr.copyErr) {
		t.Fatalf("result = %+v", res)
	}

	// A failed sync must not feed Verify a loaded count.
	if _, ok := p.loaded["curated.market_data"]; ok {
		t.Fatalf("loaded count recorded for failed sync")
	}
}

func TestNewPlannerDefaults(t *testing.T) {
	t.Parallel()

	p := NewPlanner(Config{Kind: "postgres", DSN: "dsn"}, nil)
	if p.cfg.Mode != ModeReplace {
		t.Fatalf("default mode = %q, want %q", p.cfg.Mode, ModeReplace)
	}
	if p.cfg.BatchSize != 1000 {
		t.Fatalf("default batch size = %d, want 1000", p.cfg.BatchSize)
	}
	if p.log == nil {
		t.Fatalf("nil logger not replaced")
	}
}
