// Package main wires the ETL pipeline end to end. This file keeps the CLI
// layer thin: main.go parses flags and picks a mode, while the pipeline
// type here owns stage ordering, artifact replay, and metrics emission. It
// never imports database drivers or backend-specific packages directly.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bened18/crypto-stock-etl/internal/artifacts"
	"github.com/bened18/crypto-stock-etl/internal/coingecko"
	"github.com/bened18/crypto-stock-etl/internal/config"
	"github.com/bened18/crypto-stock-etl/internal/dataset"
	"github.com/bened18/crypto-stock-etl/internal/load"
	"github.com/bened18/crypto-stock-etl/internal/metrics"
	"github.com/bened18/crypto-stock-etl/internal/schema"
	"github.com/bened18/crypto-stock-etl/internal/schema/ddl"
	"github.com/bened18/crypto-stock-etl/internal/transform"
	"github.com/bened18/crypto-stock-etl/pkg/records"
)

// Run modes accepted by -mode. Every mode after extract replays the latest
// artifacts of the preceding stage, so a failed run can be resumed from the
// stage that broke.
const (
	modeFull      = "full"
	modeExtract   = "extract"
	modeTransform = "transform"
	modeSchema    = "schema"
	modeLoad      = "load"
)

// syncPlanner is the slice of load.Planner the pipeline uses.
type syncPlanner interface {
	Sync(ctx context.Context, tbl schema.Table, data *dataset.Table) load.Result
	ExecScript(ctx context.Context, script string) (executed, failed int, err error)
	Verify(ctx context.Context, tables []string) ([]load.TableCount, error)
}

// Function variables used to introduce test seams.
// In production these point to real implementations; tests can override them.
var (
	newPlannerFn = func(cfg load.Config, log *zap.SugaredLogger) syncPlanner {
		return load.NewPlanner(cfg, log)
	}

	fetchMarketsFn = func(ctx context.Context, c *coingecko.Client, ids []string) ([]records.Record, error) {
		return c.Markets(ctx, ids)
	}

	fetchHistoryFn = func(ctx context.Context, c *coingecko.Client, id string, date time.Time) (records.Record, error) {
		return c.History(ctx, id, date)
	}
)

// pipeline carries one run through its stages. Later stages consume the
// products of earlier ones, either in memory or replayed from the artifact
// store. A pipeline is built per run and not reused.
type pipeline struct {
	cfg   *config.Config
	log   *zap.SugaredLogger
	runID string

	store  *artifacts.Store
	tr     *transform.Transformer
	client *coingecko.Client
	coins  []string

	// nowFn is a seam so tests get deterministic history dates.
	nowFn func() time.Time

	// Stage products.
	rawMarkets []records.Record
	rawHistory records.Record
	marketTbl  *dataset.Table
	histTbl    *dataset.Table
	marketDef  schema.Table
	histDef    schema.Table
	script     string

	planner syncPlanner
	synced  []string
}

// runOnce executes one pipeline run under a fresh run ID.
func runOnce(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger, mode string, fromArtifacts bool) error {
	p, err := newPipeline(cfg, log, uuid.NewString())
	if err != nil {
		return err
	}
	return p.Run(ctx, mode, fromArtifacts)
}

// newPipeline resolves the coin universe and the artifact store for one run.
func newPipeline(cfg *config.Config, log *zap.SugaredLogger, runID string) (*pipeline, error) {
	log = log.With("run_id", runID)

	store, err := artifacts.NewStore(cfg.DataDir, log)
	if err != nil {
		return nil, err
	}

	coins := cfg.Provider.Coins
	if cfg.Provider.CoinsFile != "" {
		coins, err = coingecko.LoadCoinList(cfg.Provider.CoinsFile)
		if err != nil {
			return nil, fmt.Errorf("load coin list: %w", err)
		}
	}

	return &pipeline{
		cfg:   cfg,
		log:   log,
		runID: runID,
		store: store,
		tr:    transform.New(log),
		client: coingecko.NewClient(coingecko.Config{
			BaseURL: cfg.Provider.BaseURL,
			Timeout: cfg.Provider.Timeout,
		}),
		coins: coins,
		nowFn: time.Now,
	}, nil
}

// Run executes the stages selected by mode. A stage failure aborts the run;
// within a stage, per-record problems are dropped and counted instead.
func (p *pipeline) Run(ctx context.Context, mode string, fromArtifacts bool) error {
	p.log.Infow("run starting",
		"job", p.cfg.Job,
		"mode", mode,
		"storage", p.cfg.Storage.Kind,
		"data_dir", p.cfg.DataDir,
	)

	switch mode {
	case modeFull:
		if fromArtifacts {
			if err := p.replayRaw(); err != nil {
				return fmt.Errorf("replay raw artifacts: %w", err)
			}
		} else if err := p.step("extract", func() error { return p.extract(ctx) }); err != nil {
			return err
		}
		if err := p.step("transform", p.transform); err != nil {
			return err
		}
		if err := p.step("schema", p.emitSchema); err != nil {
			return err
		}
		if err := p.step("load", func() error { return p.load(ctx) }); err != nil {
			return err
		}
		return p.step("verify", func() error { return p.verify(ctx) })

	case modeExtract:
		return p.step("extract", func() error { return p.extract(ctx) })

	case modeTransform:
		if err := p.replayRaw(); err != nil {
			return fmt.Errorf("replay raw artifacts: %w", err)
		}
		return p.step("transform", p.transform)

	case modeSchema:
		if err := p.replayTables(); err != nil {
			return fmt.Errorf("replay transformed artifacts: %w", err)
		}
		return p.step("schema", p.emitSchema)

	case modeLoad:
		if err := p.replayTables(); err != nil {
			return fmt.Errorf("replay transformed artifacts: %w", err)
		}
		p.infer()
		if err := p.step("load", func() error { return p.load(ctx) }); err != nil {
			return err
		}
		return p.step("verify", func() error { return p.verify(ctx) })

	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

// step runs one stage with timing, metrics, and uniform logging.
func (p *pipeline) step(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	metrics.RecordStep(p.cfg.Job, name, err, elapsed)

	if err != nil {
		p.log.Errorw("step failed", "step", name, "elapsed", elapsed.Truncate(time.Millisecond), "error", err)
		return fmt.Errorf("%s: %w", name, err)
	}
	p.log.Infow("step complete", "step", name, "elapsed", elapsed.Truncate(time.Millisecond))
	return nil
}

// extract pulls current markets for the configured coins and yesterday's
// snapshot for the first coin, then persists both raw payloads. The market
// fetch is the run's backbone and its failure aborts; a history failure
// degrades to a warning.
func (p *pipeline) extract(ctx context.Context) error {
	if len(p.coins) == 0 {
		return errors.New("no coins configured")
	}

	var (
		markets []records.Record
		history records.Record
		histErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		markets, err = fetchMarketsFn(gctx, p.client, p.coins)
		if err != nil {
			return fmt.Errorf("markets: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		date := p.nowFn().UTC().AddDate(0, 0, -1)
		history, histErr = fetchHistoryFn(gctx, p.client, p.coins[0], date)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if len(markets) == 0 {
		return errors.New("no market data returned")
	}

	if _, _, err := p.store.WriteRaw(artifacts.PrefixRawMarket, markets); err != nil {
		return err
	}
	p.rawMarkets = markets

	extracted := int64(len(markets))
	if histErr != nil {
		p.log.Warnw("historical extraction failed, continuing", "coin", p.coins[0], "error", histErr)
	} else {
		if _, _, err := p.store.WriteRaw(artifacts.PrefixRawHistorical, history); err != nil {
			return err
		}
		p.rawHistory = history
		extracted++
	}

	metrics.RecordRow(p.cfg.Job, "extracted", extracted)
	p.log.Infow("extraction complete",
		"coins", len(p.coins),
		"markets", len(markets),
		"historical", histErr == nil,
	)
	return nil
}

// replayRaw loads the newest raw artifacts in place of a live extraction.
// Markets are required; history replays as empty when absent.
func (p *pipeline) replayRaw() error {
	path, err := p.store.Latest(artifacts.PrefixRawMarket, "json")
	if err != nil {
		return fmt.Errorf("latest market artifact: %w", err)
	}
	recs, err := p.store.ReadRaw(path)
	if err != nil {
		return err
	}
	p.rawMarkets = recs
	p.log.Infow("raw markets replayed", "path", path, "records", len(recs))

	histPath, err := p.store.Latest(artifacts.PrefixRawHistorical, "json")
	switch {
	case errors.Is(err, artifacts.ErrNoArtifact):
		p.log.Warn("no historical artifact to replay")
	case err != nil:
		return fmt.Errorf("latest historical artifact: %w", err)
	default:
		hrecs, err := p.store.ReadRaw(histPath)
		if err != nil {
			return err
		}
		if len(hrecs) > 0 {
			p.rawHistory = hrecs[0]
		}
		p.log.Infow("raw history replayed", "path", histPath)
	}
	return nil
}

// transform turns the raw payloads into flat datasets and persists them.
func (p *pipeline) transform() error {
	p.marketTbl = p.tr.MarketRows(p.rawMarkets)
	p.histTbl = p.tr.HistoricalRows(p.rawHistory)

	transformed := int64(p.marketTbl.Len() + p.histTbl.Len())
	dropped := int64(len(p.rawMarkets) - p.marketTbl.Len())
	metrics.RecordRow(p.cfg.Job, "transformed", transformed)
	metrics.RecordRow(p.cfg.Job, "transform_dropped", dropped)

	if transformed == 0 {
		return errors.New("no rows survived the transform")
	}

	if p.marketTbl.Len() > 0 {
		if _, _, _, err := p.store.WriteTable(artifacts.PrefixMarket, p.marketTbl); err != nil {
			return err
		}
	}
	if p.histTbl.Len() > 0 {
		if _, _, _, err := p.store.WriteTable(artifacts.PrefixHistorical, p.histTbl); err != nil {
			return err
		}
	}

	p.log.Infow("transform complete",
		"market_rows", p.marketTbl.Len(),
		"historical_rows", p.histTbl.Len(),
		"dropped", dropped,
	)
	return nil
}

// replayTables loads the newest transformed datasets from the artifact
// store. A missing table replays as empty; both missing is an error.
func (p *pipeline) replayTables() error {
	var found int

	tbl, path, err := p.replayTable(artifacts.PrefixMarket)
	if err != nil {
		return err
	}
	if path != "" {
		found++
	}
	p.marketTbl = tbl

	tbl, path, err = p.replayTable(artifacts.PrefixHistorical)
	if err != nil {
		return err
	}
	if path != "" {
		found++
	}
	p.histTbl = tbl

	if found == 0 {
		return errors.New("no transformed artifacts found")
	}
	return nil
}

// replayTable reads the newest CSV for one prefix, mapping "no artifact"
// to an empty dataset.
func (p *pipeline) replayTable(prefix string) (*dataset.Table, string, error) {
	path, err := p.store.Latest(prefix, "csv")
	if errors.Is(err, artifacts.ErrNoArtifact) {
		p.log.Warnw("no artifact to replay", "prefix", prefix)
		return dataset.New(nil), "", nil
	}
	if err != nil {
		return nil, "", err
	}
	tbl, err := p.store.ReadTable(path)
	if err != nil {
		return nil, "", err
	}
	p.log.Infow("dataset replayed", "path", path, "rows", tbl.Len())
	return tbl, path, nil
}

// infer derives both table definitions from the transformed datasets.
func (p *pipeline) infer() {
	ns, name := splitTable(p.cfg.Storage.MarketTable)
	p.marketDef = schema.Infer(p.marketTbl, ns, name)

	ns, name = splitTable(p.cfg.Storage.HistoricalTable)
	p.histDef = schema.Infer(p.histTbl, ns, name)
}

// emitSchema infers both table definitions and writes the DDL script
// artifact.
func (p *pipeline) emitSchema() error {
	p.infer()

	p.script = ddl.Script(p.marketDef, p.histDef, p.nowFn().UTC())
	if p.script == "" {
		return errors.New("no datasets to derive a schema from")
	}

	if _, _, err := p.store.WriteSchema(p.script); err != nil {
		return err
	}
	return nil
}

// load syncs both datasets into the configured store, then applies the
// schema script. The script runs after the syncs: a replace-mode drop
// cascades through the reporting views, and the script recreates them over
// the fresh tables.
func (p *pipeline) load(ctx context.Context) error {
	p.planner = newPlannerFn(load.Config{
		Kind:      p.cfg.Storage.Kind,
		DSN:       p.cfg.Storage.ResolveDSN(),
		Mode:      p.cfg.Sync.Mode,
		BatchSize: p.cfg.Sync.BatchSize,
	}, p.log)

	var loaded int64
	for _, target := range []struct {
		def  schema.Table
		data *dataset.Table
	}{
		{p.marketDef, p.marketTbl},
		{p.histDef, p.histTbl},
	} {
		res := p.planner.Sync(ctx, target.def, target.data)
		if res.Err != nil {
			return res.Err
		}
		if res.Status == load.StatusSuccess {
			p.synced = append(p.synced, res.Table)
			loaded += res.RowCount
			metrics.RecordBatches(p.cfg.Job, batchesFor(res.RowCount, p.cfg.Sync.BatchSize))
		}
	}
	metrics.RecordRow(p.cfg.Job, "loaded", loaded)

	script := p.script
	if script == "" {
		var err error
		script, err = p.latestScript()
		if err != nil {
			return err
		}
	}
	if script != "" {
		if _, _, err := p.planner.ExecScript(ctx, script); err != nil {
			return err
		}
	}
	return nil
}

// latestScript reads the newest schema artifact for replay runs. A missing
// artifact is fine: the planner already ensured the tables, only the
// reporting views are skipped.
func (p *pipeline) latestScript() (string, error) {
	path, err := p.store.Latest(artifacts.PrefixSchema, "sql")
	if errors.Is(err, artifacts.ErrNoArtifact) {
		p.log.Warn("no schema artifact found, skipping script")
		return "", nil
	}
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read schema artifact: %w", err)
	}
	p.log.Infow("schema artifact replayed", "path", path)
	return string(b), nil
}

// verify compares store row counts against what this run loaded.
func (p *pipeline) verify(ctx context.Context) error {
	if len(p.synced) == 0 {
		p.log.Info("nothing was loaded, skipping verification")
		return nil
	}
	counts, err := p.planner.Verify(ctx, p.synced)
	if err != nil {
		return err
	}
	p.log.Infow("verification complete", "tables", len(counts))
	return nil
}

// ----------------------------------------------------------------------------
// Small helpers
// ----------------------------------------------------------------------------

// splitTable converts "curated.market_data" into its namespace and name. A
// bare name gets an empty namespace.
func splitTable(fqn string) (namespace, name string) {
	if ns, n, ok := strings.Cut(fqn, "."); ok {
		return ns, n
	}
	return "", fqn
}

// batchesFor reports how many bulk writes a row count produces.
func batchesFor(rows int64, batchSize int) int64 {
	if rows <= 0 || batchSize <= 0 {
		return 0
	}
	bs := int64(batchSize)
	return (rows + bs - 1) / bs
}
