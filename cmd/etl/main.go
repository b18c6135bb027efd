package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/bened18/crypto-stock-etl/internal/config"
	"github.com/bened18/crypto-stock-etl/internal/logging"
	"github.com/bened18/crypto-stock-etl/internal/metrics"
	"github.com/bened18/crypto-stock-etl/internal/metrics/datadog"
	"github.com/bened18/crypto-stock-etl/internal/metrics/prompush"

	// register all backends with the storage factory.
	// config specifies which to use but we need to build in support for all of them.
	_ "github.com/bened18/crypto-stock-etl/internal/storage/all"
)

// main is the entry point for the ETL binary. It loads the run config,
// optionally initializes a metrics backend, and executes the selected
// pipeline mode once or on a cron schedule.
func main() {
	var (
		cfgPath           string
		mode              string
		fromArtifacts     bool
		metricsBackendFlg string
		pushGatewayURLFlg string
		statsdAddrFlg     string
		schedule          string
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "configs/etl.yaml", "run config YAML path")
	flag.StringVar(&mode, "mode", modeFull, "stage to run: full, extract, transform, schema, or load")
	flag.BoolVar(&fromArtifacts, "from-artifacts", false, "skip extraction and replay the latest raw artifacts")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "pushgateway", "metrics backend to use (pushgateway, datadog, none)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.StringVar(&statsdAddrFlg, "statsd-addr", "", "DogStatsD address (overrides env STATSD_ADDR)")
	flag.StringVar(&schedule, "schedule", "", "cron expression; when set, run repeatedly until interrupted")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	// A .env file is optional; deployment images set real environment
	// variables instead.
	_ = godotenv.Load()

	if *verbose && os.Getenv("LOG_LEVEL") == "" {
		os.Setenv("LOG_LEVEL", "debug")
	}

	zl, err := logging.New()
	if err != nil {
		fatalf("init logger: %v", err)
	}
	log := zl.Sugar()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatalf("load config: %v", err)
	}

	issues := cfg.Validate()
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		fatalf("configuration is invalid: %v", cfgPath)
	}

	// If validate flag is set, only validate the configuration and exit.
	if validate {
		fmt.Printf("configuration is valid: %v\n", cfgPath)
		os.Exit(0)
	}

	setupMetrics(log, cfg.Job, metricsBackendFlg, pushGatewayURLFlg, statsdAddrFlg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	var runErr error
	if schedule != "" {
		runErr = runScheduled(ctx, cfg, log, schedule, mode, fromArtifacts)
	} else {
		runErr = runOnce(ctx, cfg, log, mode, fromArtifacts)
	}

	if runErr != nil {
		log.Errorw("run failed", "error", runErr, "elapsed", time.Since(start).Truncate(time.Millisecond))
	} else {
		log.Infow("run complete", "elapsed", time.Since(start).Truncate(time.Millisecond))
	}

	if err := metrics.Flush(); err != nil {
		log.Warnw("metrics flush failed", "error", err)
	}
	_ = zl.Sync()
	if runErr != nil {
		os.Exit(1)
	}
}

// setupMetrics installs the selected metrics backend. Each setting resolves
// flag, then environment, then default. An init failure leaves the no-op
// backend in place so a missing gateway never blocks a run.
func setupMetrics(log *zap.SugaredLogger, job, backendFlg, gatewayFlg, statsdFlg string) {
	backendName := backendFlg
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}

	switch backendName {
	case "pushgateway":
		gwURL := gatewayFlg
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}

		b, err := prompush.NewBackend(job, gwURL)
		if err != nil {
			log.Warnw("metrics: pushgateway init failed, metrics disabled", "error", err)
			return
		}
		metrics.SetBackend(b)
		log.Infow("metrics enabled", "backend", backendName, "url", gwURL, "job", job)

	case "datadog":
		addr := statsdFlg
		if addr == "" {
			addr = os.Getenv("STATSD_ADDR")
		}
		if addr == "" {
			addr = "127.0.0.1:8125"
		}

		b, err := datadog.NewBackend(datadog.Config{
			Addr:       addr,
			GlobalTags: []string{"job:" + job},
		})
		if err != nil {
			log.Warnw("metrics: datadog init failed, metrics disabled", "error", err)
			return
		}
		metrics.SetBackend(b)
		log.Infow("metrics enabled", "backend", backendName, "addr", addr, "job", job)

	case "", "none":
		log.Debugw("metrics disabled", "backend", backendName)

	default:
		log.Warnw("unknown metrics backend, metrics disabled", "backend", backendName)
	}
}

// runScheduled executes the pipeline on a cron schedule until the context
// is canceled. A tick that fires while the previous run is still going is
// skipped rather than stacked.
func runScheduled(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger, spec, mode string, fromArtifacts bool) error {
	cr := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := cr.AddFunc(spec, func() {
		if err := runOnce(ctx, cfg, log, mode, fromArtifacts); err != nil {
			log.Errorw("scheduled run failed", "error", err)
		}
		if err := metrics.Flush(); err != nil {
			log.Warnw("metrics flush failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("parse schedule %q: %w", spec, err)
	}

	cr.Start()
	log.Infow("scheduler started", "schedule", spec, "mode", mode)

	<-ctx.Done()
	log.Info("shutting down scheduler")
	<-cr.Stop().Done()
	return nil
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
