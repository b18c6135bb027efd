package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/bened18/crypto-stock-etl/internal/api"
	"github.com/bened18/crypto-stock-etl/internal/config"
	"github.com/bened18/crypto-stock-etl/internal/logging"
)

// main is the entry point for the read-API binary. It serves the curated
// market and historical tables over HTTP until interrupted.
func main() {
	var (
		cfgPath string
		listen  string
	)
	flag.StringVar(&cfgPath, "config", "configs/etl.yaml", "run config YAML path")
	flag.StringVar(&listen, "listen", "", "listen address (overrides the config)")
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := api.Open(ctx, api.Config{
		DSN:             cfg.Storage.ResolveDSN(),
		MarketTable:     cfg.Storage.MarketTable,
		HistoricalTable: cfg.Storage.HistoricalTable,
	})
	if err != nil {
		fatalf("open store: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), api.RequestLogger(log), api.CORS())
	api.NewHandler(store, log).Routes(r)

	addr := listen
	if addr == "" {
		addr = cfg.API.Listen
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Infow("api listening", "addr", addr, "storage", cfg.Storage.Kind)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	var srvErr error
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnw("shutdown incomplete", "error", err)
		}
		cancel()
		<-errCh
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			srvErr = err
		}
	}

	closeStore()
	if srvErr != nil {
		log.Errorw("server failed", "error", srvErr)
	} else {
		log.Infow("api stopped")
	}
	_ = zl.Sync()
	if srvErr != nil {
		os.Exit(1)
	}
}

// fatalf reports a startup failure before logging is ready and exits.
func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
