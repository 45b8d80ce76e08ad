// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docgen-progress/internal/config"
	"docgen-progress/internal/infra/adapters/docgen"
	"docgen-progress/internal/infra/api"
	"docgen-progress/internal/infra/logging"
	"docgen-progress/internal/infra/metrics"
	"docgen-progress/internal/infra/sched"
	"docgen-progress/internal/infra/store"
	"docgen-progress/internal/infra/worker"
	"docgen-progress/internal/usecase"
)

// Overridden at build time via -ldflags.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "developer mode: console logs, built-in defaults when no config file exists")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		if !*devMode {
			log.Fatalf("config: %v", err)
		}
		cfg = config.Default()
		cfg.Runtime.Dev = true
	}

	// ---- Logging & metrics ----
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Progress store ----
	progressStore := store.NewMemoryStore()

	// ---- Worker pool ----
	pool := worker.NewPool(cfg.Jobs.Workers, cfg.Jobs.QueueSize, logger)
	pool.Start(ctx)

	// ---- Generation pipeline ----
	// The real pipeline is an external collaborator; the noop adapter
	// fabricates runs so the streaming path can be exercised end to end.
	pipeline := docgen.NewNoopPipeline(0, 0)

	// ---- Use cases ----
	jobUC := usecase.NewJobUseCase(progressStore, pipeline, pool, cfg.Jobs.PipelinePoll, cfg.Jobs.BaselinePercent, logger)

	// ---- Eviction sweeper ----
	sweeper := sched.NewEvictionWorker(progressStore, cfg.Eviction, logger)
	if err := sweeper.Start(); err != nil {
		logger.Fatal().Err(err).Msg("eviction worker")
	}

	// ---- HTTP API ----
	srv := api.NewServer(cfg, jobUC, progressStore, logger)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	logger.Info().Str("version", version).Bool("dev", cfg.Runtime.Dev).Msg("docgen-progress started")

	// ---- Shutdown ----
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		logger.Error().Err(err).Msg("http server failed")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	sweeper.Stop()
	cancel()
	pool.Stop()

	// Give in-flight log writes a moment on console format.
	time.Sleep(50 * time.Millisecond)
}
