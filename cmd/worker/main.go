package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matchtrack/matchtrack/internal/app"
	"github.com/matchtrack/matchtrack/internal/config"
	"github.com/matchtrack/matchtrack/internal/observability"
	"github.com/matchtrack/matchtrack/internal/platform/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.NewJSON(cfg.LogLevel)
	logging.SetDefault(logger)

	shutdownUptrace, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init uptrace", "error", err)
		os.Exit(1)
	}

	consumer, cleanup, err := app.NewWorker(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("build worker", "error", err)
		os.Exit(1)
	}

	if err := consumer.Start(); err != nil {
		logger.Error("start consumer", "error", err)
		os.Exit(1)
	}
	logger.Info("ingest worker started",
		"stream", cfg.NATSStream, "durable", cfg.NATSConsumer, "workers", cfg.WorkerCount)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := cleanup(shutdownCtx); err != nil {
		logger.Error("cleanup failed", "error", err)
	}
	if err := shutdownUptrace(shutdownCtx); err != nil {
		logger.Error("shutdown uptrace", "error", err)
	}

	logger.Info("ingest worker stopped")
}
