// Command tokengen fetches a client-credentials viewer token and writes it
// as JSON for static viewer pages.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kirillkom/aps-model-browser/internal/bootstrap"
	"github.com/kirillkom/aps-model-browser/internal/config"
	"github.com/kirillkom/aps-model-browser/internal/infrastructure/auth"
	"github.com/kirillkom/aps-model-browser/internal/infrastructure/resilience"
	"github.com/kirillkom/aps-model-browser/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/aps-model-browser/internal/observability/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger := logging.NewJSONLogger("tokengen", "info")
	cfg, err := config.Load()
	if err != nil {
		logger.Error("config_load_failed", "error", err)
		return 1
	}
	logger = logging.NewJSONLogger("tokengen", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	source, err := auth.NewAPSSource(bootstrap.APSConfig(cfg), auth.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig(), logger),
		Logger:             logger,
	})
	if err != nil {
		logger.Error("token_source_failed", "error", err)
		return 1
	}

	token, err := source.Token(ctx)
	if err != nil {
		logger.Error("token_fetch_failed", "error", err)
		return 1
	}

	dir, name := filepath.Split(cfg.TokenOutputPath)
	if dir == "" {
		dir = "."
	}
	store, err := localfs.New(dir)
	if err != nil {
		logger.Error("token_output_failed", "path", cfg.TokenOutputPath, "error", err)
		return 1
	}
	if err := store.SaveJSON(ctx, name, token); err != nil {
		logger.Error("token_write_failed", "path", cfg.TokenOutputPath, "error", err)
		return 1
	}

	logger.Info("token_written", "path", cfg.TokenOutputPath, "expires_in", token.ExpiresIn)
	return 0
}
