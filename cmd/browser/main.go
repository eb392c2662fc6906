package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/aps-model-browser/internal/adapters/http"
	"github.com/kirillkom/aps-model-browser/internal/bootstrap"
	"github.com/kirillkom/aps-model-browser/internal/config"
	"github.com/kirillkom/aps-model-browser/internal/observability/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.NewJSONLogger("browser", "info").Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	logger := logging.NewJSONLogger("browser", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	router := httpadapter.NewRouter(app.Session.Shell, app.Page, app.Tokens, httpadapter.Options{
		Logger:           logger,
		Metrics:          app.Metrics,
		Health:           app.Health,
		RateLimitRPS:     cfg.APIRateLimitRPS,
		RateLimitBurst:   cfg.APIRateLimitBurst,
		MaxInFlight:      cfg.APIMaxInFlight,
		BackpressureWait: cfg.APIBackpressureWait,
		DispatchTimeout:  cfg.DispatchTimeout,
		UploadMaxBytes:   int64(cfg.UploadMaxBytes),
	}).Handler()

	// No write timeout: /ui/stream is long-lived and uploads are bounded
	// by DISPATCH_TIMEOUT.
	server := &http.Server{
		Addr:              ":" + cfg.BrowserPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("browser_listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("browser_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("browser_shutdown_failed", "error", err)
	}
}
