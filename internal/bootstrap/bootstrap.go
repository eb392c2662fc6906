package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kirillkom/aps-model-browser/internal/adapters/page"
	"github.com/kirillkom/aps-model-browser/internal/config"
	"github.com/kirillkom/aps-model-browser/internal/core/domain"
	"github.com/kirillkom/aps-model-browser/internal/core/ports"
	"github.com/kirillkom/aps-model-browser/internal/core/usecase"
	"github.com/kirillkom/aps-model-browser/internal/infrastructure/auth"
	"github.com/kirillkom/aps-model-browser/internal/infrastructure/backend"
	"github.com/kirillkom/aps-model-browser/internal/infrastructure/clock"
	"github.com/kirillkom/aps-model-browser/internal/infrastructure/events/nats"
	"github.com/kirillkom/aps-model-browser/internal/infrastructure/resilience"
	"github.com/kirillkom/aps-model-browser/internal/infrastructure/viewer"
	"github.com/kirillkom/aps-model-browser/internal/observability/metrics"
)

type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Metrics *metrics.HTTPServerMetrics
	Page    *page.Model
	Session *usecase.Session
	Tokens  ports.TokenSource

	executors map[string]*resilience.Executor
	closeFn   func()
}

func New(_ context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	resilienceCfg := resilienceConfig(cfg)
	backendExecutor := resilience.NewExecutor(resilienceCfg.NoRetry(), logger)
	tokenExecutor := resilience.NewExecutor(resilienceCfg, logger)
	viewerExecutor := resilience.NewExecutor(resilienceCfg, logger)

	api := backend.New(cfg.BackendURL, backend.Options{
		Timeout:            cfg.BackendTimeout,
		ResilienceExecutor: backendExecutor,
		Logger:             logger,
	})

	tokens, err := newTokenSource(cfg, api, tokenExecutor, logger)
	if err != nil {
		return nil, err
	}

	engine := viewer.New(viewer.Options{
		Supported:          cfg.ViewerEnabled,
		DerivativeURL:      cfg.APSDerivativeURL,
		HTTPClient:         &http.Client{Timeout: cfg.BackendTimeout},
		Tokens:             tokens,
		ResilienceExecutor: viewerExecutor,
		Logger:             logger,
	})

	executors := map[string]*resilience.Executor{
		"backend": backendExecutor,
		"token":   tokenExecutor,
		"viewer":  viewerExecutor,
	}

	var publisher ports.ActivityPublisher
	closeFn := func() {}
	if strings.TrimSpace(cfg.NATSURL) != "" {
		natsExecutor := resilience.NewExecutor(resilienceCfg, logger)
		events, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: natsExecutor,
			Logger:             logger,
		})
		if err != nil {
			return nil, fmt.Errorf("init activity publisher: %w", err)
		}
		publisher = events
		executors["nats"] = natsExecutor
		closeFn = events.Close
	}

	httpMetrics := metrics.NewHTTPServerMetrics("browser")
	model := page.New()

	session := usecase.NewSession(usecase.SessionDeps{
		API:    api,
		Tokens: tokens,
		Engine: engine,
		Lists: usecase.ListViews{
			Hubs:     model.List(domain.LevelHubs),
			Projects: model.List(domain.LevelProjects),
			Folders:  model.List(domain.LevelFolders),
			Items:    model.List(domain.LevelItems),
		},
		Upload:       model,
		Canvas:       model,
		Profile:      model,
		Notifier:     model,
		Scheduler:    clock.Scheduler{},
		Publisher:    publisher,
		Observer:     httpMetrics,
		Logger:       logger,
		ViewerRole:   domain.ParseViewerRole(cfg.ViewerRole),
		RefreshDelay: cfg.UploadRefreshDelay,
	})
	logger.Info("session_created",
		"session_id", session.ID,
		"backend_url", cfg.BackendURL,
		"token_source", cfg.TokenSource,
		"viewer_enabled", cfg.ViewerEnabled,
		"activity_events", publisher != nil,
	)

	return &App{
		Config:    cfg,
		Logger:    logger,
		Metrics:   httpMetrics,
		Page:      model,
		Session:   session,
		Tokens:    tokens,
		executors: executors,
		closeFn:   closeFn,
	}, nil
}

// Health reports the breaker state of every guarded dependency.
func (a *App) Health() map[string]string {
	out := make(map[string]string)
	for name, executor := range a.executors {
		for op, state := range executor.BreakerStates() {
			out[name+"/"+op] = state
		}
	}
	return out
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func newTokenSource(cfg config.Config, api *backend.Client, executor *resilience.Executor, logger *slog.Logger) (*auth.CachingSource, error) {
	options := auth.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	}
	switch strings.ToLower(strings.TrimSpace(cfg.TokenSource)) {
	case "", "backend":
		return auth.NewBackendSource(api, options), nil
	case "aps":
		source, err := auth.NewAPSSource(APSConfig(cfg), options)
		if err != nil {
			return nil, fmt.Errorf("init aps token source: %w", err)
		}
		return source, nil
	default:
		return nil, fmt.Errorf("unknown TOKEN_SOURCE %q", cfg.TokenSource)
	}
}

// APSConfig maps the configuration onto the client-credentials source.
func APSConfig(cfg config.Config) auth.APSConfig {
	return auth.APSConfig{
		ClientID:     cfg.APSClientID,
		ClientSecret: cfg.APSClientSecret,
		TokenURL:     cfg.APSAuthURL,
		Scopes:       cfg.APSScopes,
		HTTPClient:   &http.Client{Timeout: cfg.BackendTimeout},
	}
}

func resilienceConfig(cfg config.Config) resilience.Config {
	out := resilience.DefaultConfig()
	out.RetryMaxAttempts = cfg.ResilienceRetryMaxAttempts
	out.RetryInitialBackoff = cfg.ResilienceRetryInitialBackoff
	out.RetryMaxBackoff = cfg.ResilienceRetryMaxBackoff
	out.BreakerEnabled = cfg.ResilienceBreakerEnabled
	if cfg.ResilienceBreakerMinRequests > 0 {
		out.BreakerMinRequests = uint32(cfg.ResilienceBreakerMinRequests)
	}
	out.BreakerOpenTimeout = cfg.ResilienceBreakerOpenTimeout
	return out
}
