package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/aps-model-browser/internal/core/domain"
	"github.com/kirillkom/aps-model-browser/internal/core/ports"
	"github.com/kirillkom/aps-model-browser/internal/infrastructure/resilience"
)

var (
	errNotInitialized = errors.New("viewer engine is not initialized")
	errNotStarted     = errors.New("gui viewer is not started")
)

// Engine resolves documents through the Model Derivative manifest and hands
// the chosen viewable to the page canvas, which renders it client-side.
type Engine struct {
	supported     bool
	derivativeURL string
	httpClient    *http.Client
	tokens        ports.TokenSource
	executor      *resilience.Executor
	logger        *slog.Logger

	mu          sync.Mutex
	initialized bool
	token       domain.AccessToken
	canvas      ports.ViewerCanvas
}

type Options struct {
	// Supported is false when the deployment cannot render models at all.
	Supported          bool
	DerivativeURL      string
	HTTPClient         *http.Client
	Tokens             ports.TokenSource
	ResilienceExecutor *resilience.Executor
	Logger             *slog.Logger
}

func New(options Options) *Engine {
	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		supported:     options.Supported,
		derivativeURL: strings.TrimRight(options.DerivativeURL, "/"),
		httpClient:    httpClient,
		tokens:        options.Tokens,
		executor:      options.ResilienceExecutor,
		logger:        logger,
	}
}

func (e *Engine) Supported() bool { return e.supported }

// Initialize stores the viewer token. Calling it again after a failed start
// only replaces the token.
func (e *Engine) Initialize(_ context.Context, token domain.AccessToken) error {
	if token.Value == "" {
		return domain.WrapError(domain.ErrAuth, "initialize viewer", errors.New("access token is empty"))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.token = token
	e.initialized = true
	return nil
}

func (e *Engine) StartViewer(_ context.Context, canvas ports.ViewerCanvas) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return errNotInitialized
	}
	if canvas == nil {
		return errors.New("viewer canvas is nil")
	}
	e.canvas = canvas
	return nil
}

// LoadDocument fetches the manifest of documentID ("urn:<base64>").
func (e *Engine) LoadDocument(ctx context.Context, documentID string) (*domain.ViewerDocument, error) {
	urn := strings.TrimPrefix(documentID, "urn:")
	if urn == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "load document", errors.New("document id is empty"))
	}
	token, err := e.currentToken(ctx)
	if err != nil {
		return nil, err
	}

	manifest, err := e.manifest(ctx, urn, token)
	if manifestStatus(err) == http.StatusUnauthorized && e.tokens != nil {
		e.logger.Warn("viewer_token_rejected", "urn", urn)
		if token, err = e.renewToken(ctx); err != nil {
			return nil, err
		}
		manifest, err = e.manifest(ctx, urn, token)
	}
	if err != nil {
		switch manifestStatus(err) {
		case http.StatusNotFound:
			return nil, domain.WrapError(domain.ErrDocumentConversion, "load document", fmt.Errorf("document %s has not been translated", urn))
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, domain.WrapError(domain.ErrAuth, "load document", err)
		}
		return nil, domain.WrapError(domain.ErrNetwork, "load document", err)
	}

	doc := manifest.toDocument(urn)
	switch doc.Status {
	case domain.ManifestSuccess:
		e.logger.Debug("viewer_manifest_loaded", "urn", urn, "viewables", len(doc.Viewables))
		return doc, nil
	case domain.ManifestPending, domain.ManifestInProgress:
		return nil, domain.WrapError(domain.ErrDocumentConversion, "load document", fmt.Errorf("translation in progress (%s)", doc.Progress))
	default:
		return nil, domain.WrapError(domain.ErrDocumentConversion, "load document", fmt.Errorf("translation %s", doc.Status))
	}
}

func (e *Engine) LoadViewable(_ context.Context, doc *domain.ViewerDocument, node domain.Viewable) error {
	e.mu.Lock()
	canvas, token := e.canvas, e.token
	e.mu.Unlock()
	if canvas == nil {
		return errNotStarted
	}
	if doc == nil || node.GUID == "" {
		return domain.WrapError(domain.ErrDocumentConversion, "load viewable", errors.New("no viewable selected"))
	}

	role := domain.ParseViewerRole(node.Role)
	canvas.ShowModel(domain.LoadedModel{
		URN:          doc.URN,
		DocumentID:   domain.EngineDocumentID(doc.URN),
		ViewableGUID: node.GUID,
		ViewableName: node.Name,
		Role:         role,
		AccessToken:  token.Value,
		Theme:        domain.ThemeFor(role),
	})
	return nil
}

// currentToken refreshes the engine token through the source once it nears
// expiry.
func (e *Engine) currentToken(ctx context.Context) (domain.AccessToken, error) {
	e.mu.Lock()
	initialized, token := e.initialized, e.token
	e.mu.Unlock()
	if !initialized {
		return domain.AccessToken{}, errNotInitialized
	}
	if e.tokens == nil || !token.Expired(time.Now(), time.Minute) {
		return token, nil
	}

	fresh, err := e.tokens.Token(ctx)
	if err != nil {
		return domain.AccessToken{}, err
	}
	e.mu.Lock()
	e.token = fresh
	e.mu.Unlock()
	return fresh, nil
}

// renewToken drops the token the manifest endpoint rejected, including the
// copy cached by the source, and fetches a new one.
func (e *Engine) renewToken(ctx context.Context) (domain.AccessToken, error) {
	if inv, ok := e.tokens.(interface{ Invalidate() }); ok {
		inv.Invalidate()
	}
	fresh, err := e.tokens.Token(ctx)
	if err != nil {
		return domain.AccessToken{}, err
	}
	e.mu.Lock()
	e.token = fresh
	e.mu.Unlock()
	return fresh, nil
}

func (e *Engine) manifest(ctx context.Context, urn string, token domain.AccessToken) (manifestResponse, error) {
	return resilience.Call(ctx, e.executor, "viewer.manifest", func(ctx context.Context) (manifestResponse, error) {
		return e.fetchManifest(ctx, urn, token)
	}, classifyManifestError)
}

func manifestStatus(err error) int {
	var statusErr *ManifestStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

func (e *Engine) fetchManifest(ctx context.Context, urn string, token domain.AccessToken) (manifestResponse, error) {
	endpoint := e.derivativeURL + "/modelderivative/v2/designdata/" + url.PathEscape(urn) + "/manifest"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return manifestResponse{}, fmt.Errorf("create manifest request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.Value)
	req.Header.Set("Accept", "application/json")
	return doManifest(e.httpClient, req)
}
