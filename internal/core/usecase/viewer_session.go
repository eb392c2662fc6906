package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/aps-model-browser/internal/core/domain"
	"github.com/kirillkom/aps-model-browser/internal/core/ports"
)

const (
	incompatibleMessage = "This browser cannot display 3D models (rendering support is missing)."
	tokenFailedMessage  = "Could not launch the viewer: no access token is available."
	startFailedMessage  = "Could not launch the viewer."
	conversionMessage   = "The model could not be loaded. It may still be converting, or its conversion failed."
	droppedMessage      = "The model selected while the viewer was starting was not opened. Select it again."
)

// ViewerSession owns the single viewer engine of the page. The engine is
// initialized once; later loads reuse the running viewer. When loads
// overlap, the most recently requested document wins.
type ViewerSession struct {
	mu        sync.Mutex
	state     domain.ViewerState
	gen       uint64
	requested string
	current   string

	engine    ports.ViewerEngine
	tokens    ports.TokenSource
	canvas    ports.ViewerCanvas
	notifier  ports.Notifier
	publisher ports.ActivityPublisher
	observer  ports.SessionObserver
	logger    *slog.Logger
	role      domain.ViewerRole
	sessionID string
}

type ViewerOptions struct {
	Role      domain.ViewerRole
	Publisher ports.ActivityPublisher
	Observer  ports.SessionObserver
	Logger    *slog.Logger
	SessionID string
}

func NewViewerSession(
	engine ports.ViewerEngine,
	tokens ports.TokenSource,
	canvas ports.ViewerCanvas,
	notifier ports.Notifier,
	options ViewerOptions,
) *ViewerSession {
	s := &ViewerSession{
		state:     domain.ViewerNotStarted,
		engine:    engine,
		tokens:    tokens,
		canvas:    canvas,
		notifier:  notifier,
		publisher: options.Publisher,
		observer:  options.Observer,
		logger:    options.Logger,
		role:      options.Role,
		sessionID: options.SessionID,
	}
	if s.role == "" {
		s.role = domain.Role3D
	}
	if s.publisher == nil {
		s.publisher = nopPublisher{}
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

func (s *ViewerSession) State() domain.ViewerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LoadModel shows documentURN in the viewer, starting the engine first if
// this is the first load of the page.
func (s *ViewerSession) LoadModel(ctx context.Context, documentURN string) error {
	urn := strings.TrimSpace(documentURN)
	if urn == "" {
		return domain.WrapError(domain.ErrInvalidInput, "load model", errors.New("document urn is empty"))
	}

	s.mu.Lock()
	if s.current == urn && (s.state == domain.ViewerDocumentLoading || s.state == domain.ViewerDocumentLoaded) {
		s.mu.Unlock()
		return nil
	}
	s.gen++
	gen := s.gen
	s.requested = urn

	switch s.state {
	case domain.ViewerNotStarted:
		if !s.engine.Supported() {
			s.mu.Unlock()
			s.logger.Warn("viewer_unsupported", "urn", urn)
			s.notify(domain.NoticeError, incompatibleMessage)
			return domain.WrapError(domain.ErrViewerCapability, "start viewer", errors.New("rendering capability missing"))
		}
		s.setState(domain.ViewerStarting)
		s.mu.Unlock()

		if err := s.start(ctx, urn); err != nil {
			return err
		}

		s.mu.Lock()
		gen, urn = s.gen, s.requested
		s.mu.Unlock()
	case domain.ViewerStarting:
		// The call that is starting the engine loads the latest request, or
		// reports it dropped if the start fails.
		s.mu.Unlock()
		s.logger.Debug("viewer_request_queued", "urn", urn)
		return nil
	default:
		s.mu.Unlock()
	}

	return s.load(ctx, gen, urn)
}

func (s *ViewerSession) start(ctx context.Context, urn string) error {
	token, err := s.tokens.Token(ctx)
	if err != nil {
		s.observer.ObserveTokenFetch("error")
		if !domain.IsKind(err, domain.ErrAuth) {
			err = domain.WrapError(domain.ErrAuth, "fetch viewer token", err)
		}
		return s.abortStart(urn, err, tokenFailedMessage)
	}
	s.observer.ObserveTokenFetch("success")

	if err := s.engine.Initialize(ctx, token); err != nil {
		return s.abortStart(urn, fmt.Errorf("initialize viewer engine: %w", err), startFailedMessage)
	}

	s.canvas.Mount(domain.ThemeFor(s.role))
	if err := s.engine.StartViewer(ctx, s.canvas); err != nil {
		return s.abortStart(urn, fmt.Errorf("start gui viewer: %w", err), startFailedMessage)
	}

	s.mu.Lock()
	s.setState(domain.ViewerRunning)
	s.mu.Unlock()
	s.logger.Info("viewer_started", "role", string(s.role))
	return nil
}

// abortStart returns the session to NotStarted. A document requested by a
// later call while the engine was starting is reported as dropped.
func (s *ViewerSession) abortStart(urn string, err error, message string) error {
	s.mu.Lock()
	dropped := s.requested
	s.requested = ""
	s.setState(domain.ViewerNotStarted)
	s.mu.Unlock()

	s.logger.Error("viewer_start_failed", "urn", urn, "error", err)
	s.notify(domain.NoticeError, message)
	if dropped != "" && dropped != urn {
		s.logger.Warn("viewer_request_dropped", "urn", dropped, "reason", "viewer start failed")
		s.observer.ObserveViewerLoad("dropped", 0)
		s.notify(domain.NoticeWarning, droppedMessage)
	}
	return err
}

func (s *ViewerSession) load(ctx context.Context, gen uint64, urn string) error {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return nil
	}
	s.current = urn
	s.setState(domain.ViewerDocumentLoading)
	s.mu.Unlock()

	start := time.Now()
	doc, err := s.engine.LoadDocument(ctx, domain.EngineDocumentID(urn))

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		s.logger.Debug("viewer_document_superseded", "urn", urn)
		s.observer.ObserveViewerLoad("superseded", time.Since(start))
		return nil
	}
	if err == nil {
		err = s.openDefaultViewable(ctx, doc)
	}
	if err != nil {
		s.current = ""
		s.setState(domain.ViewerDocumentFailed)
		s.mu.Unlock()

		s.logger.Error("viewer_document_failed", "urn", urn, "error", err)
		s.observer.ObserveViewerLoad("error", time.Since(start))
		s.notify(domain.NoticeWarning, conversionMessage)
		s.publish(ctx, urn, "failed", err.Error())
		if domain.IsKind(err, domain.ErrDocumentConversion) {
			return err
		}
		return domain.WrapError(domain.ErrDocumentConversion, "load document", err)
	}
	s.setState(domain.ViewerDocumentLoaded)
	s.mu.Unlock()

	s.logger.Info("viewer_document_loaded", "urn", urn, "duration_ms", float64(time.Since(start).Microseconds())/1000.0)
	s.observer.ObserveViewerLoad("success", time.Since(start))
	s.publish(ctx, urn, "loaded", "")
	return nil
}

// openDefaultViewable loads the default geometry into the running viewer.
// Callers hold s.mu so engine mutation stays serialized.
func (s *ViewerSession) openDefaultViewable(ctx context.Context, doc *domain.ViewerDocument) error {
	node, ok := doc.DefaultGeometry(s.role)
	if !ok {
		return domain.WrapError(domain.ErrDocumentConversion, "select viewable", fmt.Errorf("no %s geometry in document", s.role))
	}
	return s.engine.LoadViewable(ctx, doc, node)
}

// setState records and displays the new state. Callers hold s.mu.
func (s *ViewerSession) setState(state domain.ViewerState) {
	s.state = state
	s.canvas.ShowViewerState(state)
}

func (s *ViewerSession) notify(level domain.NoticeLevel, message string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(domain.Notice{Level: level, Message: message, At: time.Now().UTC()})
}

func (s *ViewerSession) publish(ctx context.Context, urn, status, message string) {
	err := s.publisher.PublishActivity(context.WithoutCancel(ctx), domain.Activity{
		ID:        uuid.NewString(),
		SessionID: s.sessionID,
		Kind:      domain.ActivityViewerLoad,
		Subject:   urn,
		Status:    status,
		Message:   message,
		At:        time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn("activity_publish_failed", "kind", domain.ActivityViewerLoad, "error", err)
	}
}
