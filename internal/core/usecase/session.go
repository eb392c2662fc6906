package usecase

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/aps-model-browser/internal/core/domain"
	"github.com/kirillkom/aps-model-browser/internal/core/ports"
)

// SessionDeps are the collaborators of one page session.
type SessionDeps struct {
	API       ports.HierarchyAPI
	Tokens    ports.TokenSource
	Engine    ports.ViewerEngine
	Lists     ListViews
	Upload    ports.UploadForm
	Canvas    ports.ViewerCanvas
	Profile   ports.ProfileView
	Notifier  ports.Notifier
	Scheduler ports.Scheduler
	Publisher ports.ActivityPublisher
	Observer  ports.SessionObserver
	Logger    *slog.Logger

	ViewerRole   domain.ViewerRole
	RefreshDelay time.Duration
}

// Session is the explicitly owned context of one page: exactly one
// hierarchy controller, upload controller and viewer session.
type Session struct {
	ID        string
	Hierarchy *HierarchyController
	Upload    *UploadController
	Viewer    *ViewerSession
	Shell     *AppShell
}

func NewSession(deps SessionDeps) *Session {
	id := uuid.NewString()
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("session_id", id)

	viewer := NewViewerSession(deps.Engine, deps.Tokens, deps.Canvas, deps.Notifier, ViewerOptions{
		Role:      deps.ViewerRole,
		Publisher: deps.Publisher,
		Observer:  deps.Observer,
		Logger:    logger,
		SessionID: id,
	})
	upload := NewUploadController(deps.API, deps.Upload, deps.Notifier, deps.Scheduler, nil, UploadOptions{
		RefreshDelay: deps.RefreshDelay,
		Publisher:    deps.Publisher,
		Observer:     deps.Observer,
		Logger:       logger,
		SessionID:    id,
	})
	hierarchy := NewHierarchyController(deps.API, deps.Lists, upload, viewer, deps.Notifier, deps.Observer, logger)
	upload.refresher = hierarchy

	return &Session{
		ID:        id,
		Hierarchy: hierarchy,
		Upload:    upload,
		Viewer:    viewer,
		Shell:     NewAppShell(deps.API, hierarchy, upload, deps.Profile, deps.Notifier, logger),
	}
}
