package ports

import (
	"context"
	"time"

	"github.com/kirillkom/aps-model-browser/internal/core/domain"
)

// HierarchyAPI is the REST backend exposing the storage hierarchy.
type HierarchyAPI interface {
	GetProfile(ctx context.Context) (domain.Profile, error)
	ListCollection(ctx context.Context, path string) ([]domain.Record, error)
	UploadFile(ctx context.Context, folderID string, file domain.UploadFile) (domain.UploadResult, error)
}

// TokenSource hands out short-lived viewer credentials.
type TokenSource interface {
	Token(ctx context.Context) (domain.AccessToken, error)
}

// ViewerEngine is the embedded 3D viewer. Initialize runs at most once per
// engine; StartViewer binds the single GUI viewer to its display region.
type ViewerEngine interface {
	Supported() bool
	Initialize(ctx context.Context, token domain.AccessToken) error
	StartViewer(ctx context.Context, canvas ViewerCanvas) error
	LoadDocument(ctx context.Context, documentID string) (*domain.ViewerDocument, error)
	LoadViewable(ctx context.Context, doc *domain.ViewerDocument, node domain.Viewable) error
}

// Scheduler runs fn once after d. The returned func cancels a pending run.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) (stop func() bool)
}

// ActivityPublisher broadcasts session outcomes to other subscribers.
type ActivityPublisher interface {
	PublishActivity(ctx context.Context, activity domain.Activity) error
}

// SessionObserver receives operational measurements from the controllers.
type SessionObserver interface {
	ObserveListFetch(level domain.Level, status string, duration time.Duration)
	ObserveStaleResponse(level domain.Level)
	ObserveUpload(status string, duration time.Duration)
	ObserveViewerLoad(status string, duration time.Duration)
	ObserveTokenFetch(status string)
}
