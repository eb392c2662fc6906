package ports

import (
	"context"

	"github.com/kirillkom/aps-model-browser/internal/core/domain"
)

// Navigator is the inbound contract for hierarchy selection.
type Navigator interface {
	LoadHubs(ctx context.Context) error
	SelectHub(ctx context.Context, id string) error
	SelectProject(ctx context.Context, id string) error
	SelectFolder(ctx context.Context, id string) error
	SelectItem(ctx context.Context, id string) error
	RefreshFolder(ctx context.Context) error
	Selection() domain.Selection
}

// Uploader is the inbound contract for the upload form.
type Uploader interface {
	Enable(folderID, label string)
	Disable()
	Submit(ctx context.Context, file *domain.UploadFile) (domain.UploadResult, error)
	State() domain.UploadState
}

// ModelLoader is the inbound contract of the viewer session.
type ModelLoader interface {
	LoadModel(ctx context.Context, documentURN string) error
	State() domain.ViewerState
}

// Shell dispatches page events to the controllers.
type Shell interface {
	Start(ctx context.Context) error
	Dispatch(ctx context.Context, event domain.Event) error
}
