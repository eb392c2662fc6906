package usecase

import (
	"context"
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
	DefaultRefreshDelay   = 3 * time.Second
	defaultRefreshTimeout = 30 * time.Second

	uploadFailedMessage = "Upload failed."
)

// FolderRefresher re-fetches the contents of the selected folder.
type FolderRefresher interface {
	RefreshFolder(ctx context.Context) error
}

// UploadController drives the upload form. The disabled submit control is
// the only concurrency guard: one upload may be in flight at a time.
type UploadController struct {
	mu             sync.Mutex
	state          domain.UploadState
	inFlight       bool
	stopRefresh    func() bool
	refreshDelay   time.Duration
	refreshTimeout time.Duration

	api       ports.HierarchyAPI
	form      ports.UploadForm
	notifier  ports.Notifier
	scheduler ports.Scheduler
	refresher FolderRefresher
	publisher ports.ActivityPublisher
	observer  ports.SessionObserver
	logger    *slog.Logger
	sessionID string
}

type UploadOptions struct {
	RefreshDelay time.Duration
	Publisher    ports.ActivityPublisher
	Observer     ports.SessionObserver
	Logger       *slog.Logger
	SessionID    string
}

func NewUploadController(
	api ports.HierarchyAPI,
	form ports.UploadForm,
	notifier ports.Notifier,
	scheduler ports.Scheduler,
	refresher FolderRefresher,
	options UploadOptions,
) *UploadController {
	uc := &UploadController{
		state:          domain.UploadState{Phase: domain.UploadIdle},
		refreshDelay:   options.RefreshDelay,
		refreshTimeout: defaultRefreshTimeout,
		api:            api,
		form:           form,
		notifier:       notifier,
		scheduler:      scheduler,
		refresher:      refresher,
		publisher:      options.Publisher,
		observer:       options.Observer,
		logger:         options.Logger,
		sessionID:      options.SessionID,
	}
	if uc.refreshDelay <= 0 {
		uc.refreshDelay = DefaultRefreshDelay
	}
	if uc.publisher == nil {
		uc.publisher = nopPublisher{}
	}
	if uc.observer == nil {
		uc.observer = nopObserver{}
	}
	if uc.logger == nil {
		uc.logger = slog.Default()
	}
	return uc
}

func (uc *UploadController) State() domain.UploadState {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.state
}

// Enable records folderID as the upload target and shows the form.
func (uc *UploadController) Enable(folderID, label string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	uc.state = domain.UploadState{
		Phase:       domain.UploadReady,
		FolderID:    folderID,
		FolderLabel: label,
	}
	if uc.inFlight {
		uc.state.Phase = domain.UploadInFlight
	}
	uc.form.SetTarget(true, label)
	uc.form.SetSubmitEnabled(!uc.inFlight)
	uc.form.ShowState(uc.state)
}

// Disable hides the form until a folder is selected again.
func (uc *UploadController) Disable() {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	uc.state = domain.UploadState{Phase: domain.UploadDisabled}
	if uc.inFlight {
		uc.state.Phase = domain.UploadInFlight
	}
	uc.form.SetTarget(false, "")
	uc.form.SetSubmitEnabled(false)
	uc.form.ShowState(uc.state)
}

// Submit sends file to the target folder. Validation failures never reach
// the network.
func (uc *UploadController) Submit(ctx context.Context, file *domain.UploadFile) (domain.UploadResult, error) {
	uc.mu.Lock()
	if err := uc.validate(file); err != nil {
		uc.mu.Unlock()
		uc.notify(domain.Notice{Level: domain.NoticeError, Message: domain.UserMessage(err, err.Error()), Blocking: true})
		return domain.UploadResult{}, err
	}
	folderID := uc.state.FolderID
	uc.inFlight = true
	uc.state.Phase = domain.UploadInFlight
	uc.state.FileName = file.Name
	uc.state.Message = ""
	uc.form.SetSubmitEnabled(false)
	uc.form.ShowState(uc.state)
	uc.mu.Unlock()

	uc.logger.Info("upload_started", "folder_id", folderID, "file", file.Name, "size", file.Size)
	start := time.Now()
	result, err := uc.api.UploadFile(ctx, folderID, *file)
	elapsed := time.Since(start)

	if err != nil {
		message := domain.UserMessage(err, uploadFailedMessage)
		uc.mu.Lock()
		uc.finish(domain.UploadFailed, message)
		uc.mu.Unlock()

		uc.logger.Error("upload_failed", "folder_id", folderID, "file", file.Name, "error", err)
		uc.observer.ObserveUpload("error", elapsed)
		uc.notify(domain.Notice{Level: domain.NoticeError, Message: message})
		uc.publish(ctx, folderID, "failed", message)
		return domain.UploadResult{}, fmt.Errorf("upload %s: %w", file.Name, err)
	}

	uc.mu.Lock()
	uc.finish(domain.UploadSucceeded, result.Message)
	uc.form.ClearFile()
	uc.scheduleRefresh()
	uc.mu.Unlock()

	uc.logger.Info("upload_succeeded", "folder_id", folderID, "file", file.Name, "duration_ms", float64(elapsed.Microseconds())/1000.0)
	uc.observer.ObserveUpload("success", elapsed)
	uc.notify(domain.Notice{Level: domain.NoticeInfo, Message: result.Message})
	uc.publish(ctx, folderID, "succeeded", result.Message)
	return result, nil
}

// finish leaves the in-flight state and re-enables submit. Callers hold uc.mu.
func (uc *UploadController) finish(phase domain.UploadPhase, message string) {
	uc.inFlight = false
	uc.state.Phase = phase
	uc.state.Message = message
	if uc.state.FolderID == "" {
		uc.state.Phase = domain.UploadDisabled
	}
	uc.form.SetSubmitEnabled(uc.state.FolderID != "")
	uc.form.ShowState(uc.state)
}

// scheduleRefresh leaves the confirmation visible for refreshDelay before
// re-fetching the folder contents. Callers hold uc.mu.
func (uc *UploadController) scheduleRefresh() {
	if uc.refresher == nil || uc.scheduler == nil {
		return
	}
	if uc.stopRefresh != nil {
		uc.stopRefresh()
	}
	uc.stopRefresh = uc.scheduler.AfterFunc(uc.refreshDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), uc.refreshTimeout)
		defer cancel()
		if err := uc.refresher.RefreshFolder(ctx); err != nil {
			uc.logger.Warn("upload_refresh_failed", "error", err)
		}
	})
}

// validate checks the submit preconditions. Callers hold uc.mu.
func (uc *UploadController) validate(file *domain.UploadFile) error {
	switch {
	case uc.inFlight:
		return validationError("An upload is already in progress.")
	case file == nil || strings.TrimSpace(file.Name) == "" || file.Body == nil:
		return validationError("Please choose a file to upload.")
	case uc.state.FolderID == "":
		return validationError("Please select a folder first.")
	default:
		return nil
	}
}

func (uc *UploadController) notify(notice domain.Notice) {
	if uc.notifier == nil || notice.Message == "" {
		return
	}
	notice.At = time.Now().UTC()
	uc.notifier.Notify(notice)
}

func (uc *UploadController) publish(ctx context.Context, folderID, status, message string) {
	err := uc.publisher.PublishActivity(context.WithoutCancel(ctx), domain.Activity{
		ID:        uuid.NewString(),
		SessionID: uc.sessionID,
		Kind:      domain.ActivityUpload,
		Subject:   folderID,
		Status:    status,
		Message:   message,
		At:        time.Now().UTC(),
	})
	if err != nil {
		uc.logger.Warn("activity_publish_failed", "kind", domain.ActivityUpload, "error", err)
	}
}

type userError struct {
	message string
}

func (e *userError) Error() string       { return e.message }
func (e *userError) UserMessage() string { return e.message }

func validationError(message string) error {
	return domain.WrapError(domain.ErrValidation, "submit upload", &userError{message: message})
}
