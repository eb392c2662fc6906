package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kirillkom/aps-model-browser/internal/core/domain"
	"github.com/kirillkom/aps-model-browser/internal/core/ports"
)

const profileFailedMessage = "Could not load your profile. Please reload the page."

// AppShell performs the initial page load and routes page events to the
// controllers. It holds no selection state of its own.
type AppShell struct {
	started atomic.Bool

	api      ports.HierarchyAPI
	nav      ports.Navigator
	upload   ports.Uploader
	profile  ports.ProfileView
	notifier ports.Notifier
	logger   *slog.Logger
}

func NewAppShell(
	api ports.HierarchyAPI,
	nav ports.Navigator,
	upload ports.Uploader,
	profile ports.ProfileView,
	notifier ports.Notifier,
	logger *slog.Logger,
) *AppShell {
	if logger == nil {
		logger = slog.Default()
	}
	return &AppShell{
		api:      api,
		nav:      nav,
		upload:   upload,
		profile:  profile,
		notifier: notifier,
		logger:   logger,
	}
}

// Start greets the user and loads the hub list. Only the first call does
// anything; a failed profile fetch is not retried.
func (a *AppShell) Start(ctx context.Context) error {
	if !a.started.CompareAndSwap(false, true) {
		return nil
	}

	profile, err := a.api.GetProfile(ctx)
	if err != nil {
		a.logger.Error("profile_fetch_failed", "url", "/api/user/profile", "error", err)
		a.profile.ShowProfileFailure(profileFailedMessage)
		if a.notifier != nil {
			a.notifier.Notify(domain.Notice{Level: domain.NoticeError, Message: profileFailedMessage, At: time.Now().UTC()})
		}
		return fmt.Errorf("load profile: %w", err)
	}

	a.profile.ShowGreeting(profile)
	return a.nav.LoadHubs(ctx)
}

func (a *AppShell) Dispatch(ctx context.Context, event domain.Event) error {
	switch event.Type {
	case domain.EventSelect:
		id := strings.TrimSpace(event.ID)
		if id == "" {
			// Placeholder rows ("Loading...", "No items") are not clickable.
			return nil
		}
		switch event.Level {
		case domain.LevelHubs:
			return a.nav.SelectHub(ctx, id)
		case domain.LevelProjects:
			return a.nav.SelectProject(ctx, id)
		case domain.LevelFolders:
			return a.nav.SelectFolder(ctx, id)
		case domain.LevelItems:
			return a.nav.SelectItem(ctx, id)
		default:
			return domain.WrapError(domain.ErrInvalidInput, "dispatch select", fmt.Errorf("unknown level %d", event.Level))
		}
	case domain.EventUpload:
		_, err := a.upload.Submit(ctx, event.File)
		return err
	case domain.EventRefresh:
		return a.nav.RefreshFolder(ctx)
	default:
		return domain.WrapError(domain.ErrInvalidInput, "dispatch", fmt.Errorf("unknown event type %q", event.Type))
	}
}
