package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirillkom/aps-model-browser/internal/core/domain"
	"github.com/kirillkom/aps-model-browser/internal/core/ports"
)

// RenderFunc maps one backend record to a list entry.
type RenderFunc func(domain.Record) domain.ListEntry

// ListGuard runs apply atomically with the owner's staleness check and
// reports false when the update must be discarded. entries is nil for the
// loading and error states.
type ListGuard func(entries []domain.ListEntry, apply func()) bool

// ListFetcher loads one collection into the single list region it owns.
type ListFetcher struct {
	level    domain.Level
	api      ports.HierarchyAPI
	view     ports.ListView
	observer ports.SessionObserver
	logger   *slog.Logger
}

func NewListFetcher(
	level domain.Level,
	api ports.HierarchyAPI,
	view ports.ListView,
	observer ports.SessionObserver,
	logger *slog.Logger,
) *ListFetcher {
	if observer == nil {
		observer = nopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ListFetcher{
		level:    level,
		api:      api,
		view:     view,
		observer: observer,
		logger:   logger,
	}
}

// Load shows the loading state, fetches path and renders the outcome. No
// retry is attempted; a rejected guard yields ErrStaleResponse.
func (f *ListFetcher) Load(ctx context.Context, path string, render RenderFunc, guard ListGuard) ([]domain.ListEntry, error) {
	if guard == nil {
		guard = applyUnguarded
	}
	operation := "load " + f.level.String()

	if !guard(nil, f.view.ShowLoading) {
		return nil, domain.WrapError(domain.ErrStaleResponse, operation, errSuperseded)
	}

	start := time.Now()
	records, err := f.api.ListCollection(ctx, path)
	if err != nil {
		f.logger.Error("list_fetch_failed",
			"level", f.level.String(),
			"url", path,
			"error", err,
		)
		f.observer.ObserveListFetch(f.level, "error", time.Since(start))
		message := "Failed to load " + f.level.String() + "."
		if !guard(nil, func() { f.view.ShowError(message) }) {
			f.observer.ObserveStaleResponse(f.level)
			return nil, domain.WrapError(domain.ErrStaleResponse, operation, err)
		}
		if domain.IsKind(err, domain.ErrNetwork) {
			return nil, err
		}
		return nil, domain.WrapError(domain.ErrNetwork, operation, err)
	}

	entries := make([]domain.ListEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, render(rec))
	}

	applied := guard(entries, func() {
		if len(entries) == 0 {
			f.view.ShowEmpty(f.level.EmptyMessage())
			return
		}
		f.view.Replace(entries)
	})
	if !applied {
		f.logger.Debug("list_fetch_discarded", "level", f.level.String(), "url", path)
		f.observer.ObserveStaleResponse(f.level)
		return nil, domain.WrapError(domain.ErrStaleResponse, operation, errSuperseded)
	}

	f.observer.ObserveListFetch(f.level, "success", time.Since(start))
	return entries, nil
}

func applyUnguarded(_ []domain.ListEntry, apply func()) bool {
	apply()
	return true
}
