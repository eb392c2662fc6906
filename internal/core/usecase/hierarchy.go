package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/kirillkom/aps-model-browser/internal/core/domain"
	"github.com/kirillkom/aps-model-browser/internal/core/ports"
)

const levelCount = 4

// ListViews groups the four list regions of the page.
type ListViews struct {
	Hubs     ports.ListView
	Projects ports.ListView
	Folders  ports.ListView
	Items    ports.ListView
}

func (v ListViews) at(level domain.Level) ports.ListView {
	switch level {
	case domain.LevelHubs:
		return v.Hubs
	case domain.LevelProjects:
		return v.Projects
	case domain.LevelFolders:
		return v.Folders
	default:
		return v.Items
	}
}

// HierarchyController owns the hub/project/folder/item selection and
// cascades invalidation to deeper levels. Each level carries a request
// generation; a fetch result applies only while its generation is current.
type HierarchyController struct {
	mu        sync.Mutex
	selection domain.Selection
	gens      [levelCount]uint64
	entries   [levelCount][]domain.ListEntry

	views    [levelCount]ports.ListView
	fetchers [levelCount]*ListFetcher
	upload   ports.Uploader
	viewer   ports.ModelLoader
	notifier ports.Notifier
	logger   *slog.Logger
}

func NewHierarchyController(
	api ports.HierarchyAPI,
	views ListViews,
	upload ports.Uploader,
	viewer ports.ModelLoader,
	notifier ports.Notifier,
	observer ports.SessionObserver,
	logger *slog.Logger,
) *HierarchyController {
	if logger == nil {
		logger = slog.Default()
	}
	c := &HierarchyController{
		upload:   upload,
		viewer:   viewer,
		notifier: notifier,
		logger:   logger,
	}
	for _, level := range domain.Levels {
		view := views.at(level)
		c.views[level] = view
		c.fetchers[level] = NewListFetcher(level, api, view, observer, logger)
	}
	return c
}

// Selection returns a copy of the current selection.
func (c *HierarchyController) Selection() domain.Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection
}

// LoadHubs performs the root fetch. Everything below the hub list is reset.
func (c *HierarchyController) LoadHubs(ctx context.Context) error {
	c.mu.Lock()
	c.selection = domain.Selection{}
	c.invalidateFrom(domain.LevelHubs)
	gen := c.gens[domain.LevelHubs]
	c.mu.Unlock()

	return c.load(ctx, domain.LevelHubs, gen, "/api/hubs")
}

func (c *HierarchyController) SelectHub(ctx context.Context, id string) error {
	return c.selectLevel(ctx, domain.LevelHubs, id)
}

func (c *HierarchyController) SelectProject(ctx context.Context, id string) error {
	return c.selectLevel(ctx, domain.LevelProjects, id)
}

func (c *HierarchyController) SelectFolder(ctx context.Context, id string) error {
	return c.selectLevel(ctx, domain.LevelFolders, id)
}

// SelectItem marks the item active and hands its document to the viewer.
// Items without a tip version only raise a notice.
func (c *HierarchyController) SelectItem(ctx context.Context, id string) error {
	c.mu.Lock()
	entry, ok := c.lookup(domain.LevelItems, id)
	if !ok {
		c.mu.Unlock()
		return unknownEntryError(domain.LevelItems, id)
	}
	if c.selection.Item != id {
		c.selection = c.selection.With(domain.LevelItems, id)
		c.views[domain.LevelItems].SetActive(id)
	}
	c.mu.Unlock()

	if !entry.Viewable() {
		c.notify(domain.NoticeWarning, fmt.Sprintf("%q has no viewable version.", entry.Label))
		return nil
	}
	return c.viewer.LoadModel(ctx, entry.DocumentURN)
}

// RefreshFolder re-runs the contents fetch of the selected folder without
// touching the folder selection or the upload target.
func (c *HierarchyController) RefreshFolder(ctx context.Context) error {
	c.mu.Lock()
	folderID := c.selection.Folder
	if folderID == "" {
		c.mu.Unlock()
		return nil
	}
	c.selection.Item = ""
	c.gens[domain.LevelItems]++
	gen := c.gens[domain.LevelItems]
	c.mu.Unlock()

	return c.load(ctx, domain.LevelItems, gen, childPath(domain.LevelFolders, folderID))
}

func (c *HierarchyController) selectLevel(ctx context.Context, level domain.Level, id string) error {
	if level == domain.LevelItems {
		return c.SelectItem(ctx, id)
	}

	c.mu.Lock()
	entry, ok := c.lookup(level, id)
	if !ok {
		c.mu.Unlock()
		return unknownEntryError(level, id)
	}
	// Re-clicking the active entry leaves this level alone and only
	// reloads its children, which is how a failed child fetch is retried.
	reselect := c.selection.At(level) == id

	c.selection = c.selection.With(level, id)
	c.invalidateFrom(level + 1)
	if !reselect {
		c.views[level].SetActive(id)
		if level == domain.LevelFolders {
			c.upload.Enable(id, entry.Label)
		} else {
			c.upload.Disable()
		}
	}
	next := level + 1
	gen := c.gens[next]
	c.mu.Unlock()

	return c.load(ctx, next, gen, childPath(level, id))
}

// invalidateFrom bumps generations and clears every list from level down.
// Callers hold c.mu.
func (c *HierarchyController) invalidateFrom(level domain.Level) {
	for l := level; int(l) < levelCount; l++ {
		c.gens[l]++
		c.entries[l] = nil
		c.views[l].Clear()
	}
}

func (c *HierarchyController) load(ctx context.Context, level domain.Level, gen uint64, path string) error {
	_, err := c.fetchers[level].Load(ctx, path, renderFor(level), c.guard(level, gen))
	if domain.IsKind(err, domain.ErrStaleResponse) {
		return nil
	}
	return err
}

func (c *HierarchyController) guard(level domain.Level, gen uint64) ListGuard {
	return func(entries []domain.ListEntry, apply func()) bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gens[level] != gen {
			return false
		}
		apply()
		c.entries[level] = entries
		return true
	}
}

// lookup finds an interactive entry at level. Callers hold c.mu.
func (c *HierarchyController) lookup(level domain.Level, id string) (domain.ListEntry, bool) {
	if id == "" {
		return domain.ListEntry{}, false
	}
	for _, entry := range c.entries[level] {
		if entry.ID == id {
			return entry, true
		}
	}
	return domain.ListEntry{}, false
}

func (c *HierarchyController) notify(level domain.NoticeLevel, message string) {
	if c.notifier == nil {
		return
	}
	c.notifier.Notify(domain.Notice{Level: level, Message: message})
}

func renderFor(level domain.Level) RenderFunc {
	kind := level.Kind()
	return func(rec domain.Record) domain.ListEntry {
		entry := domain.ListEntry{
			Kind:  kind,
			ID:    rec.ID,
			Label: rec.Label(),
		}
		if kind == domain.KindItem {
			entry.DocumentURN = domain.DocumentURN(rec.TipVersionID)
		}
		return entry
	}
}

// childPath is the collection listing the children of id at level.
func childPath(level domain.Level, id string) string {
	escaped := url.PathEscape(id)
	switch level {
	case domain.LevelHubs:
		return "/api/hubs/" + escaped + "/projects"
	case domain.LevelProjects:
		return "/api/projects/" + escaped + "/top-folders"
	default:
		return "/api/folders/" + escaped + "/contents"
	}
}

func unknownEntryError(level domain.Level, id string) error {
	return domain.WrapError(domain.ErrInvalidInput, "select "+string(level.Kind()), fmt.Errorf("no %s entry with id %q", level.String(), id))
}
