package usecase

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/kirillkom/aps-model-browser/internal/core/domain"
)

type hierarchyFixture struct {
	controller *HierarchyController
	api        *apiFake
	lists      *listViewsFake
	upload     *uploaderFake
	viewer     *modelLoaderFake
	notifier   *notifierFake
}

func newHierarchyFixture() *hierarchyFixture {
	f := &hierarchyFixture{
		api:      newAPIFake(),
		lists:    newListViewsFake(),
		upload:   &uploaderFake{},
		viewer:   &modelLoaderFake{},
		notifier: &notifierFake{},
	}
	f.api.collections["/api/hubs"] = records("h1", "h2")
	f.api.collections["/api/hubs/h1/projects"] = records("p1", "p2")
	f.api.collections["/api/projects/p1/top-folders"] = records("f1", "f2")
	f.api.collections["/api/folders/f1/contents"] = []domain.Record{
		{ID: "i1", Name: "tower.rvt", TipVersionID: "urn:adsk.wipprod:fs.file:vf.abc?version=1"},
		{ID: "i2", Name: "notes.txt"},
	}
	f.api.collections["/api/folders/f2/contents"] = records("i9")
	f.controller = NewHierarchyController(f.api, f.lists.views(), f.upload, f.viewer, f.notifier, nil, nil)
	return f
}

func (f *hierarchyFixture) drillToFolder(t *testing.T, folderID string) {
	t.Helper()
	ctx := context.Background()
	if err := f.controller.LoadHubs(ctx); err != nil {
		t.Fatalf("LoadHubs() error = %v", err)
	}
	if err := f.controller.SelectHub(ctx, "h1"); err != nil {
		t.Fatalf("SelectHub() error = %v", err)
	}
	if err := f.controller.SelectProject(ctx, "p1"); err != nil {
		t.Fatalf("SelectProject() error = %v", err)
	}
	if folderID == "" {
		return
	}
	if err := f.controller.SelectFolder(ctx, folderID); err != nil {
		t.Fatalf("SelectFolder() error = %v", err)
	}
}

func TestHierarchyDrillDown(t *testing.T) {
	f := newHierarchyFixture()
	f.drillToFolder(t, "f1")

	want := domain.Selection{Hub: "h1", Project: "p1", Folder: "f1"}
	if got := f.controller.Selection(); got != want {
		t.Fatalf("expected selection %+v, got %+v", want, got)
	}
	if got := f.lists.items.ids(); !reflect.DeepEqual(got, []string{"i1", "i2"}) {
		t.Fatalf("expected folder contents, got %v", got)
	}
	if !f.upload.enabled || f.upload.folderID != "f1" || f.upload.label != "name-f1" {
		t.Fatalf("expected upload enabled for f1, got %+v", f.upload)
	}
	if _, _, active := f.lists.folders.snapshot(); active != "f1" {
		t.Fatalf("expected f1 active, got %q", active)
	}
}

func TestHierarchyHubChangeClearsDeeperLevels(t *testing.T) {
	f := newHierarchyFixture()
	f.drillToFolder(t, "f1")

	if err := f.controller.SelectHub(context.Background(), "h2"); err != nil {
		t.Fatalf("SelectHub() error = %v", err)
	}

	want := domain.Selection{Hub: "h2"}
	if got := f.controller.Selection(); got != want {
		t.Fatalf("expected selection %+v, got %+v", want, got)
	}
	if state, _, _ := f.lists.projects.snapshot(); state != "empty" {
		t.Fatalf("expected empty projects for h2, got %q", state)
	}
	for name, view := range map[string]*listViewFake{"folders": f.lists.folders, "items": f.lists.items} {
		if state, entries, _ := view.snapshot(); state != "cleared" || len(entries) != 0 {
			t.Fatalf("expected %s cleared, got state=%q entries=%d", name, state, len(entries))
		}
	}
	if f.upload.enabled {
		t.Fatalf("expected upload disabled after hub change")
	}
	if _, _, active := f.lists.hubs.snapshot(); active != "h2" {
		t.Fatalf("expected h2 active, got %q", active)
	}
}

func TestHierarchyReselectingHubRetriesFailedProjects(t *testing.T) {
	f := newHierarchyFixture()
	ctx := context.Background()
	if err := f.controller.LoadHubs(ctx); err != nil {
		t.Fatalf("LoadHubs() error = %v", err)
	}

	f.api.listErrs["/api/hubs/h1/projects"] = errors.New("503 service unavailable")
	if err := f.controller.SelectHub(ctx, "h1"); !domain.IsKind(err, domain.ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	if state, _, _ := f.lists.projects.snapshot(); state != "error" {
		t.Fatalf("expected projects error state, got %q", state)
	}

	delete(f.api.listErrs, "/api/hubs/h1/projects")
	if err := f.controller.SelectHub(ctx, "h1"); err != nil {
		t.Fatalf("second SelectHub() error = %v", err)
	}
	if n := f.api.callCount("/api/hubs/h1/projects"); n != 2 {
		t.Fatalf("expected projects refetched on re-click, got %d fetches", n)
	}
	if got := f.lists.projects.ids(); !reflect.DeepEqual(got, []string{"p1", "p2"}) {
		t.Fatalf("expected projects after retry, got %v", got)
	}
	if _, _, active := f.lists.hubs.snapshot(); active != "h1" {
		t.Fatalf("expected hub h1 to stay active, got %q", active)
	}
	if got := f.controller.Selection(); got != (domain.Selection{Hub: "h1"}) {
		t.Fatalf("unexpected selection %+v", got)
	}
}

func TestHierarchyReselectingFolderKeepsOwnLevel(t *testing.T) {
	f := newHierarchyFixture()
	f.drillToFolder(t, "f1")
	foldersBefore := len(f.lists.folders.history)
	disablesBefore := f.upload.disables

	if err := f.controller.SelectFolder(context.Background(), "f1"); err != nil {
		t.Fatalf("SelectFolder() error = %v", err)
	}
	if n := f.api.callCount("/api/folders/f1/contents"); n != 2 {
		t.Fatalf("expected contents reloaded, got %d fetches", n)
	}
	if n := len(f.lists.folders.history); n != foldersBefore {
		t.Fatalf("expected folder list untouched, got %v", f.lists.folders.history[foldersBefore:])
	}
	if !f.upload.enabled || f.upload.folderID != "f1" || f.upload.disables != disablesBefore {
		t.Fatalf("expected upload target kept, got %+v", f.upload)
	}
}

func TestHierarchyRejectsUnknownEntry(t *testing.T) {
	f := newHierarchyFixture()
	f.drillToFolder(t, "")

	err := f.controller.SelectFolder(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if n := f.api.callCount("/api/folders/missing/contents"); n != 0 {
		t.Fatalf("expected no fetch for unknown folder, got %d", n)
	}
}

func TestHierarchyEmptyHubsNeverFetchesProjects(t *testing.T) {
	f := newHierarchyFixture()
	f.api.collections["/api/hubs"] = nil

	if err := f.controller.LoadHubs(context.Background()); err != nil {
		t.Fatalf("LoadHubs() error = %v", err)
	}
	if state, _, _ := f.lists.hubs.snapshot(); state != "empty" {
		t.Fatalf("expected empty hubs state, got %q", state)
	}
	if err := f.controller.SelectHub(context.Background(), "h1"); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for hub not on screen, got %v", err)
	}
	if calls := f.api.calls(); !reflect.DeepEqual(calls, []string{"/api/hubs"}) {
		t.Fatalf("expected only the hubs fetch, got %v", calls)
	}
}

func TestHierarchyFetchErrorShowsErrorState(t *testing.T) {
	f := newHierarchyFixture()
	f.api.listErrs["/api/hubs/h1/projects"] = errors.New("503 service unavailable")

	if err := f.controller.LoadHubs(context.Background()); err != nil {
		t.Fatalf("LoadHubs() error = %v", err)
	}
	err := f.controller.SelectHub(context.Background(), "h1")
	if !domain.IsKind(err, domain.ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	if state, _, _ := f.lists.projects.snapshot(); state != "error" {
		t.Fatalf("expected projects error state, got %q", state)
	}
	if got := f.controller.Selection().Hub; got != "h1" {
		t.Fatalf("expected hub selection kept, got %q", got)
	}
}

func TestHierarchyItemWithoutTipVersionDoesNotLoadViewer(t *testing.T) {
	f := newHierarchyFixture()
	f.drillToFolder(t, "f1")

	if err := f.controller.SelectItem(context.Background(), "i2"); err != nil {
		t.Fatalf("SelectItem() error = %v", err)
	}
	if n := f.viewer.loadCount(); n != 0 {
		t.Fatalf("expected viewer untouched, got %d loads", n)
	}
	notice, ok := f.notifier.last()
	if !ok || notice.Level != domain.NoticeWarning {
		t.Fatalf("expected warning notice, got %+v", notice)
	}
	if _, _, active := f.lists.items.snapshot(); active != "i2" {
		t.Fatalf("expected i2 active, got %q", active)
	}
}

func TestHierarchyItemLoadsDocumentURN(t *testing.T) {
	f := newHierarchyFixture()
	f.drillToFolder(t, "f1")

	if err := f.controller.SelectItem(context.Background(), "i1"); err != nil {
		t.Fatalf("SelectItem() error = %v", err)
	}
	// Selecting the active item again re-issues the load.
	if err := f.controller.SelectItem(context.Background(), "i1"); err != nil {
		t.Fatalf("SelectItem() error = %v", err)
	}

	want := domain.DocumentURN("urn:adsk.wipprod:fs.file:vf.abc?version=1")
	if len(f.viewer.loads) != 2 || f.viewer.loads[0] != want {
		t.Fatalf("expected two loads of %q, got %v", want, f.viewer.loads)
	}
}

func TestHierarchyDiscardsStaleFolderContents(t *testing.T) {
	f := newHierarchyFixture()
	f.drillToFolder(t, "")

	slow := newGate()
	f.api.gates["/api/folders/f1/contents"] = slow

	done := make(chan error, 1)
	go func() {
		done <- f.controller.SelectFolder(context.Background(), "f1")
	}()
	waitEntered(t, slow)

	if err := f.controller.SelectFolder(context.Background(), "f2"); err != nil {
		t.Fatalf("SelectFolder(f2) error = %v", err)
	}
	close(slow.release)
	if err := <-done; err != nil {
		t.Fatalf("SelectFolder(f1) error = %v", err)
	}

	if got := f.lists.items.ids(); !reflect.DeepEqual(got, []string{"i9"}) {
		t.Fatalf("expected f2 contents to win, got %v", got)
	}
	if err := f.controller.SelectItem(context.Background(), "i9"); err != nil {
		t.Fatalf("expected f2 entries to be selectable, got %v", err)
	}
	if err := f.controller.SelectItem(context.Background(), "i1"); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected stale f1 entries to be gone, got %v", err)
	}
	if got := f.controller.Selection().Folder; got != "f2" {
		t.Fatalf("expected f2 selected, got %q", got)
	}
}

func TestHierarchyRefreshFolderRefetchesContents(t *testing.T) {
	f := newHierarchyFixture()
	f.drillToFolder(t, "f1")
	if err := f.controller.SelectItem(context.Background(), "i1"); err != nil {
		t.Fatalf("SelectItem() error = %v", err)
	}

	f.api.collections["/api/folders/f1/contents"] = records("i1", "i3")
	if err := f.controller.RefreshFolder(context.Background()); err != nil {
		t.Fatalf("RefreshFolder() error = %v", err)
	}

	if n := f.api.callCount("/api/folders/f1/contents"); n != 2 {
		t.Fatalf("expected two contents fetches, got %d", n)
	}
	if got := f.lists.items.ids(); !reflect.DeepEqual(got, []string{"i1", "i3"}) {
		t.Fatalf("expected refreshed contents, got %v", got)
	}
	want := domain.Selection{Hub: "h1", Project: "p1", Folder: "f1"}
	if got := f.controller.Selection(); got != want {
		t.Fatalf("expected selection %+v, got %+v", want, got)
	}
}

func TestHierarchyRefreshWithoutFolderIsNoop(t *testing.T) {
	f := newHierarchyFixture()
	if err := f.controller.RefreshFolder(context.Background()); err != nil {
		t.Fatalf("RefreshFolder() error = %v", err)
	}
	if n := len(f.api.calls()); n != 0 {
		t.Fatalf("expected no fetch, got %d", n)
	}
}
