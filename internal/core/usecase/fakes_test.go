package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/aps-model-browser/internal/core/domain"
	"github.com/kirillkom/aps-model-browser/internal/core/ports"
)

type gate struct {
	entered chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}), release: make(chan struct{})}
}

type apiFake struct {
	mu          sync.Mutex
	profile     domain.Profile
	profileErr  error
	collections map[string][]domain.Record
	listErrs    map[string]error
	gates       map[string]*gate
	listCalls   []string

	uploadResult domain.UploadResult
	uploadErr    error
	uploads      []string
}

func newAPIFake() *apiFake {
	return &apiFake{
		collections: map[string][]domain.Record{},
		listErrs:    map[string]error{},
		gates:       map[string]*gate{},
	}
}

func (f *apiFake) GetProfile(context.Context) (domain.Profile, error) {
	if f.profileErr != nil {
		return domain.Profile{}, f.profileErr
	}
	return f.profile, nil
}

func (f *apiFake) ListCollection(ctx context.Context, path string) ([]domain.Record, error) {
	f.mu.Lock()
	f.listCalls = append(f.listCalls, path)
	g := f.gates[path]
	f.mu.Unlock()

	if g != nil {
		close(g.entered)
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.listErrs[path]; err != nil {
		return nil, err
	}
	return append([]domain.Record(nil), f.collections[path]...), nil
}

func (f *apiFake) UploadFile(_ context.Context, folderID string, file domain.UploadFile) (domain.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, folderID+"/"+file.Name)
	if f.uploadErr != nil {
		return domain.UploadResult{}, f.uploadErr
	}
	return f.uploadResult, nil
}

func (f *apiFake) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.listCalls...)
}

func (f *apiFake) callCount(path string) int {
	n := 0
	for _, call := range f.calls() {
		if call == path {
			n++
		}
	}
	return n
}

func (f *apiFake) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

type listViewFake struct {
	mu      sync.Mutex
	state   string
	entries []domain.ListEntry
	active  string
	history []string
}

func (v *listViewFake) record(op string) {
	v.history = append(v.history, op)
}

func (v *listViewFake) ShowLoading() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state, v.entries, v.active = "loading", nil, ""
	v.record("loading")
}

func (v *listViewFake) ShowEmpty(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state, v.entries, v.active = "empty", nil, ""
	v.record("empty:" + message)
}

func (v *listViewFake) ShowError(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state, v.entries, v.active = "error", nil, ""
	v.record("error:" + message)
}

func (v *listViewFake) Replace(entries []domain.ListEntry) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state, v.entries, v.active = "ready", append([]domain.ListEntry(nil), entries...), ""
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	v.record("replace:" + strings.Join(ids, ","))
}

func (v *listViewFake) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state, v.entries, v.active = "cleared", nil, ""
	v.record("clear")
}

func (v *listViewFake) SetActive(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.active = id
	v.record("active:" + id)
}

func (v *listViewFake) snapshot() (string, []domain.ListEntry, string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state, append([]domain.ListEntry(nil), v.entries...), v.active
}

func (v *listViewFake) ids() []string {
	_, entries, _ := v.snapshot()
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

type listViewsFake struct {
	hubs, projects, folders, items *listViewFake
}

func newListViewsFake() *listViewsFake {
	return &listViewsFake{
		hubs:     &listViewFake{},
		projects: &listViewFake{},
		folders:  &listViewFake{},
		items:    &listViewFake{},
	}
}

func (v *listViewsFake) views() ListViews {
	return ListViews{Hubs: v.hubs, Projects: v.projects, Folders: v.folders, Items: v.items}
}

type uploaderFake struct {
	mu       sync.Mutex
	enabled  bool
	folderID string
	label    string
	disables int
}

func (f *uploaderFake) Enable(folderID, label string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled, f.folderID, f.label = true, folderID, label
}

func (f *uploaderFake) Disable() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled, f.folderID, f.label = false, "", ""
	f.disables++
}

func (f *uploaderFake) Submit(context.Context, *domain.UploadFile) (domain.UploadResult, error) {
	return domain.UploadResult{}, errors.New("not implemented")
}

func (f *uploaderFake) State() domain.UploadState { return domain.UploadState{} }

type modelLoaderFake struct {
	mu    sync.Mutex
	loads []string
	err   error
}

func (f *modelLoaderFake) LoadModel(_ context.Context, urn string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads = append(f.loads, urn)
	return f.err
}

func (f *modelLoaderFake) State() domain.ViewerState { return domain.ViewerNotStarted }

func (f *modelLoaderFake) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.loads)
}

type notifierFake struct {
	mu      sync.Mutex
	notices []domain.Notice
}

func (f *notifierFake) Notify(n domain.Notice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, n)
}

func (f *notifierFake) last() (domain.Notice, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.notices) == 0 {
		return domain.Notice{}, false
	}
	return f.notices[len(f.notices)-1], true
}

func (f *notifierFake) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.notices)
}

type scheduledCall struct {
	delay   time.Duration
	fn      func()
	stopped bool
}

type schedulerFake struct {
	mu    sync.Mutex
	calls []*scheduledCall
}

func (f *schedulerFake) AfterFunc(d time.Duration, fn func()) func() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := &scheduledCall{delay: d, fn: fn}
	f.calls = append(f.calls, call)
	return func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		wasPending := !call.stopped
		call.stopped = true
		return wasPending
	}
}

// fireAll runs every pending call, as if the delays elapsed.
func (f *schedulerFake) fireAll() {
	f.mu.Lock()
	pending := make([]*scheduledCall, 0, len(f.calls))
	for _, call := range f.calls {
		if !call.stopped {
			call.stopped = true
			pending = append(pending, call)
		}
	}
	f.mu.Unlock()
	for _, call := range pending {
		call.fn()
	}
}

func (f *schedulerFake) scheduled() []*scheduledCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*scheduledCall(nil), f.calls...)
}

type uploadFormFake struct {
	mu            sync.Mutex
	visible       bool
	label         string
	submitEnabled bool
	fileCleared   int
	states        []domain.UploadState
}

func (f *uploadFormFake) SetTarget(enabled bool, label string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visible, f.label = enabled, label
}

func (f *uploadFormFake) SetSubmitEnabled(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitEnabled = enabled
}

func (f *uploadFormFake) ClearFile() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fileCleared++
}

func (f *uploadFormFake) ShowState(state domain.UploadState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, state)
}

func (f *uploadFormFake) submit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitEnabled
}

type tokenSourceFake struct {
	mu    sync.Mutex
	calls int
	token domain.AccessToken
	err   error
}

func (f *tokenSourceFake) Token(context.Context) (domain.AccessToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return domain.AccessToken{}, f.err
	}
	return f.token, nil
}

func (f *tokenSourceFake) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type engineFake struct {
	mu          sync.Mutex
	supported   bool
	initCalls   int
	startCalls  int
	startErrs   []error
	startGate   *gate
	docs        map[string]*domain.ViewerDocument
	docErrs     map[string]error
	gates       map[string]*gate
	loadedNodes []string
	docCalls    []string
}

func newEngineFake() *engineFake {
	return &engineFake{
		supported: true,
		docs:      map[string]*domain.ViewerDocument{},
		docErrs:   map[string]error{},
		gates:     map[string]*gate{},
	}
}

func (f *engineFake) Supported() bool { return f.supported }

func (f *engineFake) Initialize(context.Context, domain.AccessToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initCalls++
	return nil
}

func (f *engineFake) StartViewer(ctx context.Context, canvas ports.ViewerCanvas) error {
	f.mu.Lock()
	f.startCalls++
	g := f.startGate
	f.startGate = nil
	var err error
	if len(f.startErrs) > 0 {
		err, f.startErrs = f.startErrs[0], f.startErrs[1:]
	}
	f.mu.Unlock()

	if g != nil {
		close(g.entered)
		select {
		case <-g.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *engineFake) LoadDocument(ctx context.Context, documentID string) (*domain.ViewerDocument, error) {
	f.mu.Lock()
	f.docCalls = append(f.docCalls, documentID)
	g := f.gates[documentID]
	f.mu.Unlock()

	if g != nil {
		close(g.entered)
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.docErrs[documentID]; err != nil {
		return nil, err
	}
	doc, ok := f.docs[documentID]
	if !ok {
		return nil, fmt.Errorf("document %s not found", documentID)
	}
	return doc, nil
}

func (f *engineFake) LoadViewable(_ context.Context, doc *domain.ViewerDocument, node domain.Viewable) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadedNodes = append(f.loadedNodes, doc.URN+"#"+node.GUID)
	return nil
}

func (f *engineFake) nodes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.loadedNodes...)
}

type canvasFake struct {
	mu     sync.Mutex
	states []domain.ViewerState
	themes []domain.ViewerTheme
}

func (f *canvasFake) ShowViewerState(state domain.ViewerState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, state)
}

func (f *canvasFake) Mount(theme domain.ViewerTheme) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.themes = append(f.themes, theme)
}

func (f *canvasFake) ShowModel(domain.LoadedModel) {}

type profileViewFake struct {
	greeting string
	failure  string
}

func (f *profileViewFake) ShowGreeting(p domain.Profile) { f.greeting = p.Greeting() }
func (f *profileViewFake) ShowProfileFailure(msg string) { f.failure = msg }

func waitEntered(t *testing.T, g *gate) {
	t.Helper()
	select {
	case <-g.entered:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for gated call")
	}
}

func records(ids ...string) []domain.Record {
	out := make([]domain.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Record{ID: id, Name: "name-" + id})
	}
	return out
}
