// Package page keeps the server-side model of the browser page. Controllers
// write to it through the view ports; HTTP handlers read snapshots of it.
package page

import (
	"sync"
	"time"

	"github.com/kirillkom/aps-model-browser/internal/core/domain"
	"github.com/kirillkom/aps-model-browser/internal/core/ports"
)

const (
	maxNotices       = 20
	subscriberBuffer = 16
)

type ListStatus string

const (
	ListCleared ListStatus = "cleared"
	ListLoading ListStatus = "loading"
	ListEmpty   ListStatus = "empty"
	ListError   ListStatus = "error"
	ListReady   ListStatus = "ready"
)

type ListState struct {
	Level   domain.Level       `json:"level"`
	Status  ListStatus         `json:"status"`
	Message string             `json:"message,omitempty"`
	Entries []domain.ListEntry `json:"entries"`
	Active  string             `json:"active,omitempty"`
}

type ProfileState struct {
	Greeting string `json:"greeting,omitempty"`
	Failure  string `json:"failure,omitempty"`
}

type UploadPanel struct {
	Enabled       bool               `json:"enabled"`
	FolderLabel   string             `json:"folder_label,omitempty"`
	SubmitEnabled bool               `json:"submit_enabled"`
	State         domain.UploadState `json:"state"`
}

type ViewerPanel struct {
	State   domain.ViewerState  `json:"state"`
	Mounted bool                `json:"mounted"`
	Theme   *domain.ViewerTheme `json:"theme,omitempty"`
	Model   *domain.LoadedModel `json:"model,omitempty"`
}

// Snapshot is a consistent copy of the whole page.
type Snapshot struct {
	Revision uint64          `json:"revision"`
	Profile  ProfileState    `json:"profile"`
	Lists    []ListState     `json:"lists"`
	Upload   UploadPanel     `json:"upload"`
	Viewer   ViewerPanel     `json:"viewer"`
	Notices  []domain.Notice `json:"notices"`
}

// Model is the page. It is safe for concurrent use.
type Model struct {
	mu          sync.Mutex
	revision    uint64
	profile     ProfileState
	lists       map[domain.Level]*ListState
	upload      UploadPanel
	viewer      ViewerPanel
	notices     []domain.Notice
	now         func() time.Time
	subscribers map[chan Snapshot]struct{}
}

func New() *Model {
	m := &Model{
		lists:       make(map[domain.Level]*ListState, len(domain.Levels)),
		upload:      UploadPanel{State: domain.UploadState{Phase: domain.UploadDisabled}},
		viewer:      ViewerPanel{State: domain.ViewerNotStarted},
		now:         time.Now,
		subscribers: make(map[chan Snapshot]struct{}),
	}
	for _, level := range domain.Levels {
		m.lists[level] = &ListState{Level: level, Status: ListCleared}
	}
	return m
}

// List returns the list region for level.
func (m *Model) List(level domain.Level) ports.ListView {
	return listRegion{model: m, level: level}
}

func (m *Model) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Subscribe returns a channel that receives a snapshot after every change.
// Slow subscribers miss intermediate snapshots, never the channel itself.
func (m *Model) Subscribe() chan Snapshot {
	ch := make(chan Snapshot, subscriberBuffer)
	m.mu.Lock()
	m.subscribers[ch] = struct{}{}
	m.mu.Unlock()
	return ch
}

func (m *Model) Unsubscribe(ch chan Snapshot) {
	m.mu.Lock()
	if _, ok := m.subscribers[ch]; ok {
		delete(m.subscribers, ch)
		close(ch)
	}
	m.mu.Unlock()
}

func (m *Model) Notify(notice domain.Notice) {
	m.update(func() {
		if notice.At.IsZero() {
			notice.At = m.now()
		}
		m.notices = append(m.notices, notice)
		if len(m.notices) > maxNotices {
			m.notices = append([]domain.Notice(nil), m.notices[len(m.notices)-maxNotices:]...)
		}
	})
}

func (m *Model) ShowGreeting(profile domain.Profile) {
	m.update(func() {
		m.profile = ProfileState{Greeting: profile.Greeting()}
	})
}

func (m *Model) ShowProfileFailure(message string) {
	m.update(func() {
		m.profile = ProfileState{Failure: message}
	})
}

func (m *Model) SetTarget(enabled bool, folderLabel string) {
	m.update(func() {
		m.upload.Enabled = enabled
		m.upload.FolderLabel = folderLabel
	})
}

func (m *Model) SetSubmitEnabled(enabled bool) {
	m.update(func() { m.upload.SubmitEnabled = enabled })
}

func (m *Model) ClearFile() {
	m.update(func() { m.upload.State.FileName = "" })
}

func (m *Model) ShowState(state domain.UploadState) {
	m.update(func() { m.upload.State = state })
}

func (m *Model) ShowViewerState(state domain.ViewerState) {
	m.update(func() { m.viewer.State = state })
}

func (m *Model) Mount(theme domain.ViewerTheme) {
	m.update(func() {
		m.viewer.Mounted = true
		m.viewer.Theme = &theme
	})
}

func (m *Model) ShowModel(model domain.LoadedModel) {
	m.update(func() {
		m.viewer.Model = &model
		theme := model.Theme
		m.viewer.Theme = &theme
	})
}

func (m *Model) update(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn()
	m.revision++
	snapshot := m.snapshotLocked()
	for ch := range m.subscribers {
		select {
		case ch <- snapshot:
		default:
		}
	}
}

func (m *Model) snapshotLocked() Snapshot {
	out := Snapshot{
		Revision: m.revision,
		Profile:  m.profile,
		Lists:    make([]ListState, 0, len(domain.Levels)),
		Upload:   m.upload,
		Viewer:   m.viewer,
		Notices:  append([]domain.Notice(nil), m.notices...),
	}
	for _, level := range domain.Levels {
		state := *m.lists[level]
		state.Entries = append([]domain.ListEntry(nil), state.Entries...)
		out.Lists = append(out.Lists, state)
	}
	if m.viewer.Theme != nil {
		theme := *m.viewer.Theme
		out.Viewer.Theme = &theme
	}
	if m.viewer.Model != nil {
		model := *m.viewer.Model
		out.Viewer.Model = &model
	}
	return out
}

type listRegion struct {
	model *Model
	level domain.Level
}

func (r listRegion) set(status ListStatus, message string, entries []domain.ListEntry) {
	r.model.update(func() {
		state := r.model.lists[r.level]
		state.Status = status
		state.Message = message
		state.Entries = entries
		state.Active = ""
	})
}

func (r listRegion) ShowLoading() { r.set(ListLoading, "Loading...", nil) }

func (r listRegion) ShowEmpty(message string) { r.set(ListEmpty, message, nil) }

func (r listRegion) ShowError(message string) { r.set(ListError, message, nil) }

func (r listRegion) Replace(entries []domain.ListEntry) {
	r.set(ListReady, "", append([]domain.ListEntry(nil), entries...))
}

func (r listRegion) Clear() { r.set(ListCleared, "", nil) }

func (r listRegion) SetActive(id string) {
	r.model.update(func() { r.model.lists[r.level].Active = id })
}
