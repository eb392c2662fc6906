package domain

import (
	"io"
	"time"
)

type ViewerState string

const (
	ViewerNotStarted      ViewerState = "not_started"
	ViewerStarting        ViewerState = "starting"
	ViewerRunning         ViewerState = "running"
	ViewerDocumentLoading ViewerState = "document_loading"
	ViewerDocumentLoaded  ViewerState = "document_loaded"
	ViewerDocumentFailed  ViewerState = "document_failed"
)

// Started reports whether the engine has been brought up.
func (s ViewerState) Started() bool {
	switch s {
	case ViewerRunning, ViewerDocumentLoading, ViewerDocumentLoaded, ViewerDocumentFailed:
		return true
	default:
		return false
	}
}

type UploadPhase string

const (
	UploadIdle      UploadPhase = "idle"
	UploadDisabled  UploadPhase = "disabled"
	UploadReady     UploadPhase = "ready"
	UploadInFlight  UploadPhase = "in_flight"
	UploadSucceeded UploadPhase = "succeeded"
	UploadFailed    UploadPhase = "failed"
)

type UploadState struct {
	Phase       UploadPhase `json:"phase"`
	FolderID    string      `json:"folder_id,omitempty"`
	FolderLabel string      `json:"folder_label,omitempty"`
	FileName    string      `json:"file_name,omitempty"`
	Message     string      `json:"message,omitempty"`
}

// CanSubmit reports whether a target folder is known and nothing is in flight.
func (s UploadState) CanSubmit() bool {
	switch s.Phase {
	case UploadReady, UploadSucceeded, UploadFailed:
		return s.FolderID != ""
	default:
		return false
	}
}

type Profile struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (p Profile) Greeting() string {
	name := p.FirstName
	if p.LastName != "" {
		if name != "" {
			name += " "
		}
		name += p.LastName
	}
	if name == "" {
		return "Welcome!"
	}
	return "Welcome, " + name + "!"
}

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

type Notice struct {
	Level    NoticeLevel `json:"level"`
	Message  string      `json:"message"`
	Blocking bool        `json:"blocking,omitempty"`
	At       time.Time   `json:"at"`
}

type AccessToken struct {
	Value     string    `json:"access_token"`
	TokenType string    `json:"token_type,omitempty"`
	ExpiresIn int       `json:"expires_in,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the token is unusable within margin.
func (t AccessToken) Expired(now time.Time, margin time.Duration) bool {
	if t.Value == "" {
		return true
	}
	if t.ExpiresAt.IsZero() {
		return false
	}
	return now.Add(margin).After(t.ExpiresAt)
}

// UploadFile is a file chosen in the upload form.
type UploadFile struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

type UploadResult struct {
	Message string `json:"message"`
}

// Activity is an outcome worth broadcasting outside the session.
type Activity struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Kind      string    `json:"kind"`
	Subject   string    `json:"subject"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	At        time.Time `json:"at"`
}

const (
	ActivityUpload     = "upload"
	ActivityViewerLoad = "viewer_load"
)

type EventType string

const (
	EventSelect  EventType = "select"
	EventUpload  EventType = "upload"
	EventRefresh EventType = "refresh"
)

// Event is one page interaction routed through the shell.
type Event struct {
	Type  EventType
	Level Level
	ID    string
	File  *UploadFile
}
