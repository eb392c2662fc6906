package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
)

type Kind string

const (
	KindHub     Kind = "hub"
	KindProject Kind = "project"
	KindFolder  Kind = "folder"
	KindItem    Kind = "item"
)

// Level identifies one of the four cascading list regions.
type Level int

const (
	LevelHubs Level = iota
	LevelProjects
	LevelFolders
	LevelItems
)

// Levels lists every level top-down.
var Levels = []Level{LevelHubs, LevelProjects, LevelFolders, LevelItems}

func (l Level) String() string {
	switch l {
	case LevelHubs:
		return "hubs"
	case LevelProjects:
		return "projects"
	case LevelFolders:
		return "folders"
	case LevelItems:
		return "items"
	default:
		return "unknown"
	}
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(text []byte) error {
	parsed, ok := ParseLevel(string(text))
	if !ok {
		return fmt.Errorf("unknown level %q", text)
	}
	*l = parsed
	return nil
}

// Kind is the kind of entry rendered at this level.
func (l Level) Kind() Kind {
	switch l {
	case LevelHubs:
		return KindHub
	case LevelProjects:
		return KindProject
	case LevelFolders:
		return KindFolder
	default:
		return KindItem
	}
}

// EmptyMessage is the placeholder shown when a level has no records.
func (l Level) EmptyMessage() string {
	switch l {
	case LevelHubs:
		return "No hubs found."
	case LevelProjects:
		return "No projects in this hub."
	case LevelFolders:
		return "No folders in this project."
	default:
		return "No items in this folder."
	}
}

// ParseLevel accepts both the singular kind ("hub") and the plural region
// name ("hubs").
func ParseLevel(raw string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "hub", "hubs":
		return LevelHubs, true
	case "project", "projects":
		return LevelProjects, true
	case "folder", "folders":
		return LevelFolders, true
	case "item", "items":
		return LevelItems, true
	default:
		return 0, false
	}
}

// Record is one element of a collection response's data array.
type Record struct {
	ID           string
	Type         string
	Name         string
	DisplayName  string
	TipVersionID string
}

// Label prefers the display name over the plain name.
func (r Record) Label() string {
	if strings.TrimSpace(r.DisplayName) != "" {
		return r.DisplayName
	}
	if strings.TrimSpace(r.Name) != "" {
		return r.Name
	}
	return r.ID
}

// ListEntry is one selectable row of a list region. An entry without an ID
// is a placeholder and is never interactive.
type ListEntry struct {
	Kind        Kind   `json:"kind"`
	ID          string `json:"id"`
	Label       string `json:"label"`
	DocumentURN string `json:"document_urn,omitempty"`
}

func (e ListEntry) Interactive() bool {
	return e.ID != ""
}

// Viewable reports whether the entry can be handed to the viewer.
func (e ListEntry) Viewable() bool {
	return e.Kind == KindItem && e.DocumentURN != ""
}

// Selection holds the selected id per level; empty means nothing selected.
type Selection struct {
	Hub     string `json:"hub,omitempty"`
	Project string `json:"project,omitempty"`
	Folder  string `json:"folder,omitempty"`
	Item    string `json:"item,omitempty"`
}

func (s Selection) At(level Level) string {
	switch level {
	case LevelHubs:
		return s.Hub
	case LevelProjects:
		return s.Project
	case LevelFolders:
		return s.Folder
	default:
		return s.Item
	}
}

// With sets level to id and clears every deeper level.
func (s Selection) With(level Level, id string) Selection {
	switch level {
	case LevelHubs:
		return Selection{Hub: id}
	case LevelProjects:
		return Selection{Hub: s.Hub, Project: id}
	case LevelFolders:
		return Selection{Hub: s.Hub, Project: s.Project, Folder: id}
	default:
		out := s
		out.Item = id
		return out
	}
}

const urnScheme = "urn:"

// DocumentURN derives the viewer document identifier of a tip version:
// standard base64 with the padding stripped.
func DocumentURN(tipVersionID string) string {
	if tipVersionID == "" {
		return ""
	}
	encoded := base64.StdEncoding.EncodeToString([]byte(tipVersionID))
	return strings.TrimRight(encoded, "=")
}

// EngineDocumentID prefixes a document URN with the scheme marker the
// viewer engine expects. Already prefixed values are returned unchanged.
func EngineDocumentID(urn string) string {
	if strings.HasPrefix(urn, urnScheme) {
		return urn
	}
	return urnScheme + urn
}
