package domain

import "strings"

// ViewerRole selects which geometry a document load opens.
type ViewerRole string

const (
	Role3D ViewerRole = "3d"
	Role2D ViewerRole = "2d"
)

func ParseViewerRole(raw string) ViewerRole {
	if strings.EqualFold(strings.TrimSpace(raw), string(Role2D)) {
		return Role2D
	}
	return Role3D
}

type ManifestStatus string

const (
	ManifestPending    ManifestStatus = "pending"
	ManifestInProgress ManifestStatus = "inprogress"
	ManifestSuccess    ManifestStatus = "success"
	ManifestFailed     ManifestStatus = "failed"
	ManifestTimeout    ManifestStatus = "timeout"
)

type Viewable struct {
	GUID string `json:"guid"`
	Name string `json:"name"`
	Type string `json:"type"`
	Role string `json:"role"`
}

// ViewerDocument is a converted document as reported by the viewer engine.
type ViewerDocument struct {
	URN       string         `json:"urn"`
	Status    ManifestStatus `json:"status"`
	Progress  string         `json:"progress,omitempty"`
	Viewables []Viewable     `json:"viewables"`
}

// DefaultGeometry returns the first geometry node of the given role.
func (d *ViewerDocument) DefaultGeometry(role ViewerRole) (Viewable, bool) {
	if d == nil {
		return Viewable{}, false
	}
	for _, v := range d.Viewables {
		if v.Type == "geometry" && strings.EqualFold(v.Role, string(role)) {
			return v, true
		}
	}
	return Viewable{}, false
}

// ViewerTheme carries the presets applied when the GUI viewer starts.
type ViewerTheme struct {
	Name              string `json:"name"`
	LightPreset       int    `json:"light_preset"`
	EnvMapBackground  bool   `json:"env_map_background"`
	SwapBlackAndWhite bool   `json:"swap_black_and_white"`
}

// ThemeFor returns the presets used for a role: dark sky for 3D models,
// inverted sheets for 2D drawings.
func ThemeFor(role ViewerRole) ViewerTheme {
	if role == Role2D {
		return ViewerTheme{Name: "light-theme", SwapBlackAndWhite: true}
	}
	return ViewerTheme{Name: "dark-theme", LightPreset: 2, EnvMapBackground: true}
}

// LoadedModel is what the viewer panel displays after a successful load.
type LoadedModel struct {
	URN          string      `json:"urn"`
	DocumentID   string      `json:"document_id"`
	ViewableGUID string      `json:"viewable_guid"`
	ViewableName string      `json:"viewable_name"`
	Role         ViewerRole  `json:"role"`
	AccessToken  string      `json:"access_token"`
	Theme        ViewerTheme `json:"theme"`
}
