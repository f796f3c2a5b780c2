package domain

import "github.com/google/uuid"

// PanelKind identifies which tray panel the user is looking at.
type PanelKind string

const (
	PanelNormal  PanelKind = "normal"
	PanelPrivate PanelKind = "private"
	PanelRemote  PanelKind = "remote"
)

// DisplaySnapshot is the value handed to UI observers after a mutation.
// It is a copy; observers never see the live tab list.
type DisplaySnapshot struct {
	WindowID      uuid.UUID `json:"window_id"`
	Panel         PanelKind `json:"panel"`
	Tabs          []TabData `json:"tabs"`
	InactiveTabs  []TabData `json:"inactive_tabs,omitempty"`
	SelectedID    uuid.UUID `json:"selected_id"`
	NormalCount   int       `json:"normal_count"`
	PrivateCount  int       `json:"private_count"`
	InactiveCount int       `json:"inactive_count"`
}
