package domain

import (
	"time"

	"github.com/google/uuid"
)

// WindowData is the persisted snapshot of one OS-level window: its ordered
// tabs and the identity of the active tab. Windows are independent
// persistence domains; tab identities are never shared across windows.
type WindowData struct {
	ID          uuid.UUID `json:"id"`
	ActiveTabID uuid.UUID `json:"active_tab_id"`
	Tabs        []TabData `json:"tabs"`
	SavedAt     time.Time `json:"saved_at"`
}

// NewWindowData creates a snapshot for the given window.
func NewWindowData(windowID uuid.UUID, activeTabID uuid.UUID, tabs []TabData) *WindowData {
	return &WindowData{
		ID:          windowID,
		ActiveTabID: activeTabID,
		Tabs:        tabs,
		SavedAt:     time.Now(),
	}
}

// NormalTabCount returns the number of non-private tabs in the snapshot.
func (w *WindowData) NormalTabCount() int {
	n := 0
	for _, t := range w.Tabs {
		if !t.Private {
			n++
		}
	}
	return n
}

// TabIDs returns the identity of every tab in the snapshot.
func (w *WindowData) TabIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(w.Tabs))
	for _, t := range w.Tabs {
		ids = append(ids, t.ID)
	}
	return ids
}

// FindTab returns the index of the tab with the given id, or -1.
func (w *WindowData) FindTab(id uuid.UUID) int {
	for i, t := range w.Tabs {
		if t.ID == id {
			return i
		}
	}
	return -1
}
