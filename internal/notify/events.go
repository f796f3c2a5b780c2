// Package notify implements the in-process event hub that fans tab state
// changes out to UI observers.
package notify

import (
	"time"

	"github.com/google/uuid"

	"github.com/driftbrowser/drift-core/internal/domain"
)

// The hub is the one-way channel from the tab engine to the shell: the
// engine publishes facts, observers (tab tray, toolbar, toast presenter)
// react. Requests travel the other way as direct method calls, so the
// hub never carries commands back into the engine.

// EventType represents the type of hub event.
type EventType string

const (
	// EventDisplayChanged fires when the visible tab set of a window
	// changes in any way: adds, removals, reorders, panel switches.
	EventDisplayChanged EventType = "tabs.display.changed"
	// EventSelectionChanged fires when a window's selected tab changes.
	EventSelectionChanged EventType = "tabs.select.changed"

	// EventRestoreCompleted fires once per window when session restore
	// finishes and the tab set is authoritative.
	EventRestoreCompleted EventType = "restore.completed"

	// EventToastRequested asks the shell to surface a transient toast,
	// typically with an undo affordance after a bulk close.
	EventToastRequested EventType = "toast.requested"
	// EventPanelDismiss asks the shell to dismiss the tab tray, for
	// example after the last private tab is closed.
	EventPanelDismiss EventType = "panel.dismiss"

	// EventRemoteRefreshed fires when a remote tabs refresh lands.
	EventRemoteRefreshed EventType = "remote.refreshed"
	// EventRemoteRefreshFailed fires when a remote tabs refresh cannot
	// produce data, carrying the reason for the empty-state UI.
	EventRemoteRefreshFailed EventType = "remote.refresh.failed"
)

// Event represents a hub event delivered to observers.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// WindowID scopes delivery. uuid.Nil means every observer
	// receives the event regardless of which window it watches.
	WindowID uuid.UUID `json:"-"`
}

// DisplayChangedData is the data payload for display change events.
// The snapshot is complete; observers render it without further queries.
type DisplayChangedData struct {
	Snapshot *domain.DisplaySnapshot `json:"snapshot"`
}

// SelectionChangedData is the data payload for selection change events.
// PreviousID is uuid.Nil when nothing was selected before; Restoring marks
// selections made by the restore engine rather than the user.
type SelectionChangedData struct {
	TabID      uuid.UUID `json:"tab_id"`
	PreviousID uuid.UUID `json:"previous_id,omitempty"`
	Private    bool      `json:"private"`
	Restoring  bool      `json:"restoring"`
}

// RestoreCompletedData is the data payload for restore completion events.
type RestoreCompletedData struct {
	TabCount int  `json:"tab_count"`
	Migrated bool `json:"migrated"`
}

// ToastKind identifies which toast the shell should present.
type ToastKind string

const (
	// ToastClosedTab follows a single tab close; undo restores the tab.
	ToastClosedTab ToastKind = "closed_tab"
	// ToastClosedAll follows a bulk close of normal, private, or inactive
	// tabs. Count carries how many were closed.
	ToastClosedAll ToastKind = "closed_all"
	// ToastBookmarkAdded and ToastURLCopied are published by the shell on
	// behalf of context-menu actions; the core only defines the vocabulary.
	ToastBookmarkAdded ToastKind = "bookmark_added"
	ToastURLCopied     ToastKind = "url_copied"
	// ToastCloseTabQueued confirms a queued remote close command.
	ToastCloseTabQueued ToastKind = "close_tab_queued"
)

// ToastRequestedData is the data payload for toast request events.
type ToastRequestedData struct {
	Kind     ToastKind `json:"kind"`
	Count    int       `json:"count"`
	Undoable bool      `json:"undoable"`
}

// PanelDismissData is the data payload for panel dismiss events.
type PanelDismissData struct {
	Panel domain.PanelKind `json:"panel"`
}

// RemoteRefreshedData is the data payload for remote refresh events.
type RemoteRefreshedData struct {
	ClientCount int `json:"client_count"`
	TabCount    int `json:"tab_count"`
}

// RemoteRefreshFailedData is the data payload for failed remote refreshes.
type RemoteRefreshFailedData struct {
	Reason domain.RefreshReason `json:"reason"`
}

// NewDisplayChangedEvent creates a tabs.display.changed event scoped to
// the snapshot's window.
func NewDisplayChangedEvent(snapshot *domain.DisplaySnapshot) Event {
	return Event{
		Type:      EventDisplayChanged,
		Data:      DisplayChangedData{Snapshot: snapshot},
		WindowID:  snapshot.WindowID,
		Timestamp: time.Now(),
	}
}

// NewSelectionChangedEvent creates a tabs.select.changed event.
func NewSelectionChangedEvent(windowID, tabID, previousID uuid.UUID, private, restoring bool) Event {
	return Event{
		Type: EventSelectionChanged,
		Data: SelectionChangedData{
			TabID:      tabID,
			PreviousID: previousID,
			Private:    private,
			Restoring:  restoring,
		},
		WindowID:  windowID,
		Timestamp: time.Now(),
	}
}

// NewRestoreCompletedEvent creates a restore.completed event.
func NewRestoreCompletedEvent(windowID uuid.UUID, tabCount int, migrated bool) Event {
	return Event{
		Type: EventRestoreCompleted,
		Data: RestoreCompletedData{
			TabCount: tabCount,
			Migrated: migrated,
		},
		WindowID:  windowID,
		Timestamp: time.Now(),
	}
}

// NewToastRequestedEvent creates a toast.requested event.
func NewToastRequestedEvent(windowID uuid.UUID, kind ToastKind, count int, undoable bool) Event {
	return Event{
		Type: EventToastRequested,
		Data: ToastRequestedData{
			Kind:     kind,
			Count:    count,
			Undoable: undoable,
		},
		WindowID:  windowID,
		Timestamp: time.Now(),
	}
}

// NewPanelDismissEvent creates a panel.dismiss event for one tray panel.
func NewPanelDismissEvent(windowID uuid.UUID, panel domain.PanelKind) Event {
	return Event{
		Type:      EventPanelDismiss,
		Data:      PanelDismissData{Panel: panel},
		WindowID:  windowID,
		Timestamp: time.Now(),
	}
}

// NewRemoteRefreshedEvent creates a remote.refreshed event. Remote tabs
// are device-wide, so the event is unscoped.
func NewRemoteRefreshedEvent(clientCount, tabCount int) Event {
	return Event{
		Type: EventRemoteRefreshed,
		Data: RemoteRefreshedData{
			ClientCount: clientCount,
			TabCount:    tabCount,
		},
		Timestamp: time.Now(),
	}
}

// NewRemoteRefreshFailedEvent creates a remote.refresh.failed event.
func NewRemoteRefreshFailedEvent(reason domain.RefreshReason) Event {
	return Event{
		Type:      EventRemoteRefreshFailed,
		Data:      RemoteRefreshFailedData{Reason: reason},
		Timestamp: time.Now(),
	}
}
