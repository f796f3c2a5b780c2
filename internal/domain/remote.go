package domain

import "time"

// RemoteClient describes another device known to the sync store.
type RemoteClient struct {
	DeviceID     string    `json:"device_id"`
	Name         string    `json:"name"`
	DeviceType   string    `json:"device_type"`
	LastAccessed time.Time `json:"last_accessed"`
}

// DeviceIdentity is this install's own durable identity in the sync
// store. Minted once on first use and never rotated.
type DeviceIdentity struct {
	DeviceID  string    `json:"device_id"`
	CreatedAt time.Time `json:"created_at"`
}

// RemoteTab is one tab open on a remote device.
type RemoteTab struct {
	Title    string    `json:"title"`
	URL      string    `json:"url"`
	Icon     string    `json:"icon,omitempty"`
	LastUsed time.Time `json:"last_used"`
}

// ClientAndTabs pairs a remote client with its tab list. It is rebuilt from
// the sync store on every fetch and never mutated locally.
type ClientAndTabs struct {
	Client RemoteClient `json:"client"`
	Tabs   []RemoteTab  `json:"tabs"`
}

// CommandKind identifies a cross-device instruction.
type CommandKind string

const (
	// CommandCloseTab asks a remote device to close the tab at a URL.
	CommandCloseTab CommandKind = "close_tab"
)

// PendingCommand is a durable cross-device instruction awaiting delivery.
// Its logical identity is (DeviceID, URL, Kind); inserting the same identity
// twice leaves a single pending command.
type PendingCommand struct {
	ID        string      `json:"id"`
	DeviceID  string      `json:"device_id" validate:"required"`
	URL       string      `json:"url" validate:"required,max=2048"`
	Kind      CommandKind `json:"kind" validate:"required"`
	CreatedAt time.Time   `json:"created_at"`
}

// RefreshReason explains a failed remote refresh so the UI can render the
// matching empty state.
type RefreshReason string

const (
	RefreshNotSignedIn  RefreshReason = "not_signed_in"
	RefreshSyncDisabled RefreshReason = "sync_disabled"
	RefreshGenericError RefreshReason = "failed"
)

// RefreshOutcome is the tagged result of a remote-tabs refresh: either a
// client list or a failure reason, never both.
type RefreshOutcome struct {
	Clients []ClientAndTabs `json:"clients,omitempty"`
	Reason  RefreshReason   `json:"reason,omitempty"`
}

// RefreshOK wraps a successful fetch.
func RefreshOK(clients []ClientAndTabs) RefreshOutcome {
	return RefreshOutcome{Clients: clients}
}

// RefreshFailure wraps a failure reason.
func RefreshFailure(reason RefreshReason) RefreshOutcome {
	return RefreshOutcome{Reason: reason}
}

// OK reports whether the refresh succeeded.
func (o RefreshOutcome) OK() bool {
	return o.Reason == ""
}
