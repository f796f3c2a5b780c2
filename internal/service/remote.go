package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/driftbrowser/drift-core/internal/domain"
	"github.com/driftbrowser/drift-core/internal/notify"
	"github.com/driftbrowser/drift-core/internal/ratelimit"
	"github.com/driftbrowser/drift-core/internal/search"
	"github.com/driftbrowser/drift-core/internal/store/sqlite"
	"github.com/driftbrowser/drift-core/internal/validation"
)

// AccountGate answers the two account questions remote tabs depend on.
// The flag source behind it is external; the core only consumes booleans.
type AccountGate interface {
	SignedIn() bool
	TabsSyncEnabled() bool
}

// StaticAccountGate is a fixed-answer gate for tests and for builds
// without an account stack.
type StaticAccountGate struct {
	signedIn bool
	syncOn   bool
}

// NewStaticAccountGate returns a gate with fixed answers.
func NewStaticAccountGate(signedIn, tabsSync bool) StaticAccountGate {
	return StaticAccountGate{signedIn: signedIn, syncOn: tabsSync}
}

func (g StaticAccountGate) SignedIn() bool        { return g.signedIn }
func (g StaticAccountGate) TabsSyncEnabled() bool { return g.syncOn }

// localDeviceType is what this install reports itself as to other devices.
const localDeviceType = "mobile"

// RemoteTabsService exposes other devices' tabs and the cross-device
// command queue. It opens the sqlite store lazily on first use and shapes
// every failure into a value the UI can render.
type RemoteTabsService struct {
	db         *sqlite.Store
	gate       AccountGate
	limiter    *ratelimit.KeyedRateLimiter
	validator  *validation.Validator
	hub        *notify.Hub
	index      *search.TabIndex
	deviceID   string
	deviceName string
	logger     *slog.Logger
}

// NewRemoteTabsService creates the remote tabs service. The search index
// may be nil when tab search is disabled.
func NewRemoteTabsService(
	db *sqlite.Store,
	gate AccountGate,
	limiter *ratelimit.KeyedRateLimiter,
	validator *validation.Validator,
	hub *notify.Hub,
	index *search.TabIndex,
	deviceID string,
	deviceName string,
	logger *slog.Logger,
) *RemoteTabsService {
	return &RemoteTabsService{
		db:         db,
		gate:       gate,
		limiter:    limiter,
		validator:  validator,
		hub:        hub,
		index:      index,
		deviceID:   deviceID,
		deviceName: deviceName,
		logger:     logger,
	}
}

// SetLocalTabs pushes the local tab list into the sync store, replacing
// this device's previous snapshot atomically. Private tabs and tabs that
// have never navigated are never shared. Pushes are throttled per device;
// a burst of mutations coalesces into whichever push got through, and the
// next allowed push carries the final state. Returns how many tabs were
// pushed.
func (r *RemoteTabsService) SetLocalTabs(ctx context.Context, tabs []*domain.Tab) (int, error) {
	if !r.limiter.Allow(r.deviceID) {
		r.logger.Debug("local tab push throttled", "device_id", r.deviceID)
		return 0, nil
	}
	if err := r.db.Open(ctx); err != nil {
		return 0, err
	}

	remote := make([]domain.RemoteTab, 0, len(tabs))
	for _, t := range tabs {
		if t.Private || t.IsEmpty() {
			continue
		}
		remote = append(remote, domain.RemoteTab{
			Title:    t.DisplayTitle(),
			URL:      t.URLString(),
			Icon:     t.FaviconURL,
			LastUsed: t.LastUsedAt,
		})
	}
	client := domain.RemoteClient{
		DeviceID:     r.deviceID,
		Name:         r.deviceName,
		DeviceType:   localDeviceType,
		LastAccessed: time.Now(),
	}
	count, err := r.db.SetClientTabs(ctx, client, remote)
	if err != nil {
		return 0, err
	}
	r.logger.Debug("local tabs pushed", "device_id", r.deviceID, "count", count)
	return count, nil
}

// GetAll returns every known client with its tabs, fully reconstructed
// from the sync store on each call.
func (r *RemoteTabsService) GetAll(ctx context.Context) ([]domain.ClientAndTabs, error) {
	if err := r.db.Open(ctx); err != nil {
		return nil, err
	}
	return r.db.GetAll(ctx)
}

// GetClient returns one client descriptor, or nil when the device is
// unknown.
func (r *RemoteTabsService) GetClient(ctx context.Context, deviceID string) (*domain.RemoteClient, error) {
	all, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range all {
		if c.Client.DeviceID == deviceID {
			client := c.Client
			return &client, nil
		}
	}
	r.logger.Debug("remote client not known", "device_id", deviceID)
	return nil, nil
}

// GetRemoteClients returns the clients matching the given device ids, in
// store order. Unknown ids are skipped.
func (r *RemoteTabsService) GetRemoteClients(ctx context.Context, deviceIDs []string) ([]domain.ClientAndTabs, error) {
	all, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]struct{}, len(deviceIDs))
	for _, id := range deviceIDs {
		wanted[id] = struct{}{}
	}
	out := make([]domain.ClientAndTabs, 0, len(deviceIDs))
	for _, c := range all {
		if _, ok := wanted[c.Client.DeviceID]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// Refresh fetches the full remote picture behind the account gate. Every
// failure resolves to a tagged outcome so the UI can render the matching
// empty state; a hub event mirrors the outcome for fire-and-forget
// callers.
func (r *RemoteTabsService) Refresh(ctx context.Context) domain.RefreshOutcome {
	if !r.gate.SignedIn() {
		return r.refreshFailed(domain.RefreshNotSignedIn)
	}
	if !r.gate.TabsSyncEnabled() {
		return r.refreshFailed(domain.RefreshSyncDisabled)
	}

	clients, err := r.GetAll(ctx)
	if err != nil {
		r.logger.Warn("remote refresh failed", "error", err)
		return r.refreshFailed(domain.RefreshGenericError)
	}

	tabCount := 0
	for _, c := range clients {
		tabCount += len(c.Tabs)
	}
	r.feedSearchIndex(ctx, clients)
	r.hub.Publish(notify.NewRemoteRefreshedEvent(len(clients), tabCount))
	r.logger.Debug("remote tabs refreshed", "clients", len(clients), "tabs", tabCount)
	return domain.RefreshOK(clients)
}

// QueueCloseTab durably queues a close-tab command for another device.
// Queueing the same command twice is not an error.
func (r *RemoteTabsService) QueueCloseTab(ctx context.Context, deviceID, url string) error {
	cmd := domain.PendingCommand{
		DeviceID: deviceID,
		URL:      url,
		Kind:     domain.CommandCloseTab,
	}
	if err := r.validator.Validate(cmd); err != nil {
		return err
	}
	if err := r.db.Open(ctx); err != nil {
		return err
	}
	if err := r.db.AddCommand(ctx, deviceID, url, domain.CommandCloseTab); err != nil {
		return err
	}
	r.hub.Publish(notify.NewToastRequestedEvent(uuid.Nil, notify.ToastCloseTabQueued, 1, false))
	r.logger.Debug("close command queued", "device_id", deviceID, "url", url)
	return nil
}

// UnqueueCloseTab removes a queued close-tab command. Removing a command
// that is not queued is not an error.
func (r *RemoteTabsService) UnqueueCloseTab(ctx context.Context, deviceID, url string) error {
	if err := r.db.Open(ctx); err != nil {
		return err
	}
	return r.db.RemoveCommand(ctx, deviceID, url, domain.CommandCloseTab)
}

// PendingCommands returns the queued commands for one device, oldest
// first.
func (r *RemoteTabsService) PendingCommands(ctx context.Context, deviceID string) ([]domain.PendingCommand, error) {
	if err := r.db.Open(ctx); err != nil {
		return nil, err
	}
	return r.db.PendingCommands(ctx, deviceID)
}

func (r *RemoteTabsService) refreshFailed(reason domain.RefreshReason) domain.RefreshOutcome {
	r.hub.Publish(notify.NewRemoteRefreshFailedEvent(reason))
	return domain.RefreshFailure(reason)
}

// feedSearchIndex replaces the remote half of the tab index with the
// fresh snapshot. The local device is skipped; its tabs are indexed live
// by the manager.
func (r *RemoteTabsService) feedSearchIndex(ctx context.Context, clients []domain.ClientAndTabs) {
	if r.index == nil {
		return
	}
	docs := make([]*search.TabDocument, 0)
	for _, c := range clients {
		if c.Client.DeviceID == r.deviceID {
			continue
		}
		for _, tab := range c.Tabs {
			docs = append(docs, search.RemoteTabDocument(c.Client.DeviceID, c.Client.Name, tab))
		}
	}
	if err := r.index.ReplaceRemoteTabs(ctx, docs); err != nil {
		r.logger.Warn("remote tab index refresh failed", "error", err)
	}
}
