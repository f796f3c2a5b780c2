package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/driftbrowser/drift-core/internal/config"
	"github.com/driftbrowser/drift-core/internal/domain"
	"github.com/driftbrowser/drift-core/internal/logger"
	"github.com/driftbrowser/drift-core/internal/notify"
	"github.com/driftbrowser/drift-core/internal/store"
	"github.com/driftbrowser/drift-core/internal/store/sqlite"
)

// HubHandle wraps the event hub with its delivery context for lifecycle
// management.
type HubHandle struct {
	*notify.Hub
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *HubHandle) Shutdown() error {
	h.cancel()
	return nil
}

// ProvideHub provides the event hub shell surfaces subscribe to.
func ProvideHub(i do.Injector) (*HubHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	hub := notify.NewHub(log.Logger)

	// Start is the delivery loop itself; it runs until the context ends.
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Start(ctx)

	log.Info("Event hub started")

	return &HubHandle{
		Hub:    hub,
		cancel: cancel,
	}, nil
}

// StoreHandle wraps the tab store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the window and session record store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbPath := cfg.Profile.TabsPath()
	db, err := store.New(dbPath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Tab store initialized", "path", dbPath)

	return &StoreHandle{Store: db}, nil
}

// RemoteDBHandle wraps the synced-tabs database with shutdown capability.
type RemoteDBHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *RemoteDBHandle) Shutdown() error {
	return h.Close()
}

// ProvideRemoteDatabase provides the synced-tabs database. The handle is
// created unopened; services open it lazily on first use so a signed-out
// profile never touches the file.
func ProvideRemoteDatabase(i do.Injector) (*RemoteDBHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	db := sqlite.New(cfg.Remote.DatabasePath, log.Logger)

	log.Info("Remote tabs database configured", "path", cfg.Remote.DatabasePath)

	return &RemoteDBHandle{Store: db}, nil
}

// ProvideDeviceIdentity provides this install's durable device identity,
// minting one on first run.
func ProvideDeviceIdentity(i do.Injector) (*domain.DeviceIdentity, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)

	return storeHandle.GetOrCreateDevice(context.Background())
}
