package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/driftbrowser/drift-core/internal/config"
	"github.com/driftbrowser/drift-core/internal/domain"
	"github.com/driftbrowser/drift-core/internal/logger"
	"github.com/driftbrowser/drift-core/internal/media/screenshots"
	"github.com/driftbrowser/drift-core/internal/ratelimit"
	"github.com/driftbrowser/drift-core/internal/service"
	"github.com/driftbrowser/drift-core/internal/validation"
)

// ProvideClassifier provides the inactive-tab classifier configured for
// this profile.
func ProvideClassifier(i do.Injector) (service.Classifier, error) {
	cfg := do.MustInvoke[*config.Config](i)

	if !cfg.Tabs.InactiveEnabled {
		return service.DisabledClassifier{}, nil
	}
	return service.ThresholdClassifier{Threshold: cfg.Tabs.InactiveAfter}, nil
}

// ProvideValidator provides the request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// PushLimiterHandle wraps the snapshot push limiter with shutdown
// capability.
type PushLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *PushLimiterHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvidePushLimiter provides the per-device rate limiter that coalesces
// bursts of local tab changes into single sync pushes.
func ProvidePushLimiter(i do.Injector) (*PushLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)

	rate := 1.0 / cfg.Remote.PushInterval.Seconds()
	return &PushLimiterHandle{
		KeyedRateLimiter: ratelimit.New(rate, cfg.Remote.PushBurst),
	}, nil
}

// ProvideSessionHost provides the renderer session host. The default does
// nothing; the embedding shell replaces it with one backed by its web
// views before opening windows.
func ProvideSessionHost(i do.Injector) (service.SessionHost, error) {
	return service.NoopSessionHost{}, nil
}

// ProvideAccountGate provides the sync account gate. The default reports
// signed out; the embedding shell replaces it with one backed by the
// account manager.
func ProvideAccountGate(i do.Injector) (service.AccountGate, error) {
	return service.NewStaticAccountGate(false, false), nil
}

// WindowRegistryHandle wraps the window registry with shutdown capability.
type WindowRegistryHandle struct {
	*service.WindowRegistry
}

// Shutdown implements do.Shutdownable.
func (h *WindowRegistryHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.CloseAll(ctx)
}

// ProvideWindowRegistry provides the per-window tab manager registry.
// Opening windows is the shell's job; the registry starts empty.
func ProvideWindowRegistry(i do.Injector) (*WindowRegistryHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	shots := do.MustInvoke[*screenshots.Store](i)
	classifier := do.MustInvoke[service.Classifier](i)
	host := do.MustInvoke[service.SessionHost](i)
	hubHandle := do.MustInvoke[*HubHandle](i)
	indexHandle := do.MustInvoke[*TabIndexHandle](i)

	opts := service.RestoreOptions{
		SkipRestore:       cfg.Tabs.SkipRestore,
		NeedsMigration:    cfg.Tabs.NeedsMigration,
		LegacyArchivePath: cfg.Profile.LegacyArchivePath(),
	}

	registry := service.NewWindowRegistry(
		storeHandle.Store,
		shots,
		classifier,
		host,
		hubHandle.Hub,
		indexHandle.TabIndex,
		opts,
		cfg.Persist.DebounceInterval,
		log.Logger,
	)

	return &WindowRegistryHandle{WindowRegistry: registry}, nil
}

// ProvideRemoteTabsService provides the synced-tabs service.
func ProvideRemoteTabsService(i do.Injector) (*service.RemoteTabsService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	dbHandle := do.MustInvoke[*RemoteDBHandle](i)
	gate := do.MustInvoke[service.AccountGate](i)
	limiterHandle := do.MustInvoke[*PushLimiterHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	hubHandle := do.MustInvoke[*HubHandle](i)
	indexHandle := do.MustInvoke[*TabIndexHandle](i)
	identity := do.MustInvoke[*domain.DeviceIdentity](i)

	return service.NewRemoteTabsService(
		dbHandle.Store,
		gate,
		limiterHandle.KeyedRateLimiter,
		validator,
		hubHandle.Hub,
		indexHandle.TabIndex,
		identity.DeviceID,
		cfg.Remote.DeviceName,
		log.Logger,
	), nil
}
