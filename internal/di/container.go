// Package di provides dependency injection configuration for the browser core.
package di

import (
	"github.com/samber/do/v2"

	"github.com/driftbrowser/drift-core/internal/config"
	"github.com/driftbrowser/drift-core/internal/di/providers"
	"github.com/driftbrowser/drift-core/internal/domain"
	"github.com/driftbrowser/drift-core/internal/logger"
	"github.com/driftbrowser/drift-core/internal/media/screenshots"
	"github.com/driftbrowser/drift-core/internal/service"
	"github.com/driftbrowser/drift-core/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
// The session host and account gate default to inert implementations; the
// embedding shell overrides them before opening windows.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideHub)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideScreenshotStore)
	do.Provide(injector, providers.ProvideRemoteDatabase)
	do.Provide(injector, providers.ProvideDeviceIdentity)

	// Search layer
	do.Provide(injector, providers.ProvideTabIndex)

	// Policy layer
	do.Provide(injector, providers.ProvideClassifier)
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvidePushLimiter)
	do.Provide(injector, providers.ProvideSessionHost)
	do.Provide(injector, providers.ProvideAccountGate)

	// Tab services
	do.Provide(injector, providers.ProvideWindowRegistry)
	do.Provide(injector, providers.ProvideRemoteTabsService)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle
// management. This triggers lazy initialization of all core services; no
// window is opened until the shell asks for one.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.HubHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*screenshots.Store](injector)
	_ = do.MustInvoke[*providers.RemoteDBHandle](injector)
	_ = do.MustInvoke[*domain.DeviceIdentity](injector)
	_ = do.MustInvoke[*providers.TabIndexHandle](injector)

	// Policy layer
	_ = do.MustInvoke[service.Classifier](injector)
	_ = do.MustInvoke[*validation.Validator](injector)
	_ = do.MustInvoke[*providers.PushLimiterHandle](injector)
	_ = do.MustInvoke[service.SessionHost](injector)
	_ = do.MustInvoke[service.AccountGate](injector)

	// Tab services
	_ = do.MustInvoke[*providers.WindowRegistryHandle](injector)
	_ = do.MustInvoke[*service.RemoteTabsService](injector)

	return nil
}
