// Package providers contains dependency injection providers for the browser core.
package providers

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/driftbrowser/drift-core/internal/config"
	"github.com/driftbrowser/drift-core/internal/logger"
)

// ProvideConfig provides the core configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Format:      cfg.Logger.Format,
		File:        cfg.Logger.File,
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting Drift browser core",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"profile_dir", cfg.Profile.DataDir,
	)

	return log, nil
}

// ProvideSlogLogger provides access to the underlying slog.Logger for packages that need it.
func ProvideSlogLogger(i do.Injector) (*slog.Logger, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return log.Logger, nil
}
