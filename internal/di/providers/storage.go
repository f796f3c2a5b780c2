package providers

import (
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/driftbrowser/drift-core/internal/config"
	"github.com/driftbrowser/drift-core/internal/logger"
	"github.com/driftbrowser/drift-core/internal/media/screenshots"
)

// ProvideScreenshotStore provides the on-disk tab screenshot store.
func ProvideScreenshotStore(i do.Injector) (*screenshots.Store, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	shots, err := screenshots.NewStore(cfg.Profile.DataDir, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Screenshot store initialized", "path", filepath.Join(cfg.Profile.DataDir, "screenshots"))

	return shots, nil
}
