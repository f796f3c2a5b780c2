package providers

import (
	"github.com/samber/do/v2"

	"github.com/driftbrowser/drift-core/internal/config"
	"github.com/driftbrowser/drift-core/internal/logger"
	"github.com/driftbrowser/drift-core/internal/search"
)

// TabIndexHandle wraps the tab search index with shutdown capability. The
// embedded index is nil when search is disabled; consumers treat nil as
// "do not index".
type TabIndexHandle struct {
	*search.TabIndex
}

// Shutdown implements do.Shutdownable.
func (h *TabIndexHandle) Shutdown() error {
	if h.TabIndex == nil {
		return nil
	}
	return h.Close()
}

// ProvideTabIndex provides the Bleve tab search index.
func ProvideTabIndex(i do.Injector) (*TabIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Search.Enabled {
		log.Info("Tab search disabled")
		return &TabIndexHandle{}, nil
	}

	index, err := search.NewTabIndex(search.Options{
		DataPath: cfg.Profile.SearchPath(),
		InMemory: cfg.Search.InMemory,
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Tab search index initialized", "documents", docCount)

	return &TabIndexHandle{TabIndex: index}, nil
}
