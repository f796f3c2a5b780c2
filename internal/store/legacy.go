package store

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/driftbrowser/drift-core/internal/domain"
)

// Legacy session archives predate per-window snapshots: one mozlz4-framed
// JSON file holding a flat tab list and a selected index. Raw JSON types
// for parsing it.
type legacyTab struct {
	URL          string       `json:"url"`
	Title        string       `json:"title"`
	LastAccessed int64        `json:"lastAccessed"` // epoch millis
	CreatedAt    int64        `json:"createdAt,omitempty"`
	IsPrivate    bool         `json:"isPrivate"`
	Image        string       `json:"image"`
	Group        *legacyGroup `json:"group"`
}

type legacyGroup struct {
	SearchTerm      string `json:"searchTerm"`
	SearchURL       string `json:"searchUrl"`
	NextReferralURL string `json:"nextReferralUrl"`
}

type legacyArchive struct {
	Version       int         `json:"version"`
	SelectedIndex int         `json:"selectedIndex"`
	Tabs          []legacyTab `json:"tabs"`
}

// ImportLegacyArchive performs the one-time migration from a legacy session
// archive into a window snapshot. Tabs receive fresh identities; timestamps
// carry over. The snapshot is persisted before returning. A missing or
// corrupt archive returns ErrWindowNotFound resp. ErrCorruptRecord, both of
// which callers treat as "no data to migrate".
func (s *Store) ImportLegacyArchive(ctx context.Context, archivePath string, windowID uuid.UUID) (*domain.WindowData, error) {
	raw, err := os.ReadFile(archivePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrWindowNotFound
		}
		return nil, fmt.Errorf("read legacy archive: %w", err)
	}

	decoded, err := decompressBlob(raw)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("legacy archive is not a valid mozlz4 file", "path", archivePath, "error", err)
		}
		return nil, ErrCorruptRecord.WithCause(err)
	}

	var archive legacyArchive
	if err := json.Unmarshal(decoded, &archive); err != nil {
		if s.logger != nil {
			s.logger.Warn("legacy archive JSON is corrupt", "path", archivePath, "error", err)
		}
		return nil, ErrCorruptRecord.WithCause(err)
	}

	tabs := make([]domain.TabData, 0, len(archive.Tabs))
	for _, lt := range archive.Tabs {
		lastUsed := time.UnixMilli(lt.LastAccessed)
		created := lastUsed
		if lt.CreatedAt > 0 {
			created = time.UnixMilli(lt.CreatedAt)
		}
		var group *domain.GroupData
		if lt.Group != nil {
			g := domain.GroupData{
				SearchTerm:      lt.Group.SearchTerm,
				SearchURL:       lt.Group.SearchURL,
				NextReferralURL: lt.Group.NextReferralURL,
			}
			if !g.Empty() {
				group = &g
			}
		}
		tabID := uuid.New()
		tabs = append(tabs, domain.TabData{
			ID:           tabID,
			Title:        lt.Title,
			URL:          lt.URL,
			FaviconURL:   lt.Image,
			Private:      lt.IsPrivate,
			CreatedAt:    created,
			LastUsedAt:   lastUsed,
			ScreenshotID: tabID,
			Group:        group,
		})
	}

	activeTabID := uuid.Nil
	if archive.SelectedIndex >= 0 && archive.SelectedIndex < len(tabs) {
		activeTabID = tabs[archive.SelectedIndex].ID
	}

	data := domain.NewWindowData(windowID, activeTabID, tabs)
	if err := s.SaveWindow(ctx, data); err != nil {
		return nil, fmt.Errorf("persist migrated window: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("migrated legacy session archive",
			"path", archivePath, "window_id", windowID, "tab_count", len(tabs))
	}
	return data, nil
}
