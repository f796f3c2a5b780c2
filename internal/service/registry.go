package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	domainerrors "github.com/driftbrowser/drift-core/internal/errors"
	"github.com/driftbrowser/drift-core/internal/media/screenshots"
	"github.com/driftbrowser/drift-core/internal/notify"
	"github.com/driftbrowser/drift-core/internal/search"
	"github.com/driftbrowser/drift-core/internal/store"
)

// WindowRegistry creates and owns one Manager per window. Windows persist
// and restore independently; the registry's only cross-window concern is
// garbage collection, which needs the union of every window's live tabs.
type WindowRegistry struct {
	store      *store.Store
	shots      *screenshots.Store
	classifier Classifier
	host       SessionHost
	hub        *notify.Hub
	index      *search.TabIndex
	opts       RestoreOptions
	debounce   time.Duration
	logger     *slog.Logger

	mu      sync.Mutex
	windows map[uuid.UUID]*windowEntry
}

type windowEntry struct {
	manager  *Manager
	restorer *Restorer
}

// NewWindowRegistry creates an empty registry. The restore options apply
// to every window opened through it; migration flags are per-install, not
// per-window.
func NewWindowRegistry(
	st *store.Store,
	shots *screenshots.Store,
	classifier Classifier,
	host SessionHost,
	hub *notify.Hub,
	index *search.TabIndex,
	opts RestoreOptions,
	debounce time.Duration,
	logger *slog.Logger,
) *WindowRegistry {
	return &WindowRegistry{
		store:      st,
		shots:      shots,
		classifier: classifier,
		host:       host,
		hub:        hub,
		index:      index,
		opts:       opts,
		debounce:   debounce,
		logger:     logger,
		windows:    make(map[uuid.UUID]*windowEntry),
	}
}

// OpenWindow creates the manager for a window and runs session restore.
// Opening an already-open window returns the existing manager untouched.
func (r *WindowRegistry) OpenWindow(ctx context.Context, windowID uuid.UUID) (*Manager, error) {
	r.mu.Lock()
	if entry, ok := r.windows[windowID]; ok {
		r.mu.Unlock()
		r.logger.Debug("window already open", "window_id", windowID)
		return entry.manager, nil
	}
	manager := NewManager(windowID, r.store, r.shots, r.classifier, r.host, r.hub, r.index, r.debounce, r.logger)
	restorer := NewRestorer(manager, r.store, r.shots, r.hub, r.opts, r.gc, r.logger)
	r.windows[windowID] = &windowEntry{manager: manager, restorer: restorer}
	r.mu.Unlock()

	if err := restorer.Restore(ctx, false); err != nil {
		return manager, fmt.Errorf("restore window: %w", err)
	}
	return manager, nil
}

// Window returns the manager for an open window, or nil.
func (r *WindowRegistry) Window(windowID uuid.UUID) *Manager {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.windows[windowID]; ok {
		return entry.manager
	}
	return nil
}

// Restorer returns the restore engine for an open window, or nil.
func (r *WindowRegistry) Restorer(windowID uuid.UUID) *Restorer {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.windows[windowID]; ok {
		return entry.restorer
	}
	return nil
}

// WindowIDs returns the ids of every open window.
func (r *WindowRegistry) WindowIDs() []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(r.windows))
	for id := range r.windows {
		ids = append(ids, id)
	}
	return ids
}

// LiveTabIDs returns the union of live tab ids across all open windows.
func (r *WindowRegistry) LiveTabIDs() map[uuid.UUID]struct{} {
	keep := make(map[uuid.UUID]struct{})
	for _, m := range r.managers() {
		for _, id := range m.LiveTabIDs() {
			keep[id] = struct{}{}
		}
	}
	return keep
}

// CloseWindow flushes a window's snapshot and releases its manager. The
// persisted snapshot stays on disk for the next open.
func (r *WindowRegistry) CloseWindow(ctx context.Context, windowID uuid.UUID) error {
	r.mu.Lock()
	entry, ok := r.windows[windowID]
	if ok {
		delete(r.windows, windowID)
	}
	r.mu.Unlock()
	if !ok {
		r.logger.Debug("window not open", "window_id", windowID)
		return nil
	}

	err := entry.manager.Flush(ctx)
	entry.manager.Close()
	if err != nil {
		return fmt.Errorf("flush window snapshot: %w", err)
	}
	r.logger.Info("window closed", "window_id", windowID)
	return nil
}

// CloseAll flushes and releases every open window.
func (r *WindowRegistry) CloseAll(ctx context.Context) error {
	var errs []error
	for _, id := range r.WindowIDs() {
		if err := r.CloseWindow(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return domainerrors.Join(errs...)
}

// CollectGarbage removes persisted tab sessions and screenshots that no
// open window references. Session and screenshot sweeps run concurrently;
// a key named by any window survives.
func (r *WindowRegistry) CollectGarbage(ctx context.Context) error {
	keepTabs := make(map[uuid.UUID]struct{})
	keepShots := make(map[uuid.UUID]struct{})
	for _, m := range r.managers() {
		for _, id := range m.LiveTabIDs() {
			keepTabs[id] = struct{}{}
		}
		for _, id := range m.LiveScreenshotIDs() {
			keepShots[id] = struct{}{}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		removed, err := r.store.DeleteUnusedTabSessions(gctx, keepTabs)
		if err != nil {
			return fmt.Errorf("collect tab sessions: %w", err)
		}
		if removed > 0 {
			r.logger.Debug("stale tab sessions removed", "count", removed)
		}
		return nil
	})
	g.Go(func() error {
		removed, err := r.shots.ClearAllExcluding(gctx, keepShots)
		if err != nil {
			return fmt.Errorf("collect screenshots: %w", err)
		}
		if removed > 0 {
			r.logger.Debug("stale screenshots removed", "count", removed)
		}
		return nil
	})
	return g.Wait()
}

// gc is the post-restore cleanup hook handed to each window's restorer.
// Failures are logged, never surfaced; a missed sweep retries on the next
// restore or background pass.
func (r *WindowRegistry) gc(ctx context.Context) {
	if err := r.CollectGarbage(ctx); err != nil {
		r.logger.Warn("orphan cleanup failed", "error", err)
	}
}

func (r *WindowRegistry) managers() []*Manager {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Manager, 0, len(r.windows))
	for _, entry := range r.windows {
		out = append(out, entry.manager)
	}
	return out
}
