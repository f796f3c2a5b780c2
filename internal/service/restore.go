package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/driftbrowser/drift-core/internal/domain"
	domainerrors "github.com/driftbrowser/drift-core/internal/errors"
	"github.com/driftbrowser/drift-core/internal/media/screenshots"
	"github.com/driftbrowser/drift-core/internal/notify"
	"github.com/driftbrowser/drift-core/internal/store"
)

// RestoreState is the per-window restore lifecycle. Restored is terminal
// for the app session; only a forced restore re-enters the machine.
type RestoreState int

const (
	RestoreIdle RestoreState = iota
	RestoreRestoring
	RestoreRestored
)

func (s RestoreState) String() string {
	switch s {
	case RestoreRestoring:
		return "restoring"
	case RestoreRestored:
		return "restored"
	default:
		return "idle"
	}
}

// RestoreOptions carries the per-install switches the restore sequence
// consumes. NeedsMigration is the sticky one-time migration decision,
// made externally; SkipRestore is the automated-test mode.
type RestoreOptions struct {
	SkipRestore       bool
	NeedsMigration    bool
	LegacyArchivePath string
}

// Restorer populates a window's manager from the persisted snapshot, or
// from the legacy archive on first run after an upgrade. Restored tabs are
// zombies; renderers stay unmaterialized until first select.
type Restorer struct {
	manager *Manager
	store   *store.Store
	shots   *screenshots.Store
	hub     *notify.Hub
	opts    RestoreOptions
	// gc runs after completion to sweep orphaned sessions and
	// screenshots. Optional; the registry wires its union-keep-set
	// collector here.
	gc     func(context.Context)
	logger *slog.Logger

	mu    sync.Mutex
	state RestoreState
}

// NewRestorer creates the restore engine for one window.
func NewRestorer(
	m *Manager,
	st *store.Store,
	shots *screenshots.Store,
	hub *notify.Hub,
	opts RestoreOptions,
	gc func(context.Context),
	logger *slog.Logger,
) *Restorer {
	return &Restorer{
		manager: m,
		store:   st,
		shots:   shots,
		hub:     hub,
		opts:    opts,
		gc:      gc,
		logger:  logger.With("window_id", m.WindowID()),
	}
}

// State returns the current restore state.
func (r *Restorer) State() RestoreState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Restore runs the restore sequence. It no-ops when tabs are already
// loaded unless force is set, never runs twice concurrently, and always
// leaves the window with at least one normal tab. Individual bad records
// degrade; restore itself never fails because of one tab.
func (r *Restorer) Restore(ctx context.Context, force bool) error {
	r.mu.Lock()
	if r.state == RestoreRestoring {
		r.mu.Unlock()
		r.logger.Debug("restore already running")
		return nil
	}
	if !force && (r.state == RestoreRestored || r.manager.Count() > 0) {
		r.mu.Unlock()
		r.logger.Debug("tabs already loaded, restore skipped")
		return nil
	}
	r.state = RestoreRestoring
	r.mu.Unlock()

	r.manager.beginRestore()

	if r.opts.SkipRestore {
		r.ensureStartTab(ctx)
		r.finish(ctx, r.manager.Count(), false)
		return nil
	}

	data, migrated := r.loadWindowData(ctx)

	if data == nil || data.NormalTabCount() == 0 {
		// Fresh start: exactly one empty normal tab, selected.
		t, err := r.manager.AddTab(ctx, AddRequest{SuppressPersist: true})
		if err != nil {
			return err
		}
		if err := r.manager.SelectTab(ctx, t.ID); err != nil {
			return err
		}
		r.finish(ctx, 1, migrated)
		return nil
	}

	adopted := r.materialize(data)
	r.attachScreenshots(ctx, adopted)

	selectID := data.ActiveTabID
	if !r.manager.hasTab(selectID) {
		selectID = uuid.Nil
		if normals := r.manager.NormalTabs(); len(normals) > 0 {
			selectID = normals[0].ID
		}
	}
	if selectID != uuid.Nil {
		if err := r.manager.SelectTab(ctx, selectID); err != nil {
			return err
		}
	}
	r.finish(ctx, len(adopted), migrated)
	return nil
}

// loadWindowData fetches the persisted snapshot, or runs the one-time
// legacy migration when the install still needs it. Missing and corrupt
// data both degrade to nil, the fresh-start path.
func (r *Restorer) loadWindowData(ctx context.Context) (*domain.WindowData, bool) {
	if r.opts.NeedsMigration {
		data, err := r.store.ImportLegacyArchive(ctx, r.opts.LegacyArchivePath, r.manager.WindowID())
		switch {
		case err == nil:
			return data, true
		case domainerrors.Is(err, domainerrors.ErrNotFound), domainerrors.Is(err, domainerrors.ErrCorrupt):
			r.logger.Info("no legacy archive to migrate", "path", r.opts.LegacyArchivePath)
		default:
			r.logger.Warn("legacy migration failed", "error", err)
		}
		return nil, false
	}

	data, err := r.store.FetchWindow(ctx, r.manager.WindowID())
	switch {
	case err == nil:
		return data, false
	case domainerrors.Is(err, domainerrors.ErrNotFound), domainerrors.Is(err, domainerrors.ErrCorrupt):
		r.logger.Debug("no persisted window snapshot")
	default:
		r.logger.Warn("window snapshot fetch failed", "error", err)
	}
	return nil, false
}

// materialize turns every persisted record into a live zombie tab,
// preserving order. Records whose tab is somehow already live (forced
// re-restore) are skipped.
func (r *Restorer) materialize(data *domain.WindowData) []*domain.Tab {
	live := make(map[uuid.UUID]struct{})
	for _, id := range r.manager.LiveTabIDs() {
		live[id] = struct{}{}
	}

	adopted := make([]*domain.Tab, 0, len(data.Tabs))
	for _, td := range data.Tabs {
		if _, dup := live[td.ID]; dup {
			r.logger.Debug("skipping already-live tab", "tab_id", td.ID)
			continue
		}
		t, badURL := td.Materialize()
		if badURL != "" {
			r.logger.Warn("unparseable persisted url", "tab_id", td.ID, "url", badURL)
		}
		r.manager.adoptRestored(t)
		adopted = append(adopted, t)
	}
	return adopted
}

// attachScreenshots walks the restored tabs and backfills missing blurhash
// placeholders from the stored screenshots, bounded so a large session
// does not hammer the disk. Failures degrade per tab.
func (r *Restorer) attachScreenshots(ctx context.Context, tabs []*domain.Tab) {
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, t := range tabs {
		tabID, shotID, hasHash := t.ID, t.ScreenshotID, t.ScreenshotBlurHash != ""
		g.Go(func() error {
			if hasHash || !r.shots.Exists(shotID) {
				return nil
			}
			data, err := r.shots.Get(shotID)
			if err != nil {
				r.logger.Debug("screenshot read failed", "tab_id", tabID, "error", err)
				return nil
			}
			hash, err := screenshots.ComputeBlurHash(data)
			if err != nil {
				r.logger.Debug("blurhash compute failed", "tab_id", tabID, "error", err)
				return nil
			}
			r.manager.setBlurHash(tabID, hash)
			return nil
		})
	}
	_ = g.Wait()
}

// ensureStartTab guarantees one selected empty normal tab, for the
// skip-restore mode.
func (r *Restorer) ensureStartTab(ctx context.Context) {
	var id uuid.UUID
	for _, t := range r.manager.NormalTabs() {
		if t.IsEmpty() {
			id = t.ID
			break
		}
	}
	if id == uuid.Nil {
		t, err := r.manager.AddTab(ctx, AddRequest{SuppressPersist: true})
		if err != nil {
			r.logger.Warn("start tab creation failed", "error", err)
			return
		}
		id = t.ID
	}
	if err := r.manager.SelectTab(ctx, id); err != nil {
		r.logger.Warn("start tab select failed", "error", err)
	}
}

// finish flips to Restored, arms the writer, announces completion exactly
// once for this run, and kicks off the orphan sweep.
func (r *Restorer) finish(ctx context.Context, tabCount int, migrated bool) {
	r.mu.Lock()
	r.state = RestoreRestored
	r.mu.Unlock()

	r.manager.finishRestore()
	r.hub.Publish(notify.NewRestoreCompletedEvent(r.manager.WindowID(), tabCount, migrated))
	r.manager.PublishDisplay()
	r.logger.Info("restore completed", "tab_count", tabCount, "migrated", migrated)

	if r.gc != nil {
		r.gc(ctx)
	}
}
