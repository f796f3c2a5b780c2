// Package service implements the tab subsystem's business logic: the tab
// manager, restore engine, inactive classifier, snapshot writer, remote
// tabs service, and the window registry that ties them together.
package service

import (
	"context"
	"log/slog"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/driftbrowser/drift-core/internal/domain"
	domainerrors "github.com/driftbrowser/drift-core/internal/errors"
	"github.com/driftbrowser/drift-core/internal/media/screenshots"
	"github.com/driftbrowser/drift-core/internal/notify"
	"github.com/driftbrowser/drift-core/internal/search"
	"github.com/driftbrowser/drift-core/internal/store"
)

// SessionHost is the renderer collaborator. The core never looks inside
// session blobs; capture and attach are the whole contract.
type SessionHost interface {
	// CaptureSession serializes the live renderer state of a tab.
	// A nil blob with a nil error means the tab has nothing to save.
	CaptureSession(ctx context.Context, tabID uuid.UUID) ([]byte, error)
	// AttachSession materializes a renderer for a tab from a previously
	// captured blob. A nil blob asks for a fresh session.
	AttachSession(ctx context.Context, tabID uuid.UUID, blob []byte) error
}

// NoopSessionHost is the host used when no renderer is wired in, such as
// in tests and in the seed/inspect CLIs.
type NoopSessionHost struct{}

func (NoopSessionHost) CaptureSession(context.Context, uuid.UUID) ([]byte, error) { return nil, nil }
func (NoopSessionHost) AttachSession(context.Context, uuid.UUID, []byte) error    { return nil }

// AddRequest describes a tab to create.
type AddRequest struct {
	// URLString is the initial URL; empty creates a blank tab.
	URLString string
	Private   bool
	// Zombie defers renderer creation until the tab is first selected.
	Zombie bool
	// SuppressPersist skips the write-back trigger, used for batch
	// inserts during restore.
	SuppressPersist bool
	Group           *domain.GroupData
}

// TabManager is the capability set of the tab store. One concrete
// implementation exists; the interface is what the shell programs against.
type TabManager interface {
	AddTab(ctx context.Context, req AddRequest) (*domain.Tab, error)
	SelectTab(ctx context.Context, id uuid.UUID) error
	RemoveTab(ctx context.Context, id uuid.UUID) (bool, error)
	UndoCloseTab(ctx context.Context) error
	RemoveAllTabs(ctx context.Context, private bool) error
	UndoCloseAllTabs(ctx context.Context) error
	RemoveAllInactiveTabs(ctx context.Context) error
	UndoCloseAllInactiveTabs(ctx context.Context) error
	ReorderTabs(private bool, from, to int)
	RecordNavigation(ctx context.Context, id uuid.UUID, rawURL, title string)
	SetScreenshot(ctx context.Context, id uuid.UUID, data []byte) error

	Tabs() []*domain.Tab
	NormalTabs() []*domain.Tab
	PrivateTabs() []*domain.Tab
	NormalActiveTabs() []*domain.Tab
	InactiveTabs() []*domain.Tab
	SelectedTab() *domain.Tab
	Count() int
	PrivateCount() int
	InactiveCount() int

	PublishDisplay()
	SetActivePanel(panel domain.PanelKind)
}

// Manager owns the live tab list of one window. A single mutex guards the
// list; every mutation runs under it, so the manager is the one logical
// writer. Observers only ever receive value snapshots.
type Manager struct {
	windowID    uuid.UUID
	store       *store.Store
	screenshots *screenshots.Store
	classifier  Classifier
	host        SessionHost
	hub         *notify.Hub
	index       *search.TabIndex
	writer      *SnapshotWriter
	logger      *slog.Logger
	now         func() time.Time

	mu         sync.Mutex
	tabs       []*domain.Tab
	selectedID uuid.UUID
	panel      domain.PanelKind
	backup     domain.UndoBackup

	// selectGen stamps each select; async completions re-check it and
	// drop themselves when superseded.
	selectGen uint64
	restoring bool
}

var _ TabManager = (*Manager)(nil)

// NewManager creates the tab manager for one window. The search index may
// be nil when tab search is disabled; a nil classifier disables inactive
// classification and a nil host disables renderer sessions.
func NewManager(
	windowID uuid.UUID,
	st *store.Store,
	shots *screenshots.Store,
	classifier Classifier,
	host SessionHost,
	hub *notify.Hub,
	index *search.TabIndex,
	debounce time.Duration,
	logger *slog.Logger,
) *Manager {
	if classifier == nil {
		classifier = DisabledClassifier{}
	}
	if host == nil {
		host = NoopSessionHost{}
	}
	m := &Manager{
		windowID:    windowID,
		store:       st,
		screenshots: shots,
		classifier:  classifier,
		host:        host,
		hub:         hub,
		index:       index,
		logger:      logger.With("window_id", windowID),
		now:         time.Now,
		panel:       domain.PanelNormal,
		backup:      domain.NoBackup(),
	}
	m.writer = NewSnapshotWriter(st, m.Snapshot, debounce, m.logger)
	return m
}

// WindowID returns the identity of the window this manager owns.
func (m *Manager) WindowID() uuid.UUID {
	return m.windowID
}

// Writer returns the snapshot writer so callers can force a flush on app
// backgrounding and stop it on shutdown.
func (m *Manager) Writer() *SnapshotWriter {
	return m.writer
}

// AddTab creates a tab and appends it after the last tab of the same
// privacy class.
func (m *Manager) AddTab(ctx context.Context, req AddRequest) (*domain.Tab, error) {
	t := domain.NewTab(req.Private)
	t.Zombie = req.Zombie
	t.Group = req.Group
	if req.URLString != "" {
		u, err := url.Parse(req.URLString)
		if err != nil {
			m.logger.Warn("unparseable url on new tab", "url", req.URLString, "error", err)
		} else {
			t.URL = u
		}
	}
	doc := search.LocalTabDocument(t)

	m.mu.Lock()
	m.insertAfterClassLocked(t)
	m.mu.Unlock()

	if doc != nil && doc.URL != "" {
		m.indexDoc(doc)
	}
	m.logger.Debug("tab added", "tab_id", t.ID, "private", t.Private, "zombie", t.Zombie)
	if !req.SuppressPersist {
		m.PublishDisplay()
		m.writer.Notify()
	}
	return t, nil
}

// SelectTab changes the selected tab. The outgoing tab's session is
// captured and persisted before the selection flips; the incoming tab's
// renderer is materialized lazily from its saved blob. Rapid successive
// selects converge: superseded completions drop themselves, so stale
// session data is never attached to the wrong tab.
func (m *Manager) SelectTab(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	if m.findLocked(id) == nil {
		m.mu.Unlock()
		m.logger.Debug("select of unknown tab ignored", "tab_id", id)
		return nil
	}
	if m.selectedID == id {
		if t := m.findLocked(id); t != nil {
			t.Touch(m.now())
		}
		m.mu.Unlock()
		m.PublishDisplay()
		m.writer.Notify()
		return nil
	}
	m.selectGen++
	gen := m.selectGen
	previousID := m.selectedID
	restoring := m.restoring
	var captureID uuid.UUID
	if prev := m.findLocked(previousID); prev != nil && !prev.Zombie && !prev.IsHome() {
		captureID = prev.ID
	}
	m.mu.Unlock()

	if captureID != uuid.Nil {
		blob, err := m.host.CaptureSession(ctx, captureID)
		switch {
		case err != nil:
			m.logger.Warn("session capture failed", "tab_id", captureID, "error", err)
		case len(blob) > 0 && m.currentGen() == gen:
			if err := m.store.SaveTabSession(ctx, captureID, blob); err != nil {
				m.logger.Warn("session save failed", "tab_id", captureID, "error", err)
			}
		}
	}

	m.mu.Lock()
	if m.selectGen != gen {
		m.mu.Unlock()
		return nil
	}
	t := m.findLocked(id)
	if t == nil {
		m.mu.Unlock()
		m.logger.Debug("tab removed before select completed", "tab_id", id)
		return nil
	}
	m.selectedID = id
	t.Touch(m.now())
	needAttach := t.Zombie && !t.IsHome()
	isPrivate := t.Private
	m.mu.Unlock()

	if needAttach {
		var blob []byte
		b, err := m.store.FetchTabSession(ctx, id)
		switch {
		case err == nil:
			blob = b
		case domainerrors.Is(err, domainerrors.ErrNotFound), domainerrors.Is(err, domainerrors.ErrCorrupt):
			m.logger.Debug("no saved session for tab", "tab_id", id)
		default:
			m.logger.Warn("session fetch failed", "tab_id", id, "error", err)
		}
		if m.currentGen() == gen {
			if err := m.host.AttachSession(ctx, id, blob); err != nil {
				m.logger.Warn("session attach failed", "tab_id", id, "error", err)
			} else {
				m.mu.Lock()
				if live := m.findLocked(id); live != nil {
					live.Zombie = false
				}
				m.mu.Unlock()
			}
		}
	}

	m.hub.Publish(notify.NewSelectionChangedEvent(m.windowID, id, previousID, isPrivate, restoring))
	m.PublishDisplay()
	m.writer.Notify()
	return nil
}

// RemoveTab removes a tab and reports whether it was the last of its
// privacy class. When the removed tab was selected, the replacement is
// chosen deterministically: the next tab of the same class in list order,
// else the previous one, else the most recently used normal tab, else a
// fresh empty normal tab. Closing the last private tab additionally fires
// the panel-dismiss signal. Unknown ids are a logged no-op.
func (m *Manager) RemoveTab(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	idx := m.indexOfLocked(id)
	if idx < 0 {
		m.mu.Unlock()
		m.logger.Debug("remove of unknown tab ignored", "tab_id", id)
		return false, nil
	}
	t := m.tabs[idx]
	wasSelected := m.selectedID == id
	private := t.Private
	shotID := t.ScreenshotID
	m.backup = domain.SingleBackup(domain.ToTabData(t), idx, wasSelected)
	m.tabs = slices.Delete(m.tabs, idx, idx+1)
	wasLast := m.countClassLocked(private) == 0

	var nextID uuid.UUID
	if wasSelected {
		m.selectedID = uuid.Nil
		switch {
		case !wasLast:
			nextID = m.replacementLocked(idx, private).ID
		case !private:
			fresh := domain.NewTab(false)
			m.tabs = append(m.tabs, fresh)
			nextID = fresh.ID
		default:
			// Last private tab closed: fall back to normal browsing.
			if r := m.mostRecentNormalLocked(); r != nil {
				nextID = r.ID
			} else {
				fresh := domain.NewTab(false)
				m.tabs = append(m.tabs, fresh)
				nextID = fresh.ID
			}
		}
	}
	m.mu.Unlock()

	if err := m.screenshots.Delete(shotID); err != nil {
		m.logger.Warn("screenshot delete failed", "tab_id", id, "error", err)
	}
	m.deindexIDs([]uuid.UUID{id})
	m.logger.Debug("tab removed", "tab_id", id, "private", private, "last_of_kind", wasLast)

	if wasLast && private {
		m.hub.Publish(notify.NewPanelDismissEvent(m.windowID, domain.PanelPrivate))
	}
	m.hub.Publish(notify.NewToastRequestedEvent(m.windowID, notify.ToastClosedTab, 1, true))

	if nextID != uuid.Nil {
		if err := m.SelectTab(ctx, nextID); err != nil {
			m.logger.Warn("replacement select failed", "tab_id", nextID, "error", err)
		}
	} else {
		m.PublishDisplay()
		m.writer.Notify()
	}
	return wasLast, nil
}

// UndoCloseTab restores the most recently closed single tab at its
// original position, reselecting it if it was selected when closed. The
// session blob survives the close, so scroll state comes back with it.
func (m *Manager) UndoCloseTab(ctx context.Context) error {
	m.mu.Lock()
	single, ok := m.backup.Single()
	if !ok {
		m.mu.Unlock()
		m.logger.Debug("no closed tab to restore")
		return nil
	}
	m.backup = domain.NoBackup()
	t, badURL := single.Tab.Materialize()
	if badURL != "" {
		m.logger.Warn("unparseable url on restored tab", "tab_id", t.ID, "url", badURL)
	}
	idx := min(max(single.Index, 0), len(m.tabs))
	m.tabs = slices.Insert(m.tabs, idx, t)
	doc := search.LocalTabDocument(t)
	m.mu.Unlock()

	if doc != nil && doc.URL != "" {
		m.indexDoc(doc)
	}
	m.logger.Debug("closed tab restored", "tab_id", t.ID, "index", idx)
	if single.WasSelected {
		return m.SelectTab(ctx, t.ID)
	}
	m.PublishDisplay()
	m.writer.Notify()
	return nil
}

// RecordNavigation updates a tab after the renderer commits a navigation:
// URL, title, last-used time, and the search index entry. An unparseable
// URL keeps the previous one. Unknown ids are a logged no-op.
func (m *Manager) RecordNavigation(ctx context.Context, id uuid.UUID, rawURL, title string) {
	var parsed *url.URL
	if rawURL != "" {
		u, err := url.Parse(rawURL)
		if err != nil {
			m.logger.Warn("unparseable navigation url", "tab_id", id, "url", rawURL, "error", err)
		} else {
			parsed = u
		}
	}

	m.mu.Lock()
	t := m.findLocked(id)
	if t == nil {
		m.mu.Unlock()
		m.logger.Debug("navigation for unknown tab ignored", "tab_id", id)
		return
	}
	if parsed != nil {
		t.URL = parsed
	}
	if title != "" {
		t.Title = title
	}
	t.Zombie = false
	t.Touch(m.now())
	doc := search.LocalTabDocument(t)
	m.mu.Unlock()

	if doc != nil && doc.URL != "" {
		m.indexDoc(doc)
	}
	m.PublishDisplay()
	m.writer.Notify()
}

// SetScreenshot stores a fresh screenshot for a tab and recomputes its
// blurhash placeholder. Unknown ids are a logged no-op.
func (m *Manager) SetScreenshot(ctx context.Context, id uuid.UUID, data []byte) error {
	m.mu.Lock()
	t := m.findLocked(id)
	if t == nil {
		m.mu.Unlock()
		m.logger.Debug("screenshot for unknown tab ignored", "tab_id", id)
		return nil
	}
	shotID := t.ScreenshotID
	m.mu.Unlock()

	if err := m.screenshots.Save(shotID, data); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "save screenshot")
	}
	hash, err := screenshots.ComputeBlurHash(data)
	if err != nil {
		m.logger.Debug("blurhash skipped", "tab_id", id, "error", err)
	} else {
		m.mu.Lock()
		if live := m.findLocked(id); live != nil {
			live.ScreenshotBlurHash = hash
		}
		m.mu.Unlock()
	}
	m.writer.Notify()
	return nil
}

// Tabs returns every tab in list order.
func (m *Manager) Tabs() []*domain.Tab {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.tabs)
}

// NormalTabs returns the non-private tabs in list order.
func (m *Manager) NormalTabs() []*domain.Tab {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.classLocked(false)
}

// PrivateTabs returns the private tabs in list order.
func (m *Manager) PrivateTabs() []*domain.Tab {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.classLocked(true)
}

// NormalActiveTabs returns the normal tabs minus the inactive ones.
func (m *Manager) NormalActiveTabs() []*domain.Tab {
	m.mu.Lock()
	defer m.mu.Unlock()
	active, _ := m.classifier.Partition(m.classLocked(false), m.now())
	return active
}

// InactiveTabs returns the normal tabs classified inactive.
func (m *Manager) InactiveTabs() []*domain.Tab {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, inactive := m.classifier.Partition(m.classLocked(false), m.now())
	return inactive
}

// SelectedTab returns the selected tab, or nil when nothing is selected.
func (m *Manager) SelectedTab() *domain.Tab {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findLocked(m.selectedID)
}

// Count returns the total number of tabs, private included.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tabs)
}

// PrivateCount returns the number of private tabs.
func (m *Manager) PrivateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countClassLocked(true)
}

// InactiveCount returns the number of inactive normal tabs.
func (m *Manager) InactiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, inactive := m.classifier.Partition(m.classLocked(false), m.now())
	return len(inactive)
}

// PublishDisplay rebuilds the display snapshot for the current panel and
// emits it on the hub.
func (m *Manager) PublishDisplay() {
	m.mu.Lock()
	snap := m.snapshotDisplayLocked()
	m.mu.Unlock()
	m.hub.Publish(notify.NewDisplayChangedEvent(snap))
}

// SetActivePanel records which tray panel the user is looking at and
// publishes a snapshot for it.
func (m *Manager) SetActivePanel(panel domain.PanelKind) {
	m.mu.Lock()
	m.panel = panel
	m.mu.Unlock()
	m.PublishDisplay()
}

// Snapshot projects the window for persistence. Private tabs never reach
// disk; a private selection is persisted as no selection.
func (m *Manager) Snapshot() *domain.WindowData {
	m.mu.Lock()
	defer m.mu.Unlock()
	tabs := make([]domain.TabData, 0, len(m.tabs))
	for _, t := range m.tabs {
		if t.Private {
			continue
		}
		tabs = append(tabs, domain.ToTabData(t))
	}
	active := uuid.Nil
	if sel := m.findLocked(m.selectedID); sel != nil && !sel.Private {
		active = sel.ID
	}
	return domain.NewWindowData(m.windowID, active, tabs)
}

// LiveTabIDs returns the identity of every live tab, for the session GC
// keep-set.
func (m *Manager) LiveTabIDs() []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(m.tabs))
	for _, t := range m.tabs {
		ids = append(ids, t.ID)
	}
	return ids
}

// LiveScreenshotIDs returns the screenshot identity of every live tab,
// for the screenshot GC keep-set. Screenshot identities can diverge from
// tab identities in restored profiles.
func (m *Manager) LiveScreenshotIDs() []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(m.tabs))
	for _, t := range m.tabs {
		ids = append(ids, t.ScreenshotID)
	}
	return ids
}

// Flush forces any pending window snapshot to disk immediately.
func (m *Manager) Flush(ctx context.Context) error {
	return m.writer.Flush(ctx)
}

// Close stops the snapshot writer. The manager itself holds no other
// resources.
func (m *Manager) Close() {
	m.writer.Close()
}

// beginRestore marks the manager as restoring; selection notifications
// carry the flag until finishRestore.
func (m *Manager) beginRestore() {
	m.mu.Lock()
	m.restoring = true
	m.mu.Unlock()
}

// finishRestore clears the restoring flag and arms the snapshot writer.
// No write-back happens before this point.
func (m *Manager) finishRestore() {
	m.mu.Lock()
	m.restoring = false
	m.mu.Unlock()
	m.writer.Enable()
}

// adoptRestored appends a materialized tab during restore, preserving
// persisted order exactly.
func (m *Manager) adoptRestored(t *domain.Tab) {
	m.mu.Lock()
	m.tabs = append(m.tabs, t)
	m.mu.Unlock()
}

func (m *Manager) currentGen() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selectGen
}

func (m *Manager) hasTab(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findLocked(id) != nil
}

func (m *Manager) setBlurHash(id uuid.UUID, hash string) {
	m.mu.Lock()
	if t := m.findLocked(id); t != nil {
		t.ScreenshotBlurHash = hash
	}
	m.mu.Unlock()
}

func (m *Manager) snapshotDisplayLocked() *domain.DisplaySnapshot {
	normal := m.classLocked(false)
	active, inactive := m.classifier.Partition(normal, m.now())
	snap := &domain.DisplaySnapshot{
		WindowID:      m.windowID,
		Panel:         m.panel,
		SelectedID:    m.selectedID,
		NormalCount:   len(active),
		PrivateCount:  m.countClassLocked(true),
		InactiveCount: len(inactive),
	}
	switch m.panel {
	case domain.PanelPrivate:
		snap.Tabs = toTabDataSlice(m.classLocked(true))
	case domain.PanelRemote:
		// Remote tab content flows through the remote service; the
		// snapshot only carries local counts.
	default:
		snap.Tabs = toTabDataSlice(active)
		snap.InactiveTabs = toTabDataSlice(inactive)
	}
	return snap
}

func (m *Manager) findLocked(id uuid.UUID) *domain.Tab {
	if id == uuid.Nil {
		return nil
	}
	for _, t := range m.tabs {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (m *Manager) indexOfLocked(id uuid.UUID) int {
	for i, t := range m.tabs {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (m *Manager) classLocked(private bool) []*domain.Tab {
	out := make([]*domain.Tab, 0, len(m.tabs))
	for _, t := range m.tabs {
		if t.Private == private {
			out = append(out, t)
		}
	}
	return out
}

func (m *Manager) countClassLocked(private bool) int {
	n := 0
	for _, t := range m.tabs {
		if t.Private == private {
			n++
		}
	}
	return n
}

// insertAfterClassLocked places a tab directly after the last tab of its
// privacy class, or at the end of the list when the class is empty.
func (m *Manager) insertAfterClassLocked(t *domain.Tab) {
	for i := len(m.tabs) - 1; i >= 0; i-- {
		if m.tabs[i].Private == t.Private {
			m.tabs = slices.Insert(m.tabs, i+1, t)
			return
		}
	}
	m.tabs = append(m.tabs, t)
}

// replacementLocked picks the replacement selection after the tab at
// removedIdx was deleted: the next tab of the class in list order, else
// the nearest preceding one. Returns nil when the class is empty.
func (m *Manager) replacementLocked(removedIdx int, private bool) *domain.Tab {
	for i := removedIdx; i < len(m.tabs); i++ {
		if m.tabs[i].Private == private {
			return m.tabs[i]
		}
	}
	for i := min(removedIdx, len(m.tabs)) - 1; i >= 0; i-- {
		if m.tabs[i].Private == private {
			return m.tabs[i]
		}
	}
	return nil
}

func (m *Manager) mostRecentNormalLocked() *domain.Tab {
	var best *domain.Tab
	for _, t := range m.tabs {
		if t.Private {
			continue
		}
		if best == nil || t.LastUsedAt.After(best.LastUsedAt) {
			best = t
		}
	}
	return best
}

func (m *Manager) indexDoc(doc *search.TabDocument) {
	if m.index == nil {
		return
	}
	if err := m.index.IndexTab(doc); err != nil {
		m.logger.Warn("index tab failed", "doc_id", doc.ID, "error", err)
	}
}

func (m *Manager) indexDocs(docs []*search.TabDocument) {
	if m.index == nil || len(docs) == 0 {
		return
	}
	if err := m.index.IndexTabs(docs); err != nil {
		m.logger.Warn("index tab batch failed", "count", len(docs), "error", err)
	}
}

func (m *Manager) deindexIDs(ids []uuid.UUID) {
	if m.index == nil {
		return
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, id.String())
	}
	if err := m.index.DeleteTabs(keys); err != nil {
		m.logger.Warn("deindex tabs failed", "count", len(ids), "error", err)
	}
}

func toTabDataSlice(tabs []*domain.Tab) []domain.TabData {
	out := make([]domain.TabData, 0, len(tabs))
	for _, t := range tabs {
		out = append(out, domain.ToTabData(t))
	}
	return out
}

func mostRecentOf(tabs []*domain.Tab) *domain.Tab {
	var best *domain.Tab
	for _, t := range tabs {
		if best == nil || t.LastUsedAt.After(best.LastUsedAt) {
			best = t
		}
	}
	return best
}
