package service

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/driftbrowser/drift-core/internal/domain"
	"github.com/driftbrowser/drift-core/internal/notify"
	"github.com/driftbrowser/drift-core/internal/search"
)

// RemoveAllTabs closes every tab of one privacy class and captures a batch
// backup for undo. Closing all normal tabs leaves a fresh empty normal tab
// behind; closing all private tabs moves the selection back to normal
// browsing if it was private.
func (m *Manager) RemoveAllTabs(ctx context.Context, private bool) error {
	m.mu.Lock()
	removed := m.classLocked(private)
	if len(removed) == 0 {
		m.mu.Unlock()
		m.logger.Debug("no tabs to close", "private", private)
		return nil
	}
	backup := make([]domain.TabData, 0, len(removed))
	for _, t := range removed {
		backup = append(backup, domain.ToTabData(t))
	}
	m.backup = domain.BatchBackup(backup)
	m.tabs = m.classLocked(!private)

	if m.selectedID != uuid.Nil && m.findLocked(m.selectedID) == nil {
		m.selectedID = uuid.Nil
	}
	var nextID uuid.UUID
	if !private {
		fresh := domain.NewTab(false)
		m.tabs = append(m.tabs, fresh)
		if m.selectedID == uuid.Nil {
			nextID = fresh.ID
		}
	} else if m.selectedID == uuid.Nil {
		if r := m.mostRecentNormalLocked(); r != nil {
			nextID = r.ID
		} else {
			fresh := domain.NewTab(false)
			m.tabs = append(m.tabs, fresh)
			nextID = fresh.ID
		}
	}
	m.mu.Unlock()

	m.cleanupClosed(removed)
	m.logger.Debug("closed all tabs", "private", private, "count", len(removed))
	m.hub.Publish(notify.NewToastRequestedEvent(m.windowID, notify.ToastClosedAll, len(removed), true))

	if nextID != uuid.Nil {
		if err := m.SelectTab(ctx, nextID); err != nil {
			m.logger.Warn("replacement select failed", "tab_id", nextID, "error", err)
		}
	} else {
		m.PublishDisplay()
		m.writer.Notify()
	}
	return nil
}

// UndoCloseAllTabs restores the most recently closed batch in its original
// relative order, with the exact identities it had before removal. The
// placeholder tab synthesized by a normal close-all is dropped again if it
// is still blank.
func (m *Manager) UndoCloseAllTabs(ctx context.Context) error {
	m.mu.Lock()
	batch, ok := m.backup.Batch()
	if !ok || len(batch) == 0 {
		m.mu.Unlock()
		m.logger.Debug("no closed batch to restore")
		return nil
	}
	m.backup = domain.NoBackup()

	if !batch[0].Private {
		m.dropBlankPlaceholderLocked()
	}
	needSelect := m.findLocked(m.selectedID) == nil

	restored, docs := m.restoreBatchLocked(batch)
	var nextID uuid.UUID
	if needSelect {
		nextID = mostRecentOf(restored).ID
	}
	m.mu.Unlock()

	m.indexDocs(docs)
	m.logger.Debug("closed batch restored", "count", len(restored))
	if nextID != uuid.Nil {
		return m.SelectTab(ctx, nextID)
	}
	m.PublishDisplay()
	m.writer.Notify()
	return nil
}

// RemoveAllInactiveTabs closes every inactive normal tab, captures the full
// list for undo, and forces an immediate snapshot write.
func (m *Manager) RemoveAllInactiveTabs(ctx context.Context) error {
	m.mu.Lock()
	_, inactive := m.classifier.Partition(m.classLocked(false), m.now())
	if len(inactive) == 0 {
		m.mu.Unlock()
		m.logger.Debug("no inactive tabs to close")
		return nil
	}
	gone := make(map[uuid.UUID]struct{}, len(inactive))
	backup := make([]domain.TabData, 0, len(inactive))
	for _, t := range inactive {
		gone[t.ID] = struct{}{}
		backup = append(backup, domain.ToTabData(t))
	}
	m.backup = domain.BatchBackup(backup)
	m.tabs = slices.DeleteFunc(m.tabs, func(t *domain.Tab) bool {
		_, ok := gone[t.ID]
		return ok
	})

	if m.selectedID != uuid.Nil && m.findLocked(m.selectedID) == nil {
		m.selectedID = uuid.Nil
	}
	var nextID uuid.UUID
	if m.selectedID == uuid.Nil {
		if r := m.mostRecentNormalLocked(); r != nil {
			nextID = r.ID
		} else {
			fresh := domain.NewTab(false)
			m.tabs = append(m.tabs, fresh)
			nextID = fresh.ID
		}
	}
	m.mu.Unlock()

	m.cleanupClosed(inactive)
	m.logger.Debug("closed inactive tabs", "count", len(inactive))
	m.hub.Publish(notify.NewToastRequestedEvent(m.windowID, notify.ToastClosedAll, len(inactive), true))

	if nextID != uuid.Nil {
		if err := m.SelectTab(ctx, nextID); err != nil {
			m.logger.Warn("replacement select failed", "tab_id", nextID, "error", err)
		}
	} else {
		m.PublishDisplay()
	}
	// Bulk purges write through immediately rather than waiting out the
	// debounce window.
	return m.writer.Flush(ctx)
}

// UndoCloseAllInactiveTabs restores the closed inactive batch at the end of
// the list. Inactive tabs are not position-sensitive, so original slots are
// not reconstructed. The selection does not move.
func (m *Manager) UndoCloseAllInactiveTabs(ctx context.Context) error {
	m.mu.Lock()
	batch, ok := m.backup.Batch()
	if !ok || len(batch) == 0 {
		m.mu.Unlock()
		m.logger.Debug("no closed batch to restore")
		return nil
	}
	m.backup = domain.NoBackup()

	restored, docs := m.restoreBatchLocked(batch)
	var nextID uuid.UUID
	if m.findLocked(m.selectedID) == nil {
		nextID = mostRecentOf(restored).ID
	}
	m.mu.Unlock()

	m.indexDocs(docs)
	m.logger.Debug("inactive batch restored", "count", len(restored))
	if nextID != uuid.Nil {
		return m.SelectTab(ctx, nextID)
	}
	m.PublishDisplay()
	m.writer.Notify()
	return nil
}

// ReorderTabs moves a tab within its privacy-scoped sublist. Indexes are
// positions in that sublist, not in the underlying storage; the relative
// order of the other class never changes. Out-of-range indexes are a
// logged no-op.
func (m *Manager) ReorderTabs(private bool, from, to int) {
	m.mu.Lock()
	positions := make([]int, 0, len(m.tabs))
	for i, t := range m.tabs {
		if t.Private == private {
			positions = append(positions, i)
		}
	}
	if from < 0 || from >= len(positions) || to < 0 || to >= len(positions) {
		m.mu.Unlock()
		m.logger.Debug("reorder out of range ignored",
			"private", private, "from", from, "to", to, "count", len(positions))
		return
	}
	class := make([]*domain.Tab, 0, len(positions))
	for _, pos := range positions {
		class = append(class, m.tabs[pos])
	}
	moved := class[from]
	class = slices.Delete(class, from, from+1)
	class = slices.Insert(class, to, moved)
	for i, pos := range positions {
		m.tabs[pos] = class[i]
	}
	m.mu.Unlock()

	m.logger.Debug("tab reordered", "private", private, "from", from, "to", to)
	m.PublishDisplay()
	m.writer.Notify()
}

// cleanupClosed drops the disk artifacts of closed tabs: screenshots are
// deleted immediately, search entries are removed, and session blobs are
// left for the orphan GC so an undo gets its scroll state back.
func (m *Manager) cleanupClosed(closed []*domain.Tab) {
	ids := make([]uuid.UUID, 0, len(closed))
	for _, t := range closed {
		ids = append(ids, t.ID)
		if err := m.screenshots.Delete(t.ScreenshotID); err != nil {
			m.logger.Warn("screenshot delete failed", "tab_id", t.ID, "error", err)
		}
	}
	m.deindexIDs(ids)
}

// restoreBatchLocked materializes a backup batch at the end of the list in
// original relative order and returns the live tabs plus their search
// documents.
func (m *Manager) restoreBatchLocked(batch []domain.TabData) ([]*domain.Tab, []*search.TabDocument) {
	restored := make([]*domain.Tab, 0, len(batch))
	docs := make([]*search.TabDocument, 0, len(batch))
	for _, td := range batch {
		t, badURL := td.Materialize()
		if badURL != "" {
			m.logger.Warn("unparseable url on restored tab", "tab_id", t.ID, "url", badURL)
		}
		m.tabs = append(m.tabs, t)
		restored = append(restored, t)
		if doc := search.LocalTabDocument(t); doc != nil && doc.URL != "" {
			docs = append(docs, doc)
		}
	}
	return restored, docs
}

// dropBlankPlaceholderLocked removes the placeholder a normal close-all
// left behind, provided it is still the only normal tab and has never
// navigated.
func (m *Manager) dropBlankPlaceholderLocked() {
	normals := m.classLocked(false)
	if len(normals) != 1 || !normals[0].IsEmpty() {
		return
	}
	idx := m.indexOfLocked(normals[0].ID)
	if idx < 0 {
		return
	}
	if m.selectedID == normals[0].ID {
		m.selectedID = uuid.Nil
	}
	m.tabs = slices.Delete(m.tabs, idx, idx+1)
}
