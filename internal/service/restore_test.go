package service

import (
	"context"
	"encoding/binary"
	"encoding/json/v2"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftbrowser/drift-core/internal/domain"
	"github.com/driftbrowser/drift-core/internal/media/screenshots"
	"github.com/driftbrowser/drift-core/internal/notify"
	"github.com/driftbrowser/drift-core/internal/store"
)

func setupTestRestore(t *testing.T, opts RestoreOptions) (*Restorer, *Manager, *store.Store, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "restore-test-*")
	require.NoError(t, err)

	logger := slog.New(slog.DiscardHandler)
	testStore, err := store.New(filepath.Join(tmpDir, "tabs"), logger)
	require.NoError(t, err)

	shots, err := screenshots.NewStore(tmpDir, logger)
	require.NoError(t, err)

	hub := notify.NewHub(logger)
	m := NewManager(uuid.New(), testStore, shots, nil, NoopSessionHost{}, hub, nil, time.Hour, logger)
	r := NewRestorer(m, testStore, shots, hub, opts, nil, logger)

	cleanup := func() {
		m.Close()
		testStore.Close()
		os.RemoveAll(tmpDir)
	}

	return r, m, testStore, cleanup
}

// persistedTabData builds a TabData record the way the snapshot writer
// would have saved it.
func persistedTabData(rawURL, title string, private bool, lastUsed time.Time) domain.TabData {
	id := uuid.New()
	return domain.TabData{
		ID:           id,
		Title:        title,
		URL:          rawURL,
		Private:      private,
		CreatedAt:    lastUsed.Add(-time.Hour),
		LastUsedAt:   lastUsed,
		ScreenshotID: id,
	}
}

// writeLegacyFixture writes a mozlz4-framed legacy session archive.
func writeLegacyFixture(t *testing.T, dir string, selectedIndex int, tabs []map[string]any) string {
	t.Helper()

	raw, err := json.Marshal(map[string]any{
		"version":       1,
		"selectedIndex": selectedIndex,
		"tabs":          tabs,
	})
	require.NoError(t, err)

	var c lz4.Compressor
	compressed := make([]byte, lz4.CompressBlockBound(len(raw)))
	n, err := c.CompressBlock(raw, compressed)
	require.NoError(t, err)
	require.NotZero(t, n)

	frame := append([]byte("mozLz40\x00"), 0, 0, 0, 0)
	binary.LittleEndian.PutUint32(frame[8:], uint32(len(raw)))
	frame = append(frame, compressed[:n]...)

	path := filepath.Join(dir, "sessionstore.jsonlz4")
	require.NoError(t, os.WriteFile(path, frame, 0o644))
	return path
}

func TestRestore_FreshStart(t *testing.T) {
	r, m, _, cleanup := setupTestRestore(t, RestoreOptions{})
	defer cleanup()

	require.NoError(t, r.Restore(context.Background(), false))

	assert.Equal(t, RestoreRestored, r.State())
	require.Equal(t, 1, m.Count())
	sel := m.SelectedTab()
	require.NotNil(t, sel)
	assert.True(t, sel.IsEmpty())
	assert.False(t, sel.Private)
}

func TestRestore_SkipsWhenTabsAlreadyLoaded(t *testing.T) {
	r, m, _, cleanup := setupTestRestore(t, RestoreOptions{})
	defer cleanup()

	existing := addTestTab(t, m, "https://already.example", false)

	require.NoError(t, r.Restore(context.Background(), false))

	require.Equal(t, 1, m.Count())
	assert.Equal(t, existing.ID, m.Tabs()[0].ID)
}

func TestRestore_RoundTrip(t *testing.T) {
	r, m, testStore, cleanup := setupTestRestore(t, RestoreOptions{})
	defer cleanup()

	ctx := context.Background()
	now := time.Now()
	t1 := persistedTabData("https://one.example", "One", false, now.Add(-3*time.Hour))
	t2 := persistedTabData("https://two.example", "Two", false, now.Add(-time.Hour))
	t3 := persistedTabData("https://three.example", "Three", false, now.Add(-2*time.Hour))
	data := domain.NewWindowData(m.WindowID(), t2.ID, []domain.TabData{t1, t2, t3})
	require.NoError(t, testStore.SaveWindow(ctx, data))

	require.NoError(t, r.Restore(ctx, false))

	assert.Equal(t, RestoreRestored, r.State())
	tabs := m.Tabs()
	require.Len(t, tabs, 3)
	assert.Equal(t, t1.ID, tabs[0].ID)
	assert.Equal(t, t2.ID, tabs[1].ID)
	assert.Equal(t, t3.ID, tabs[2].ID)
	assert.Equal(t, "One", tabs[0].Title)
	assert.Equal(t, "https://one.example", tabs[0].URLString())
	assert.Equal(t, t1.LastUsedAt.UnixMilli(), tabs[0].LastUsedAt.UnixMilli())

	// The persisted selection comes back; selecting materialized it, the
	// rest stay dormant.
	require.NotNil(t, m.SelectedTab())
	assert.Equal(t, t2.ID, m.SelectedTab().ID)
	assert.True(t, tabs[0].Zombie)
	assert.False(t, tabs[1].Zombie)
	assert.True(t, tabs[2].Zombie)
}

func TestRestore_MissingActiveTabSelectsFirstNormal(t *testing.T) {
	r, m, testStore, cleanup := setupTestRestore(t, RestoreOptions{})
	defer cleanup()

	ctx := context.Background()
	t1 := persistedTabData("https://one.example", "One", false, time.Now())
	data := domain.NewWindowData(m.WindowID(), uuid.New(), []domain.TabData{t1})
	require.NoError(t, testStore.SaveWindow(ctx, data))

	require.NoError(t, r.Restore(ctx, false))

	require.NotNil(t, m.SelectedTab())
	assert.Equal(t, t1.ID, m.SelectedTab().ID)
}

func TestRestore_OnlyPrivatePersistedMeansFreshStart(t *testing.T) {
	r, m, testStore, cleanup := setupTestRestore(t, RestoreOptions{})
	defer cleanup()

	ctx := context.Background()
	p := persistedTabData("https://secret.example", "Secret", true, time.Now())
	data := domain.NewWindowData(m.WindowID(), p.ID, []domain.TabData{p})
	require.NoError(t, testStore.SaveWindow(ctx, data))

	require.NoError(t, r.Restore(ctx, false))

	// No non-private tabs persisted: the window starts over.
	require.Equal(t, 1, m.Count())
	assert.True(t, m.SelectedTab().IsEmpty())
	assert.Equal(t, 0, m.PrivateCount())
}

func TestRestore_SkipRestoreMode(t *testing.T) {
	r, m, testStore, cleanup := setupTestRestore(t, RestoreOptions{SkipRestore: true})
	defer cleanup()

	ctx := context.Background()
	t1 := persistedTabData("https://ignored.example", "Ignored", false, time.Now())
	require.NoError(t, testStore.SaveWindow(ctx, domain.NewWindowData(m.WindowID(), t1.ID, []domain.TabData{t1})))

	require.NoError(t, r.Restore(ctx, false))

	// Persisted data is ignored entirely.
	assert.Equal(t, RestoreRestored, r.State())
	require.Equal(t, 1, m.Count())
	assert.True(t, m.SelectedTab().IsEmpty())
}

func TestRestore_LegacyMigration(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "legacy-archive-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	now := time.Now()
	archivePath := writeLegacyFixture(t, tmpDir, 1, []map[string]any{
		{"url": "https://old-one.example", "title": "Old One", "lastAccessed": now.Add(-24 * time.Hour).UnixMilli()},
		{"url": "https://old-two.example", "title": "Old Two", "lastAccessed": now.UnixMilli()},
		{"url": "https://old-secret.example", "title": "Old Secret", "lastAccessed": now.UnixMilli(), "isPrivate": true},
	})

	r, m, testStore, cleanup := setupTestRestore(t, RestoreOptions{
		NeedsMigration:    true,
		LegacyArchivePath: archivePath,
	})
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, r.Restore(ctx, false))

	assert.Equal(t, RestoreRestored, r.State())
	require.Equal(t, 3, m.Count())
	assert.Equal(t, 1, m.PrivateCount())
	require.Len(t, m.NormalTabs(), 2)
	assert.Equal(t, "Old One", m.NormalTabs()[0].Title)
	assert.Equal(t, "https://old-one.example", m.NormalTabs()[0].URLString())

	// selectedIndex 1 maps onto the second migrated tab.
	require.NotNil(t, m.SelectedTab())
	assert.Equal(t, "Old Two", m.SelectedTab().Title)

	// Migration persists the converted snapshot for the next launch.
	persisted, err := testStore.FetchWindow(ctx, m.WindowID())
	require.NoError(t, err)
	assert.Len(t, persisted.Tabs, 3)
}

func TestRestore_MissingLegacyArchiveFallsBackToFreshStart(t *testing.T) {
	r, m, _, cleanup := setupTestRestore(t, RestoreOptions{
		NeedsMigration:    true,
		LegacyArchivePath: "/nonexistent/sessionstore.jsonlz4",
	})
	defer cleanup()

	require.NoError(t, r.Restore(context.Background(), false))

	assert.Equal(t, RestoreRestored, r.State())
	require.Equal(t, 1, m.Count())
	assert.True(t, m.SelectedTab().IsEmpty())
}

func TestRestore_PublishesCompletionEvent(t *testing.T) {
	r, m, testStore, cleanup := setupTestRestore(t, RestoreOptions{})
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.hub.Start(ctx)
	obs, err := m.hub.Register(m.WindowID())
	require.NoError(t, err)
	defer m.hub.Unregister(obs.ID)

	t1 := persistedTabData("https://one.example", "One", false, time.Now())
	t2 := persistedTabData("https://two.example", "Two", false, time.Now())
	require.NoError(t, testStore.SaveWindow(ctx, domain.NewWindowData(m.WindowID(), t1.ID, []domain.TabData{t1, t2})))

	require.NoError(t, r.Restore(ctx, false))

	ev := waitForEvent(t, obs, notify.EventRestoreCompleted)
	data, ok := ev.Data.(notify.RestoreCompletedData)
	require.True(t, ok)
	assert.Equal(t, 2, data.TabCount)
	assert.False(t, data.Migrated)
}

func TestRestore_SelectionDuringRestoreIsFlagged(t *testing.T) {
	r, m, testStore, cleanup := setupTestRestore(t, RestoreOptions{})
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.hub.Start(ctx)
	obs, err := m.hub.Register(m.WindowID())
	require.NoError(t, err)
	defer m.hub.Unregister(obs.ID)

	t1 := persistedTabData("https://one.example", "One", false, time.Now())
	require.NoError(t, testStore.SaveWindow(ctx, domain.NewWindowData(m.WindowID(), t1.ID, []domain.TabData{t1})))

	require.NoError(t, r.Restore(ctx, false))

	ev := waitForEvent(t, obs, notify.EventSelectionChanged)
	data, ok := ev.Data.(notify.SelectionChangedData)
	require.True(t, ok)
	assert.Equal(t, t1.ID, data.TabID)
	assert.True(t, data.Restoring)
}

func TestRestore_ForceReloadsWithoutDuplicates(t *testing.T) {
	r, m, testStore, cleanup := setupTestRestore(t, RestoreOptions{})
	defer cleanup()

	ctx := context.Background()
	t1 := persistedTabData("https://one.example", "One", false, time.Now())
	require.NoError(t, testStore.SaveWindow(ctx, domain.NewWindowData(m.WindowID(), t1.ID, []domain.TabData{t1})))

	require.NoError(t, r.Restore(ctx, false))
	require.Equal(t, 1, m.Count())

	// A forced re-restore skips records whose tab is already live.
	require.NoError(t, r.Restore(ctx, true))
	assert.Equal(t, 1, m.Count())
}

func TestRestore_BackfillsBlurHashFromScreenshots(t *testing.T) {
	r, m, testStore, cleanup := setupTestRestore(t, RestoreOptions{})
	defer cleanup()

	ctx := context.Background()
	t1 := persistedTabData("https://one.example", "One", false, time.Now())
	require.NoError(t, m.screenshots.Save(t1.ScreenshotID, tinyPNG(t)))
	require.NoError(t, testStore.SaveWindow(ctx, domain.NewWindowData(m.WindowID(), t1.ID, []domain.TabData{t1})))

	require.NoError(t, r.Restore(ctx, false))

	require.Equal(t, 1, m.Count())
	assert.NotEmpty(t, m.Tabs()[0].ScreenshotBlurHash)
}

func TestRestoreState_String(t *testing.T) {
	assert.Equal(t, "idle", RestoreIdle.String())
	assert.Equal(t, "restoring", RestoreRestoring.String())
	assert.Equal(t, "restored", RestoreRestored.String())
}
