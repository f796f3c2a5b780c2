package store

import (
	"context"
	"encoding/json/v2"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLegacyArchive(t *testing.T, archive legacyArchive) string {
	t.Helper()

	raw, err := json.Marshal(archive)
	require.NoError(t, err)
	frame, err := compressBlob(raw)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "sessionstore.jsonlz4")
	require.NoError(t, os.WriteFile(path, frame, 0o644))
	return path
}

func TestImportLegacyArchive(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	now := time.Now()
	path := writeLegacyArchive(t, legacyArchive{
		Version:       1,
		SelectedIndex: 1,
		Tabs: []legacyTab{
			{
				URL:          "https://example.org/",
				Title:        "Example",
				LastAccessed: now.Add(-2 * time.Hour).UnixMilli(),
				CreatedAt:    now.Add(-48 * time.Hour).UnixMilli(),
				Image:        "https://example.org/favicon.ico",
				Group: &legacyGroup{
					SearchTerm: "example domain",
					SearchURL:  "https://search.example.com/?q=example+domain",
				},
			},
			{
				URL:          "https://news.example.com/story",
				Title:        "A Story",
				LastAccessed: now.UnixMilli(),
				Group:        &legacyGroup{},
			},
			{
				URL:       "https://secret.example.net/",
				Title:     "Secret",
				IsPrivate: true,
			},
		},
	})

	windowID := uuid.New()
	data, err := store.ImportLegacyArchive(context.Background(), path, windowID)
	require.NoError(t, err)

	require.Len(t, data.Tabs, 3)
	assert.Equal(t, windowID, data.ID)

	// Tabs get fresh identities; the screenshot key follows the tab.
	seen := make(map[uuid.UUID]bool)
	for _, td := range data.Tabs {
		assert.NotEqual(t, uuid.Nil, td.ID)
		assert.False(t, seen[td.ID], "tab IDs must be unique")
		seen[td.ID] = true
		assert.Equal(t, td.ID, td.ScreenshotID)
	}

	assert.Equal(t, "Example", data.Tabs[0].Title)
	assert.Equal(t, "https://example.org/", data.Tabs[0].URL)
	assert.Equal(t, "https://example.org/favicon.ico", data.Tabs[0].FaviconURL)
	assert.Equal(t, now.Add(-48*time.Hour).UnixMilli(), data.Tabs[0].CreatedAt.UnixMilli())
	assert.Equal(t, now.Add(-2*time.Hour).UnixMilli(), data.Tabs[0].LastUsedAt.UnixMilli())

	require.NotNil(t, data.Tabs[0].Group)
	assert.Equal(t, "example domain", data.Tabs[0].Group.SearchTerm)
	assert.Equal(t, "https://search.example.com/?q=example+domain", data.Tabs[0].Group.SearchURL)

	// Missing createdAt falls back to lastAccessed.
	assert.Equal(t, data.Tabs[1].LastUsedAt, data.Tabs[1].CreatedAt)

	// A group object with no content is dropped.
	assert.Nil(t, data.Tabs[1].Group)

	assert.True(t, data.Tabs[2].Private)

	// Selected index maps onto the migrated tab's identity.
	assert.Equal(t, data.Tabs[1].ID, data.ActiveTabID)

	// The snapshot is persisted, not just returned.
	stored, err := store.FetchWindow(context.Background(), windowID)
	require.NoError(t, err)
	assert.Equal(t, data.ActiveTabID, stored.ActiveTabID)
	require.Len(t, stored.Tabs, 3)
	assert.Equal(t, data.Tabs[0].ID, stored.Tabs[0].ID)
}

func TestImportLegacyArchive_SelectedIndexOutOfRange(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	path := writeLegacyArchive(t, legacyArchive{
		Version:       1,
		SelectedIndex: 7,
		Tabs: []legacyTab{
			{URL: "https://example.org/", Title: "Only", LastAccessed: time.Now().UnixMilli()},
		},
	})

	data, err := store.ImportLegacyArchive(context.Background(), path, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, data.ActiveTabID)
}

func TestImportLegacyArchive_EmptyArchive(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	path := writeLegacyArchive(t, legacyArchive{Version: 1, SelectedIndex: -1})

	windowID := uuid.New()
	data, err := store.ImportLegacyArchive(context.Background(), path, windowID)
	require.NoError(t, err)
	assert.Empty(t, data.Tabs)
	assert.Equal(t, uuid.Nil, data.ActiveTabID)
}

func TestImportLegacyArchive_MissingFile(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	path := filepath.Join(t.TempDir(), "no-such-archive.jsonlz4")
	_, err := store.ImportLegacyArchive(context.Background(), path, uuid.New())
	assert.ErrorIs(t, err, ErrWindowNotFound)
}

func TestImportLegacyArchive_CorruptFrame(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	path := filepath.Join(t.TempDir(), "sessionstore.jsonlz4")
	require.NoError(t, os.WriteFile(path, []byte("not a session archive"), 0o644))

	_, err := store.ImportLegacyArchive(context.Background(), path, uuid.New())
	assert.ErrorIs(t, err, ErrCorruptRecord)
}

func TestImportLegacyArchive_CorruptJSON(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	frame, err := compressBlob([]byte(`{"version": 1, "tabs": [`))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "sessionstore.jsonlz4")
	require.NoError(t, os.WriteFile(path, frame, 0o644))

	_, err = store.ImportLegacyArchive(context.Background(), path, uuid.New())
	assert.ErrorIs(t, err, ErrCorruptRecord)
}
