package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateDevice_MintsOnce(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	dev, err := store.GetOrCreateDevice(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dev.DeviceID, "device-"))
	assert.False(t, dev.CreatedAt.IsZero())

	again, err := store.GetOrCreateDevice(ctx)
	require.NoError(t, err)
	assert.Equal(t, dev.DeviceID, again.DeviceID)
}

func TestGetOrCreateDevice_SurvivesReopen(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "drift-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "tabs.db")
	ctx := context.Background()

	store, err := New(dbPath, nil)
	require.NoError(t, err)
	dev, err := store.GetOrCreateDevice(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = New(dbPath, nil)
	require.NoError(t, err)
	defer store.Close()

	reopened, err := store.GetOrCreateDevice(ctx)
	require.NoError(t, err)
	assert.Equal(t, dev.DeviceID, reopened.DeviceID)
	assert.Equal(t, dev.CreatedAt.UnixMilli(), reopened.CreatedAt.UnixMilli())
}
