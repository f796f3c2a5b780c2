package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// setupTestStore creates a temporary store for testing
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	// Create temp directory for test database
	tmpDir, err := os.MkdirTemp("", "drift-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "tabs.db")

	store, err := New(dbPath, nil)
	require.NoError(t, err)
	require.NotNil(t, store)

	// Return cleanup function
	cleanup := func() {
		store.Close()
		os.RemoveAll(tmpDir)
	}

	return store, cleanup
}

func TestNew_ReopenKeepsSchema(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "drift-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "tabs.db")

	store, err := New(dbPath, nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening against the stamped schema must succeed.
	store, err = New(dbPath, nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())
}
