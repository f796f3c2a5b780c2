package sqlite

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	domainerrors "github.com/driftbrowser/drift-core/internal/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "remote.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := New(dbPath, logger)
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	// Verify WAL mode is set.
	var journalMode string
	err := s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	if err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected wal, got %s", journalMode)
	}

	// Verify foreign keys are enabled.
	var fk int
	err = s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	if err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("expected foreign_keys=1, got %d", fk)
	}

	// Verify tables exist.
	tables := []string{"remote_clients", "remote_tabs", "pending_commands"}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestOpen_Idempotent(t *testing.T) {
	s := newTestStore(t)

	// A second Open on a live handle is a no-op.
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("re-open live handle: %v", err)
	}
}

func TestOpenClose(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "remote.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	s := New(dbPath, logger)
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("open store: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	// A fresh handle on the same path works (schema is idempotent).
	s2 := New(dbPath, logger)
	if err := s2.Open(context.Background()); err != nil {
		t.Fatalf("open second handle: %v", err)
	}
	defer s2.Close()
}

func TestUnopenedHandleFailsFast(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	s := New(filepath.Join(t.TempDir(), "remote.db"), logger)
	ctx := context.Background()

	if _, err := s.GetAll(ctx); !errors.Is(err, domainerrors.ErrNotOpen) {
		t.Errorf("GetAll on unopened handle: got %v, want not-open", err)
	}
	if _, err := s.PendingCommands(ctx, "dev"); !errors.Is(err, domainerrors.ErrNotOpen) {
		t.Errorf("PendingCommands on unopened handle: got %v, want not-open", err)
	}
}

func TestClosedHandleFailsFast(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	s := New(filepath.Join(t.TempDir(), "remote.db"), logger)
	ctx := context.Background()

	if err := s.Open(ctx); err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	// Every operation fails fast after Close.
	if _, err := s.GetAll(ctx); !errors.Is(err, domainerrors.ErrNotOpen) {
		t.Errorf("GetAll after close: got %v, want not-open", err)
	}
	if err := s.AddCommand(ctx, "dev", "https://example.com", "close_tab"); !errors.Is(err, domainerrors.ErrNotOpen) {
		t.Errorf("AddCommand after close: got %v, want not-open", err)
	}

	// Close never implicitly reopens.
	if err := s.Open(ctx); !errors.Is(err, domainerrors.ErrNotOpen) {
		t.Errorf("Open after close: got %v, want not-open", err)
	}

	// Double close is a no-op.
	if err := s.Close(); err != nil {
		t.Errorf("double close: %v", err)
	}
}
