package sqlite

import (
	"context"
	"testing"

	"github.com/driftbrowser/drift-core/internal/domain"
)

func TestAddAndListCommands(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AddCommand(ctx, "device-1", "https://example.com/article", domain.CommandCloseTab); err != nil {
		t.Fatalf("AddCommand: %v", err)
	}
	if err := s.AddCommand(ctx, "device-1", "https://example.com/other", domain.CommandCloseTab); err != nil {
		t.Fatalf("AddCommand: %v", err)
	}
	if err := s.AddCommand(ctx, "device-2", "https://example.com/article", domain.CommandCloseTab); err != nil {
		t.Fatalf("AddCommand: %v", err)
	}

	cmds, err := s.PendingCommands(ctx, "device-1")
	if err != nil {
		t.Fatalf("PendingCommands: %v", err)
	}
	if len(cmds) != 2 {
		t.Fatalf("device-1 commands: got %d, want 2", len(cmds))
	}
	for _, cmd := range cmds {
		if cmd.DeviceID != "device-1" {
			t.Errorf("DeviceID: got %q, want device-1", cmd.DeviceID)
		}
		if cmd.Kind != domain.CommandCloseTab {
			t.Errorf("Kind: got %q, want %q", cmd.Kind, domain.CommandCloseTab)
		}
		if cmd.ID == "" {
			t.Error("ID should be assigned")
		}
		if cmd.CreatedAt.IsZero() {
			t.Error("CreatedAt should be set")
		}
	}

	all, err := s.AllPendingCommands(ctx)
	if err != nil {
		t.Fatalf("AllPendingCommands: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all commands: got %d, want 3", len(all))
	}
}

func TestAddCommand_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// The same logical identity twice leaves exactly one row.
	if err := s.AddCommand(ctx, "device-1", "https://example.com/article", domain.CommandCloseTab); err != nil {
		t.Fatalf("first AddCommand: %v", err)
	}
	if err := s.AddCommand(ctx, "device-1", "https://example.com/article", domain.CommandCloseTab); err != nil {
		t.Fatalf("duplicate AddCommand: %v", err)
	}

	cmds, err := s.PendingCommands(ctx, "device-1")
	if err != nil {
		t.Fatalf("PendingCommands: %v", err)
	}
	if len(cmds) != 1 {
		t.Fatalf("commands: got %d, want 1", len(cmds))
	}

	// The surviving row is the original.
	first := cmds[0]
	if err := s.AddCommand(ctx, "device-1", "https://example.com/article", domain.CommandCloseTab); err != nil {
		t.Fatalf("third AddCommand: %v", err)
	}
	cmds, err = s.PendingCommands(ctx, "device-1")
	if err != nil {
		t.Fatalf("PendingCommands: %v", err)
	}
	if len(cmds) != 1 {
		t.Fatalf("commands after third add: got %d, want 1", len(cmds))
	}
	if cmds[0].ID != first.ID {
		t.Errorf("row replaced: got id %q, want %q", cmds[0].ID, first.ID)
	}
}

func TestRemoveCommand(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AddCommand(ctx, "device-1", "https://example.com/article", domain.CommandCloseTab); err != nil {
		t.Fatalf("AddCommand: %v", err)
	}

	if err := s.RemoveCommand(ctx, "device-1", "https://example.com/article", domain.CommandCloseTab); err != nil {
		t.Fatalf("RemoveCommand: %v", err)
	}

	cmds, err := s.PendingCommands(ctx, "device-1")
	if err != nil {
		t.Fatalf("PendingCommands: %v", err)
	}
	if len(cmds) != 0 {
		t.Errorf("commands: got %d, want 0", len(cmds))
	}

	// Removing a command that is not pending is a no-op.
	if err := s.RemoveCommand(ctx, "device-1", "https://example.com/article", domain.CommandCloseTab); err != nil {
		t.Errorf("RemoveCommand missing: %v", err)
	}
}

func TestPendingCommands_EmptyDevice(t *testing.T) {
	s := newTestStore(t)

	cmds, err := s.PendingCommands(context.Background(), "device-never-seen")
	if err != nil {
		t.Fatalf("PendingCommands: %v", err)
	}
	if len(cmds) != 0 {
		t.Errorf("commands: got %d, want 0", len(cmds))
	}
}
