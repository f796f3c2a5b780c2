package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/driftbrowser/drift-core/internal/domain"
	"github.com/driftbrowser/drift-core/internal/id"
)

// commandColumns is the ordered list of columns selected in command queries.
// Must match the scan order in scanCommand.
const commandColumns = `id, device_id, url, kind, created_at`

// scanCommand scans a sql.Row (or sql.Rows via its Scan method) into a domain.PendingCommand.
func scanCommand(scanner interface{ Scan(dest ...any) error }) (*domain.PendingCommand, error) {
	var c domain.PendingCommand
	var createdAt string

	err := scanner.Scan(
		&c.ID,
		&c.DeviceID,
		&c.URL,
		&c.Kind,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	c.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}

	return &c, nil
}

// AddCommand queues a cross-device command. Identity is (device_id, url,
// kind); adding a command that is already pending leaves the existing row
// untouched and is not an error.
func (s *Store) AddCommand(ctx context.Context, deviceID, url string, kind domain.CommandKind) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	rowID, err := id.Generate("cmd")
	if err != nil {
		return fmt.Errorf("generate command id: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO pending_commands (id, device_id, url, kind, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (device_id, url, kind) DO NOTHING`,
		rowID,
		deviceID,
		url,
		string(kind),
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("insert pending_commands: %w", err)
	}
	return nil
}

// RemoveCommand deletes a queued command by its logical identity.
// Removing a command that is not pending is a no-op.
func (s *Store) RemoveCommand(ctx context.Context, deviceID, url string, kind domain.CommandKind) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		DELETE FROM pending_commands
		WHERE device_id = ? AND url = ? AND kind = ?`,
		deviceID,
		url,
		string(kind),
	)
	if err != nil {
		return fmt.Errorf("delete pending_commands: %w", err)
	}
	return nil
}

// PendingCommands returns the queued commands for one device, oldest first.
func (s *Store) PendingCommands(ctx context.Context, deviceID string) ([]domain.PendingCommand, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+commandColumns+` FROM pending_commands WHERE device_id = ? ORDER BY created_at ASC, id ASC`,
		deviceID)
	if err != nil {
		return nil, fmt.Errorf("query pending_commands: %w", err)
	}
	defer rows.Close()

	var commands []domain.PendingCommand
	for rows.Next() {
		cmd, err := scanCommand(rows)
		if err != nil {
			return nil, err
		}
		commands = append(commands, *cmd)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return commands, nil
}

// AllPendingCommands returns every queued command across devices, oldest first.
func (s *Store) AllPendingCommands(ctx context.Context) ([]domain.PendingCommand, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+commandColumns+` FROM pending_commands ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query pending_commands: %w", err)
	}
	defer rows.Close()

	var commands []domain.PendingCommand
	for rows.Next() {
		cmd, err := scanCommand(rows)
		if err != nil {
			return nil, err
		}
		commands = append(commands, *cmd)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return commands, nil
}
