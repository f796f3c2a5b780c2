package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/driftbrowser/drift-core/internal/domain"
)

// clientColumns is the ordered list of columns selected in client queries.
// Must match the scan order in scanClient.
const clientColumns = `device_id, name, device_type, last_accessed`

// scanClient scans a sql.Row (or sql.Rows via its Scan method) into a domain.RemoteClient.
func scanClient(scanner interface{ Scan(dest ...any) error }) (*domain.RemoteClient, error) {
	var c domain.RemoteClient
	var lastAccessed string

	err := scanner.Scan(
		&c.DeviceID,
		&c.Name,
		&c.DeviceType,
		&lastAccessed,
	)
	if err != nil {
		return nil, err
	}

	c.LastAccessed, err = parseTime(lastAccessed)
	if err != nil {
		return nil, err
	}

	return &c, nil
}

// tabColumns is the ordered list of columns selected in tab queries.
// Must match the scan order in scanTab.
const tabColumns = `client_device_id, position, title, url, icon, last_used`

// scanTab scans one remote tab row, returning the owning device id alongside it.
func scanTab(scanner interface{ Scan(dest ...any) error }) (string, domain.RemoteTab, error) {
	var (
		deviceID string
		position int
		tab      domain.RemoteTab
		icon     sql.NullString
		lastUsed string
	)

	err := scanner.Scan(
		&deviceID,
		&position,
		&tab.Title,
		&tab.URL,
		&icon,
		&lastUsed,
	)
	if err != nil {
		return "", domain.RemoteTab{}, err
	}

	if icon.Valid {
		tab.Icon = icon.String
	}
	tab.LastUsed, err = parseTime(lastUsed)
	if err != nil {
		return "", domain.RemoteTab{}, err
	}

	return deviceID, tab, nil
}

// SetClientTabs replaces a client's tab snapshot in a single transaction.
// The client row is upserted, existing tabs are deleted, and the new set is
// inserted in order. Returns the number of tabs written.
func (s *Store) SetClientTabs(ctx context.Context, client domain.RemoteClient, tabs []domain.RemoteTab) (int, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO remote_clients (device_id, name, device_type, last_accessed)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (device_id) DO UPDATE SET
			name = excluded.name,
			device_type = excluded.device_type,
			last_accessed = excluded.last_accessed`,
		client.DeviceID,
		client.Name,
		client.DeviceType,
		formatTime(client.LastAccessed),
	)
	if err != nil {
		return 0, fmt.Errorf("upsert remote_clients: %w", err)
	}

	// Replace the tab snapshot.
	if _, err := tx.ExecContext(ctx, `DELETE FROM remote_tabs WHERE client_device_id = ?`, client.DeviceID); err != nil {
		return 0, fmt.Errorf("delete remote_tabs: %w", err)
	}

	for i, tab := range tabs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO remote_tabs (client_device_id, position, title, url, icon, last_used)
			VALUES (?, ?, ?, ?, ?, ?)`,
			client.DeviceID,
			i,
			tab.Title,
			tab.URL,
			nullString(tab.Icon),
			formatTime(tab.LastUsed),
		)
		if err != nil {
			return 0, fmt.Errorf("insert remote_tabs: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(tabs), nil
}

// GetAll reconstructs every known client with its tabs. Clients are ordered
// most recently accessed first, tabs by their stored position.
func (s *Store) GetAll(ctx context.Context) ([]domain.ClientAndTabs, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+clientColumns+` FROM remote_clients ORDER BY last_accessed DESC, device_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query remote_clients: %w", err)
	}
	defer rows.Close()

	var result []domain.ClientAndTabs
	index := make(map[string]int)
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		index[client.DeviceID] = len(result)
		result = append(result, domain.ClientAndTabs{Client: *client})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tabRows, err := db.QueryContext(ctx,
		`SELECT `+tabColumns+` FROM remote_tabs ORDER BY client_device_id ASC, position ASC`)
	if err != nil {
		return nil, fmt.Errorf("query remote_tabs: %w", err)
	}
	defer tabRows.Close()

	for tabRows.Next() {
		deviceID, tab, err := scanTab(tabRows)
		if err != nil {
			return nil, err
		}
		i, ok := index[deviceID]
		if !ok {
			continue
		}
		result[i].Tabs = append(result[i].Tabs, tab)
	}
	if err := tabRows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// DeleteClient removes a client and, via the FK cascade, its tabs.
// Deleting an unknown client is a no-op.
func (s *Store) DeleteClient(ctx context.Context, deviceID string) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM remote_clients WHERE device_id = ?`, deviceID); err != nil {
		return fmt.Errorf("delete remote_clients: %w", err)
	}
	return nil
}
