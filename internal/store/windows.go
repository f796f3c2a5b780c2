package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/driftbrowser/drift-core/internal/domain"
)

// SaveWindow persists a window snapshot, replacing any previous one for the
// same window. The snapshot is written whole; there are no partial-record
// updates.
func (s *Store) SaveWindow(_ context.Context, data *domain.WindowData) error {
	if data == nil || data.ID == uuid.Nil {
		return fmt.Errorf("save window: missing window id")
	}

	key := buildKey(windowPrefix, data.ID)
	defer releaseKey(key)

	if err := s.set(key, data); err != nil {
		return fmt.Errorf("save window %s: %w", data.ID, err)
	}
	return nil
}

// FetchWindow reads the last persisted snapshot for a window. A missing
// record returns ErrWindowNotFound. A record that fails to decode is logged
// and reported as ErrCorruptRecord; callers treat both as "no data".
func (s *Store) FetchWindow(_ context.Context, windowID uuid.UUID) (*domain.WindowData, error) {
	key := buildKey(windowPrefix, windowID)
	defer releaseKey(key)

	raw, err := s.getRaw(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrWindowNotFound
		}
		return nil, fmt.Errorf("fetch window %s: %w", windowID, err)
	}

	var data domain.WindowData
	if err := json.Unmarshal(raw, &data); err != nil {
		if s.logger != nil {
			s.logger.Warn("discarding corrupt window snapshot", "window_id", windowID, "error", err)
		}
		return nil, ErrCorruptRecord.WithCause(err)
	}
	return &data, nil
}

// DeleteWindow removes a window snapshot. Deleting a missing window is a
// no-op.
func (s *Store) DeleteWindow(_ context.Context, windowID uuid.UUID) error {
	key := buildKey(windowPrefix, windowID)
	defer releaseKey(key)

	if err := s.delete(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("delete window %s: %w", windowID, err)
	}
	return nil
}

// ListWindowIDs returns the identity of every persisted window.
func (s *Store) ListWindowIDs(_ context.Context) ([]uuid.UUID, error) {
	prefix := []byte(windowPrefix)
	var ids []uuid.UUID

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false // We only need keys

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			raw := strings.TrimPrefix(key, windowPrefix)
			id, err := uuid.Parse(raw)
			if err != nil {
				if s.logger != nil {
					s.logger.Warn("skipping malformed window key", "key", key)
				}
				continue
			}
			ids = append(ids, id)
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}
	return ids, nil
}
