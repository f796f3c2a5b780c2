package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// SaveTabSession stores the opaque session blob for a tab, replacing any
// previous blob. The blob is compressed before it hits disk; session state
// is mostly JSON-shaped text and shrinks well.
func (s *Store) SaveTabSession(_ context.Context, tabID uuid.UUID, blob []byte) error {
	framed, err := compressBlob(blob)
	if err != nil {
		return fmt.Errorf("save tab session %s: %w", tabID, err)
	}

	key := buildKey(sessionPrefix, tabID)
	defer releaseKey(key)

	if err := s.setRaw(key, framed); err != nil {
		return fmt.Errorf("save tab session %s: %w", tabID, err)
	}
	return nil
}

// FetchTabSession reads a tab's session blob. A missing blob returns
// ErrSessionNotFound; a blob that fails to decode is logged and reported as
// ErrCorruptRecord. Callers treat both as "no saved session".
func (s *Store) FetchTabSession(_ context.Context, tabID uuid.UUID) ([]byte, error) {
	key := buildKey(sessionPrefix, tabID)
	defer releaseKey(key)

	framed, err := s.getRaw(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("fetch tab session %s: %w", tabID, err)
	}

	blob, err := decompressBlob(framed)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("discarding corrupt tab session", "tab_id", tabID, "error", err)
		}
		return nil, ErrCorruptRecord.WithCause(err)
	}
	return blob, nil
}

// DeleteTabSession removes a tab's session blob. Deleting a missing blob is
// a no-op.
func (s *Store) DeleteTabSession(_ context.Context, tabID uuid.UUID) error {
	key := buildKey(sessionPrefix, tabID)
	defer releaseKey(key)

	if err := s.delete(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("delete tab session %s: %w", tabID, err)
	}
	return nil
}

// DeleteUnusedTabSessions removes every stored session whose tab id is not
// in keep. Safe to run concurrently with saves for kept tabs: entries in
// keep are never touched, and entries written after the scan simply survive
// until the next pass.
func (s *Store) DeleteUnusedTabSessions(ctx context.Context, keep map[uuid.UUID]struct{}) (int, error) {
	prefix := []byte(sessionPrefix)
	var orphans []uuid.UUID

	// First pass: find orphaned sessions.
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false // We only need keys

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			raw := strings.TrimPrefix(key, sessionPrefix)
			tabID, err := uuid.Parse(raw)
			if err != nil {
				if s.logger != nil {
					s.logger.Warn("skipping malformed session key", "key", key)
				}
				continue
			}
			if _, live := keep[tabID]; live {
				continue
			}
			orphans = append(orphans, tabID)
		}
		return nil
	})

	if err != nil {
		return 0, fmt.Errorf("find orphaned tab sessions: %w", err)
	}

	// Second pass: delete orphans, logging individual failures.
	deleted := 0
	for _, tabID := range orphans {
		if ctx.Err() != nil {
			return deleted, ctx.Err()
		}
		if err := s.DeleteTabSession(ctx, tabID); err != nil {
			if s.logger != nil {
				s.logger.Warn("failed to delete orphaned tab session", "tab_id", tabID, "error", err)
			}
			continue
		}
		deleted++
	}

	return deleted, nil
}

// SessionTabIDs returns the tab identity of every stored session blob.
func (s *Store) SessionTabIDs(_ context.Context) ([]uuid.UUID, error) {
	prefix := []byte(sessionPrefix)
	var ids []uuid.UUID

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			raw := strings.TrimPrefix(string(it.Item().Key()), sessionPrefix)
			id, err := uuid.Parse(raw)
			if err != nil {
				continue
			}
			ids = append(ids, id)
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("list tab sessions: %w", err)
	}
	return ids, nil
}
