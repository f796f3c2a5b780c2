// Package screenshots provides filesystem storage for tab screenshots.
package screenshots

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Store manages screenshot files on disk, keyed by screenshot ID.
// A tab usually shares its screenshot key with its own ID, but restored
// tabs may carry a key minted by an earlier identity. Thread-safe.
type Store struct {
	basePath string
	logger   *slog.Logger
	mu       sync.RWMutex // Protects file operations
}

// NewStore creates a screenshot store under {basePath}/screenshots/.
// basePath should be the profile directory.
func NewStore(basePath string, logger *slog.Logger) (*Store, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}

	storagePath := filepath.Join(basePath, "screenshots")
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create screenshots directory: %w", err)
	}

	return &Store{
		basePath: storagePath,
		logger:   logger,
	}, nil
}

// Save stores encoded screenshot data for a screenshot ID.
// The write goes through a temp file and rename so a crash mid-write
// never leaves a truncated screenshot behind.
func (s *Store) Save(id uuid.UUID, data []byte) error {
	if id == uuid.Nil {
		return fmt.Errorf("screenshot ID cannot be empty")
	}
	if len(data) == 0 {
		return fmt.Errorf("screenshot data cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(id)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write screenshot file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to finalize screenshot file: %w", err)
	}

	return nil
}

// Get retrieves screenshot data for a screenshot ID.
func (s *Store) Get(id uuid.UUID) ([]byte, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("screenshot ID cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.Path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("screenshot not found for %s: %w", id, err)
		}
		return nil, fmt.Errorf("failed to read screenshot file: %w", err)
	}

	return data, nil
}

// Exists checks if a screenshot exists for a screenshot ID.
func (s *Store) Exists(id uuid.UUID) bool {
	if id == uuid.Nil {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.Path(id))
	return err == nil
}

// Delete removes a screenshot. Deleting a missing screenshot is not an
// error.
func (s *Store) Delete(id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("screenshot ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.Path(id)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete screenshot file: %w", err)
	}

	return nil
}

// ClearAllExcluding removes every screenshot whose ID is not in keep.
// Screenshot IDs referenced by live tabs are never removed. Files that
// fail to delete are logged and skipped so one bad file does not stall
// the sweep. Returns the number of screenshots removed.
func (s *Store) ClearAllExcluding(ctx context.Context, keep map[uuid.UUID]struct{}) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return 0, fmt.Errorf("failed to list screenshots directory: %w", err)
	}

	deleted := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		stem, ok := strings.CutSuffix(name, ".png")
		if !ok {
			// Leftover temp files from interrupted writes are fair game.
			if strings.HasSuffix(name, ".tmp") {
				if err := os.Remove(filepath.Join(s.basePath, name)); err == nil {
					deleted++
				}
			}
			continue
		}

		id, err := uuid.Parse(stem)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("skipping screenshot with unparseable name", "file", name)
			}
			continue
		}
		if _, keepIt := keep[id]; keepIt {
			continue
		}

		if err := os.Remove(filepath.Join(s.basePath, name)); err != nil {
			if s.logger != nil {
				s.logger.Warn("failed to delete orphaned screenshot", "id", id, "error", err)
			}
			continue
		}
		deleted++
	}

	return deleted, nil
}

// Path returns the full filesystem path for a screenshot ID.
func (s *Store) Path(id uuid.UUID) string {
	return filepath.Join(s.basePath, fmt.Sprintf("%s.png", id))
}
