package search

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
)

// TabIndex wraps a Bleve index with tab-specific operations.
//
// Thread safety: All public methods are safe for concurrent use.
// The mutex protects against index corruption during rebuild operations.
type TabIndex struct {
	index  bleve.Index
	path   string // empty for in-memory indexes
	logger *slog.Logger
	mu     sync.RWMutex // Protects index operations during rebuild
}

// Options configures the search index.
type Options struct {
	DataPath string       // Directory for index storage
	InMemory bool         // Keep the index in memory, never touching disk
	Logger   *slog.Logger // Logger for operations (uses stderr if nil)
}

// mappingVersion is incremented whenever the index mapping changes.
// This triggers an automatic rebuild on startup when the version doesn't match.
const mappingVersion = "2"

// NewTabIndex creates or opens a search index.
// If an existing index is found, it opens it. Otherwise, creates a new one.
// If the existing index is corrupted or has an outdated mapping, it's removed and recreated.
// With InMemory set the index lives only for the process lifetime, which
// also guarantees nothing searchable outlives the session on disk.
func NewTabIndex(opts Options) (*TabIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	if opts.InMemory {
		index, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create in-memory index: %w", err)
		}
		logger.Info("created in-memory tab index", "mapping_version", mappingVersion)
		return &TabIndex{
			index:  index,
			logger: logger,
		}, nil
	}

	indexPath := filepath.Join(opts.DataPath, "tabs.bleve")
	versionPath := filepath.Join(opts.DataPath, "tabs.version")

	var index bleve.Index
	var err error
	needsRebuild := false

	// Check mapping version - rebuild if version file missing or mismatched
	indexExists := false
	if _, statErr := os.Stat(indexPath); statErr == nil {
		indexExists = true
	}

	if indexExists {
		existingVersion, readErr := os.ReadFile(versionPath)
		if readErr != nil {
			// Version file missing but index exists - this is an old index
			logger.Info("tab index has no version file, will rebuild with current mapping",
				"new_version", mappingVersion,
			)
			needsRebuild = true
		} else if string(existingVersion) != mappingVersion {
			logger.Info("tab index mapping version changed, will rebuild",
				"old_version", string(existingVersion),
				"new_version", mappingVersion,
			)
			needsRebuild = true
		}
	}

	// Try to open existing index (if not forcing rebuild)
	if !needsRebuild && indexExists {
		index, err = bleve.Open(indexPath)
		if err != nil {
			logger.Warn("failed to open existing index, will recreate",
				"path", indexPath,
				"error", err,
			)
			needsRebuild = true
		}
	}

	// Remove old index if rebuild needed
	if needsRebuild {
		if removeErr := os.RemoveAll(indexPath); removeErr != nil {
			return nil, fmt.Errorf("remove old index: %w", removeErr)
		}
		index = nil
	}

	// Create new index if needed
	if index == nil {
		indexMapping := buildIndexMapping()
		index, err = bleve.New(indexPath, indexMapping)
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		// Write version file
		if writeErr := os.WriteFile(versionPath, []byte(mappingVersion), 0644); writeErr != nil {
			logger.Warn("failed to write tab index version file", "error", writeErr)
		}
		logger.Info("created new tab index", "path", indexPath, "mapping_version", mappingVersion)
	} else {
		logger.Info("opened existing tab index", "path", indexPath)
	}

	return &TabIndex{
		index:  index,
		path:   indexPath,
		logger: logger,
	}, nil
}

// Close closes the index and releases resources.
func (s *TabIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexTab indexes a single tab document. A nil document (a private
// tab) is silently skipped.
func (s *TabIndex) IndexTab(doc *TabDocument) error {
	if doc == nil {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	// Convert to map to ensure field names match the mapping (lowercase)
	return s.index.Index(doc.ID, doc.ToMap())
}

// IndexTabs indexes multiple tab documents in a batch.
// This is significantly faster than calling IndexTab in a loop.
// Nil documents are skipped. Large sets are processed in chunks to
// prevent memory pressure when a big remote device list lands at once.
func (s *TabIndex) IndexTabs(docs []*TabDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	const batchSize = 500

	for i := 0; i < len(docs); i += batchSize {
		end := i + batchSize
		if end > len(docs) {
			end = len(docs)
		}
		chunk := docs[i:end]

		batch := s.index.NewBatch()
		for _, doc := range chunk {
			if doc == nil {
				continue
			}
			// Convert to map to ensure field names match the mapping (lowercase)
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}

		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// DeleteTab removes a tab document from the index.
func (s *TabIndex) DeleteTab(id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(id)
}

// DeleteTabs removes multiple tab documents from the index.
func (s *TabIndex) DeleteTabs(ids []string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	batch := s.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}

	return s.index.Batch(batch)
}

// ReplaceRemoteTabs swaps the remote portion of the index for the given
// documents. Each refresh produces a complete remote tab set, so stale
// entries from devices that disappeared are dropped along the way.
func (s *TabIndex) ReplaceRemoteTabs(ctx context.Context, docs []*TabDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	staleIDs, err := s.remoteDocIDs(ctx)
	if err != nil {
		return fmt.Errorf("collect remote documents: %w", err)
	}

	batch := s.index.NewBatch()
	for _, id := range staleIDs {
		batch.Delete(id)
	}
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
			return fmt.Errorf("batch index %s: %w", doc.ID, err)
		}
	}

	return s.index.Batch(batch)
}

// remoteDocIDs pages through the index collecting every remote tab
// document ID. Caller holds at least a read lock.
func (s *TabIndex) remoteDocIDs(ctx context.Context) ([]string, error) {
	const pageSize = 1000

	tq := bleve.NewTermQuery(string(DocTypeRemoteTab))
	tq.SetField("type")

	var ids []string
	for offset := 0; ; offset += pageSize {
		req := bleve.NewSearchRequestOptions(tq, pageSize, offset, false)
		res, err := s.index.SearchInContext(ctx, req)
		if err != nil {
			return nil, err
		}
		for _, hit := range res.Hits {
			ids = append(ids, hit.ID)
		}
		if uint64(offset+len(res.Hits)) >= res.Total || len(res.Hits) == 0 {
			break
		}
	}
	return ids, nil
}

// DocumentCount returns the total number of indexed documents.
func (s *TabIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild drops the existing index and creates a new one.
// Used for full reindex operations when schema changes or corruption occurs.
//
// IMPORTANT: This acquires an exclusive lock and blocks all other operations.
func (s *TabIndex) Rebuild() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Close existing index
	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}

	if s.path == "" {
		// In-memory index: a fresh one is a full rebuild.
		index, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return fmt.Errorf("create in-memory index: %w", err)
		}
		s.index = index
		s.logger.Info("rebuilt in-memory tab index")
		return nil
	}

	// Remove index directory
	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("remove index: %w", err)
	}

	// Create fresh index
	indexMapping := buildIndexMapping()
	index, err := bleve.New(s.path, indexMapping)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	s.index = index
	s.logger.Info("rebuilt tab index", "path", s.path)

	return nil
}
