package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/driftbrowser/drift-core/internal/domain"
	"github.com/driftbrowser/drift-core/internal/store"
)

// DefaultDebounceInterval is the settle window for coalescing snapshot
// writes. Rapid mutation bursts, like a restore-adjacent navigation storm,
// collapse into one write.
const DefaultDebounceInterval = 500 * time.Millisecond

// SnapshotWriter funnels every "mutation happened" signal for one window
// into serialized snapshot writes. Notify arms a settle timer and extends
// it while signals keep arriving; Flush writes immediately. Writes for one
// window never interleave; distinct windows write independently.
//
// The writer starts disarmed and ignores signals until Enable, so nothing
// reaches disk while a restore is still populating the window.
type SnapshotWriter struct {
	store    *store.Store
	source   func() *domain.WindowData
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	enabled bool
	closed  bool

	// writeMu serializes the actual writes.
	writeMu sync.Mutex
}

// NewSnapshotWriter creates a disarmed writer. source is called at write
// time so the snapshot always reflects the current state, not the state
// when the signal arrived.
func NewSnapshotWriter(st *store.Store, source func() *domain.WindowData, interval time.Duration, logger *slog.Logger) *SnapshotWriter {
	if interval <= 0 {
		interval = DefaultDebounceInterval
	}
	return &SnapshotWriter{
		store:    st,
		source:   source,
		interval: interval,
		logger:   logger,
	}
}

// Enable arms the writer. Called once restore has finished populating the
// window.
func (w *SnapshotWriter) Enable() {
	w.mu.Lock()
	w.enabled = true
	w.mu.Unlock()
}

// Notify signals that a mutation happened. The write runs once signals
// stop arriving for a settle interval.
func (w *SnapshotWriter) Notify() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.enabled || w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.interval, w.settle)
}

// Flush cancels any pending timer and writes the snapshot before
// returning. Used on app backgrounding and after bulk purges. A disarmed
// or closed writer flushes nothing.
func (w *SnapshotWriter) Flush(ctx context.Context) error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	ready := w.enabled && !w.closed
	w.mu.Unlock()
	if !ready {
		return nil
	}
	return w.write(ctx)
}

// Close stops the writer. A pending debounced write is dropped; callers
// that need it should Flush first. Waits for an in-flight write to finish.
func (w *SnapshotWriter) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	// Wait out any in-flight write before returning.
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
}

func (w *SnapshotWriter) settle() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.timer = nil
	w.mu.Unlock()

	if err := w.write(context.Background()); err != nil {
		w.logger.Warn("debounced snapshot write failed", "error", err)
	}
}

func (w *SnapshotWriter) write(ctx context.Context) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	data := w.source()
	if err := w.store.SaveWindow(ctx, data); err != nil {
		return fmt.Errorf("save window snapshot: %w", err)
	}
	w.logger.Debug("window snapshot written", "tab_count", len(data.Tabs))
	return nil
}
