package notify

import (
	"context"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/driftbrowser/drift-core/internal/id"
)

// Observer represents a registered event observer.
type Observer struct {
	RegisteredAt time.Time
	EventChan    chan Event
	Done         chan struct{}
	ID           string
	// WindowID filters delivery. Window-scoped events are only
	// delivered when they match; uuid.Nil means "receive all".
	WindowID uuid.UUID
}

// Hub fans events out to registered observers.
type Hub struct {
	observers map[string]*Observer
	events    chan Event
	logger    *slog.Logger
	wg        sync.WaitGroup
	mu        sync.RWMutex

	// Shutdown state - protected by shutdownMu
	shutdownMu sync.RWMutex
	shutdown   bool
}

// NewHub creates a new event Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		observers: make(map[string]*Observer),
		events:    make(chan Event, 256), // Buffer 256 events
		logger:    logger,
	}
}

// Start begins the event delivery loop.
// This should be called once at startup in a goroutine.
func (h *Hub) Start(ctx context.Context) {
	h.wg.Add(1)
	defer h.wg.Done()

	h.logger.Debug("event hub starting")

	for {
		select {
		case event := <-h.events:
			h.deliver(event)

		case <-ctx.Done():
			h.logger.Debug("event hub stopping")
			h.closeAllObservers()
			return
		}
	}
}

// Shutdown gracefully shuts down the hub.
// It stops accepting new events, drains remaining events, and closes all
// observers.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.logger.Debug("event hub shutdown initiated")

	// Mark as shutdown AND close channel atomically while holding lock.
	// This prevents a race with Publish() which holds the read lock
	// during send.
	h.shutdownMu.Lock()
	h.shutdown = true
	close(h.events)
	h.shutdownMu.Unlock()

	// Drain remaining events with context timeout.
	done := make(chan struct{})
	go func() {
		for event := range h.events {
			h.deliver(event)
		}
		close(done)
	}()

	select {
	case <-done:
		h.logger.Debug("event hub drained")
	case <-ctx.Done():
		h.logger.Warn("event hub drain timeout, some events may be lost")
	}

	// Wait for the delivery goroutine to exit.
	h.wg.Wait()

	h.logger.Debug("event hub shutdown complete")
	return nil
}

// deliver sends an event to registered observers, filtered by window.
func (h *Hub) deliver(event Event) {
	var delivered, dropped, filtered int

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, obs := range h.observers {
		// Window-scoped events only reach observers of that window.
		// Unscoped observers (WindowID == uuid.Nil) receive everything.
		if event.WindowID != uuid.Nil && obs.WindowID != uuid.Nil && event.WindowID != obs.WindowID {
			filtered++
			continue
		}

		// Non-blocking send (drop if observer is slow/stuck).
		select {
		case obs.EventChan <- event:
			delivered++
		default:
			dropped++
			h.logger.Warn("dropped event for slow observer",
				slog.String("observer_id", obs.ID),
				slog.String("event_type", string(event.Type)))
		}
	}

	h.logger.Debug("event delivered",
		slog.String("event_type", string(event.Type)),
		slog.Group("stats",
			slog.Int("delivered", delivered),
			slog.Int("filtered", filtered),
			slog.Int("dropped", dropped)))
}

// Register adds an observer and returns it. windowID scopes which
// window-bound events the observer receives; pass uuid.Nil to observe
// every window.
func (h *Hub) Register(windowID uuid.UUID) (*Observer, error) {
	observerID, err := id.Generate("obs")
	if err != nil {
		return nil, err
	}

	obs := &Observer{
		ID:           observerID,
		WindowID:     windowID,
		EventChan:    make(chan Event, 64), // Buffer 64 events per observer
		Done:         make(chan struct{}),
		RegisteredAt: time.Now(),
	}

	h.mu.Lock()
	h.observers[obs.ID] = obs
	total := len(h.observers)
	h.mu.Unlock()

	h.logger.Debug("observer registered",
		slog.String("observer_id", observerID),
		slog.String("window_id", windowID.String()),
		slog.Int("total_observers", total))
	return obs, nil
}

// Unregister removes an observer and closes its channels.
func (h *Hub) Unregister(observerID string) {
	h.mu.Lock()
	obs, ok := h.observers[observerID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.observers, observerID)
	total := len(h.observers)
	h.mu.Unlock()

	close(obs.Done)
	close(obs.EventChan)

	h.logger.Debug("observer unregistered",
		slog.String("observer_id", observerID),
		slog.Duration("duration", time.Since(obs.RegisteredAt)),
		slog.Int("total_observers", total))
}

// Publish queues an event for delivery to observers.
func (h *Hub) Publish(event Event) {
	// Hold the read lock through the entire send operation.
	// This prevents a race with Shutdown() which holds the write lock
	// when closing the channel.
	h.shutdownMu.RLock()
	defer h.shutdownMu.RUnlock()

	if h.shutdown {
		// Silently drop events after shutdown - expected during teardown
		return
	}

	select {
	case h.events <- event:
		// Event queued for delivery.
	default:
		// Event channel full, log and drop. Should rarely happen with
		// a 256-event buffer; may occur during restore of very large
		// sessions when every tab add publishes a display change.
		h.logger.Error("event channel full, dropping event",
			slog.String("event_type", string(event.Type)))
	}
}

// Observers returns an iterator over all registered observers.
func (h *Hub) Observers() iter.Seq[*Observer] {
	return func(yield func(*Observer) bool) {
		h.mu.RLock()
		defer h.mu.RUnlock()

		for _, obs := range h.observers {
			if !yield(obs) {
				return
			}
		}
	}
}

// ObserverCount returns the number of registered observers.
func (h *Hub) ObserverCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.observers)
}

// closeAllObservers closes all observer channels (used during shutdown).
func (h *Hub) closeAllObservers() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, obs := range h.observers {
		close(obs.Done)
		close(obs.EventChan)
	}
	h.observers = make(map[string]*Observer) // Clear the map

	h.logger.Debug("all observers closed")
}
