package service

import (
	"time"

	"github.com/driftbrowser/drift-core/internal/domain"
)

// DefaultInactiveAfter is how long a normal tab can go unused before the
// tray moves it to the inactive section.
const DefaultInactiveAfter = 14 * 24 * time.Hour

// Classifier partitions tabs into active and inactive. It is injected into
// the manager so the staleness policy can change independently of the tab
// store.
type Classifier interface {
	// Partition splits tabs into (active, inactive), preserving order.
	// Both returned slices are freshly allocated.
	Partition(tabs []*domain.Tab, now time.Time) (active, inactive []*domain.Tab)
}

// ThresholdClassifier marks a normal tab inactive once its last use is
// strictly older than Threshold. Private tabs are never inactive, and a
// tab with a zero timestamp counts as just used.
type ThresholdClassifier struct {
	Threshold time.Duration
}

func (c ThresholdClassifier) Partition(tabs []*domain.Tab, now time.Time) (active, inactive []*domain.Tab) {
	active = make([]*domain.Tab, 0, len(tabs))
	inactive = make([]*domain.Tab, 0)
	for _, t := range tabs {
		if c.isInactive(t, now) {
			inactive = append(inactive, t)
		} else {
			active = append(active, t)
		}
	}
	return active, inactive
}

func (c ThresholdClassifier) isInactive(t *domain.Tab, now time.Time) bool {
	if t.Private || t.LastUsedAt.IsZero() {
		return false
	}
	return now.Sub(t.LastUsedAt) > c.Threshold
}

// DisabledClassifier treats every tab as active, for profiles with the
// inactive-tabs feature switched off.
type DisabledClassifier struct{}

func (DisabledClassifier) Partition(tabs []*domain.Tab, _ time.Time) (active, inactive []*domain.Tab) {
	return append([]*domain.Tab(nil), tabs...), nil
}
