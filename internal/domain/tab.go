// Package domain defines the core entities of the tab subsystem: live tabs,
// their persisted projections, window snapshots, undo backups, and the
// remote-tabs model.
package domain

import (
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Tab is one browsing context inside a window. The ID is assigned at
// creation and never changes; it is the sole join key into the session
// store and the screenshot store.
type Tab struct {
	ID         uuid.UUID
	URL        *url.URL // nil until the first navigation
	Title      string
	Private    bool
	Zombie     bool // no live renderer session attached yet
	FaviconURL string
	CreatedAt  time.Time
	LastUsedAt time.Time

	// ScreenshotID usually equals ID but historical profiles may carry a
	// divergent identity; it is preserved as persisted.
	ScreenshotID       uuid.UUID
	ScreenshotBlurHash string

	Group *GroupData
}

// NewTab creates a live tab with a fresh identity. The screenshot identity
// starts out equal to the tab identity.
func NewTab(private bool) *Tab {
	now := time.Now()
	tabID := uuid.New()
	return &Tab{
		ID:           tabID,
		Private:      private,
		CreatedAt:    now,
		LastUsedAt:   now,
		ScreenshotID: tabID,
	}
}

// Touch records that the tab was just used.
func (t *Tab) Touch(now time.Time) {
	t.LastUsedAt = now
}

// HomeURL is the internal start page. A tab sitting on it has no renderer
// session to save or restore.
const HomeURL = "about:home"

// IsEmpty reports whether the tab has never navigated anywhere.
func (t *Tab) IsEmpty() bool {
	return t.URL == nil || t.URL.String() == ""
}

// IsHome reports whether the tab is on the internal start page.
func (t *Tab) IsHome() bool {
	return t.URL != nil && t.URL.String() == HomeURL
}

// DisplayTitle returns the best available display string for the tab.
func (t *Tab) DisplayTitle() string {
	if t.Title != "" {
		return t.Title
	}
	if t.URL != nil && t.URL.Host != "" {
		return t.URL.Host
	}
	if t.Private {
		return "Private Tab"
	}
	return "New Tab"
}

// URLString returns the tab's URL as a string, or "" before first navigation.
func (t *Tab) URLString() string {
	if t.URL == nil {
		return ""
	}
	return t.URL.String()
}

// GroupData carries the search metadata that associates a tab with a
// tab group.
type GroupData struct {
	SearchTerm      string `json:"search_term,omitempty"`
	SearchURL       string `json:"search_url,omitempty"`
	NextReferralURL string `json:"next_referral_url,omitempty"`
}

// Empty reports whether the group carries no metadata at all.
func (g *GroupData) Empty() bool {
	return g == nil || (g.SearchTerm == "" && g.SearchURL == "" && g.NextReferralURL == "")
}

// clone returns a copy, preserving nil.
func (g *GroupData) clone() *GroupData {
	if g == nil {
		return nil
	}
	c := *g
	return &c
}

// TabData is the persisted projection of a Tab. Every TabData belongs to
// exactly one WindowData at a time.
type TabData struct {
	ID                 uuid.UUID  `json:"id"`
	Title              string     `json:"title"`
	URL                string     `json:"url"`
	FaviconURL         string     `json:"favicon_url,omitempty"`
	Private            bool       `json:"is_private"`
	CreatedAt          time.Time  `json:"created_at"`
	LastUsedAt         time.Time  `json:"last_used_at"`
	ScreenshotID       uuid.UUID  `json:"screenshot_id"`
	ScreenshotBlurHash string     `json:"screenshot_blurhash,omitempty"`
	Group              *GroupData `json:"group,omitempty"`
}

// ToTabData projects a live tab into its persisted form.
func ToTabData(t *Tab) TabData {
	return TabData{
		ID:                 t.ID,
		Title:              t.Title,
		URL:                t.URLString(),
		FaviconURL:         t.FaviconURL,
		Private:            t.Private,
		CreatedAt:          t.CreatedAt,
		LastUsedAt:         t.LastUsedAt,
		ScreenshotID:       t.ScreenshotID,
		ScreenshotBlurHash: t.ScreenshotBlurHash,
		Group:              t.Group.clone(),
	}
}

// Materialize reconstructs a live tab from its persisted form. The tab comes
// back as a zombie: no renderer session is attached until it is selected.
// An unparseable URL degrades to a nil URL; the bad value is returned so the
// caller can log it. Identity and timestamps round-trip exactly.
func (d TabData) Materialize() (*Tab, string) {
	t := &Tab{
		ID:                 d.ID,
		Title:              d.Title,
		Private:            d.Private,
		Zombie:             true,
		FaviconURL:         d.FaviconURL,
		CreatedAt:          d.CreatedAt,
		LastUsedAt:         d.LastUsedAt,
		ScreenshotID:       d.ScreenshotID,
		ScreenshotBlurHash: d.ScreenshotBlurHash,
		Group:              d.Group.clone(),
	}
	if d.ScreenshotID == uuid.Nil {
		t.ScreenshotID = d.ID
	}
	if d.URL == "" {
		return t, ""
	}
	u, err := url.Parse(d.URL)
	if err != nil {
		return t, d.URL
	}
	t.URL = u
	return t, ""
}
