// Package search provides full-text search over open and remote tabs
// using Bleve. Local and remote tabs share one index with type
// discrimination so the awesomebar can query both in a single pass.
package search

import (
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/driftbrowser/drift-core/internal/domain"
)

// DocType represents the type of document in the unified index.
type DocType string

// Document types for the search index.
const (
	DocTypeLocalTab  DocType = "local_tab"
	DocTypeRemoteTab DocType = "remote_tab"
)

// TabDocument is the unified document structure for the Bleve index.
//
// Titles are indexed twice: once raw for stemmed English matching and
// once ASCII-folded so "cafe" finds "Café". The folded field is derived
// here rather than through a custom analyzer to keep the mapping plain.
type TabDocument struct {
	// Identity
	ID   string  `json:"id"`   // Tab UUID, or device|url for remote tabs
	Type DocType `json:"type"` // Discriminator for result grouping

	Title       string `json:"title"`
	TitleFolded string `json:"title_folded"`
	URL         string `json:"url,omitempty"`
	Host        string `json:"host,omitempty"`

	// Remote-tab fields (empty for local tabs)
	DeviceName string `json:"device_name,omitempty"`

	// For recency sorting
	LastUsedAt int64 `json:"last_used_at"` // Unix millis
}

// ToMap converts the document to a map with lowercase field names.
// This ensures field names match the Bleve index mapping.
// Bleve by default uses Go struct field names (capitalized), but our
// mapping uses lowercase names, so we convert explicitly.
func (d *TabDocument) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":           d.ID,
		"type":         string(d.Type),
		"title":        d.Title,
		"title_folded": d.TitleFolded,
		"last_used_at": d.LastUsedAt,
	}

	// Optional fields - only add if non-empty
	if d.URL != "" {
		m["url"] = d.URL
	}
	if d.Host != "" {
		m["host"] = d.Host
	}
	if d.DeviceName != "" {
		m["device_name"] = d.DeviceName
	}

	return m
}

// Fold strips diacritics and non-ASCII runes and lowercases.
// "Café Münchén" -> "cafe munchen".
func Fold(s string) string {
	// Normalize unicode (decompose accented characters).
	s = norm.NFKD.String(s)

	// Remove non-ASCII characters.
	s = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)

	return strings.ToLower(s)
}

// LocalTabDocument converts an open tab to a TabDocument.
// Private tabs are never indexed; the conversion returns nil for them
// and the index treats nil as a no-op, so privacy holds even if a
// caller forgets its own filter.
func LocalTabDocument(tab *domain.Tab) *TabDocument {
	if tab == nil || tab.Private {
		return nil
	}

	doc := &TabDocument{
		ID:          tab.ID.String(),
		Type:        DocTypeLocalTab,
		Title:       tab.Title,
		TitleFolded: Fold(tab.Title),
		LastUsedAt:  tab.LastUsedAt.UnixMilli(),
	}
	if tab.URL != nil {
		doc.URL = tab.URL.String()
		doc.Host = tab.URL.Host
	}
	return doc
}

// RemoteTabDocument converts a synced tab from another device.
func RemoteTabDocument(deviceID, deviceName string, tab domain.RemoteTab) *TabDocument {
	return &TabDocument{
		ID:          "remote|" + deviceID + "|" + tab.URL,
		Type:        DocTypeRemoteTab,
		Title:       tab.Title,
		TitleFolded: Fold(tab.Title),
		URL:         tab.URL,
		Host:        hostOf(tab.URL),
		DeviceName:  deviceName,
		LastUsedAt:  tab.LastUsed.UnixMilli(),
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
