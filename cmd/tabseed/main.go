// Package main provides a tool to seed the tab store with sample data.
//
// It writes a window snapshot full of realistic tabs (mixed privacy,
// staggered last-used timestamps) plus session blobs for a subset, so
// restore, inactive classification, and the inspection tool have real
// data to chew on.
//
// Usage:
//
//	DRIFT_DATA_DIR=~/Drift/profile go run ./cmd/tabseed
//	DRIFT_DATA_DIR=~/Drift/profile go run ./cmd/tabseed -tabs 20 -private 4
package main

import (
	"context"
	"encoding/json/v2"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/driftbrowser/drift-core/internal/domain"
	"github.com/driftbrowser/drift-core/internal/store"
)

var (
	tabCount     = flag.Int("tabs", 12, "Number of normal tabs to create")
	privateCount = flag.Int("private", 2, "Number of private tabs to create")
	staleCount   = flag.Int("stale", 3, "Normal tabs backdated past the inactive threshold")
	windowID     = flag.String("window", "", "Window id to write (default: mint a new one)")
)

// sampleSites is the pool of plausible pages a seeded window cycles
// through.
var sampleSites = []struct {
	url   string
	title string
}{
	{"https://news.ycombinator.com/", "Hacker News"},
	{"https://go.dev/blog/", "The Go Blog"},
	{"https://en.wikipedia.org/wiki/Lighthouse", "Lighthouse - Wikipedia"},
	{"https://github.com/dgraph-io/badger", "dgraph-io/badger: Fast key-value DB in Go"},
	{"https://pkg.go.dev/log/slog", "slog package - log/slog"},
	{"https://www.allrecipes.com/recipe/20144/banana-banana-bread/", "Banana Banana Bread"},
	{"https://www.openstreetmap.org/", "OpenStreetMap"},
	{"https://weather.example.com/forecast/oslo", "Oslo 10-day forecast"},
	{"https://blog.cloudflare.com/", "The Cloudflare Blog"},
	{"https://www.nasa.gov/image-of-the-day/", "NASA Image of the Day"},
	{"https://music.example.com/playlists/focus", "Focus playlist"},
	{"https://docs.example.com/project/notes", "Project notes"},
}

func main() {
	flag.Parse()

	dataDir := os.Getenv("DRIFT_DATA_DIR")
	if dataDir == "" {
		dataDir = os.ExpandEnv("$HOME/Drift/profile")
	}
	dbPath := filepath.Join(dataDir, "tabs")

	fmt.Printf("Opening tab store at: %s\n", dbPath)

	s, err := store.New(dbPath, nil)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	dev, err := s.GetOrCreateDevice(ctx)
	if err != nil {
		log.Fatalf("Failed to resolve device identity: %v", err)
	}
	fmt.Printf("Device identity: %s\n", dev.DeviceID)

	winID := uuid.New()
	if *windowID != "" {
		winID, err = uuid.Parse(*windowID)
		if err != nil {
			log.Fatalf("Invalid -window id: %v", err)
		}
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	now := time.Now()

	var tabs []domain.TabData
	var activeID uuid.UUID
	var freshest time.Time

	for i := 0; i < *tabCount; i++ {
		site := sampleSites[i%len(sampleSites)]

		// The first -stale tabs go cold; the rest were used in the
		// last three days.
		var lastUsed time.Time
		if i < *staleCount {
			lastUsed = now.AddDate(0, 0, -(15 + rng.Intn(25)))
		} else {
			lastUsed = now.Add(-time.Duration(rng.Intn(72)) * time.Hour)
		}

		td := domain.TabData{
			ID:         uuid.New(),
			Title:      site.title,
			URL:        site.url,
			CreatedAt:  lastUsed.Add(-time.Duration(1+rng.Intn(48)) * time.Hour),
			LastUsedAt: lastUsed,
		}
		td.ScreenshotID = td.ID

		// Give one tab search-group metadata.
		if i == 1 {
			td.Group = &domain.GroupData{
				SearchTerm: "banana bread recipe",
				SearchURL:  "https://search.example.com/?q=banana+bread+recipe",
			}
		}

		if lastUsed.After(freshest) {
			freshest = lastUsed
			activeID = td.ID
		}
		tabs = append(tabs, td)
	}

	for i := 0; i < *privateCount; i++ {
		site := sampleSites[rng.Intn(len(sampleSites))]
		td := domain.TabData{
			ID:         uuid.New(),
			Title:      site.title,
			URL:        site.url,
			Private:    true,
			CreatedAt:  now.Add(-time.Duration(1+rng.Intn(6)) * time.Hour),
			LastUsedAt: now.Add(-time.Duration(rng.Intn(60)) * time.Minute),
		}
		td.ScreenshotID = td.ID
		tabs = append(tabs, td)
	}

	if err := s.SaveWindow(ctx, domain.NewWindowData(winID, activeID, tabs)); err != nil {
		log.Fatalf("Failed to save window: %v", err)
	}

	fmt.Printf("\nSeeded window %s\n", winID)
	fmt.Printf("  Tabs: %d normal (%d stale), %d private\n", *tabCount, *staleCount, *privateCount)
	fmt.Printf("  Active: %s\n", activeID)

	// Session blobs for roughly half the normal tabs, so restore has
	// scroll state to reattach.
	sessionsWritten := 0
	for i, td := range tabs {
		if td.Private || i%2 != 0 {
			continue
		}
		blob, err := json.Marshal(map[string]any{
			"history":  []string{td.URL},
			"index":    0,
			"scroll_y": rng.Intn(4000),
		})
		if err != nil {
			log.Printf("Failed to encode session for %s: %v", td.ID, err)
			continue
		}
		if err := s.SaveTabSession(ctx, td.ID, blob); err != nil {
			log.Printf("Failed to save session for %s: %v", td.ID, err)
			continue
		}
		sessionsWritten++
	}
	fmt.Printf("  Session blobs: %d\n", sessionsWritten)

	fmt.Println("\nSeeding complete!")
}
