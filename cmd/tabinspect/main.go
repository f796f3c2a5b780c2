package main

import (
	"encoding/binary"
	"encoding/json/v2"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/driftbrowser/drift-core/internal/domain"
)

var (
	windowFilter = flag.String("window", "", "Only print the window with this id")
	showSessions = flag.Bool("sessions", false, "List every stored session blob")
	verbose      = flag.Bool("v", false, "Print every tab in each window")
)

func main() {
	flag.Parse()

	dataDir := os.Getenv("DRIFT_DATA_DIR")
	if dataDir == "" {
		dataDir = os.ExpandEnv("$HOME/Drift/profile")
	}
	dbPath := filepath.Join(dataDir, "tabs")

	opts := badger.DefaultOptions(dbPath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open tab store: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Tab Store Inspection ===")
	fmt.Println()

	// Tabs referenced by any window snapshot. Session blobs outside this
	// set are garbage collection candidates.
	liveTabs := make(map[uuid.UUID]bool)

	windowCount := 0
	tabTotal := 0
	privateTotal := 0

	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("window:")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte("window:")); it.ValidForPrefix([]byte("window:")); it.Next() {
			item := it.Item()
			key := string(item.Key())

			err := item.Value(func(val []byte) error {
				var w domain.WindowData
				if err := json.Unmarshal(val, &w); err != nil {
					return err
				}

				windowCount++
				tabTotal += len(w.Tabs)
				privates := len(w.Tabs) - w.NormalTabCount()
				privateTotal += privates
				for _, td := range w.Tabs {
					liveTabs[td.ID] = true
				}

				// The filter narrows output, not the summary.
				if *windowFilter != "" && w.ID.String() != *windowFilter {
					return nil
				}

				fmt.Printf("Window: %s\n", w.ID)
				fmt.Printf("  Saved: %s\n", w.SavedAt.Format(time.RFC3339))
				fmt.Printf("  Tabs: %d (%d private)\n", len(w.Tabs), privates)
				if w.ActiveTabID != uuid.Nil {
					fmt.Printf("  Active: %s\n", w.ActiveTabID)
				}

				if *verbose {
					for _, td := range w.Tabs {
						marker := " "
						if td.ID == w.ActiveTabID {
							marker = "*"
						}
						title := td.Title
						if title == "" {
							title = "(untitled)"
						}
						if td.Private {
							title += " [private]"
						}
						fmt.Printf("  %s %s\n", marker, title)
						if td.URL != "" {
							fmt.Printf("      %s\n", td.URL)
						}
						if !td.LastUsedAt.IsZero() {
							fmt.Printf("      last used %s\n", td.LastUsedAt.Format(time.RFC3339))
						}
					}
				}
				fmt.Println()
				return nil
			})
			if err != nil {
				log.Printf("Error reading window %s: %v", key, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Error iterating windows: %v", err)
	}

	sessionCount := 0
	orphanCount := 0
	var storedBytes, rawBytes int64

	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("session:")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte("session:")); it.ValidForPrefix([]byte("session:")); it.Next() {
			item := it.Item()
			key := string(item.Key())

			tabID, err := uuid.Parse(strings.TrimPrefix(key, "session:"))
			if err != nil {
				log.Printf("Skipping malformed session key %s", key)
				continue
			}

			err = item.Value(func(val []byte) error {
				sessionCount++
				storedBytes += int64(len(val))
				// mozlz4 frame: 8-byte magic then LE uint32 raw size.
				if len(val) >= 12 {
					rawBytes += int64(binary.LittleEndian.Uint32(val[8:12]))
				}

				orphan := !liveTabs[tabID]
				if orphan {
					orphanCount++
				}
				if *showSessions {
					note := ""
					if orphan {
						note = " [orphan]"
					}
					fmt.Printf("Session: %s (%d bytes stored)%s\n", tabID, len(val), note)
				}
				return nil
			})
			if err != nil {
				log.Printf("Error reading session %s: %v", key, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Error iterating sessions: %v", err)
	}
	if *showSessions && sessionCount > 0 {
		fmt.Println()
	}

	_ = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("meta:device"))
		if err != nil {
			return nil
		}
		return item.Value(func(val []byte) error {
			var dev domain.DeviceIdentity
			if err := json.Unmarshal(val, &dev); err != nil {
				return nil
			}
			fmt.Printf("Device: %s (created %s)\n", dev.DeviceID, dev.CreatedAt.Format("2006-01-02"))
			fmt.Println()
			return nil
		})
	})

	fmt.Println("=== Summary ===")
	fmt.Printf("Windows: %d\n", windowCount)
	fmt.Printf("Tabs: %d (%d private)\n", tabTotal, privateTotal)
	fmt.Printf("Session blobs: %d (%s stored, %s raw)\n", sessionCount, humanBytes(storedBytes), humanBytes(rawBytes))
	if orphanCount > 0 {
		fmt.Printf("Orphaned sessions: %d (no window references them)\n", orphanCount)
	}
}

func humanBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
