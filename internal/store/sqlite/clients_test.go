package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/driftbrowser/drift-core/internal/domain"
)

// makeTestClient returns a RemoteClient with a deterministic last-accessed
// offset so GetAll ordering is stable across tests.
func makeTestClient(deviceID, name string, accessedAgo time.Duration) domain.RemoteClient {
	return domain.RemoteClient{
		DeviceID:     deviceID,
		Name:         name,
		DeviceType:   "desktop",
		LastAccessed: time.Now().Add(-accessedAgo),
	}
}

func makeTestTabs(urls ...string) []domain.RemoteTab {
	tabs := make([]domain.RemoteTab, 0, len(urls))
	for i, u := range urls {
		tabs = append(tabs, domain.RemoteTab{
			Title:    "Tab " + u,
			URL:      u,
			LastUsed: time.Now().Add(-time.Duration(i) * time.Minute),
		})
	}
	return tabs
}

func TestSetClientTabsAndGetAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	client := makeTestClient("device-1", "Office Laptop", time.Hour)
	tabs := makeTestTabs("https://example.com/a", "https://example.com/b")
	tabs[0].Icon = "https://example.com/favicon.ico"

	n, err := s.SetClientTabs(ctx, client, tabs)
	if err != nil {
		t.Fatalf("SetClientTabs: %v", err)
	}
	if n != 2 {
		t.Errorf("written: got %d, want 2", n)
	}

	all, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("clients: got %d, want 1", len(all))
	}

	got := all[0]
	if got.Client.DeviceID != "device-1" {
		t.Errorf("DeviceID: got %q, want %q", got.Client.DeviceID, "device-1")
	}
	if got.Client.Name != "Office Laptop" {
		t.Errorf("Name: got %q, want %q", got.Client.Name, "Office Laptop")
	}
	if got.Client.DeviceType != "desktop" {
		t.Errorf("DeviceType: got %q, want %q", got.Client.DeviceType, "desktop")
	}
	if got.Client.LastAccessed.Unix() != client.LastAccessed.Unix() {
		t.Errorf("LastAccessed: got %v, want %v", got.Client.LastAccessed, client.LastAccessed)
	}

	if len(got.Tabs) != 2 {
		t.Fatalf("tabs: got %d, want 2", len(got.Tabs))
	}
	if got.Tabs[0].URL != "https://example.com/a" {
		t.Errorf("tab 0 URL: got %q", got.Tabs[0].URL)
	}
	if got.Tabs[0].Icon != "https://example.com/favicon.ico" {
		t.Errorf("tab 0 Icon: got %q", got.Tabs[0].Icon)
	}
	if got.Tabs[1].Icon != "" {
		t.Errorf("tab 1 Icon: got %q, want empty", got.Tabs[1].Icon)
	}
	if got.Tabs[1].URL != "https://example.com/b" {
		t.Errorf("tab 1 URL: got %q", got.Tabs[1].URL)
	}
}

func TestSetClientTabs_ReplacesSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	client := makeTestClient("device-1", "Office Laptop", time.Hour)

	if _, err := s.SetClientTabs(ctx, client, makeTestTabs("https://old.example.com/1", "https://old.example.com/2", "https://old.example.com/3")); err != nil {
		t.Fatalf("first SetClientTabs: %v", err)
	}

	// The second push fully replaces the first.
	client.Name = "Renamed Laptop"
	n, err := s.SetClientTabs(ctx, client, makeTestTabs("https://new.example.com/only"))
	if err != nil {
		t.Fatalf("second SetClientTabs: %v", err)
	}
	if n != 1 {
		t.Errorf("written: got %d, want 1", n)
	}

	all, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("clients: got %d, want 1", len(all))
	}
	if all[0].Client.Name != "Renamed Laptop" {
		t.Errorf("Name: got %q, want %q", all[0].Client.Name, "Renamed Laptop")
	}
	if len(all[0].Tabs) != 1 {
		t.Fatalf("tabs: got %d, want 1", len(all[0].Tabs))
	}
	if all[0].Tabs[0].URL != "https://new.example.com/only" {
		t.Errorf("tab URL: got %q", all[0].Tabs[0].URL)
	}
}

func TestSetClientTabs_EmptySnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	client := makeTestClient("device-1", "Office Laptop", time.Hour)
	if _, err := s.SetClientTabs(ctx, client, makeTestTabs("https://example.com/a")); err != nil {
		t.Fatalf("SetClientTabs: %v", err)
	}

	// Pushing an empty snapshot clears the tabs but keeps the client row.
	n, err := s.SetClientTabs(ctx, client, nil)
	if err != nil {
		t.Fatalf("SetClientTabs empty: %v", err)
	}
	if n != 0 {
		t.Errorf("written: got %d, want 0", n)
	}

	all, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("clients: got %d, want 1", len(all))
	}
	if len(all[0].Tabs) != 0 {
		t.Errorf("tabs: got %d, want 0", len(all[0].Tabs))
	}
}

func TestGetAll_OrdersClientsByLastAccessed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Insert out of order; GetAll returns most recently accessed first.
	if _, err := s.SetClientTabs(ctx, makeTestClient("device-old", "Old Phone", 48*time.Hour), nil); err != nil {
		t.Fatalf("SetClientTabs old: %v", err)
	}
	if _, err := s.SetClientTabs(ctx, makeTestClient("device-new", "New Laptop", time.Minute), nil); err != nil {
		t.Fatalf("SetClientTabs new: %v", err)
	}
	if _, err := s.SetClientTabs(ctx, makeTestClient("device-mid", "Tablet", 3*time.Hour), nil); err != nil {
		t.Fatalf("SetClientTabs mid: %v", err)
	}

	all, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("clients: got %d, want 3", len(all))
	}

	wantOrder := []string{"device-new", "device-mid", "device-old"}
	for i, want := range wantOrder {
		if all[i].Client.DeviceID != want {
			t.Errorf("position %d: got %q, want %q", i, all[i].Client.DeviceID, want)
		}
	}
}

func TestGetAll_Empty(t *testing.T) {
	s := newTestStore(t)

	all, err := s.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("clients: got %d, want 0", len(all))
	}
}

func TestDeleteClient_CascadesTabs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.SetClientTabs(ctx, makeTestClient("device-1", "Laptop", time.Hour), makeTestTabs("https://example.com/a")); err != nil {
		t.Fatalf("SetClientTabs: %v", err)
	}

	if err := s.DeleteClient(ctx, "device-1"); err != nil {
		t.Fatalf("DeleteClient: %v", err)
	}

	all, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("clients: got %d, want 0", len(all))
	}

	// FK cascade removed the tab rows too.
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM remote_tabs").Scan(&count); err != nil {
		t.Fatalf("count remote_tabs: %v", err)
	}
	if count != 0 {
		t.Errorf("remote_tabs rows: got %d, want 0", count)
	}

	// Deleting an unknown client is a no-op.
	if err := s.DeleteClient(ctx, "device-unknown"); err != nil {
		t.Errorf("DeleteClient unknown: %v", err)
	}
}
