package sources

import (
	"context"
	"creatorpulse/internal/core"
	"creatorpulse/internal/draft"
	"creatorpulse/internal/fetch"
	"creatorpulse/internal/persistence"
	"creatorpulse/internal/runlock"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeFetcher serves canned items or errors keyed by source ID.
type fakeFetcher struct {
	mu       sync.Mutex
	items    map[string][]core.FetchedItem
	errs     map[string]error
	calls    []string
	inFlight int32
	maxSeen  int32
	delay    time.Duration
}

func (f *fakeFetcher) Fetch(ctx context.Context, src core.Source) ([]core.FetchedItem, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		seen := atomic.LoadInt32(&f.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&f.maxSeen, seen, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.calls = append(f.calls, src.ID)
	f.mu.Unlock()

	if err := f.errs[src.ID]; err != nil {
		return nil, err
	}
	items := f.items[src.ID]
	for i := range items {
		items[i].SourceID = src.ID
	}
	return items, nil
}

func newTestDB(t *testing.T) persistence.Database {
	t.Helper()
	db, err := persistence.NewSQLiteDB(filepath.Join(t.TempDir(), "sources.db"))
	if err != nil {
		t.Fatalf("NewSQLiteDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return db
}

func addSources(t *testing.T, m *Manager, names ...string) []*core.Source {
	t.Helper()
	var added []*core.Source
	for _, name := range names {
		src, err := m.AddSource(context.Background(), "rss", name, "https://example.com/"+name)
		if err != nil {
			t.Fatalf("AddSource failed: %v", err)
		}
		added = append(added, src)
	}
	return added
}

func TestSync_EndToEnd(t *testing.T) {
	db := newTestDB(t)
	fetcher := &fakeFetcher{items: map[string][]core.FetchedItem{}}
	m := NewManager(db, fetcher)
	ctx := context.Background()

	for _, src := range addSources(t, m, "a", "b", "c") {
		fetcher.items[src.ID] = []core.FetchedItem{
			{Title: "Bitcoin rises"},
			{Title: "bitcoin falls"},
		}
	}

	result, err := m.Sync(ctx, DefaultSyncOptions())
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if result.SourcesSynced != 3 || result.SourcesFailed != 0 || result.ItemsFetched != 6 {
		t.Errorf("Unexpected result: %+v", result)
	}
	if result.TrendsDetected != 1 {
		t.Fatalf("Expected one trend, got %+v", result.Trends)
	}

	stored, err := db.Trends().ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("Expected one stored trend, got %d", len(stored))
	}
	trend := stored[0]
	if trend.Title != "Bitcoin" || trend.Mentions != 6 || trend.Description != "Trending topic detected across 6 posts" {
		t.Errorf("Unexpected trend: %+v", trend)
	}
	if len(trend.SourceIDs) != 3 {
		t.Errorf("Expected all three sources credited, got %v", trend.SourceIDs)
	}

	sources, _ := m.ListSources(ctx, false)
	for _, src := range sources {
		if src.SyncStatus != core.SyncStatusSuccess || src.TrackedCount != 2 || src.LastSyncAt == nil || src.SyncError != "" {
			t.Errorf("Unexpected source state after sync: %+v", src)
		}
	}
}

func TestSync_FailingSourceIsIsolated(t *testing.T) {
	db := newTestDB(t)
	fetcher := &fakeFetcher{items: map[string][]core.FetchedItem{}, errs: map[string]error{}}
	m := NewManager(db, fetcher)
	ctx := context.Background()

	added := addSources(t, m, "good", "bad")
	fetcher.items[added[0].ID] = []core.FetchedItem{
		{Title: "golang release"}, {Title: "golang generics"}, {Title: "golang tooling"},
	}
	fetcher.errs[added[1].ID] = &fetch.FetchError{Kind: fetch.KindNetwork, URL: added[1].URL, Err: errors.New("status code 503")}

	result, err := m.Sync(ctx, DefaultSyncOptions())
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if result.SourcesSynced != 1 || result.SourcesFailed != 1 || len(result.Errors) != 1 {
		t.Errorf("Unexpected result: %+v", result)
	}
	if result.TrendsDetected != 1 || result.Trends[0].Title != "Golang" {
		t.Errorf("Expected the healthy source to still produce trends, got %+v", result.Trends)
	}

	var fe *fetch.FetchError
	if !errors.As(result.Errors[0], &fe) {
		t.Errorf("Expected FetchError in result errors, got %v", result.Errors[0])
	}

	bad, _ := db.Sources().Get(ctx, added[1].ID)
	if bad.SyncStatus != core.SyncStatusError || !strings.Contains(bad.SyncError, "503") || bad.LastSyncAt == nil {
		t.Errorf("Expected error state recorded, got %+v", bad)
	}
}

func TestSync_SkipsInactiveSources(t *testing.T) {
	db := newTestDB(t)
	fetcher := &fakeFetcher{}
	m := NewManager(db, fetcher)
	ctx := context.Background()

	added := addSources(t, m, "on", "off")
	if _, err := m.SetActive(ctx, added[1].ID, false); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}

	if _, err := m.Sync(ctx, DefaultSyncOptions()); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if len(fetcher.calls) != 1 || fetcher.calls[0] != added[0].ID {
		t.Errorf("Expected only the active source fetched, got %v", fetcher.calls)
	}

	off, _ := db.Sources().Get(ctx, added[1].ID)
	if off.SyncStatus != core.SyncStatusPending {
		t.Errorf("Expected inactive source untouched, got %s", off.SyncStatus)
	}
}

func TestSync_NoSources(t *testing.T) {
	m := NewManager(newTestDB(t), &fakeFetcher{})
	result, err := m.Sync(context.Background(), DefaultSyncOptions())
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if result.TrendsDetected != 0 || result.SourcesSynced != 0 {
		t.Errorf("Expected empty result, got %+v", result)
	}
}

func TestSync_BoundedConcurrency(t *testing.T) {
	db := newTestDB(t)
	fetcher := &fakeFetcher{delay: 20 * time.Millisecond}
	m := NewManager(db, fetcher)

	addSources(t, m, "s1", "s2", "s3", "s4", "s5", "s6")

	if _, err := m.Sync(context.Background(), SyncOptions{MaxConcurrency: 2}); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if got := atomic.LoadInt32(&fetcher.maxSeen); got > 2 {
		t.Errorf("Expected at most 2 concurrent fetches, saw %d", got)
	}
	if len(fetcher.calls) != 6 {
		t.Errorf("Expected every source fetched, got %d", len(fetcher.calls))
	}
}

func TestSync_Locked(t *testing.T) {
	locker := runlock.NewLocal()
	m := NewManager(newTestDB(t), &fakeFetcher{}, WithLocker(locker))
	ctx := context.Background()

	release, err := locker.Acquire(ctx, runlock.Sync)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer release(ctx)

	if _, err := m.Sync(ctx, DefaultSyncOptions()); !errors.Is(err, runlock.ErrLocked) {
		t.Errorf("Expected ErrLocked, got %v", err)
	}
}

func TestAddSource_Validation(t *testing.T) {
	m := NewManager(newTestDB(t), &fakeFetcher{})
	ctx := context.Background()

	tests := []struct {
		name    string
		typ     string
		srcName string
		url     string
		wantErr bool
	}{
		{"rss", "rss", "Blog", "https://example.com/feed", false},
		{"camelCase type", "hackerNews", "HN", "", false},
		{"google trends default", "google-trends", "Trends", "", false},
		{"unknown type", "myspace", "Tom", "https://myspace.com", true},
		{"missing name", "rss", "  ", "https://example.com/feed", true},
		{"missing url", "youtube", "Channel", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := m.AddSource(ctx, tt.typ, tt.srcName, tt.url)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSource) {
					t.Errorf("Expected ErrInvalidSource, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("AddSource failed: %v", err)
			}
			if !src.IsActive || src.SyncStatus != core.SyncStatusPending || src.ID == "" {
				t.Errorf("Unexpected new source: %+v", src)
			}
		})
	}
}

func TestRemoveSource(t *testing.T) {
	m := NewManager(newTestDB(t), &fakeFetcher{})
	ctx := context.Background()

	added := addSources(t, m, "gone")
	if err := m.RemoveSource(ctx, added[0].ID); err != nil {
		t.Fatalf("RemoveSource failed: %v", err)
	}
	if err := m.RemoveSource(ctx, added[0].ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second removal, got %v", err)
	}
}

func TestImport(t *testing.T) {
	m := NewManager(newTestDB(t), &fakeFetcher{})
	ctx := context.Background()

	list, err := ParseSourceList(strings.NewReader(`
sources:
  - type: rss
    name: Go Blog
    url: https://go.dev/blog/feed.atom
  - type: reddit
    name: r/golang
    url: golang
    active: false
  - type: myspace
    name: Nope
    url: https://myspace.com
`))
	if err != nil {
		t.Fatalf("ParseSourceList failed: %v", err)
	}

	added, skipped, err := m.Import(ctx, list)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if added != 2 || len(skipped) != 1 {
		t.Errorf("Expected 2 added and 1 skipped, got %d and %v", added, skipped)
	}

	active, _ := m.ListSources(ctx, true)
	if len(active) != 1 || active[0].Name != "Go Blog" {
		t.Errorf("Expected only Go Blog active, got %+v", active)
	}
}

func TestParseSourceList_UnknownField(t *testing.T) {
	_, err := ParseSourceList(strings.NewReader("sources:\n  - type: rss\n    link: https://x\n"))
	if err == nil {
		t.Error("Expected error for unknown field")
	}
}

func TestSync_StoredTrendsKeepRankOrder(t *testing.T) {
	db := newTestDB(t)
	fetcher := &fakeFetcher{items: map[string][]core.FetchedItem{}}
	m := NewManager(db, fetcher)
	ctx := context.Background()

	src := addSources(t, m, "ranked")[0]
	for i := 0; i < 6; i++ {
		title := "alphaaa"
		if i < 5 {
			title += " bravooo"
		}
		if i < 4 {
			title += " charlie"
		}
		if i < 3 {
			title += " deltaaa"
		}
		fetcher.items[src.ID] = append(fetcher.items[src.ID], core.FetchedItem{Title: title})
	}

	if _, err := m.Sync(ctx, DefaultSyncOptions()); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	stored, err := db.Trends().ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}

	want := []struct {
		title    string
		mentions int
	}{{"Alphaaa", 6}, {"Bravooo", 5}, {"Charlie", 4}, {"Deltaaa", 3}}
	if len(stored) != len(want) {
		t.Fatalf("Expected %d trends, got %d", len(want), len(stored))
	}
	for i, w := range want {
		if stored[i].Title != w.title || stored[i].Mentions != w.mentions {
			t.Errorf("stored[%d]: expected %s (%d), got %s (%d)", i, w.title, w.mentions, stored[i].Title, stored[i].Mentions)
		}
	}

	summary := draft.FormatTrendSummary(stored)
	if !strings.HasPrefix(summary, "1. Alphaaa:") {
		t.Errorf("Expected the top-ranked trend first in the prompt summary, got:\n%s", summary)
	}
}
