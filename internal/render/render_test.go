package render

import (
	"creatorpulse/internal/core"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func sampleDraft() core.Draft {
	return core.Draft{
		ID:           "0123456789abcdef",
		Subject:      "This Week in AI",
		Content:      "<h2>Highlights</h2><p>Models got <strong>faster</strong>.</p><ul><li>One</li><li>Two</li></ul>",
		Status:       core.DraftStatusDraft,
		GeneratedAt:  time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC),
		ScheduledFor: time.Date(2025, 3, 11, 8, 0, 0, 0, time.UTC),
	}
}

func TestContentMarkdown(t *testing.T) {
	md, err := ContentMarkdown(sampleDraft().Content)
	if err != nil {
		t.Fatalf("ContentMarkdown failed: %v", err)
	}

	for _, want := range []string{"## Highlights", "**faster**", "- One", "- Two"} {
		if !strings.Contains(md, want) {
			t.Errorf("Expected %q in markdown, got:\n%s", want, md)
		}
	}
	if strings.Contains(md, "<p>") {
		t.Errorf("Expected no HTML left, got:\n%s", md)
	}
}

func TestDraftMarkdown(t *testing.T) {
	md, err := DraftMarkdown(sampleDraft())
	if err != nil {
		t.Fatalf("DraftMarkdown failed: %v", err)
	}
	if !strings.HasPrefix(md, "# This Week in AI\n\n_Status: draft") {
		t.Errorf("Unexpected header:\n%s", md)
	}
	if strings.Contains(md, "Sent") {
		t.Error("Unsent draft should not show a sent date")
	}
}

func TestWriteDraftToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	path, err := WriteDraftToFile(sampleDraft(), dir)
	if err != nil {
		t.Fatalf("WriteDraftToFile failed: %v", err)
	}
	if filepath.Base(path) != "draft_2025-03-10_01234567.md" {
		t.Errorf("Unexpected file name %s", filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(data), "## Highlights") {
		t.Errorf("Expected converted content in file, got:\n%s", data)
	}
}

func TestTrendsTable(t *testing.T) {
	out := TrendsTable([]core.Trend{
		{Title: "Bitcoin", Description: "Trending topic detected across 6 posts", Mentions: 6, Category: "General"},
		{Title: "Golang", Description: "Trending topic detected across 3 posts", Mentions: 3, Category: "General"},
	})
	for _, want := range []string{"Trending topics (2)", " 1. ", "Bitcoin", "6 mentions", " 2. ", "Golang"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}

	if !strings.Contains(TrendsTable(nil), "No trends") {
		t.Error("Expected empty-state message")
	}
}

func TestSourcesTable(t *testing.T) {
	synced := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	out := SourcesTable([]core.Source{
		{ID: "s1", Name: "Blog", Type: core.SourceTypeRSS, URL: "https://example.com/feed", IsActive: true,
			SyncStatus: core.SyncStatusSuccess, TrackedCount: 12, LastSyncAt: &synced},
		{ID: "s2", Name: "Broken", Type: core.SourceTypeReddit, URL: "golang", IsActive: false,
			SyncStatus: core.SyncStatusError, SyncError: "status code 429"},
	})
	for _, want := range []string{"Sources (2)", "Blog [rss]", "success (12 items)", "inactive", "status code 429"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
}

func TestDraftsTable(t *testing.T) {
	out := DraftsTable([]core.Draft{sampleDraft()})
	if !strings.Contains(out, "Drafts (1)") || !strings.Contains(out, "This Week in AI") {
		t.Errorf("Unexpected output:\n%s", out)
	}
}
