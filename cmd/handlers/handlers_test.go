package handlers

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"creatorpulse/internal/config"
	"creatorpulse/internal/core"
	"creatorpulse/internal/persistence"
)

// setupCLI points the CLI at a fresh data directory and returns a runner.
func setupCLI(t *testing.T) (run func(args ...string) error, dbPath string) {
	t.Helper()
	config.Reset()
	t.Cleanup(config.Reset)
	for _, key := range []string{"DATABASE_URL", "KAFKA_BROKERS", "SLACK_WEBHOOK_URL"} {
		t.Setenv(key, "")
	}

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := "app:\n  data_dir: " + dir + "\nlogging:\n  level: error\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	run = func(args ...string) error {
		root := NewRootCmd()
		root.SetArgs(append([]string{"--config", cfgPath}, args...))
		return root.ExecuteContext(context.Background())
	}
	return run, filepath.Join(dir, "creatorpulse.db")
}

func openDB(t *testing.T, path string) persistence.Database {
	t.Helper()
	db, err := persistence.NewSQLiteDB(path)
	if err != nil {
		t.Fatalf("NewSQLiteDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()
	want := []string{"sources", "sync", "trends", "draft", "prefs", "newsletters", "migrate", "serve"}

	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("Expected subcommand %q, got %v (err=%v)", name, cmd, err)
		}
	}
}

func TestSourcesAddAndDisable(t *testing.T) {
	run, dbPath := setupCLI(t)

	if err := run("sources", "add", "rss", "Go Blog", "https://go.dev/blog/feed.atom"); err != nil {
		t.Fatalf("sources add failed: %v", err)
	}
	if err := run("sources", "add", "hackerNews", "HN"); err != nil {
		t.Fatalf("sources add with alias type failed: %v", err)
	}
	if err := run("sources", "add", "mastodon", "Toots", "https://example.com"); err == nil {
		t.Error("Expected unknown source type to fail")
	}

	db := openDB(t, dbPath)
	list, err := db.Sources().List(context.Background(), persistence.ListOptions{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 sources, got %d", len(list))
	}

	var hn core.Source
	for _, s := range list {
		if s.Type == core.SourceTypeHackerNews {
			hn = s
		}
	}
	if hn.ID == "" {
		t.Fatal("Expected a hacker-news source")
	}

	if err := run("sources", "disable", hn.ID); err != nil {
		t.Fatalf("sources disable failed: %v", err)
	}
	got, err := db.Sources().Get(context.Background(), hn.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.IsActive {
		t.Error("Expected source to be disabled")
	}
}

func TestSourcesImport(t *testing.T) {
	run, dbPath := setupCLI(t)

	file := filepath.Join(t.TempDir(), "sources.yaml")
	content := `sources:
  - type: rss
    name: Go Blog
    url: https://go.dev/blog/feed.atom
  - type: reddit
    name: Missing subreddit
  - type: google-trends
    name: Trends DE
    url: de
    active: false
`
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write sources file: %v", err)
	}

	if err := run("sources", "import", file); err != nil {
		t.Fatalf("sources import failed: %v", err)
	}

	active, err := openDB(t, dbPath).Sources().ListActive(context.Background())
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(active) != 1 || active[0].Name != "Go Blog" {
		t.Errorf("Expected only Go Blog active, got %+v", active)
	}
}

func TestPrefsSet(t *testing.T) {
	run, dbPath := setupCLI(t)

	if err := run("prefs", "set", "--tone", "witty", "--length", "SHORT", "--topics", "ai,crypto"); err != nil {
		t.Fatalf("prefs set failed: %v", err)
	}
	if err := run("prefs", "set", "--delivery-time", "25:99"); err == nil {
		t.Error("Expected invalid delivery time to fail")
	}

	prefs, err := openDB(t, dbPath).Preferences().Get(context.Background())
	if err != nil {
		t.Fatalf("Get preferences failed: %v", err)
	}
	if prefs.Tone != "witty" || prefs.Length != core.LengthShort || len(prefs.Topics) != 2 {
		t.Errorf("Unexpected preferences: %+v", prefs)
	}
	if prefs.WritingStyle != core.DefaultWritingStyle {
		t.Errorf("Expected untouched fields to keep defaults, got %q", prefs.WritingStyle)
	}
}

func TestDraftReview_UnknownID(t *testing.T) {
	run, _ := setupCLI(t)

	if err := run("draft", "review", "does-not-exist"); err == nil {
		t.Error("Expected reviewing an unknown draft to fail")
	}
}

func TestMigrateStatus(t *testing.T) {
	run, _ := setupCLI(t)

	if err := run("migrate", "up"); err != nil {
		t.Fatalf("migrate up failed: %v", err)
	}
	if err := run("migrate", "status"); err != nil {
		t.Fatalf("migrate status failed: %v", err)
	}
}

func TestDraftEditAndFeedback(t *testing.T) {
	run, dbPath := setupCLI(t)
	if err := run("migrate", "up"); err != nil {
		t.Fatalf("migrate up failed: %v", err)
	}

	db := openDB(t, dbPath)
	ctx := context.Background()
	now := time.Now().UTC()
	if err := db.Drafts().Create(ctx, &core.Draft{
		ID: "cli-draft", Subject: "Generated", Content: "<p>v1</p>", Status: core.DraftStatusDraft,
		GeneratedAt: now, ScheduledFor: now.Add(-time.Hour),
	}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	contentFile := filepath.Join(t.TempDir(), "content.html")
	if err := os.WriteFile(contentFile, []byte("<p>v2</p>"), 0644); err != nil {
		t.Fatalf("failed to write content: %v", err)
	}
	if err := run("draft", "edit", "cli-draft", "--subject", "Edited", "--content-file", contentFile); err != nil {
		t.Fatalf("draft edit failed: %v", err)
	}
	if err := run("draft", "feedback", "cli-draft", "--rating", "4", "--comments", "tighter"); err != nil {
		t.Fatalf("draft feedback failed: %v", err)
	}
	if err := run("draft", "feedback", "cli-draft", "--rating", "7"); err == nil {
		t.Error("Expected an out-of-range rating to fail")
	}
	if err := run("draft", "due"); err != nil {
		t.Fatalf("draft due failed: %v", err)
	}

	d, err := db.Drafts().Get(ctx, "cli-draft")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if d.Subject != "Edited" || d.Content != "<p>v2</p>" || d.OriginalSubject != "Generated" {
		t.Errorf("Unexpected draft after edit: %+v", d)
	}

	feedback, err := db.Feedback().ListByDraft(ctx, "cli-draft")
	if err != nil {
		t.Fatalf("ListByDraft failed: %v", err)
	}
	if len(feedback) != 1 || feedback[0].Rating != 4 || feedback[0].EditedContent != "<p>v2</p>" {
		t.Errorf("Unexpected feedback: %+v", feedback)
	}
}
