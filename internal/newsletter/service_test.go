package newsletter

import (
	"context"
	"creatorpulse/internal/core"
	"creatorpulse/internal/draft"
	"creatorpulse/internal/llm"
	"creatorpulse/internal/parser"
	"creatorpulse/internal/persistence"
	"creatorpulse/internal/publish"
	"creatorpulse/internal/runlock"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type fakeGenerator struct {
	response string
	err      error
	requests []*llm.Request
}

func (f *fakeGenerator) Generate(_ context.Context, req *llm.Request) (string, error) {
	f.requests = append(f.requests, req)
	return f.response, f.err
}

func (f *fakeGenerator) Name() string { return "fake" }

type recordingPublisher struct {
	events []publish.Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, e publish.Event) error {
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingPublisher) Close() error { return nil }

var fixedNow = time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)

func newTestDB(t *testing.T) persistence.Database {
	t.Helper()
	db, err := persistence.NewSQLiteDB(filepath.Join(t.TempDir(), "newsletter.db"))
	if err != nil {
		t.Fatalf("NewSQLiteDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return db
}

func seedTrends(t *testing.T, db persistence.Database, n int) {
	t.Helper()
	trends := make([]core.Trend, n)
	for i := range trends {
		trends[i] = core.Trend{
			ID:          fmt.Sprintf("trend-%02d", i),
			Title:       fmt.Sprintf("Topic%02d", i),
			Description: "Trending topic detected across 3 posts",
			Mentions:    20 - i,
			Sentiment:   0.5,
			DetectedAt:  fixedNow.Add(-time.Hour),
			Category:    "General",
		}
	}
	if err := db.Trends().CreateBatch(context.Background(), trends); err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}
}

func newService(db persistence.Database, gen llm.Generator, opts ...Option) *Service {
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithLocation(time.UTC),
	}
	return NewService(db, gen, append(base, opts...)...)
}

func TestGenerate(t *testing.T) {
	db := newTestDB(t)
	seedTrends(t, db, 12)
	ctx := context.Background()

	prefs := core.DefaultPreferences()
	prefs.DeliveryTime = "07:15"
	if err := db.Preferences().Save(ctx, &prefs); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	for i := 0; i < 4; i++ {
		sent := fixedNow.AddDate(0, 0, -7*(i+1))
		if err := db.PastNewsletters().Create(ctx, &core.PastNewsletter{
			ID: fmt.Sprintf("past-%d", i), Title: "Issue", Content: fmt.Sprintf("Issue body %d", i), SentDate: &sent,
		}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	gen := &fakeGenerator{response: "```json\n{\"subject\": \"This Week\", \"content\": \"<p>Hi</p>\"}\n```"}
	pub := &recordingPublisher{}
	svc := newService(db, gen, WithPublisher(pub))

	result, err := svc.Generate(ctx, GenerateOptions{})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	d := result.Draft
	if d.Subject != "This Week" || d.Content != "<p>Hi</p>" || d.Status != core.DraftStatusDraft {
		t.Errorf("Unexpected draft: %+v", d)
	}
	if result.Stage != parser.StageJSON {
		t.Errorf("Expected json stage, got %s", result.Stage)
	}
	wantScheduled := time.Date(2025, 3, 11, 7, 15, 0, 0, time.UTC)
	if !d.ScheduledFor.Equal(wantScheduled) {
		t.Errorf("Expected scheduled for %v, got %v", wantScheduled, d.ScheduledFor)
	}
	if len(d.TrendIDs) != draft.MaxSummaryTrends || d.TrendIDs[0] != "trend-00" {
		t.Errorf("Expected the five summarised trend IDs, got %v", d.TrendIDs)
	}

	user := gen.requests[0].User()
	if !strings.Contains(user, "5. Topic04:") || strings.Contains(user, "Topic05") {
		t.Errorf("Expected the five highest ranked trends in the summary, got:\n%s", user)
	}
	if !strings.Contains(user, "Example 3:") || strings.Contains(user, "Example 4:") {
		t.Errorf("Expected three style examples, got:\n%s", user)
	}
	if !strings.Contains(user, "Issue body 0") {
		t.Error("Expected the most recent past newsletter first")
	}

	stored, err := svc.Get(ctx, d.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.Subject != "This Week" {
		t.Errorf("Expected stored draft, got %+v", stored)
	}

	if len(pub.events) != 1 || pub.events[0].Draft.ID != d.ID || pub.events[0].Type != publish.EventDraftCreated {
		t.Errorf("Expected one draft.created event, got %+v", pub.events)
	}
}

func TestGenerate_NoTrends(t *testing.T) {
	gen := &fakeGenerator{}
	svc := newService(newTestDB(t), gen)

	if _, err := svc.Generate(context.Background(), GenerateOptions{}); !errors.Is(err, ErrNoTrends) {
		t.Errorf("Expected ErrNoTrends, got %v", err)
	}
	if len(gen.requests) != 0 {
		t.Error("Generator should not be called without trends")
	}
}

func TestGenerate_ValidationStopsBeforeGenerator(t *testing.T) {
	db := newTestDB(t)
	gen := &fakeGenerator{}
	svc := newService(db, gen)

	prefs := core.DefaultPreferences()
	prefs.Tone = strings.Repeat("t", 101)
	trends := make([]core.Trend, 21)
	for i := range trends {
		trends[i] = core.Trend{Title: "x", Description: "y"}
	}

	_, err := svc.Generate(context.Background(), GenerateOptions{Trends: trends, Preferences: &prefs})
	var v *draft.ValidationError
	if !errors.As(err, &v) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if len(gen.requests) != 0 {
		t.Error("Generator should not be called on invalid input")
	}
	drafts, _ := svc.List(context.Background(), "", 0)
	if len(drafts) != 0 {
		t.Error("No draft should be stored on failure")
	}
}

func TestGenerate_GenerationErrorIsReturned(t *testing.T) {
	db := newTestDB(t)
	seedTrends(t, db, 3)
	gen := &fakeGenerator{err: &llm.GenerationError{Provider: "fake", StatusCode: 500, Body: "boom"}}
	svc := newService(db, gen)

	_, err := svc.Generate(context.Background(), GenerateOptions{})
	var ge *llm.GenerationError
	if !errors.As(err, &ge) || ge.StatusCode != 500 {
		t.Fatalf("Expected GenerationError, got %v", err)
	}
	drafts, _ := svc.List(context.Background(), "", 0)
	if len(drafts) != 0 {
		t.Error("No draft should be stored on generation failure")
	}
}

func TestGenerate_PublishFailureIsNotFatal(t *testing.T) {
	db := newTestDB(t)
	seedTrends(t, db, 3)
	gen := &fakeGenerator{response: "not json at all"}
	svc := newService(db, gen, WithPublisher(&recordingPublisher{err: errors.New("webhook down")}))

	result, err := svc.Generate(context.Background(), GenerateOptions{})
	if err != nil {
		t.Fatalf("Expected publish failure to be ignored, got %v", err)
	}
	if result.Stage != parser.StageRaw || result.Draft.Subject != parser.DefaultSubject {
		t.Errorf("Expected raw fallback with default subject, got %+v", result)
	}
}

func TestGenerate_ExplicitInputsAndSubject(t *testing.T) {
	gen := &fakeGenerator{response: `{"subject": "Crypto is back", "content": "<h2>News</h2>"}`}
	svc := newService(newTestDB(t), gen)

	subject := "Crypto is back"
	result, err := svc.Generate(context.Background(), GenerateOptions{
		Trends:      []core.Trend{{Title: "Bitcoin", Description: "Trending topic detected across 6 posts", Mentions: 6, Sentiment: 0.5}},
		SubjectLine: &subject,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.Draft.Subject != subject {
		t.Errorf("Expected subject %q, got %q", subject, result.Draft.Subject)
	}
	if len(result.Draft.TrendIDs) != 0 {
		t.Errorf("Expected no trend IDs for unsaved trends, got %v", result.Draft.TrendIDs)
	}
	// Default delivery time applies when preferences were never saved.
	if want := time.Date(2025, 3, 11, 8, 0, 0, 0, time.UTC); !result.Draft.ScheduledFor.Equal(want) {
		t.Errorf("Expected %v, got %v", want, result.Draft.ScheduledFor)
	}
}

func TestGenerate_Locked(t *testing.T) {
	locker := runlock.NewLocal()
	svc := newService(newTestDB(t), &fakeGenerator{}, WithLocker(locker))

	release, _ := locker.Acquire(context.Background(), runlock.Generate)
	defer release(context.Background())

	if _, err := svc.Generate(context.Background(), GenerateOptions{}); !errors.Is(err, runlock.ErrLocked) {
		t.Errorf("Expected ErrLocked, got %v", err)
	}
}

func TestNextDelivery(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	now := time.Date(2025, 12, 31, 23, 45, 0, 0, loc)

	tests := []struct {
		delivery string
		want     time.Time
	}{
		{"08:00", time.Date(2026, 1, 1, 8, 0, 0, 0, loc)},
		{"18:30", time.Date(2026, 1, 1, 18, 30, 0, 0, loc)},
		{"25:99", time.Date(2026, 1, 1, 8, 0, 0, 0, loc)},
		{"", time.Date(2026, 1, 1, 8, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		if got := NextDelivery(now, tt.delivery); !got.Equal(tt.want) {
			t.Errorf("NextDelivery(%q) = %v, want %v", tt.delivery, got, tt.want)
		}
	}
}

func TestReviewAndMarkSent(t *testing.T) {
	db := newTestDB(t)
	seedTrends(t, db, 3)
	svc := newService(db, &fakeGenerator{response: `{"subject": "S", "content": "C"}`})
	ctx := context.Background()

	result, err := svc.Generate(ctx, GenerateOptions{})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	id := result.Draft.ID

	if _, err := svc.MarkSent(ctx, id); !errors.Is(err, core.ErrInvalidTransition) {
		t.Errorf("Expected sending an unreviewed draft to fail, got %v", err)
	}

	reviewed, err := svc.Review(ctx, id)
	if err != nil {
		t.Fatalf("Review failed: %v", err)
	}
	if reviewed.Status != core.DraftStatusReviewed {
		t.Errorf("Expected reviewed, got %s", reviewed.Status)
	}

	sent, err := svc.MarkSent(ctx, id)
	if err != nil {
		t.Fatalf("MarkSent failed: %v", err)
	}
	if sent.Status != core.DraftStatusSent || sent.SentAt == nil || !sent.SentAt.Equal(fixedNow) {
		t.Errorf("Unexpected sent draft: %+v", sent)
	}

	if _, err := svc.Review(ctx, id); !errors.Is(err, core.ErrInvalidTransition) {
		t.Errorf("Expected moving backwards to fail, got %v", err)
	}
	if _, err := svc.Review(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	sentOnly, _ := svc.List(ctx, core.DraftStatusSent, 0)
	if len(sentOnly) != 1 {
		t.Errorf("Expected one sent draft, got %d", len(sentOnly))
	}
}

func TestSavePreferences(t *testing.T) {
	svc := newService(newTestDB(t), &fakeGenerator{})
	ctx := context.Background()

	prefs, err := svc.Preferences(ctx)
	if err != nil {
		t.Fatalf("Preferences failed: %v", err)
	}
	if prefs.DeliveryTime != core.DefaultDeliveryTime {
		t.Errorf("Expected defaults, got %+v", prefs)
	}

	tests := []struct {
		name    string
		mutate  func(p *core.UserPreferences)
		wantErr bool
	}{
		{"valid", func(p *core.UserPreferences) { p.Tone = "witty"; p.Topics = []string{"ai"} }, false},
		{"blank style defaults", func(p *core.UserPreferences) { p.WritingStyle = " " }, false},
		{"bad length", func(p *core.UserPreferences) { p.Length = "epic" }, true},
		{"bad delivery time", func(p *core.UserPreferences) { p.DeliveryTime = "8am" }, true},
		{"empty tone", func(p *core.UserPreferences) { p.Tone = "" }, true},
		{"long topic", func(p *core.UserPreferences) { p.Topics = []string{strings.Repeat("x", 101)} }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := core.DefaultPreferences()
			tt.mutate(&p)
			saved, err := svc.SavePreferences(ctx, p)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("Expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SavePreferences failed: %v", err)
			}
			if saved.WritingStyle == "" || saved.WritingStyle == " " {
				t.Errorf("Expected writing style defaulted, got %q", saved.WritingStyle)
			}
		})
	}
}

func TestAddPastNewsletter(t *testing.T) {
	svc := newService(newTestDB(t), &fakeGenerator{})
	ctx := context.Background()

	if _, err := svc.AddPastNewsletter(ctx, "Empty", "   ", nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty content, got %v", err)
	}
	if _, err := svc.AddPastNewsletter(ctx, "Huge", strings.Repeat("x", 10001), nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for oversized content, got %v", err)
	}

	n, err := svc.AddPastNewsletter(ctx, " Issue 1 ", "Hello readers", nil)
	if err != nil {
		t.Fatalf("AddPastNewsletter failed: %v", err)
	}
	if n.Title != "Issue 1" || !n.UploadedAt.Equal(fixedNow) {
		t.Errorf("Unexpected newsletter: %+v", n)
	}

	list, _ := svc.PastNewsletters(ctx, 10)
	if len(list) != 1 {
		t.Errorf("Expected one stored newsletter, got %d", len(list))
	}
}

func TestGenerate_NoGenerator(t *testing.T) {
	svc := newService(newTestDB(t), nil)
	if _, err := svc.Generate(context.Background(), GenerateOptions{}); !errors.Is(err, ErrNoGenerator) {
		t.Errorf("Expected ErrNoGenerator, got %v", err)
	}
}

func TestGenerate_SkipsStoredTrendsOutOfBounds(t *testing.T) {
	db := newTestDB(t)
	seedTrends(t, db, 2)
	ctx := context.Background()

	long := core.Trend{
		ID:          "trend-long",
		Title:       "Https://" + strings.Repeat("x", 212),
		Description: "Trending topic detected across 9 posts",
		Mentions:    9,
		Sentiment:   0.5,
		DetectedAt:  fixedNow.Add(-time.Minute),
		Category:    "General",
	}
	if err := db.Trends().CreateBatch(ctx, []core.Trend{long}); err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}

	gen := &fakeGenerator{response: `{"subject": "S", "content": "<p>Hi</p>"}`}
	result, err := newService(db, gen).Generate(ctx, GenerateOptions{})
	if err != nil {
		t.Fatalf("Expected generation to skip the over-long trend, got %v", err)
	}

	ids := result.Draft.TrendIDs
	if len(ids) != 2 || ids[0] != "trend-00" || ids[1] != "trend-01" {
		t.Errorf("Expected only the usable trends, got %v", ids)
	}
	if strings.Contains(gen.requests[0].User(), "xxxxxxxxxx") {
		t.Error("Over-long trend should not reach the prompt")
	}
}

func TestGenerate_OnlyUnusableStoredTrends(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	bad := core.Trend{ID: "bad", Title: strings.Repeat("y", 201), Description: "d", Mentions: 3, DetectedAt: fixedNow}
	if err := db.Trends().CreateBatch(ctx, []core.Trend{bad}); err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}

	gen := &fakeGenerator{}
	_, err := newService(db, gen).Generate(ctx, GenerateOptions{})
	if !errors.Is(err, ErrNoTrends) {
		t.Errorf("Expected ErrNoTrends, got %v", err)
	}
	if len(gen.requests) != 0 {
		t.Error("Generator should not be called")
	}
}

func TestGenerate_ExplicitTrendOutOfBoundsFails(t *testing.T) {
	db := newTestDB(t)
	gen := &fakeGenerator{}

	_, err := newService(db, gen).Generate(context.Background(), GenerateOptions{
		Trends: []core.Trend{{Title: strings.Repeat("z", 201), Description: "d"}},
	})

	var v *draft.ValidationError
	if !errors.As(err, &v) {
		t.Fatalf("Expected ValidationError for caller-supplied trends, got %v", err)
	}
	if len(gen.requests) != 0 {
		t.Error("Generator should not be called")
	}
}
