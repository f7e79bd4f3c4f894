// Package newsletter drives draft generation and the draft review lifecycle:
// it gathers trends, preferences and past issues from storage, asks the
// generator for a newsletter, stores the parsed draft and announces it.
package newsletter

import (
	"context"
	"creatorpulse/internal/core"
	"creatorpulse/internal/draft"
	"creatorpulse/internal/llm"
	"creatorpulse/internal/logger"
	"creatorpulse/internal/parser"
	"creatorpulse/internal/persistence"
	"creatorpulse/internal/publish"
	"creatorpulse/internal/runlock"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	// RecentTrends is how many stored trends feed a generated draft.
	RecentTrends = 10
	// StyleExamples is how many past newsletters are offered as style references.
	StyleExamples = 3
)

var (
	// ErrNoTrends is returned when there is nothing to write about.
	ErrNoTrends = errors.New("no trends available for draft generation")
	// ErrNoGenerator is returned by Generate on a service built without a generator.
	ErrNoGenerator = errors.New("no generator configured")
)

// Service generates and tracks newsletter drafts
type Service struct {
	db        persistence.Database
	generator llm.Generator
	publisher publish.Publisher
	locker    runlock.Locker
	now       func() time.Time
	location  *time.Location
	log       *slog.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithPublisher sets where stored drafts are announced.
func WithPublisher(p publish.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithLocker sets the lock that keeps generation runs from overlapping.
func WithLocker(l runlock.Locker) Option {
	return func(s *Service) { s.locker = l }
}

// WithClock sets the clock used for timestamps and scheduling.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the time zone delivery times are read in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.location = loc }
}

// NewService creates a newsletter service. generator may be nil for callers
// that only review drafts or manage preferences.
func NewService(db persistence.Database, generator llm.Generator, opts ...Option) *Service {
	s := &Service{
		db:        db,
		generator: generator,
		publisher: publish.Nop{},
		locker:    runlock.NewLocal(),
		now:       time.Now,
		location:  time.Local,
		log:       logger.Get(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateOptions overrides what Generate reads from storage. Nil fields are
// loaded: recent trends, saved preferences and recent past newsletters.
type GenerateOptions struct {
	Trends          []core.Trend
	Preferences     *core.UserPreferences
	SubjectLine     *string
	PastNewsletters []core.PastNewsletter
}

// Result is a stored draft together with how its text was recovered.
type Result struct {
	Draft *core.Draft  `json:"draft"`
	Stage parser.Stage `json:"parseStage"`
}

// Generate builds a draft from the current trends. Validation failures are
// returned as *draft.ValidationError before the generator is called;
// generator failures as *llm.GenerationError. Nothing is stored on failure.
func (s *Service) Generate(ctx context.Context, opts GenerateOptions) (*Result, error) {
	if s.generator == nil {
		return nil, ErrNoGenerator
	}

	release, err := s.locker.Acquire(ctx, runlock.Generate)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn("Failed to release generate lock", "error", err)
		}
	}()

	in, err := s.loadInput(ctx, opts)
	if err != nil {
		return nil, err
	}

	req, err := draft.BuildRequest(in)
	if err != nil {
		return nil, err
	}

	s.log.Info("Generating draft", "provider", s.generator.Name(), "trends", len(in.Trends), "examples", len(in.PastNewsletters))
	s.log.Debug("Draft prompt", "system_chars", len(req.System()), "user_chars", len(req.User()))
	raw, err := s.generator.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	parsed := parser.ParseGeneration(raw)
	if parsed.Stage != parser.StageJSON {
		s.log.Warn("Generation response was not clean JSON", "stage", string(parsed.Stage))
	}

	now := s.now()
	d := &core.Draft{
		ID:           uuid.NewString(),
		Subject:      parsed.Subject,
		Content:      parsed.Content,
		Status:       core.DraftStatusDraft,
		GeneratedAt:  now.UTC(),
		ScheduledFor: NextDelivery(now.In(s.location), in.Preferences.DeliveryTime).UTC(),
		TrendIDs:     trendIDs(draft.SummaryTrends(in.Trends)),
	}
	if err := s.db.Drafts().Create(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to store draft: %w", err)
	}
	s.log.Info("Stored draft", "draft_id", d.ID, "subject", d.Subject, "scheduled_for", d.ScheduledFor)

	if err := s.publisher.Publish(ctx, publish.NewDraftEvent(*d, now)); err != nil {
		s.log.Error("Failed to publish draft", "draft_id", d.ID, "error", err)
	}

	return &Result{Draft: d, Stage: parsed.Stage}, nil
}

func (s *Service) loadInput(ctx context.Context, opts GenerateOptions) (draft.Input, error) {
	in := draft.Input{
		Trends:          opts.Trends,
		SubjectLine:     opts.SubjectLine,
		PastNewsletters: opts.PastNewsletters,
	}

	if in.Trends == nil {
		recent, err := s.db.Trends().ListRecent(ctx, RecentTrends)
		if err != nil {
			return in, fmt.Errorf("failed to load trends: %w", err)
		}
		in.Trends = s.usableTrends(recent)
		if len(in.Trends) == 0 {
			return in, ErrNoTrends
		}
	}

	if opts.Preferences != nil {
		in.Preferences = *opts.Preferences
	} else {
		prefs, err := s.db.Preferences().Get(ctx)
		if err != nil {
			return in, fmt.Errorf("failed to load preferences: %w", err)
		}
		in.Preferences = *prefs
	}

	if in.PastNewsletters == nil {
		past, err := s.db.PastNewsletters().ListRecent(ctx, StyleExamples)
		if err != nil {
			return in, fmt.Errorf("failed to load past newsletters: %w", err)
		}
		in.PastNewsletters = past
	}

	return in, nil
}

// usableTrends drops stored trends a request could not carry, such as a
// title built from an over-long token. Caller-supplied trends are not
// filtered and fail validation instead.
func (s *Service) usableTrends(stored []core.Trend) []core.Trend {
	usable := make([]core.Trend, 0, len(stored))
	for _, t := range stored {
		if err := draft.ValidateTrend(t); err != nil {
			s.log.Warn("Skipping stored trend", "trend_id", t.ID, "error", err)
			continue
		}
		usable = append(usable, t)
	}
	return usable
}

func trendIDs(trends []core.Trend) []string {
	ids := make([]string, 0, len(trends))
	for _, t := range trends {
		if t.ID != "" {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// NextDelivery returns tomorrow (relative to now, in now's location) at the
// HH:MM delivery time. An unparsable time falls back to 08:00.
func NextDelivery(now time.Time, deliveryTime string) time.Time {
	at, err := time.Parse("15:04", deliveryTime)
	if err != nil {
		at, _ = time.Parse("15:04", core.DefaultDeliveryTime)
	}
	tomorrow := now.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), at.Hour(), at.Minute(), 0, 0, now.Location())
}

// Get returns one draft.
func (s *Service) Get(ctx context.Context, id string) (*core.Draft, error) {
	return s.db.Drafts().Get(ctx, id)
}

// List returns drafts newest first, optionally filtered by status.
func (s *Service) List(ctx context.Context, status core.DraftStatus, limit int) ([]core.Draft, error) {
	opts := persistence.ListOptions{Limit: limit}
	if status != "" {
		opts.Filter = map[string]string{"status": string(status)}
	}
	return s.db.Drafts().List(ctx, opts)
}

// Review marks a draft as reviewed.
func (s *Service) Review(ctx context.Context, id string) (*core.Draft, error) {
	return s.advance(ctx, id, core.DraftStatusReviewed)
}

// MarkSent marks a reviewed draft as sent and stamps SentAt.
func (s *Service) MarkSent(ctx context.Context, id string) (*core.Draft, error) {
	return s.advance(ctx, id, core.DraftStatusSent)
}

func (s *Service) advance(ctx context.Context, id string, to core.DraftStatus) (*core.Draft, error) {
	d, err := s.db.Drafts().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := d.Advance(to, s.now().UTC()); err != nil {
		return nil, err
	}
	if err := s.db.Drafts().Update(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to update draft: %w", err)
	}

	s.log.Info("Draft status changed", "draft_id", id, "status", string(to))
	return d, nil
}
