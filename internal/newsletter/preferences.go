package newsletter

import (
	"context"
	"creatorpulse/internal/core"
	"creatorpulse/internal/draft"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ErrInvalidInput wraps rejected preference and style corpus values.
var ErrInvalidInput = errors.New("invalid input")

// Preferences returns the saved preferences, creating defaults on first access.
func (s *Service) Preferences(ctx context.Context) (*core.UserPreferences, error) {
	return s.db.Preferences().Get(ctx)
}

// SavePreferences validates and stores preferences. An empty writing style
// is replaced by the default.
func (s *Service) SavePreferences(ctx context.Context, p core.UserPreferences) (*core.UserPreferences, error) {
	if strings.TrimSpace(p.WritingStyle) == "" {
		p.WritingStyle = core.DefaultWritingStyle
	}
	if p.Topics == nil {
		p.Topics = []string{}
	}
	if err := validatePreferences(p); err != nil {
		return nil, err
	}
	if err := s.db.Preferences().Save(ctx, &p); err != nil {
		return nil, fmt.Errorf("failed to save preferences: %w", err)
	}

	s.log.Info("Saved preferences", "tone", p.Tone, "length", string(p.Length), "delivery_time", p.DeliveryTime)
	return &p, nil
}

func validatePreferences(p core.UserPreferences) error {
	switch {
	case utf8.RuneCountInString(p.WritingStyle) > draft.MaxWritingStyle:
		return fmt.Errorf("%w: writing style exceeds %d characters", ErrInvalidInput, draft.MaxWritingStyle)
	case p.Tone == "" || utf8.RuneCountInString(p.Tone) > draft.MaxTone:
		return fmt.Errorf("%w: tone must be 1-%d characters", ErrInvalidInput, draft.MaxTone)
	case !p.Length.Valid():
		return fmt.Errorf("%w: length must be short, medium or long", ErrInvalidInput)
	case len(p.Topics) > draft.MaxTopics:
		return fmt.Errorf("%w: at most %d topics", ErrInvalidInput, draft.MaxTopics)
	}
	for _, topic := range p.Topics {
		if utf8.RuneCountInString(topic) > draft.MaxTopicLength {
			return fmt.Errorf("%w: topic exceeds %d characters", ErrInvalidInput, draft.MaxTopicLength)
		}
	}
	if _, err := time.Parse("15:04", p.DeliveryTime); err != nil {
		return fmt.Errorf("%w: delivery time must be HH:MM", ErrInvalidInput)
	}
	return nil
}

// AddPastNewsletter stores a previously sent newsletter as a style reference.
func (s *Service) AddPastNewsletter(ctx context.Context, title, content string, sentDate *time.Time) (*core.PastNewsletter, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(content) > draft.MaxNewsletterContent {
		return nil, fmt.Errorf("%w: content exceeds %d characters", ErrInvalidInput, draft.MaxNewsletterContent)
	}

	n := &core.PastNewsletter{
		ID:         uuid.NewString(),
		Title:      strings.TrimSpace(title),
		Content:    content,
		SentDate:   sentDate,
		UploadedAt: s.now().UTC(),
	}
	if err := s.db.PastNewsletters().Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to store past newsletter: %w", err)
	}

	s.log.Info("Added past newsletter", "id", n.ID, "title", n.Title)
	return n, nil
}

// PastNewsletters returns the most recent style references.
func (s *Service) PastNewsletters(ctx context.Context, limit int) ([]core.PastNewsletter, error) {
	return s.db.PastNewsletters().ListRecent(ctx, limit)
}
