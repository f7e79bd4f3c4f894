package newsletter

import (
	"context"
	"creatorpulse/internal/core"
	"creatorpulse/internal/draft"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxFeedbackComments bounds the free-text part of a draft rating.
const MaxFeedbackComments = 2000

// Edit replaces the subject and/or content of a draft that has not been sent.
// An empty value keeps the current text. The generated text is kept on the
// draft so later feedback can compare the two.
func (s *Service) Edit(ctx context.Context, id, subject, content string) (*core.Draft, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" && strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: subject or content is required", ErrInvalidInput)
	}
	if n := utf8.RuneCountInString(subject); n > draft.MaxSubjectLine {
		return nil, fmt.Errorf("%w: subject exceeds %d characters", ErrInvalidInput, draft.MaxSubjectLine)
	}

	d, err := s.db.Drafts().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := d.Edit(subject, content, s.now().UTC()); err != nil {
		return nil, err
	}
	if err := s.db.Drafts().Update(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to update draft: %w", err)
	}

	s.log.Info("Draft edited", "draft_id", id, "subject", d.Subject)
	return d, nil
}

// SubmitFeedback records a 1 to 5 rating of a draft along with the generated
// and, when the draft was edited, the edited text.
func (s *Service) SubmitFeedback(ctx context.Context, id string, rating int, comments string) (*core.DraftFeedback, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidInput)
	}
	comments = strings.TrimSpace(comments)
	if utf8.RuneCountInString(comments) > MaxFeedbackComments {
		return nil, fmt.Errorf("%w: comments exceed %d characters", ErrInvalidInput, MaxFeedbackComments)
	}

	d, err := s.db.Drafts().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	fb := &core.DraftFeedback{
		ID:        uuid.NewString(),
		DraftID:   d.ID,
		Rating:    rating,
		Comments:  comments,
		CreatedAt: s.now().UTC(),
	}
	fb.OriginalSubject, fb.OriginalContent = d.GeneratedText()
	if d.EditedAt != nil {
		fb.EditedSubject = d.Subject
		fb.EditedContent = d.Content
	}
	if err := s.db.Feedback().Create(ctx, fb); err != nil {
		return nil, fmt.Errorf("failed to store feedback: %w", err)
	}

	s.log.Info("Draft feedback recorded", "draft_id", id, "rating", rating, "edited", d.EditedAt != nil)
	return fb, nil
}

// Feedback lists the ratings given to a draft, oldest first.
func (s *Service) Feedback(ctx context.Context, id string) ([]core.DraftFeedback, error) {
	if _, err := s.db.Drafts().Get(ctx, id); err != nil {
		return nil, err
	}
	return s.db.Feedback().ListByDraft(ctx, id)
}

// Due returns reviewed drafts whose delivery time has passed, earliest first.
func (s *Service) Due(ctx context.Context) ([]core.Draft, error) {
	return s.db.Drafts().ListDue(ctx, s.now().UTC())
}
