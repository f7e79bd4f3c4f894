package core

import (
	"errors"
	"fmt"
	"time"
)

// SourceType identifies the kind of external feed a Source points at.
type SourceType string

const (
	SourceTypeRSS          SourceType = "rss"
	SourceTypeYouTube      SourceType = "youtube"
	SourceTypeTwitter      SourceType = "twitter"
	SourceTypeReddit       SourceType = "reddit"
	SourceTypeHackerNews   SourceType = "hacker-news"
	SourceTypeGoogleTrends SourceType = "google-trends"
	SourceTypeGoogleAlerts SourceType = "google-alerts"
)

// SourceTypes lists every supported source type in display order.
var SourceTypes = []SourceType{
	SourceTypeRSS,
	SourceTypeYouTube,
	SourceTypeTwitter,
	SourceTypeReddit,
	SourceTypeHackerNews,
	SourceTypeGoogleTrends,
	SourceTypeGoogleAlerts,
}

// ParseSourceType accepts the canonical names plus the camelCase spellings
// used by older clients ("hackerNews", "googleTrends", "googleAlerts").
func ParseSourceType(s string) (SourceType, error) {
	switch s {
	case "hackerNews":
		return SourceTypeHackerNews, nil
	case "googleTrends":
		return SourceTypeGoogleTrends, nil
	case "googleAlerts":
		return SourceTypeGoogleAlerts, nil
	}
	for _, t := range SourceTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown source type %q", s)
}

// SyncStatus is the state of a source's most recent sync attempt.
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSyncing SyncStatus = "syncing"
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusError   SyncStatus = "error"
)

// Source is an external content feed tracked by the user.
type Source struct {
	ID           string     `json:"id"`                     // Unique identifier for the source
	Type         SourceType `json:"type"`                   // Provider kind
	Name         string     `json:"name"`                   // Display name
	URL          string     `json:"url"`                    // Feed URL or provider identifier
	IsActive     bool       `json:"isActive"`               // Only active sources are synced
	TrackedCount int        `json:"trackedCount"`           // Items fetched on the last successful sync
	LastSyncAt   *time.Time `json:"lastSyncAt,omitempty"`   // Start of the last sync attempt
	SyncStatus   SyncStatus `json:"syncStatus"`             // State of the last sync attempt
	SyncError    string     `json:"syncError,omitempty"`    // Error message of the last failed sync
	AddedAt      time.Time  `json:"addedAt"`                // When the source was added
}

// FetchedItem is a single raw entry pulled from a source during one sync cycle.
// It is never persisted.
type FetchedItem struct {
	SourceID    string `json:"sourceId"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// KeywordSignal is the per-cycle tally for one candidate term.
type KeywordSignal struct {
	Term          string   `json:"term"`
	Count         int      `json:"count"`         // Distinct items containing the term
	ExampleTitles []string `json:"exampleTitles"` // First three item titles seen
	SourceIDs     []string `json:"sourceIds"`     // Sources whose items contained the term
}

// Trend is a detected recurring topic. Trends are append-only.
type Trend struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Mentions    int       `json:"mentions"`
	Sentiment   float64   `json:"sentiment"` // -1.0 to 1.0
	DetectedAt  time.Time `json:"detectedAt"`
	Category    string    `json:"category"`
	SourceIDs   []string  `json:"sourceIds"`
}

// NewsletterLength is the preferred length of a generated newsletter.
type NewsletterLength string

const (
	LengthShort  NewsletterLength = "short"
	LengthMedium NewsletterLength = "medium"
	LengthLong   NewsletterLength = "long"
)

// Valid reports whether l is one of the known lengths.
func (l NewsletterLength) Valid() bool {
	switch l {
	case LengthShort, LengthMedium, LengthLong:
		return true
	}
	return false
}

// Preference defaults applied when the user has not saved any settings.
const (
	DefaultWritingStyle = "Professional yet conversational"
	DefaultTone         = "informative"
	DefaultLength       = LengthMedium
	DefaultDeliveryTime = "08:00"
)

// UserPreferences holds the user's writing and delivery settings.
type UserPreferences struct {
	WritingStyle string           `json:"writingStyle" yaml:"writing_style"`
	Tone         string           `json:"tone" yaml:"tone"`
	Length       NewsletterLength `json:"length" yaml:"length"`
	Topics       []string         `json:"topics" yaml:"topics"`
	DeliveryTime string           `json:"deliveryTime" yaml:"delivery_time"` // HH:MM, local time
	EmailAddress string           `json:"emailAddress" yaml:"email_address"`
}

// DefaultPreferences returns the preferences created on first access.
func DefaultPreferences() UserPreferences {
	return UserPreferences{
		WritingStyle: DefaultWritingStyle,
		Tone:         DefaultTone,
		Length:       DefaultLength,
		Topics:       []string{},
		DeliveryTime: DefaultDeliveryTime,
	}
}

// PastNewsletter is a previously sent newsletter used as a style reference.
type PastNewsletter struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	SentDate   *time.Time `json:"sentDate,omitempty"`
	UploadedAt time.Time  `json:"uploadedAt"`
}

// DraftStatus is the review state of a generated newsletter.
type DraftStatus string

const (
	DraftStatusDraft    DraftStatus = "draft"
	DraftStatusReviewed DraftStatus = "reviewed"
	DraftStatusSent     DraftStatus = "sent"
)

var (
	// ErrInvalidTransition is returned when a draft status change would move
	// backwards or skip a step.
	ErrInvalidTransition = errors.New("invalid draft status transition")
	// ErrDraftSent is returned when the text of a sent draft is changed.
	ErrDraftSent = errors.New("draft has already been sent")
)

// Draft is a generated newsletter awaiting review and delivery.
type Draft struct {
	ID           string      `json:"id"`
	Subject      string      `json:"subject"`
	Content      string      `json:"content"`
	Status       DraftStatus `json:"status"`
	GeneratedAt  time.Time   `json:"generatedAt"`
	ScheduledFor time.Time   `json:"scheduledFor"`
	SentAt       *time.Time  `json:"sentAt,omitempty"`
	TrendIDs     []string    `json:"trendIds"`

	// Set by the first edit; the generated text is kept alongside the edit.
	EditedAt        *time.Time `json:"editedAt,omitempty"`
	OriginalSubject string     `json:"originalSubject,omitempty"`
	OriginalContent string     `json:"originalContent,omitempty"`
}

// Edit replaces the subject and content. Empty values keep the current text.
// The generated text is preserved the first time the draft changes. Returns
// ErrDraftSent once the draft has been sent.
func (d *Draft) Edit(subject, content string, now time.Time) error {
	if d.Status == DraftStatusSent {
		return ErrDraftSent
	}
	if subject == "" {
		subject = d.Subject
	}
	if content == "" {
		content = d.Content
	}
	if subject == d.Subject && content == d.Content {
		return nil
	}

	if d.EditedAt == nil {
		d.OriginalSubject = d.Subject
		d.OriginalContent = d.Content
	}
	edited := now
	d.EditedAt = &edited
	d.Subject = subject
	d.Content = content
	return nil
}

// GeneratedText returns the subject and content as the generator produced them.
func (d *Draft) GeneratedText() (subject, content string) {
	if d.EditedAt == nil {
		return d.Subject, d.Content
	}
	return d.OriginalSubject, d.OriginalContent
}

// DraftFeedback is the user's rating of a draft, with a snapshot of the
// generated and edited text at the time it was given.
type DraftFeedback struct {
	ID              string    `json:"id"`
	DraftID         string    `json:"draftId"`
	Rating          int       `json:"rating"` // 1 (poor) to 5 (ready to send)
	Comments        string    `json:"comments,omitempty"`
	OriginalSubject string    `json:"originalSubject"`
	EditedSubject   string    `json:"editedSubject,omitempty"`
	OriginalContent string    `json:"originalContent"`
	EditedContent   string    `json:"editedContent,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Advance moves the draft to the next status. Only draft→reviewed and
// reviewed→sent are allowed; sending stamps SentAt.
func (d *Draft) Advance(to DraftStatus, now time.Time) error {
	switch {
	case d.Status == DraftStatusDraft && to == DraftStatusReviewed:
	case d.Status == DraftStatusReviewed && to == DraftStatusSent:
		sent := now
		d.SentAt = &sent
	default:
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.Status, to)
	}
	d.Status = to
	return nil
}
