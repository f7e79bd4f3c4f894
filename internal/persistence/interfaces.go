// Package persistence provides database abstraction interfaces for storing
// sources, trends, drafts, preferences and the past-newsletter style corpus
package persistence

import (
	"context"
	"creatorpulse/internal/core"
	"errors"
	"time"
)

// ErrNotFound is returned when a lookup by ID matches no row.
var ErrNotFound = errors.New("not found")

// SourceRepository handles source persistence operations
type SourceRepository interface {
	// Create inserts a new source
	Create(ctx context.Context, source *core.Source) error

	// Get retrieves a source by ID
	Get(ctx context.Context, id string) (*core.Source, error)

	// List retrieves sources ordered by when they were added
	List(ctx context.Context, opts ListOptions) ([]core.Source, error)

	// ListActive retrieves all sources the sync cycle should read
	ListActive(ctx context.Context) ([]core.Source, error)

	// Update saves user-editable fields (name, url, type, isActive)
	Update(ctx context.Context, source *core.Source) error

	// UpdateSyncState writes back the outcome of a sync attempt
	UpdateSyncState(ctx context.Context, id string, state SyncState) error

	// Delete removes a source by ID
	Delete(ctx context.Context, id string) error
}

// SyncState is the sync bookkeeping written back to a source. Nil pointers
// leave the stored value untouched.
type SyncState struct {
	Status       core.SyncStatus
	Error        string
	LastSyncAt   *time.Time
	TrackedCount *int
}

// TrendRepository handles trend persistence. Trends are append-only.
type TrendRepository interface {
	// CreateBatch appends the trends detected in one cycle
	CreateBatch(ctx context.Context, trends []core.Trend) error

	// Get retrieves a trend by ID
	Get(ctx context.Context, id string) (*core.Trend, error)

	// ListRecent retrieves the most recently detected trends, newest first
	ListRecent(ctx context.Context, limit int) ([]core.Trend, error)
}

// DraftRepository handles draft persistence operations
type DraftRepository interface {
	// Create inserts a new draft
	Create(ctx context.Context, draft *core.Draft) error

	// Get retrieves a draft by ID
	Get(ctx context.Context, id string) (*core.Draft, error)

	// List retrieves drafts, newest first; Filter["status"] narrows by status
	List(ctx context.Context, opts ListOptions) ([]core.Draft, error)

	// Update saves the text, edit bookkeeping, status and sentAt
	Update(ctx context.Context, draft *core.Draft) error

	// ListDue retrieves reviewed drafts scheduled at or before now, earliest first
	ListDue(ctx context.Context, now time.Time) ([]core.Draft, error)
}

// FeedbackRepository stores ratings given to drafts
type FeedbackRepository interface {
	// Create inserts a feedback entry
	Create(ctx context.Context, feedback *core.DraftFeedback) error

	// ListByDraft retrieves the feedback for one draft, oldest first
	ListByDraft(ctx context.Context, draftID string) ([]core.DraftFeedback, error)
}

// PreferencesRepository stores the single set of user preferences
type PreferencesRepository interface {
	// Get returns the stored preferences, creating the defaults on first access
	Get(ctx context.Context) (*core.UserPreferences, error)

	// Save replaces the stored preferences
	Save(ctx context.Context, prefs *core.UserPreferences) error
}

// PastNewsletterRepository handles the style-reference corpus
type PastNewsletterRepository interface {
	// Create inserts a past newsletter
	Create(ctx context.Context, newsletter *core.PastNewsletter) error

	// ListRecent retrieves past newsletters by sent date, newest first
	ListRecent(ctx context.Context, limit int) ([]core.PastNewsletter, error)
}

// ListOptions provides common filtering and pagination options
type ListOptions struct {
	Limit  int               // Maximum number of results (0 for no limit)
	Offset int               // Number of results to skip
	Filter map[string]string // Key-value filters
}

// Repositories groups the repositories reachable from a Database or a Transaction
type Repositories interface {
	Sources() SourceRepository
	Trends() TrendRepository
	Drafts() DraftRepository
	Preferences() PreferencesRepository
	PastNewsletters() PastNewsletterRepository
	Feedback() FeedbackRepository
}

// Database represents the main database interface that aggregates all repositories
type Database interface {
	Repositories

	// Migrate applies pending schema migrations
	Migrate(ctx context.Context) error

	// MigrationStatus lists every known migration and whether it has been applied
	MigrationStatus(ctx context.Context) ([]MigrationStatus, error)

	// Close closes the database connection
	Close() error

	// Ping verifies the database connection
	Ping(ctx context.Context) error

	// BeginTx starts a new transaction
	BeginTx(ctx context.Context) (Transaction, error)
}

// Transaction represents a database transaction
type Transaction interface {
	Repositories

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error
}
