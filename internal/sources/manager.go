// Package sources manages tracked sources and runs the sync cycle that turns
// their current items into trends.
package sources

import (
	"context"
	"creatorpulse/internal/config"
	"creatorpulse/internal/core"
	"creatorpulse/internal/fetch"
	"creatorpulse/internal/logger"
	"creatorpulse/internal/persistence"
	"creatorpulse/internal/runlock"
	"creatorpulse/internal/trends"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidSource is returned when a source cannot be added as given.
var ErrInvalidSource = errors.New("invalid source")

// Manager handles source management and sync cycles
type Manager struct {
	db         persistence.Database
	fetcher    fetch.Fetcher
	aggregator *trends.Aggregator
	locker     runlock.Locker
	now        func() time.Time
	log        *slog.Logger
}

// Option customises a Manager.
type Option func(*Manager)

// WithLocker sets the lock that keeps sync cycles from overlapping.
func WithLocker(l runlock.Locker) Option {
	return func(m *Manager) { m.locker = l }
}

// WithClock sets the clock used for lastSyncAt and trend detection times.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a new source manager
func NewManager(db persistence.Database, fetcher fetch.Fetcher, opts ...Option) *Manager {
	m := &Manager{
		db:      db,
		fetcher: fetcher,
		locker:  runlock.NewLocal(),
		now:     func() time.Time { return time.Now().UTC() },
		log:     logger.Get(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.aggregator = trends.NewAggregator(trends.WithClock(m.now))
	return m
}

// AddSource validates and stores a new active source.
func (m *Manager) AddSource(ctx context.Context, typ, name, url string) (*core.Source, error) {
	sourceType, err := core.ParseSourceType(typ)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	name = strings.TrimSpace(name)
	url = strings.TrimSpace(url)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidSource)
	}
	// Hacker News and Google Trends have usable defaults; everything else needs a target.
	if url == "" && sourceType != core.SourceTypeHackerNews && sourceType != core.SourceTypeGoogleTrends {
		return nil, fmt.Errorf("%w: url is required for %s sources", ErrInvalidSource, sourceType)
	}

	source := &core.Source{
		ID:         uuid.NewString(),
		Type:       sourceType,
		Name:       name,
		URL:        url,
		IsActive:   true,
		SyncStatus: core.SyncStatusPending,
		AddedAt:    m.now(),
	}
	if err := m.db.Sources().Create(ctx, source); err != nil {
		return nil, fmt.Errorf("failed to store source: %w", err)
	}

	m.log.Info("Added new source", "id", source.ID, "type", string(source.Type), "name", source.Name)
	return source, nil
}

// RemoveSource removes a source by ID
func (m *Manager) RemoveSource(ctx context.Context, id string) error {
	if err := m.db.Sources().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to remove source: %w", err)
	}

	m.log.Info("Removed source", "id", id)
	return nil
}

// ListSources returns all sources, or only the active ones.
func (m *Manager) ListSources(ctx context.Context, activeOnly bool) ([]core.Source, error) {
	if activeOnly {
		return m.db.Sources().ListActive(ctx)
	}
	return m.db.Sources().List(ctx, persistence.ListOptions{})
}

// SetActive enables or disables a source.
func (m *Manager) SetActive(ctx context.Context, id string, active bool) (*core.Source, error) {
	source, err := m.db.Sources().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("source not found: %w", err)
	}

	source.IsActive = active
	if err := m.db.Sources().Update(ctx, source); err != nil {
		return nil, fmt.Errorf("failed to update source: %w", err)
	}

	m.log.Info("Toggled source", "id", id, "active", active)
	return source, nil
}

// SyncOptions configures a sync cycle
type SyncOptions struct {
	MaxConcurrency int           // Sources fetched at once
	Timeout        time.Duration // Deadline for the whole cycle
}

// DefaultSyncOptions returns sensible defaults
func DefaultSyncOptions() SyncOptions {
	return SyncOptions{
		MaxConcurrency: 5,
		Timeout:        10 * time.Minute,
	}
}

// SyncOptionsFromConfig reads the sync section, falling back to defaults.
func SyncOptionsFromConfig(cfg config.Sync) SyncOptions {
	opts := DefaultSyncOptions()
	if cfg.MaxConcurrency > 0 {
		opts.MaxConcurrency = cfg.MaxConcurrency
	}
	opts.Timeout = config.Duration(cfg.Timeout, opts.Timeout)
	return opts
}

// SyncResult summarises one sync cycle
type SyncResult struct {
	SourcesSynced  int          `json:"sourcesSynced"`
	SourcesFailed  int          `json:"sourcesFailed"`
	ItemsFetched   int          `json:"itemsFetched"`
	TrendsDetected int          `json:"trendsDetected"`
	Trends         []core.Trend `json:"trends"`
	Errors         []error      `json:"-"`
}

// Sync fetches every active source, aggregates the items into trends and
// appends them. A failing source is recorded on the source and never stops
// the cycle. Returns runlock.ErrLocked if another sync is running.
func (m *Manager) Sync(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	release, err := m.locker.Acquire(ctx, runlock.Sync)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			m.log.Warn("Failed to release sync lock", "error", err)
		}
	}()

	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 1
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	active, err := m.db.Sources().ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sources: %w", err)
	}

	result := &SyncResult{}
	if len(active) == 0 {
		m.log.Warn("No active sources found")
		return result, nil
	}

	m.log.Info("Starting sync", "source_count", len(active), "max_concurrency", opts.MaxConcurrency)

	// Items land in per-source slots so the collected list does not depend on completion order.
	fetched := make([][]core.FetchedItem, len(active))
	sem := make(chan struct{}, opts.MaxConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i, source := range active {
		if ctx.Err() != nil {
			m.log.Warn("Sync cancelled", "reason", ctx.Err())
			break
		}

		wg.Add(1)
		sem <- struct{}{}

		go func(i int, src core.Source) {
			defer wg.Done()
			defer func() { <-sem }()

			items, err := m.syncSource(ctx, src)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.SourcesFailed++
				result.Errors = append(result.Errors, err)
				return
			}
			result.SourcesSynced++
			result.ItemsFetched += len(items)
			fetched[i] = items
		}(i, source)
	}

	wg.Wait()

	var items []core.FetchedItem
	for _, batch := range fetched {
		items = append(items, batch...)
	}

	if m.log.Enabled(ctx, slog.LevelDebug) {
		signals := m.aggregator.Signals(items)
		if len(signals) > 10 {
			signals = signals[:10]
		}
		m.log.Debug("Keyword signals", "top", "\n"+trends.FormatSignals(signals))
	}

	detected := m.aggregator.Aggregate(items)
	if err := m.storeTrends(context.WithoutCancel(ctx), detected); err != nil {
		return result, err
	}
	result.Trends = detected
	result.TrendsDetected = len(detected)

	m.log.Info("Sync completed",
		"synced", result.SourcesSynced,
		"failed", result.SourcesFailed,
		"items", result.ItemsFetched,
		"trends", result.TrendsDetected,
	)

	return result, nil
}

// syncSource fetches one source and records its sync status. Status writes
// outlive the cycle deadline so a timed-out source still ends up in error.
func (m *Manager) syncSource(ctx context.Context, src core.Source) ([]core.FetchedItem, error) {
	statusCtx := context.WithoutCancel(ctx)
	startedAt := m.now()

	if err := m.db.Sources().UpdateSyncState(statusCtx, src.ID, persistence.SyncState{
		Status:     core.SyncStatusSyncing,
		LastSyncAt: &startedAt,
	}); err != nil {
		m.log.Error("Failed to mark source syncing", "source_id", src.ID, "error", err)
	}

	items, err := m.fetcher.Fetch(ctx, src)
	if err != nil {
		m.log.Warn("Failed to fetch source", "source_id", src.ID, "type", string(src.Type), "error", err)
		if uerr := m.db.Sources().UpdateSyncState(statusCtx, src.ID, persistence.SyncState{
			Status: core.SyncStatusError,
			Error:  err.Error(),
		}); uerr != nil {
			m.log.Error("Failed to record source error", "source_id", src.ID, "error", uerr)
		}
		return nil, fmt.Errorf("source %s: %w", src.ID, err)
	}

	count := len(items)
	if err := m.db.Sources().UpdateSyncState(statusCtx, src.ID, persistence.SyncState{
		Status:       core.SyncStatusSuccess,
		TrackedCount: &count,
	}); err != nil {
		m.log.Error("Failed to mark source synced", "source_id", src.ID, "error", err)
	}

	m.log.Debug("Fetched source", "source_id", src.ID, "items", count)
	return items, nil
}

func (m *Manager) storeTrends(ctx context.Context, detected []core.Trend) error {
	if len(detected) == 0 {
		return nil
	}

	tx, err := m.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := tx.Trends().CreateBatch(ctx, detected); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to store trends: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit trends: %w", err)
	}
	return nil
}
