package persistence

import (
	"context"
	"creatorpulse/internal/core"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	sq "github.com/Masterminds/squirrel"
)

type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// sqlRepo is shared by every repository: the connection or transaction to
// run on, and a statement builder with the dialect's placeholder format.
type sqlRepo struct {
	db *sql.DB
	tx *sql.Tx
	sb sq.StatementBuilderType
}

func (r sqlRepo) query() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r sqlRepo) exec(ctx context.Context, b sq.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return r.query().ExecContext(ctx, query, args...)
}

func (r sqlRepo) queryRows(ctx context.Context, b sq.SelectBuilder) (*sql.Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return r.query().QueryContext(ctx, query, args...)
}

func (r sqlRepo) queryRow(ctx context.Context, b sq.SelectBuilder) (*sql.Row, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return r.query().QueryRowContext(ctx, query, args...), nil
}

// execOne runs an UPDATE or DELETE that must touch exactly one row.
func (r sqlRepo) execOne(ctx context.Context, b sq.Sqlizer) error {
	res, err := r.exec(ctx, b)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func paginate(b sq.SelectBuilder, opts ListOptions) sq.SelectBuilder {
	if opts.Limit > 0 {
		b = b.Limit(uint64(opts.Limit))
	}
	if opts.Offset > 0 {
		// SQLite rejects OFFSET without LIMIT.
		if opts.Limit <= 0 {
			b = b.Limit(math.MaxInt64)
		}
		b = b.Offset(uint64(opts.Offset))
	}
	return b
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func marshalStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalStrings(data string) ([]string, error) {
	if data == "" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil, err
	}
	return values, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %w", what, ErrNotFound)
	}
	return err
}

// sourceRepo implements SourceRepository
type sourceRepo struct{ sqlRepo }

var sourceColumns = []string{
	"id", "type", "name", "url", "is_active", "tracked_count",
	"last_sync_at", "sync_status", "sync_error", "added_at",
}

func (r *sourceRepo) Create(ctx context.Context, s *core.Source) error {
	if s.SyncStatus == "" {
		s.SyncStatus = core.SyncStatusPending
	}
	if s.AddedAt.IsZero() {
		s.AddedAt = time.Now().UTC()
	}

	_, err := r.exec(ctx, r.sb.Insert("sources").Columns(sourceColumns...).Values(
		s.ID, string(s.Type), s.Name, s.URL, s.IsActive, s.TrackedCount,
		nullTime(s.LastSyncAt), string(s.SyncStatus), s.SyncError, s.AddedAt.UTC(),
	))
	return err
}

func (r *sourceRepo) Get(ctx context.Context, id string) (*core.Source, error) {
	row, err := r.queryRow(ctx, r.sb.Select(sourceColumns...).From("sources").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	source, err := scanSource(row)
	if err != nil {
		return nil, notFound(err, "source")
	}
	return source, nil
}

func (r *sourceRepo) List(ctx context.Context, opts ListOptions) ([]core.Source, error) {
	b := r.sb.Select(sourceColumns...).From("sources").OrderBy("added_at ASC", "id ASC")
	if t := opts.Filter["type"]; t != "" {
		b = b.Where(sq.Eq{"type": t})
	}
	return r.list(ctx, paginate(b, opts))
}

func (r *sourceRepo) ListActive(ctx context.Context) ([]core.Source, error) {
	return r.list(ctx, r.sb.Select(sourceColumns...).From("sources").
		Where(sq.Eq{"is_active": true}).OrderBy("added_at ASC", "id ASC"))
}

func (r *sourceRepo) list(ctx context.Context, b sq.SelectBuilder) ([]core.Source, error) {
	rows, err := r.queryRows(ctx, b)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []core.Source
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, *s)
	}
	return sources, rows.Err()
}

func (r *sourceRepo) Update(ctx context.Context, s *core.Source) error {
	return r.execOne(ctx, r.sb.Update("sources").SetMap(map[string]interface{}{
		"type":      string(s.Type),
		"name":      s.Name,
		"url":       s.URL,
		"is_active": s.IsActive,
	}).Where(sq.Eq{"id": s.ID}))
}

func (r *sourceRepo) UpdateSyncState(ctx context.Context, id string, state SyncState) error {
	b := r.sb.Update("sources").
		Set("sync_status", string(state.Status)).
		Set("sync_error", state.Error).
		Where(sq.Eq{"id": id})
	if state.LastSyncAt != nil {
		b = b.Set("last_sync_at", state.LastSyncAt.UTC())
	}
	if state.TrackedCount != nil {
		b = b.Set("tracked_count", *state.TrackedCount)
	}
	return r.execOne(ctx, b)
}

func (r *sourceRepo) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, r.sb.Delete("sources").Where(sq.Eq{"id": id}))
}

func scanSource(row scanner) (*core.Source, error) {
	var (
		s          core.Source
		typ        string
		status     string
		lastSyncAt sql.NullTime
	)
	err := row.Scan(&s.ID, &typ, &s.Name, &s.URL, &s.IsActive, &s.TrackedCount,
		&lastSyncAt, &status, &s.SyncError, &s.AddedAt)
	if err != nil {
		return nil, err
	}
	s.Type = core.SourceType(typ)
	s.SyncStatus = core.SyncStatus(status)
	s.LastSyncAt = timePtr(lastSyncAt)
	s.AddedAt = s.AddedAt.UTC()
	return &s, nil
}

// trendRepo implements TrendRepository
type trendRepo struct{ sqlRepo }

var trendColumns = []string{
	"id", "title", "description", "mentions", "sentiment", "detected_at", "category", "source_ids",
}

func (r *trendRepo) CreateBatch(ctx context.Context, trends []core.Trend) error {
	if len(trends) == 0 {
		return nil
	}

	b := r.sb.Insert("trends").Columns(trendColumns...)
	for _, t := range trends {
		sourceIDs, err := marshalStrings(t.SourceIDs)
		if err != nil {
			return fmt.Errorf("failed to marshal source IDs: %w", err)
		}
		b = b.Values(t.ID, t.Title, t.Description, t.Mentions, t.Sentiment, t.DetectedAt.UTC(), t.Category, sourceIDs)
	}
	_, err := r.exec(ctx, b)
	return err
}

func (r *trendRepo) Get(ctx context.Context, id string) (*core.Trend, error) {
	row, err := r.queryRow(ctx, r.sb.Select(trendColumns...).From("trends").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	trend, err := scanTrend(row)
	if err != nil {
		return nil, notFound(err, "trend")
	}
	return trend, nil
}

func (r *trendRepo) ListRecent(ctx context.Context, limit int) ([]core.Trend, error) {
	b := r.sb.Select(trendColumns...).From("trends").OrderBy("detected_at DESC", "mentions DESC", "title ASC")
	rows, err := r.queryRows(ctx, paginate(b, ListOptions{Limit: limit}))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trends []core.Trend
	for rows.Next() {
		t, err := scanTrend(rows)
		if err != nil {
			return nil, err
		}
		trends = append(trends, *t)
	}
	return trends, rows.Err()
}

func scanTrend(row scanner) (*core.Trend, error) {
	var (
		t         core.Trend
		sourceIDs string
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Mentions, &t.Sentiment,
		&t.DetectedAt, &t.Category, &sourceIDs); err != nil {
		return nil, err
	}
	ids, err := unmarshalStrings(sourceIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal source IDs: %w", err)
	}
	t.SourceIDs = ids
	t.DetectedAt = t.DetectedAt.UTC()
	return &t, nil
}

// draftRepo implements DraftRepository
type draftRepo struct{ sqlRepo }

var draftColumns = []string{
	"id", "subject", "content", "status", "generated_at", "scheduled_for", "sent_at", "trend_ids",
	"edited_at", "original_subject", "original_content",
}

func (r *draftRepo) Create(ctx context.Context, d *core.Draft) error {
	trendIDs, err := marshalStrings(d.TrendIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal trend IDs: %w", err)
	}
	_, err = r.exec(ctx, r.sb.Insert("drafts").Columns(draftColumns...).Values(
		d.ID, d.Subject, d.Content, string(d.Status), d.GeneratedAt.UTC(), d.ScheduledFor.UTC(),
		nullTime(d.SentAt), trendIDs, nullTime(d.EditedAt), d.OriginalSubject, d.OriginalContent,
	))
	return err
}

func (r *draftRepo) Get(ctx context.Context, id string) (*core.Draft, error) {
	row, err := r.queryRow(ctx, r.sb.Select(draftColumns...).From("drafts").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	draft, err := scanDraft(row)
	if err != nil {
		return nil, notFound(err, "draft")
	}
	return draft, nil
}

func (r *draftRepo) List(ctx context.Context, opts ListOptions) ([]core.Draft, error) {
	b := r.sb.Select(draftColumns...).From("drafts").OrderBy("generated_at DESC", "id ASC")
	if status := opts.Filter["status"]; status != "" {
		b = b.Where(sq.Eq{"status": status})
	}

	return r.list(ctx, paginate(b, opts))
}

func (r *draftRepo) ListDue(ctx context.Context, now time.Time) ([]core.Draft, error) {
	return r.list(ctx, r.sb.Select(draftColumns...).From("drafts").
		Where(sq.Eq{"status": string(core.DraftStatusReviewed)}).
		Where(sq.LtOrEq{"scheduled_for": now.UTC()}).
		OrderBy("scheduled_for ASC", "id ASC"))
}

func (r *draftRepo) list(ctx context.Context, b sq.SelectBuilder) ([]core.Draft, error) {
	rows, err := r.queryRows(ctx, b)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drafts []core.Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, *d)
	}
	return drafts, rows.Err()
}

func (r *draftRepo) Update(ctx context.Context, d *core.Draft) error {
	return r.execOne(ctx, r.sb.Update("drafts").SetMap(map[string]interface{}{
		"subject":          d.Subject,
		"content":          d.Content,
		"status":           string(d.Status),
		"sent_at":          nullTime(d.SentAt),
		"edited_at":        nullTime(d.EditedAt),
		"original_subject": d.OriginalSubject,
		"original_content": d.OriginalContent,
	}).Where(sq.Eq{"id": d.ID}))
}

func scanDraft(row scanner) (*core.Draft, error) {
	var (
		d        core.Draft
		status   string
		sentAt   sql.NullTime
		editedAt sql.NullTime
		trendIDs string
	)
	if err := row.Scan(&d.ID, &d.Subject, &d.Content, &status, &d.GeneratedAt,
		&d.ScheduledFor, &sentAt, &trendIDs, &editedAt, &d.OriginalSubject, &d.OriginalContent); err != nil {
		return nil, err
	}
	ids, err := unmarshalStrings(trendIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal trend IDs: %w", err)
	}
	d.Status = core.DraftStatus(status)
	d.SentAt = timePtr(sentAt)
	d.EditedAt = timePtr(editedAt)
	d.TrendIDs = ids
	d.GeneratedAt = d.GeneratedAt.UTC()
	d.ScheduledFor = d.ScheduledFor.UTC()
	return &d, nil
}

// preferencesRepo implements PreferencesRepository. The table holds one row with id 1.
type preferencesRepo struct{ sqlRepo }

const preferencesRowID = 1

func (r *preferencesRepo) Get(ctx context.Context) (*core.UserPreferences, error) {
	row, err := r.queryRow(ctx, r.sb.
		Select("writing_style", "tone", "length", "topics", "delivery_time", "email_address").
		From("user_preferences").Where(sq.Eq{"id": preferencesRowID}))
	if err != nil {
		return nil, err
	}

	var (
		p      core.UserPreferences
		length string
		topics string
	)
	err = row.Scan(&p.WritingStyle, &p.Tone, &length, &topics, &p.DeliveryTime, &p.EmailAddress)
	if errors.Is(err, sql.ErrNoRows) {
		defaults := core.DefaultPreferences()
		if err := r.Save(ctx, &defaults); err != nil {
			return nil, fmt.Errorf("failed to create default preferences: %w", err)
		}
		return &defaults, nil
	}
	if err != nil {
		return nil, err
	}

	p.Length = core.NewsletterLength(length)
	if p.Topics, err = unmarshalStrings(topics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal topics: %w", err)
	}
	if p.Topics == nil {
		p.Topics = []string{}
	}
	return &p, nil
}

func (r *preferencesRepo) Save(ctx context.Context, p *core.UserPreferences) error {
	topics, err := marshalStrings(p.Topics)
	if err != nil {
		return fmt.Errorf("failed to marshal topics: %w", err)
	}

	_, err = r.exec(ctx, r.sb.Insert("user_preferences").
		Columns("id", "writing_style", "tone", "length", "topics", "delivery_time", "email_address", "updated_at").
		Values(preferencesRowID, p.WritingStyle, p.Tone, string(p.Length), topics, p.DeliveryTime, p.EmailAddress, time.Now().UTC()).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			writing_style = excluded.writing_style,
			tone = excluded.tone,
			length = excluded.length,
			topics = excluded.topics,
			delivery_time = excluded.delivery_time,
			email_address = excluded.email_address,
			updated_at = excluded.updated_at`))
	return err
}

// pastNewsletterRepo implements PastNewsletterRepository
type pastNewsletterRepo struct{ sqlRepo }

func (r *pastNewsletterRepo) Create(ctx context.Context, n *core.PastNewsletter) error {
	if n.UploadedAt.IsZero() {
		n.UploadedAt = time.Now().UTC()
	}
	_, err := r.exec(ctx, r.sb.Insert("past_newsletters").
		Columns("id", "title", "content", "sent_date", "uploaded_at").
		Values(n.ID, n.Title, n.Content, nullTime(n.SentDate), n.UploadedAt.UTC()))
	return err
}

func (r *pastNewsletterRepo) ListRecent(ctx context.Context, limit int) ([]core.PastNewsletter, error) {
	b := r.sb.Select("id", "title", "content", "sent_date", "uploaded_at").
		From("past_newsletters").
		OrderBy("sent_date DESC NULLS LAST", "uploaded_at DESC")

	rows, err := r.queryRows(ctx, paginate(b, ListOptions{Limit: limit}))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var newsletters []core.PastNewsletter
	for rows.Next() {
		var (
			n        core.PastNewsletter
			sentDate sql.NullTime
		)
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &sentDate, &n.UploadedAt); err != nil {
			return nil, err
		}
		n.SentDate = timePtr(sentDate)
		n.UploadedAt = n.UploadedAt.UTC()
		newsletters = append(newsletters, n)
	}
	return newsletters, rows.Err()
}

// feedbackRepo implements FeedbackRepository
type feedbackRepo struct{ sqlRepo }

var feedbackColumns = []string{
	"id", "draft_id", "rating", "comments", "original_subject", "edited_subject",
	"original_content", "edited_content", "created_at",
}

func (r *feedbackRepo) Create(ctx context.Context, f *core.DraftFeedback) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	_, err := r.exec(ctx, r.sb.Insert("draft_feedback").Columns(feedbackColumns...).Values(
		f.ID, f.DraftID, f.Rating, f.Comments, f.OriginalSubject, f.EditedSubject,
		f.OriginalContent, f.EditedContent, f.CreatedAt.UTC(),
	))
	return err
}

func (r *feedbackRepo) ListByDraft(ctx context.Context, draftID string) ([]core.DraftFeedback, error) {
	rows, err := r.queryRows(ctx, r.sb.Select(feedbackColumns...).From("draft_feedback").
		Where(sq.Eq{"draft_id": draftID}).
		OrderBy("created_at ASC", "id ASC"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var feedback []core.DraftFeedback
	for rows.Next() {
		var f core.DraftFeedback
		if err := rows.Scan(&f.ID, &f.DraftID, &f.Rating, &f.Comments, &f.OriginalSubject, &f.EditedSubject,
			&f.OriginalContent, &f.EditedContent, &f.CreatedAt); err != nil {
			return nil, err
		}
		f.CreatedAt = f.CreatedAt.UTC()
		feedback = append(feedback, f)
	}
	return feedback, rows.Err()
}
