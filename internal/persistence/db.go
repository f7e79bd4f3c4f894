package persistence

import (
	"context"
	"creatorpulse/internal/config"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// Dialect names the SQL backend; it picks placeholders and migrations.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) builder() sq.StatementBuilderType {
	if d == DialectPostgres {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

// sqlDB implements Database on top of database/sql for either dialect.
type sqlDB struct {
	db      *sql.DB
	dialect Dialect
	repos
}

func newSQLDB(db *sql.DB, dialect Dialect) *sqlDB {
	return &sqlDB{
		db:      db,
		dialect: dialect,
		repos:   newRepos(sqlRepo{db: db, sb: dialect.builder()}),
	}
}

// Open connects to the backend selected by cfg.Driver.
func Open(cfg config.Database) (Database, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return NewSQLiteDB(cfg.Path)
	case "postgres":
		return NewPostgresDB(cfg.ConnectionString, cfg.MaxOpenConns)
	default:
		return nil, fmt.Errorf("unknown database driver: %s", cfg.Driver)
	}
}

func (d *sqlDB) Migrate(ctx context.Context) error {
	return NewMigrationManager(d.db, d.dialect).Migrate(ctx)
}

func (d *sqlDB) MigrationStatus(ctx context.Context) ([]MigrationStatus, error) {
	return NewMigrationManager(d.db, d.dialect).Status(ctx)
}

func (d *sqlDB) Close() error {
	return d.db.Close()
}

func (d *sqlDB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *sqlDB) BeginTx(ctx context.Context) (Transaction, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlTx{
		tx:    tx,
		repos: newRepos(sqlRepo{db: d.db, tx: tx, sb: d.dialect.builder()}),
	}, nil
}

// sqlTx implements Transaction interface
type sqlTx struct {
	tx *sql.Tx
	repos
}

func (t *sqlTx) Commit() error   { return t.tx.Commit() }
func (t *sqlTx) Rollback() error { return t.tx.Rollback() }

// repos holds one repository per table, all sharing a connection or transaction.
type repos struct {
	sources         SourceRepository
	trends          TrendRepository
	drafts          DraftRepository
	preferences     PreferencesRepository
	pastNewsletters PastNewsletterRepository
	feedback        FeedbackRepository
}

func newRepos(base sqlRepo) repos {
	return repos{
		sources:         &sourceRepo{base},
		trends:          &trendRepo{base},
		drafts:          &draftRepo{base},
		preferences:     &preferencesRepo{base},
		pastNewsletters: &pastNewsletterRepo{base},
		feedback:        &feedbackRepo{base},
	}
}

func (r repos) Sources() SourceRepository                 { return r.sources }
func (r repos) Trends() TrendRepository                   { return r.trends }
func (r repos) Drafts() DraftRepository                   { return r.drafts }
func (r repos) Preferences() PreferencesRepository        { return r.preferences }
func (r repos) PastNewsletters() PastNewsletterRepository { return r.pastNewsletters }
func (r repos) Feedback() FeedbackRepository              { return r.feedback }
