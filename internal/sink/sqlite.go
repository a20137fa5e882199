package sink

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"

	"insurance-desk/internal/engine"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteSink stores submissions as rows in a local SQLite database.
type SQLiteSink struct {
	db  *sql.DB
	cfg SQLiteConfig
	now func() time.Time
}

type SQLiteConfig struct {
	Path            string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

func NewSQLiteSink(cfg SQLiteConfig) (*SQLiteSink, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 4
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}
	return &SQLiteSink{cfg: cfg, now: time.Now}, nil
}

// Init opens the database and enables WAL mode.
func (s *SQLiteSink) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", s.cfg.Path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	return nil
}

// Migrate applies the embedded schema migrations.
func (s *SQLiteSink) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *SQLiteSink) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Submit inserts the submission. When it was loaded from a record of the
// same type, that record's fields are updated as well.
func (s *SQLiteSink) Submit(ctx context.Context, sub engine.Submission) (string, error) {
	fields, err := json.Marshal(sub.Fields)
	if err != nil {
		return "", engine.NewSinkFailure(engine.SinkRejected, "record could not be encoded", err)
	}
	var changes []byte
	if len(sub.Changes) > 0 {
		if changes, err = json.Marshal(sub.Changes); err != nil {
			return "", engine.NewSinkFailure(engine.SinkRejected, "change set could not be encoded", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", engine.NewSinkFailure(engine.SinkServer, "could not store record", err)
	}
	defer func() { _ = tx.Rollback() }()

	token := newToken(sub.RecordType)
	now := s.now().UTC().Format(time.RFC3339)
	submittedAt := sub.SubmittedAt.UTC().Format(time.RFC3339)

	_, err = tx.ExecContext(ctx,
		`INSERT INTO records (id, record_type, flow, variant, source_id, fields, changes, submitted_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		token, sub.RecordType, sub.Flow, string(sub.Variant), nullString(sub.SourceID), string(fields), nullString(string(changes)), submittedAt, now)
	if err != nil {
		return "", engine.NewSinkFailure(engine.SinkServer, "could not store record", err)
	}

	if sub.SourceID != "" {
		_, err = tx.ExecContext(ctx,
			`UPDATE records SET variant = ?, fields = ?, updated_at = ? WHERE id = ? AND record_type = ?`,
			string(sub.Variant), string(fields), now, sub.SourceID, sub.RecordType)
		if err != nil {
			return "", engine.NewSinkFailure(engine.SinkServer, "could not update source record", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", engine.NewSinkFailure(engine.SinkServer, "could not store record", err)
	}
	return token, nil
}

func (s *SQLiteSink) Fetch(ctx context.Context, recordType, id string) (engine.Record, error) {
	var variant, fields string
	err := s.db.QueryRowContext(ctx,
		`SELECT variant, fields FROM records WHERE id = ? AND record_type = ?`, id, recordType).
		Scan(&variant, &fields)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.Record{}, fmt.Errorf("%w: %s %s", engine.ErrRecordNotFound, recordType, id)
	}
	if err != nil {
		return engine.Record{}, fmt.Errorf("failed to fetch record: %w", err)
	}

	rec := engine.Record{ID: id, RecordType: recordType, Variant: engine.Variant(variant)}
	if err := json.Unmarshal([]byte(fields), &rec.Fields); err != nil {
		return engine.Record{}, fmt.Errorf("failed to decode record %s: %w", id, err)
	}
	return rec, nil
}

// Seed stores an existing record directly, bypassing the wizard.
func (s *SQLiteSink) Seed(ctx context.Context, rec engine.Record) error {
	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	now := s.now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO records (id, record_type, flow, variant, fields, submitted_at, updated_at)
		 VALUES (?, ?, '', ?, ?, ?, ?)`,
		rec.ID, rec.RecordType, string(rec.Variant), string(fields), now, now)
	if err != nil {
		return fmt.Errorf("failed to seed record: %w", err)
	}
	return nil
}

// Changes returns the stored change set of a submission.
func (s *SQLiteSink) Changes(ctx context.Context, id string) ([]byte, error) {
	var changes sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT changes FROM records WHERE id = ?`, id).Scan(&changes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", engine.ErrRecordNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch changes: %w", err)
	}
	return []byte(changes.String), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
