// Package journal persists journal entries and mood check-ins.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Store is the persistence surface used by the HTTP layer.
type Store interface {
	InsertJournal(ctx context.Context, e *Entry) error
	ListJournals(ctx context.Context, userID string) ([]Entry, error)
	InsertMood(ctx context.Context, m *MoodEntry) error
	ListMoods(ctx context.Context, userID string) ([]MoodEntry, error)
	Ping(ctx context.Context) error
}

// Config holds database configuration
type Config struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxConnections  int           `mapstructure:"max_connections"`
	IdleConnections int           `mapstructure:"idle_connections"`
	MaxLifetime     time.Duration `mapstructure:"max_lifetime"`
}

// SQLStore implements Store over Postgres or SQLite.
type SQLStore struct {
	db     *sqlx.DB
	logger *zap.Logger
	now    func() time.Time
}

// Open connects, pings and returns a store. The schema is not created.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*SQLStore, error) {
	if cfg.Driver == "" {
		cfg.Driver = "postgres"
	}
	if cfg.MaxConnections == 0 {
		cfg.MaxConnections = 25
	}
	if cfg.IdleConnections == 0 {
		cfg.IdleConnections = 5
	}
	if cfg.MaxLifetime == 0 {
		cfg.MaxLifetime = 5 * time.Minute
	}

	db, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.IdleConnections)
	db.SetConnMaxLifetime(cfg.MaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database client initialized", zap.String("driver", cfg.Driver))
	return NewSQLStore(db, logger), nil
}

// NewSQLStore wraps an existing connection.
func NewSQLStore(db *sqlx.DB, logger *zap.Logger) *SQLStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLStore{db: db, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Close closes the connection pool.
func (s *SQLStore) Close() error { return s.db.Close() }

const schema = `
CREATE TABLE IF NOT EXISTS journal_entries (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    content TEXT NOT NULL,
    summary TEXT NOT NULL DEFAULT '',
    dominant_emotion TEXT NOT NULL,
    intensity DOUBLE PRECISION NOT NULL,
    emotions TEXT,
    suicide_risk BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_journal_entries_user ON journal_entries (user_id, created_at);
CREATE TABLE IF NOT EXISTS mood_entries (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    happiness DOUBLE PRECISION NOT NULL,
    anxiety DOUBLE PRECISION NOT NULL,
    energy DOUBLE PRECISION NOT NULL,
    stress DOUBLE PRECISION NOT NULL,
    activity VARCHAR(100) NOT NULL DEFAULT '',
    notes VARCHAR(500) NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_mood_entries_user ON mood_entries (user_id, created_at);
`

// EnsureSchema creates the tables when missing.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const insertJournalQuery = `INSERT INTO journal_entries (id, user_id, content, summary, dominant_emotion, intensity, emotions, suicide_risk, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

// InsertJournal stores e, assigning ID and CreatedAt when unset.
func (s *SQLStore) InsertJournal(ctx context.Context, e *Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(insertJournalQuery),
		e.ID.String(), e.UserID, e.Content, e.Summary, e.DominantEmotion, e.Intensity, e.Emotions, e.SuicideRisk, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert journal: %w", err)
	}
	s.logger.Debug("Journal entry stored", zap.String("id", e.ID.String()), zap.String("user_id", e.UserID))
	return nil
}

const listJournalsQuery = `SELECT id, user_id, content, summary, dominant_emotion, intensity, emotions, suicide_risk, created_at FROM journal_entries WHERE user_id = ? ORDER BY created_at ASC`

// ListJournals returns userID's entries oldest first.
func (s *SQLStore) ListJournals(ctx context.Context, userID string) ([]Entry, error) {
	entries := []Entry{}
	if err := s.db.SelectContext(ctx, &entries, s.db.Rebind(listJournalsQuery), userID); err != nil {
		return nil, fmt.Errorf("list journals: %w", err)
	}
	return entries, nil
}

const insertMoodQuery = `INSERT INTO mood_entries (id, user_id, happiness, anxiety, energy, stress, activity, notes, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

// InsertMood stores m, assigning ID and CreatedAt when unset.
func (s *SQLStore) InsertMood(ctx context.Context, m *MoodEntry) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(insertMoodQuery),
		m.ID.String(), m.UserID, m.Happiness, m.Anxiety, m.Energy, m.Stress, m.Activity, m.Notes, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert mood: %w", err)
	}
	return nil
}

const listMoodsQuery = `SELECT id, user_id, happiness, anxiety, energy, stress, activity, notes, created_at FROM mood_entries WHERE user_id = ? ORDER BY created_at ASC`

// ListMoods returns userID's mood entries oldest first.
func (s *SQLStore) ListMoods(ctx context.Context, userID string) ([]MoodEntry, error) {
	moods := []MoodEntry{}
	if err := s.db.SelectContext(ctx, &moods, s.db.Rebind(listMoodsQuery), userID); err != nil {
		return nil, fmt.Errorf("list moods: %w", err)
	}
	return moods, nil
}

// Ping checks connectivity.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
