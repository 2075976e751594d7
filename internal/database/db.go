package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL flavour of the connection
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// DB represents a database connection and implements models.MatchAccessor
type DB struct {
	*sql.DB
	dialect Dialect
	logger  zerolog.Logger
}

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string

	// ConnectTimeout bounds the ping retries at startup
	ConnectTimeout time.Duration
}

// New creates a PostgreSQL connection, waiting for the server to accept pings
func New(ctx context.Context, params ConnectionParams) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		params.Host, params.Port, params.User, params.Password, params.DBName, params.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	timeout := params.ConnectTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.MaxElapsedTime = timeout

	ping := func() error {
		return db.PingContext(ctx)
	}
	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).Dur("retry_in", wait).Msg("Database not ready")
	}
	if err := backoff.RetryNotify(ping, backoff.WithContext(expBackoff, ctx), notify); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return open(ctx, db, Postgres)
}

// NewSQLite opens (or creates) a SQLite database file. ":memory:" is accepted.
func NewSQLite(ctx context.Context, path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection serializes writers and keeps :memory: databases alive
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}

	return open(ctx, db, SQLite)
}

func open(ctx context.Context, db *sql.DB, dialect Dialect) (*DB, error) {
	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{
		DB:      db,
		dialect: dialect,
		logger:  log.With().Str("component", "database").Str("dialect", string(dialect)).Logger(),
	}, nil
}

// createTables creates the necessary tables if they don't exist.
// Timestamps are stored as UTC RFC 3339 text so that both dialects order them the same way.
func createTables(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS matches (
			match_id TEXT PRIMARY KEY,
			league TEXT NOT NULL,
			home_team TEXT NOT NULL,
			away_team TEXT NOT NULL,
			kickoff_at TEXT NOT NULL,
			status INTEGER NOT NULL,
			opening_odds TEXT,
			current_odds TEXT,
			home_score INTEGER,
			away_score INTEGER,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_status_kickoff ON matches (status, kickoff_at)`,
		`CREATE TABLE IF NOT EXISTS predictions (
			match_id TEXT PRIMARY KEY,
			league TEXT NOT NULL,
			home_team TEXT NOT NULL,
			away_team TEXT NOT NULL,
			match_time TEXT NOT NULL,
			forecast TEXT NOT NULL,
			revision INTEGER NOT NULL,
			predict_date TEXT NOT NULL,
			forecast_at TEXT NOT NULL,
			is_reviewed BOOLEAN NOT NULL DEFAULT FALSE,
			actual_home INTEGER,
			actual_away INTEGER,
			actual_winner TEXT,
			win_correct BOOLEAN,
			asian_correct BOOLEAN,
			ou_correct BOOLEAN,
			score_correct BOOLEAN,
			accuracy DOUBLE PRECISION,
			review_date TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_reviewed ON predictions (is_reviewed, review_date)`,
		`CREATE TABLE IF NOT EXISTS forecast_history (
			match_id TEXT NOT NULL,
			revision INTEGER NOT NULL,
			forecast TEXT NOT NULL,
			forecast_at TEXT NOT NULL,
			PRIMARY KEY (match_id, revision)
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders into the dialect's form
func (db *DB) rebind(query string) string {
	if db.dialect != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const timeLayout = time.RFC3339

func formatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t.UTC(), nil
}
