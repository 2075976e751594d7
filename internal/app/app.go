// Package app holds the start-up wiring shared by the binaries.
package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/football-predictor/internal/api/feed"
	"github.com/Alias1177/football-predictor/internal/config"
	"github.com/Alias1177/football-predictor/internal/database"
	"github.com/Alias1177/football-predictor/internal/metrics"
	"github.com/Alias1177/football-predictor/internal/notify"
	"github.com/Alias1177/football-predictor/models"
)

// Store is what the binaries need from a storage backend
type Store interface {
	models.MatchAccessor
	models.MatchWriter
}

// SetupLogging configures the global logger
func SetupLogging(logLevel, format string) {
	if strings.EqualFold(format, "json") {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Logger = log.Logger.Level(level)
}

// OpenStore opens the backend selected by DB_DRIVER. The returned func closes it.
func OpenStore(ctx context.Context, cfg *config.Config) (Store, func() error, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		db, err := database.New(ctx, cfg.ConnectionParams())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		log.Info().Str("host", cfg.DBHost).Str("db", cfg.DBName).Msg("Connected to PostgreSQL")
		return db, db.Close, nil
	case config.DriverSQLite:
		db, err := database.NewSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("Opened SQLite database")
		return db, db.Close, nil
	case config.DriverMemory:
		log.Warn().Msg("Using in-memory store, nothing survives a restart")
		return database.NewMemoryStore(), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
}

// NewSyncer builds the feed syncer, or returns nil when FEED_URL is unset
func NewSyncer(cfg *config.Config, store models.MatchWriter, m *metrics.Metrics) (*feed.Syncer, error) {
	if cfg.FeedURL == "" {
		return nil, nil
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	client := feed.NewClient(feed.ClientOptions{
		BaseURL:        cfg.FeedURL,
		Location:       loc,
		RequestTimeout: cfg.RequestTimeoutDuration(),
		RequestsPerSec: cfg.FeedRPS,
	})
	return feed.NewSyncer(client, store, m), nil
}

// NewNotifier connects the Telegram bot, or returns nil when no token is configured
func NewNotifier(cfg *config.Config) (*notify.Telegram, error) {
	if cfg.TelegramBotToken == "" {
		return nil, nil
	}
	return notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID)
}
