package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve on hosts without zoneinfo

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/football-predictor/internal/database"
	"github.com/Alias1177/football-predictor/internal/scheduler"
)

// Storage drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"` // console or json

	DBDriver   string `env:"DB_DRIVER" envDefault:"postgres"`
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" envDefault:"football"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"predictor.db"`

	HTTPAddr  string `env:"HTTP_ADDR" envDefault:":8080"`
	Workers   int    `env:"WORKERS" envDefault:"4"`
	FormGames int    `env:"FORM_GAMES" envDefault:"10"`

	Timezone             string   `env:"TIMEZONE" envDefault:"Local"`
	PredictTimes         []string `env:"PREDICT_TIMES" envDefault:"08:00,14:00"`
	ClosingTime          string   `env:"CLOSING_TIME" envDefault:"22:00"`
	ReviewTime           string   `env:"REVIEW_TIME" envDefault:"03:00"`
	CatchupReviewTime    string   `env:"CATCHUP_REVIEW_TIME" envDefault:"10:00"`
	PredictHorizonHours  int      `env:"PREDICT_HORIZON_HOURS" envDefault:"48"`
	ClosingHorizonHours  int      `env:"CLOSING_HORIZON_HOURS" envDefault:"3"`
	ReviewLookbackHours  int      `env:"REVIEW_LOOKBACK_HOURS" envDefault:"24"`
	CatchupLookbackHours int      `env:"CATCHUP_LOOKBACK_HOURS" envDefault:"72"`
	RunOnStart           bool     `env:"RUN_ON_START" envDefault:"false"`

	FeedURL        string  `env:"FEED_URL"` // feed sync is off when empty
	FeedRPS        float64 `env:"FEED_RPS" envDefault:"2"`
	RequestTimeout int     `env:"REQUEST_TIMEOUT" envDefault:"30"` // seconds

	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   int64  `env:"TELEGRAM_CHAT_ID"`

	SummaryDays int `env:"SUMMARY_DAYS" envDefault:"7"`
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg Config

	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", "info")
	cfg.LogFormat = getEnvWithDefault("LOG_FORMAT", "console")

	cfg.DBDriver = strings.ToLower(getEnvWithDefault("DB_DRIVER", DriverPostgres))
	cfg.DBHost = getEnvWithDefault("DB_HOST", "localhost")
	cfg.DBPort = getEnvWithDefault("DB_PORT", "5432")
	cfg.DBUser = getEnvWithDefault("DB_USER", "postgres")
	cfg.DBPassword = os.Getenv("DB_PASSWORD")
	cfg.DBName = getEnvWithDefault("DB_NAME", "football")
	cfg.DBSSLMode = getEnvWithDefault("DB_SSLMODE", "disable")
	cfg.SQLitePath = getEnvWithDefault("SQLITE_PATH", "predictor.db")

	cfg.HTTPAddr = getEnvWithDefault("HTTP_ADDR", ":8080")
	cfg.Workers = getEnvIntWithDefault("WORKERS", 4)
	cfg.FormGames = getEnvIntWithDefault("FORM_GAMES", 10)

	cfg.Timezone = getEnvWithDefault("TIMEZONE", "Local")
	cfg.PredictTimes = getEnvListWithDefault("PREDICT_TIMES", []string{"08:00", "14:00"})
	cfg.ClosingTime = getEnvWithDefault("CLOSING_TIME", "22:00")
	cfg.ReviewTime = getEnvWithDefault("REVIEW_TIME", "03:00")
	cfg.CatchupReviewTime = getEnvWithDefault("CATCHUP_REVIEW_TIME", "10:00")
	cfg.PredictHorizonHours = getEnvIntWithDefault("PREDICT_HORIZON_HOURS", 48)
	cfg.ClosingHorizonHours = getEnvIntWithDefault("CLOSING_HORIZON_HOURS", 3)
	cfg.ReviewLookbackHours = getEnvIntWithDefault("REVIEW_LOOKBACK_HOURS", 24)
	cfg.CatchupLookbackHours = getEnvIntWithDefault("CATCHUP_LOOKBACK_HOURS", 72)
	cfg.RunOnStart = getEnvBoolWithDefault("RUN_ON_START", false)

	cfg.FeedURL = os.Getenv("FEED_URL")
	cfg.FeedRPS = getEnvFloatWithDefault("FEED_RPS", 2)
	cfg.RequestTimeout = getEnvIntWithDefault("REQUEST_TIMEOUT", 30)

	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.TelegramChatID = getEnvInt64WithDefault("TELEGRAM_CHAT_ID", 0)

	cfg.SummaryDays = getEnvIntWithDefault("SUMMARY_DAYS", 7)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cannot be defaulted silently
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("DB_DRIVER %q: want postgres, sqlite or memory", c.DBDriver)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.Jobs(); err != nil {
		return err
	}
	if c.TelegramBotToken != "" && c.TelegramChatID == 0 {
		return fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}
	return nil
}

// Location resolves TIMEZONE
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Jobs builds the daily schedule. The first predict time keeps the
// morning-predict name, the second midday-predict, later ones are numbered.
func (c *Config) Jobs() ([]scheduler.Job, error) {
	if len(c.PredictTimes) == 0 {
		return nil, fmt.Errorf("PREDICT_TIMES is empty")
	}

	var jobs []scheduler.Job
	for i, s := range c.PredictTimes {
		at, err := scheduler.ParseTimeOfDay(s)
		if err != nil {
			return nil, fmt.Errorf("PREDICT_TIMES: %w", err)
		}
		jobs = append(jobs, scheduler.Job{
			Name:   predictJobName(i),
			Kind:   scheduler.KindPredict,
			At:     at,
			Window: hours(c.PredictHorizonHours),
		})
	}

	rest := []struct {
		name, key, value string
		kind             scheduler.Kind
		window           int
		refresh          bool
	}{
		{"closing-predict", "CLOSING_TIME", c.ClosingTime, scheduler.KindPredict, c.ClosingHorizonHours, true},
		{"night-review", "REVIEW_TIME", c.ReviewTime, scheduler.KindReview, c.ReviewLookbackHours, false},
		{"morning-review", "CATCHUP_REVIEW_TIME", c.CatchupReviewTime, scheduler.KindReview, c.CatchupLookbackHours, false},
	}
	for _, r := range rest {
		at, err := scheduler.ParseTimeOfDay(r.value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.key, err)
		}
		jobs = append(jobs, scheduler.Job{
			Name:    r.name,
			Kind:    r.kind,
			At:      at,
			Window:  hours(r.window),
			Refresh: r.refresh,
		})
	}

	for _, j := range jobs {
		if err := j.Validate(); err != nil {
			return nil, err
		}
	}
	return jobs, nil
}

func predictJobName(i int) string {
	switch i {
	case 0:
		return "morning-predict"
	case 1:
		return "midday-predict"
	default:
		return fmt.Sprintf("predict-%d", i+1)
	}
}

func hours(n int) time.Duration {
	return time.Duration(n) * time.Hour
}

// ConnectionParams returns the PostgreSQL connection settings
func (c *Config) ConnectionParams() database.ConnectionParams {
	return database.ConnectionParams{
		Host:           c.DBHost,
		Port:           c.DBPort,
		User:           c.DBUser,
		Password:       c.DBPassword,
		DBName:         c.DBName,
		SSLMode:        c.DBSSLMode,
		ConnectTimeout: c.RequestTimeoutDuration(),
	}
}

func (c *Config) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64WithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvListWithDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
