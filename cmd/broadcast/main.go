package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Alias1177/football-predictor/internal/app"
	"github.com/Alias1177/football-predictor/internal/config"
	"github.com/Alias1177/football-predictor/internal/summary"
)

// broadcast posts the trailing-window review summary to the Telegram chat
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	app.SetupLogging(cfg.LogLevel, cfg.LogFormat)

	days := flag.Int("days", cfg.SummaryDays, "trailing window in days")
	dryRun := flag.Bool("dry-run", false, "print the report instead of sending it")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, closeStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer closeStore()

	report, err := summary.NewReporter(store, time.Now).Summarize(ctx, *days)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build summary")
	}
	log.Info().Int("days", report.Days).Int("matches", report.Total).Float64("avg_accuracy", report.AvgAccuracy).Msg("Summary built")

	if *dryRun {
		fmt.Print(report.String())
		return
	}

	notifier, err := app.NewNotifier(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Telegram bot")
	}
	if notifier == nil {
		log.Fatal().Msg("TELEGRAM_BOT_TOKEN not set in environment")
	}

	if err := notifier.SendReport(ctx, report); err != nil {
		log.Fatal().Err(err).Msg("Failed to send summary")
	}
	log.Info().Int64("chat_id", cfg.TelegramChatID).Msg("Summary sent")
}
