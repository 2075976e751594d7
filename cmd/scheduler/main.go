package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Alias1177/football-predictor/internal/app"
	"github.com/Alias1177/football-predictor/internal/config"
	"github.com/Alias1177/football-predictor/internal/metrics"
	"github.com/Alias1177/football-predictor/internal/predictor"
	"github.com/Alias1177/football-predictor/internal/scheduler"
	"github.com/Alias1177/football-predictor/internal/server"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// 2. Configure logging
	app.SetupLogging(cfg.LogLevel, cfg.LogFormat)
	log.Info().Msg("Starting match predictor")

	// Setup context with cancellation for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open the store
	store, closeStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer closeStore()

	m := metrics.New()
	svc := predictor.New(store, predictor.Options{FormGames: cfg.FormGames, Metrics: m})

	// 4. Build the scheduler
	jobs, err := cfg.Jobs()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid schedule")
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid timezone")
	}

	opts := scheduler.Options{
		Jobs:       jobs,
		Location:   loc,
		Workers:    cfg.Workers,
		RunOnStart: cfg.RunOnStart,
		Metrics:    m,
	}

	syncer, err := app.NewSyncer(cfg, store, m)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up feed sync")
	}
	if syncer != nil {
		opts.Syncer = syncer
		log.Info().Str("url", cfg.FeedURL).Msg("Feed sync enabled")
	}

	notifier, err := app.NewNotifier(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Telegram disabled")
	} else if notifier != nil {
		opts.Notifier = notifier
		log.Info().Int64("chat_id", cfg.TelegramChatID).Msg("Telegram notifications enabled")
	}

	sched, err := scheduler.New(store, svc, opts)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}
	for _, j := range sched.Jobs() {
		log.Info().
			Str("job", j.Name).
			Str("kind", string(j.Kind)).
			Str("at", j.At.String()).
			Dur("window", j.Window).
			Bool("refresh", j.Refresh).
			Msg("Job registered")
	}

	// 5. Start the HTTP API
	api := server.New(svc, server.Options{Passes: sched, Registry: m.Registry()})
	httpServer := server.NewHTTPServer(cfg.HTTPAddr, api.Handler())
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server error")
			stop()
		}
	}()

	// 6. Run until a shutdown signal arrives
	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("Scheduler stopped with error")
	}

	log.Info().Msg("Shutdown signal received, exiting...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
}
