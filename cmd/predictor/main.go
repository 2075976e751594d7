package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/Alias1177/football-predictor/internal/app"
	"github.com/Alias1177/football-predictor/internal/config"
	"github.com/Alias1177/football-predictor/internal/predictor"
	"github.com/Alias1177/football-predictor/internal/scheduler"
)

const usage = `usage: predictor <command> [flags] [args]

commands:
  predict <match_id>           forecast one match
  review <match_id>            review one finished match
  list [-reviewed=true|false] [-limit=N]
  summary [-days=N]            accuracy over the trailing days
  history <match_id>           forecast revisions of a match
  movement <match_id>          odds drift since opening
  pass <job>                   run one scheduler job now
  jobs                         list scheduler jobs
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	app.SetupLogging(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer closeStore()

	svc := predictor.New(store, predictor.Options{FormGames: cfg.FormGames})

	if err := run(ctx, cfg, store, svc, os.Args[1], os.Args[2:]); err != nil {
		log.Error().Err(err).Str("command", os.Args[1]).Msg("Command failed")
		closeStore()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, store app.Store, svc *predictor.Service, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	var (
		reviewed = fs.String("reviewed", "", "filter by review state (true or false)")
		limit    = fs.Int("limit", predictor.DefaultListLimit, "maximum predictions to list")
		days     = fs.Int("days", cfg.SummaryDays, "trailing window in days")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	arg := func() (string, error) {
		if fs.NArg() < 1 {
			return "", fmt.Errorf("%s needs an argument\n\n%s", cmd, usage)
		}
		return fs.Arg(0), nil
	}

	switch cmd {
	case "predict":
		id, err := arg()
		if err != nil {
			return err
		}
		p, err := svc.PredictMatch(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(p)

	case "review":
		id, err := arg()
		if err != nil {
			return err
		}
		res, err := svc.ReviewMatch(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(res)

	case "list":
		var filter *bool
		if *reviewed != "" {
			b, err := strconv.ParseBool(*reviewed)
			if err != nil {
				return fmt.Errorf("-reviewed: %w", err)
			}
			filter = &b
		}
		preds, err := svc.ListPredictions(ctx, filter, *limit)
		if err != nil {
			return err
		}
		return printJSON(preds)

	case "summary":
		report, err := svc.Summary(ctx, *days)
		if err != nil {
			return err
		}
		fmt.Print(report.String())
		return nil

	case "history":
		id, err := arg()
		if err != nil {
			return err
		}
		revs, err := svc.History(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(revs)

	case "movement":
		id, err := arg()
		if err != nil {
			return err
		}
		report, err := svc.Movement(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(report)

	case "pass", "jobs":
		sched, err := newScheduler(cfg, store, svc)
		if err != nil {
			return err
		}
		if cmd == "jobs" {
			for _, j := range sched.Jobs() {
				fmt.Printf("%-16s %-7s %s window=%s refresh=%t\n", j.Name, j.Kind, j.At, j.Window, j.Refresh)
			}
			return nil
		}
		name, err := arg()
		if err != nil {
			return err
		}
		job, ok := sched.Job(name)
		if !ok {
			return fmt.Errorf("unknown job %q", name)
		}
		res, err := sched.RunJob(ctx, job)
		if err != nil {
			return err
		}
		return printJSON(res)

	default:
		return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
	}
}

func newScheduler(cfg *config.Config, store app.Store, svc *predictor.Service) (*scheduler.Scheduler, error) {
	jobs, err := cfg.Jobs()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return scheduler.New(store, svc, scheduler.Options{Jobs: jobs, Location: loc, Workers: cfg.Workers})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
