// Package scheduler runs the daily forecast and review passes at fixed times of day.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Alias1177/football-predictor/internal/metrics"
	"github.com/Alias1177/football-predictor/internal/predictor"
	"github.com/Alias1177/football-predictor/models"
)

const (
	// DefaultWorkers bounds the matches processed concurrently within one pass
	DefaultWorkers = 4
	// DefaultLateLimit is how late a run may start before it is dropped until its next occurrence
	DefaultLateLimit = time.Hour
)

// Clock is the time source of the scheduler
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock returns the wall clock
func RealClock() Clock {
	return realClock{}
}

// MatchLister selects the matches a pass works on
type MatchLister interface {
	GetMatches(ctx context.Context, filter models.MatchFilter) ([]models.Match, error)
}

// Processor forecasts and reviews single matches
type Processor interface {
	PredictIfNeeded(ctx context.Context, match models.Match, refresh bool) (predictor.Outcome, *models.Prediction, error)
	ReviewFinished(ctx context.Context, match models.Match) (*models.ReviewResult, error)
}

// Syncer refreshes match data before a pass
type Syncer interface {
	Sync(ctx context.Context) (int, error)
}

// Notifier is told about passes that did something
type Notifier interface {
	NotifyPass(ctx context.Context, result *PassResult) error
}

// Status is how a single match ended up in a pass
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Item is the result for one match of a pass
type Item struct {
	MatchID string `json:"match_id"`
	Status  Status `json:"status"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

// PassResult aggregates one run of a job
type PassResult struct {
	RunID      string    `json:"run_id"`
	Job        string    `json:"job"`
	Kind       Kind      `json:"kind"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Attempted  int       `json:"attempted"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	Items      []Item    `json:"items"`
}

func (r *PassResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Options configures a Scheduler. Zero values pick defaults.
type Options struct {
	Jobs       []Job
	Clock      Clock
	Location   *time.Location
	Workers    int
	LateLimit  time.Duration
	RunOnStart bool
	Syncer     Syncer
	Notifier   Notifier
	Metrics    *metrics.Metrics
	// OnPass is called after every pass, including failed selections
	OnPass func(*PassResult)
}

// Scheduler fires jobs at their time of day
type Scheduler struct {
	matches    MatchLister
	processor  Processor
	jobs       []Job
	clock      Clock
	loc        *time.Location
	workers    int
	lateLimit  time.Duration
	runOnStart bool
	syncer     Syncer
	notifier   Notifier
	metrics    *metrics.Metrics
	onPass     func(*PassResult)
	logger     zerolog.Logger
}

func New(matches MatchLister, processor Processor, opts Options) (*Scheduler, error) {
	if opts.Jobs == nil {
		opts.Jobs = DefaultJobs()
	}
	seen := make(map[string]bool, len(opts.Jobs))
	for _, j := range opts.Jobs {
		if err := j.Validate(); err != nil {
			return nil, err
		}
		if seen[j.Name] {
			return nil, fmt.Errorf("duplicate job %s", j.Name)
		}
		seen[j.Name] = true
	}
	if opts.Clock == nil {
		opts.Clock = RealClock()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.LateLimit <= 0 {
		opts.LateLimit = DefaultLateLimit
	}

	return &Scheduler{
		matches:    matches,
		processor:  processor,
		jobs:       opts.Jobs,
		clock:      opts.Clock,
		loc:        opts.Location,
		workers:    opts.Workers,
		lateLimit:  opts.LateLimit,
		runOnStart: opts.RunOnStart,
		syncer:     opts.Syncer,
		notifier:   opts.Notifier,
		metrics:    opts.Metrics,
		onPass:     opts.OnPass,
		logger:     log.With().Str("component", "scheduler").Logger(),
	}, nil
}

// Jobs returns the configured jobs
func (s *Scheduler) Jobs() []Job {
	return append([]Job(nil), s.jobs...)
}

// Job looks a job up by name
func (s *Scheduler) Job(name string) (Job, bool) {
	for _, j := range s.jobs {
		if j.Name == name {
			return j, true
		}
	}
	return Job{}, false
}

// Run blocks until ctx is cancelled, firing each job at its time of day.
// A run that starts more than the late limit after its slot is dropped.
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.jobs) == 0 {
		return errors.New("scheduler has no jobs")
	}

	if s.runOnStart {
		s.logger.Info().Int("jobs", len(s.jobs)).Msg("Running all jobs at startup")
		for _, job := range s.jobs {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.runPass(ctx, job)
		}
	}

	cursor := s.clock.Now().In(s.loc)
	for {
		if err := ctx.Err(); err != nil {
			s.logger.Info().Msg("Scheduler stopped")
			return err
		}

		at, due := NextRun(s.jobs, cursor)
		now := s.clock.Now().In(s.loc)
		if now.Sub(at) > s.lateLimit {
			for _, job := range due {
				s.logger.Warn().Str("job", job.Name).Time("slot", at).Msg("Missed run, waiting for next occurrence")
			}
			cursor = at
			continue
		}

		wait := at.Sub(now)
		s.logger.Info().Time("at", at).Dur("in", wait).Int("jobs", len(due)).Msg("Next run scheduled")

		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Scheduler stopped")
			return ctx.Err()
		case <-s.clock.After(wait):
		}

		for _, job := range due {
			if ctx.Err() != nil {
				break
			}
			s.runPass(ctx, job)
		}
		cursor = at
	}
}

// runPass runs a job, logging instead of returning errors
func (s *Scheduler) runPass(ctx context.Context, job Job) *PassResult {
	if s.syncer != nil {
		if _, err := s.syncer.Sync(ctx); err != nil {
			s.logger.Warn().Err(err).Str("job", job.Name).Msg("Feed sync failed, using stored matches")
		}
	}

	res, err := s.RunJob(ctx, job)
	if err != nil {
		s.logger.Error().Err(err).Str("job", job.Name).Str("run_id", res.RunID).Msg("Pass failed")
	}

	if s.notifier != nil && (res.Succeeded > 0 || res.Failed > 0) {
		if err := s.notifier.NotifyPass(ctx, res); err != nil {
			s.logger.Warn().Err(err).Str("job", job.Name).Msg("Pass notification failed")
		}
	}
	if s.onPass != nil {
		s.onPass(res)
	}
	return res
}

// RunJob selects the job's matches and processes them on the worker pool.
// Per-match failures are recorded in the result and never abort the pass; the
// error is only set when the selection itself fails. Matches not started
// before ctx is cancelled are left for the next occurrence.
func (s *Scheduler) RunJob(ctx context.Context, job Job) (*PassResult, error) {
	now := s.clock.Now().In(s.loc)
	res := &PassResult{
		RunID:     uuid.NewString(),
		Job:       job.Name,
		Kind:      job.Kind,
		StartedAt: now,
		Items:     []Item{},
	}
	logger := s.logger.With().Str("job", job.Name).Str("run_id", res.RunID).Logger()

	filter := models.MatchFilter{Statuses: []models.MatchStatus{models.StatusScheduled}, From: now, To: now.Add(job.Window)}
	if job.Kind == KindReview {
		filter = models.MatchFilter{Statuses: []models.MatchStatus{models.StatusFinished}, From: now.Add(-job.Window), To: now}
	}

	matches, err := s.matches.GetMatches(ctx, filter)
	if err != nil {
		res.FinishedAt = s.clock.Now().In(s.loc)
		s.record(res)
		return res, &models.AccessorError{Op: "select matches", Err: fmt.Errorf("job %s: %w", job.Name, err)}
	}

	items := make([]Item, len(matches))
	launched := 0

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, m := range matches {
		if ctx.Err() != nil {
			break
		}
		launched++
		g.Go(func() error {
			items[i] = s.process(ctx, job, m)
			return nil
		})
	}
	g.Wait()

	res.Items = items[:launched]
	for _, it := range res.Items {
		switch it.Status {
		case StatusSucceeded:
			res.Succeeded++
		case StatusSkipped:
			res.Skipped++
		case StatusFailed:
			res.Failed++
		}
	}
	res.Attempted = launched
	res.FinishedAt = s.clock.Now().In(s.loc)
	s.record(res)

	if launched < len(matches) {
		logger.Warn().Int("left", len(matches)-launched).Msg("Pass interrupted")
	}
	logger.Info().
		Int("attempted", res.Attempted).
		Int("succeeded", res.Succeeded).
		Int("failed", res.Failed).
		Int("skipped", res.Skipped).
		Dur("took", res.Duration()).
		Msg("Pass finished")

	return res, nil
}

func (s *Scheduler) record(res *PassResult) {
	s.metrics.RecordPass(res.Job, string(res.Kind), res.Succeeded, res.Failed, res.Skipped, res.Duration(), res.FinishedAt)
}

func (s *Scheduler) process(ctx context.Context, job Job, m models.Match) (item Item) {
	item = Item{MatchID: m.ID}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("job", job.Name).
				Str("match_id", m.ID).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("Match processing panicked")
			item = failed(Item{MatchID: m.ID}, fmt.Errorf("panic: %v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return failed(item, err)
	}

	var err error
	if job.Kind == KindPredict {
		var outcome predictor.Outcome
		outcome, _, err = s.processor.PredictIfNeeded(ctx, m, job.Refresh)
		if err == nil {
			item.Outcome = string(outcome)
			item.Status = StatusSucceeded
			if outcome == predictor.Unchanged || outcome == predictor.Frozen {
				item.Status = StatusSkipped
			}
			return item
		}
	} else {
		_, err = s.processor.ReviewFinished(ctx, m)
		if err == nil {
			item.Outcome = string(predictor.Reviewed)
			item.Status = StatusSucceeded
			return item
		}
	}

	if reason, ok := skipReason(err); ok {
		item.Status = StatusSkipped
		item.Outcome = reason
		return item
	}

	s.logger.Error().Err(err).Str("job", job.Name).Str("match_id", m.ID).Msg("Match failed")
	return failed(item, err)
}

func failed(item Item, err error) Item {
	item.Status = StatusFailed
	item.Outcome = string(StatusFailed)
	item.Error = err.Error()
	return item
}

// skipReason classifies errors that leave a match for a later pass
func skipReason(err error) (string, bool) {
	var (
		missing        *models.MissingDataError
		notReviewable  *models.NotReviewableError
		notPredictable *models.NotPredictableError
		changed        *models.ForecastChangedError
	)
	switch {
	case models.IsAlreadyReviewed(err):
		return "already_reviewed", true
	case errors.As(err, &changed):
		return "forecast_changed", true
	case errors.As(err, &missing):
		return "missing_odds", true
	case errors.As(err, &notReviewable):
		return "not_reviewable", true
	case errors.As(err, &notPredictable):
		return "not_predictable", true
	}
	return "", false
}
