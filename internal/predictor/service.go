// Package predictor runs single-match forecasts and reviews against a match
// store. It is the entry point shared by the scheduler, the HTTP API and the CLI.
package predictor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/football-predictor/internal/form"
	"github.com/Alias1177/football-predictor/internal/lifecycle"
	"github.com/Alias1177/football-predictor/internal/metrics"
	"github.com/Alias1177/football-predictor/internal/prediction"
	"github.com/Alias1177/football-predictor/internal/review"
	"github.com/Alias1177/football-predictor/internal/summary"
	"github.com/Alias1177/football-predictor/models"
)

// List limits for ListPredictions
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Outcome describes what a pass-level call did with one match
type Outcome string

const (
	Created   Outcome = "created"
	Updated   Outcome = "updated"
	Unchanged Outcome = "unchanged" // forecast kept, odds did not move
	Frozen    Outcome = "frozen"    // already reviewed
	Reviewed  Outcome = "reviewed"
)

// Options configures a Service. Zero values pick defaults.
type Options struct {
	Engine    *prediction.Engine
	FormGames int
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

// Service implements the predict, review, list and summary operations
type Service struct {
	store     models.MatchAccessor
	engine    *prediction.Engine
	reporter  *summary.Reporter
	metrics   *metrics.Metrics
	now       func() time.Time
	formGames int
	logger    zerolog.Logger
}

func New(store models.MatchAccessor, opts Options) *Service {
	if opts.Engine == nil {
		opts.Engine = prediction.NewEngine(nil)
	}
	if opts.FormGames <= 0 {
		opts.FormGames = form.DefaultGames
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		store:     store,
		engine:    opts.Engine,
		reporter:  summary.NewReporter(store, opts.Now),
		metrics:   opts.Metrics,
		now:       opts.Now,
		formGames: opts.FormGames,
		logger:    log.With().Str("component", "predictor").Logger(),
	}
}

// PredictMatch forecasts one match and stores the result. A stored, unreviewed
// forecast is replaced and its revision bumped.
func (s *Service) PredictMatch(ctx context.Context, matchID string) (*models.Prediction, error) {
	match, prev, err := s.load(ctx, matchID)
	if err != nil {
		return nil, err
	}
	return s.forecast(ctx, match, prev)
}

// PredictIfNeeded is the pass-level variant: it forecasts a match that has no
// prediction yet, re-forecasts when refresh is set or the odds moved, and
// otherwise leaves the stored forecast alone.
func (s *Service) PredictIfNeeded(ctx context.Context, match models.Match, refresh bool) (Outcome, *models.Prediction, error) {
	prev, err := s.store.GetPrediction(ctx, match.ID)
	if err != nil {
		return "", nil, &models.AccessorError{Op: "get prediction", MatchID: match.ID, Err: err}
	}

	switch lifecycle.Of(prev) {
	case lifecycle.Reviewed:
		s.metrics.RecordForecast(metrics.ResultSkipped, nil)
		return Frozen, prev, nil
	case lifecycle.Predicted:
		if !refresh && !s.oddsMoved(&match, prev) {
			s.metrics.RecordForecast(metrics.ResultSkipped, nil)
			return Unchanged, prev, nil
		}
	}

	p, err := s.forecast(ctx, &match, prev)
	if err != nil {
		if models.IsAlreadyReviewed(err) {
			return Frozen, nil, nil
		}
		return "", nil, err
	}
	if prev == nil {
		return Created, p, nil
	}
	return Updated, p, nil
}

func (s *Service) oddsMoved(match *models.Match, prev *models.Prediction) bool {
	odds, ok := match.EffectiveOdds()
	if !ok {
		return false
	}
	return prediction.OddsChanged(prev.Forecast.Basis, odds)
}

func (s *Service) forecast(ctx context.Context, match *models.Match, prev *models.Prediction) (*models.Prediction, error) {
	logger := s.logger.With().Str("match_id", match.ID).Logger()

	if err := lifecycle.CanForecast(match, prev); err != nil {
		s.metrics.RecordForecast(metrics.ResultSkipped, nil)
		return nil, err
	}

	snapshot, err := s.snapshot(ctx, match)
	if err != nil {
		s.metrics.RecordForecast(metrics.ResultFailed, nil)
		return nil, err
	}

	f, err := s.engine.Predict(snapshot)
	if err != nil {
		s.metrics.RecordForecast(metrics.ResultSkipped, nil)
		logger.Debug().Err(err).Msg("Forecast not possible")
		return nil, err
	}

	p := &models.Prediction{
		MatchID:    match.ID,
		League:     match.League,
		HomeTeam:   match.HomeTeam,
		AwayTeam:   match.AwayTeam,
		KickoffAt:  match.KickoffAt,
		Forecast:   f,
		ForecastAt: s.now().UTC(),
	}
	if err := s.store.SavePrediction(ctx, p); err != nil {
		if models.IsAlreadyReviewed(err) {
			s.metrics.RecordForecast(metrics.ResultSkipped, nil)
			return nil, err
		}
		s.metrics.RecordForecast(metrics.ResultFailed, nil)
		return nil, &models.AccessorError{Op: "save prediction", MatchID: match.ID, Err: err}
	}

	s.metrics.RecordForecast(metrics.ResultSaved, &f)
	logger.Info().
		Int("revision", p.Revision).
		Str("winner", string(f.Winner)).
		Float64("winner_confidence", f.WinnerConfidence).
		Str("handicap", fmt.Sprintf("%s %+.2f", f.HandicapSide, f.HandicapLine)).
		Str("totals", fmt.Sprintf("%s %.2f", f.TotalsSide, f.TotalsLine)).
		Str("score", fmt.Sprintf("%d-%d", f.Score.Home, f.Score.Away)).
		Msg("Forecast saved")

	return p, nil
}

// snapshot gathers both teams' form from matches finished before kickoff
func (s *Service) snapshot(ctx context.Context, match *models.Match) (prediction.Snapshot, error) {
	home, err := s.teamForm(ctx, match.HomeTeam, match.KickoffAt)
	if err != nil {
		return prediction.Snapshot{}, err
	}
	away, err := s.teamForm(ctx, match.AwayTeam, match.KickoffAt)
	if err != nil {
		return prediction.Snapshot{}, err
	}
	return prediction.Snapshot{Match: *match, HomeForm: home, AwayForm: away}, nil
}

func (s *Service) teamForm(ctx context.Context, team string, before time.Time) (*models.TeamForm, error) {
	history, err := s.store.GetMatches(ctx, models.MatchFilter{
		Statuses: []models.MatchStatus{models.StatusFinished},
		To:       before,
		Team:     team,
		Limit:    s.formGames,
		Newest:   true,
	})
	if err != nil {
		return nil, &models.AccessorError{Op: "get team history", Err: fmt.Errorf("%s: %w", team, err)}
	}
	return form.Build(team, history, s.formGames), nil
}

// ReviewMatch scores the stored forecast of a finished match
func (s *Service) ReviewMatch(ctx context.Context, matchID string) (*models.ReviewResult, error) {
	match, pred, err := s.load(ctx, matchID)
	if err != nil {
		return nil, err
	}
	return s.review(ctx, match, pred)
}

// ReviewFinished is the pass-level variant for a match already loaded by the caller
func (s *Service) ReviewFinished(ctx context.Context, match models.Match) (*models.ReviewResult, error) {
	pred, err := s.store.GetPrediction(ctx, match.ID)
	if err != nil {
		return nil, &models.AccessorError{Op: "get prediction", MatchID: match.ID, Err: err}
	}
	return s.review(ctx, &match, pred)
}

func (s *Service) review(ctx context.Context, match *models.Match, pred *models.Prediction) (*models.ReviewResult, error) {
	if err := lifecycle.CanReview(match, pred); err != nil {
		s.metrics.RecordReview(metrics.ResultSkipped, nil)
		return nil, err
	}

	r := review.Evaluate(pred.Forecast, *match.FinalScore, s.now().UTC())

	if err := s.store.SaveReview(ctx, match.ID, pred.Revision, r); err != nil {
		var (
			notReviewable *models.NotReviewableError
			changed       *models.ForecastChangedError
		)
		if models.IsAlreadyReviewed(err) || errors.As(err, &notReviewable) || errors.As(err, &changed) {
			s.metrics.RecordReview(metrics.ResultSkipped, nil)
			return nil, err
		}
		s.metrics.RecordReview(metrics.ResultFailed, nil)
		return nil, &models.AccessorError{Op: "save review", MatchID: match.ID, Err: err}
	}

	s.metrics.RecordReview(metrics.ResultSaved, &r)
	s.logger.Info().
		Str("match_id", match.ID).
		Str("actual", fmt.Sprintf("%d-%d", r.ActualScore.Home, r.ActualScore.Away)).
		Int("correct", r.CorrectCount()).
		Float64("accuracy", r.Accuracy).
		Msg("Review saved")

	return &models.ReviewResult{
		MatchID:  match.ID,
		League:   match.League,
		HomeTeam: match.HomeTeam,
		AwayTeam: match.AwayTeam,
		Forecast: pred.Forecast,
		Review:   r,
	}, nil
}

func (s *Service) load(ctx context.Context, matchID string) (*models.Match, *models.Prediction, error) {
	match, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, nil, &models.AccessorError{Op: "get match", MatchID: matchID, Err: err}
	}
	pred, err := s.store.GetPrediction(ctx, matchID)
	if err != nil {
		return nil, nil, &models.AccessorError{Op: "get prediction", MatchID: matchID, Err: err}
	}
	return match, pred, nil
}

// ClampLimit maps a requested list size onto [1, MaxListLimit]; 0 means the default
func ClampLimit(limit int) int {
	switch {
	case limit == 0:
		return DefaultListLimit
	case limit < 1:
		return 1
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}

// ListPredictions returns stored predictions, optionally filtered by review state
func (s *Service) ListPredictions(ctx context.Context, reviewed *bool, limit int) ([]models.Prediction, error) {
	preds, err := s.store.ListPredictions(ctx, models.PredictionFilter{Reviewed: reviewed, Limit: ClampLimit(limit)})
	if err != nil {
		return nil, &models.AccessorError{Op: "list predictions", Err: err}
	}
	if preds == nil {
		preds = []models.Prediction{}
	}
	return preds, nil
}

// GetPrediction returns the stored prediction of a match or ErrMatchNotFound
func (s *Service) GetPrediction(ctx context.Context, matchID string) (*models.Prediction, error) {
	p, err := s.store.GetPrediction(ctx, matchID)
	if err != nil {
		return nil, &models.AccessorError{Op: "get prediction", MatchID: matchID, Err: err}
	}
	if p == nil {
		return nil, &models.AccessorError{Op: "get prediction", MatchID: matchID, Err: models.ErrMatchNotFound}
	}
	return p, nil
}

// History returns every forecast revision of a match when the store keeps one
func (s *Service) History(ctx context.Context, matchID string) ([]models.ForecastRevision, error) {
	hr, ok := s.store.(models.HistoryReader)
	if !ok {
		return nil, fmt.Errorf("store does not keep forecast history")
	}
	revs, err := hr.History(ctx, matchID)
	if err != nil {
		return nil, &models.AccessorError{Op: "forecast history", MatchID: matchID, Err: err}
	}
	return revs, nil
}

// Summary reports accuracy over the trailing days
func (s *Service) Summary(ctx context.Context, days int) (*summary.Report, error) {
	return s.reporter.Summarize(ctx, days)
}

// Movement reports how a match's odds drifted from opening to now
func (s *Service) Movement(ctx context.Context, matchID string) (*prediction.MovementReport, error) {
	match, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, &models.AccessorError{Op: "get match", MatchID: matchID, Err: err}
	}
	return s.engine.Movement(*match)
}
