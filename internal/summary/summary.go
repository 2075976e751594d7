// Package summary aggregates reviewed predictions over a trailing window of days.
package summary

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/football-predictor/internal/utils"
	"github.com/Alias1177/football-predictor/models"
)

// DefaultDays is the window used when the caller does not name one
const DefaultDays = 7

// PredictionLister is the slice of the accessor the reporter reads from
type PredictionLister interface {
	ListPredictions(ctx context.Context, filter models.PredictionFilter) ([]models.Prediction, error)
}

// MarketStats is the hit count and hit rate of one market
type MarketStats struct {
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"`
}

// LeagueStats breaks the report down by competition
type LeagueStats struct {
	League      string      `json:"league"`
	Total       int         `json:"total"`
	Winner      MarketStats `json:"win"`
	Handicap    MarketStats `json:"asian"`
	Totals      MarketStats `json:"ou"`
	Score       MarketStats `json:"score"`
	AvgAccuracy float64     `json:"avg_accuracy"`
}

// Report is the aggregate over reviewed predictions in [From, To]
type Report struct {
	Days        int           `json:"days"`
	From        time.Time     `json:"from"`
	To          time.Time     `json:"to"`
	Total       int           `json:"total_matches"`
	Winner      MarketStats   `json:"win"`
	Handicap    MarketStats   `json:"asian"`
	Totals      MarketStats   `json:"ou"`
	Score       MarketStats   `json:"score"`
	AvgAccuracy float64       `json:"avg_accuracy"`
	Leagues     []LeagueStats `json:"league_stats"`
}

// Reporter builds summary reports
type Reporter struct {
	store  PredictionLister
	now    func() time.Time
	logger zerolog.Logger
}

// NewReporter creates a reporter; a nil now means time.Now
func NewReporter(store PredictionLister, now func() time.Time) *Reporter {
	if now == nil {
		now = time.Now
	}
	return &Reporter{
		store:  store,
		now:    now,
		logger: log.With().Str("component", "summary").Logger(),
	}
}

// Summarize aggregates predictions reviewed within the last days days.
// days below 1 is treated as 1. An empty window yields a zeroed report.
func (r *Reporter) Summarize(ctx context.Context, days int) (*Report, error) {
	if days < 1 {
		days = 1
	}

	to := r.now().UTC()
	from := to.AddDate(0, 0, -days)

	reviewed := true
	predictions, err := r.store.ListPredictions(ctx, models.PredictionFilter{
		Reviewed:      &reviewed,
		ReviewedSince: from,
	})
	if err != nil {
		return nil, &models.AccessorError{Op: "list reviewed predictions", Err: err}
	}

	report := Build(predictions, from, to)
	report.Days = days

	if report.Total == 0 {
		r.logger.Info().Int("days", days).Msg("No reviewed predictions in window")
	}
	return report, nil
}

type tally struct {
	total                            int
	winner, handicap, totals, scores int
	accuracies                       []float64
}

func (t *tally) add(rv *models.Review) {
	t.total++
	if rv.WinnerCorrect {
		t.winner++
	}
	if rv.HandicapCorrect {
		t.handicap++
	}
	if rv.TotalsCorrect {
		t.totals++
	}
	if rv.ScoreCorrect {
		t.scores++
	}
	t.accuracies = append(t.accuracies, rv.Accuracy)
}

func (t *tally) market(correct int) MarketStats {
	return MarketStats{Correct: correct, Accuracy: utils.Percent(correct, t.total)}
}

// Build aggregates the reviewed predictions among preds whose review falls in [from, to]
func Build(preds []models.Prediction, from, to time.Time) *Report {
	var all tally
	leagues := make(map[string]*tally)

	for _, p := range preds {
		if p.Review == nil {
			continue
		}
		at := p.Review.ReviewedAt
		if at.Before(from) || at.After(to) {
			continue
		}

		all.add(p.Review)

		league := p.League
		if league == "" {
			league = "unknown"
		}
		lt, ok := leagues[league]
		if !ok {
			lt = &tally{}
			leagues[league] = lt
		}
		lt.add(p.Review)
	}

	report := &Report{
		From:        from,
		To:          to,
		Total:       all.total,
		Winner:      all.market(all.winner),
		Handicap:    all.market(all.handicap),
		Totals:      all.market(all.totals),
		Score:       all.market(all.scores),
		AvgAccuracy: utils.Mean(all.accuracies),
		Leagues:     make([]LeagueStats, 0, len(leagues)),
	}

	for name, lt := range leagues {
		report.Leagues = append(report.Leagues, LeagueStats{
			League:      name,
			Total:       lt.total,
			Winner:      lt.market(lt.winner),
			Handicap:    lt.market(lt.handicap),
			Totals:      lt.market(lt.totals),
			Score:       lt.market(lt.scores),
			AvgAccuracy: utils.Mean(lt.accuracies),
		})
	}
	sort.Slice(report.Leagues, func(i, j int) bool {
		if report.Leagues[i].Total != report.Leagues[j].Total {
			return report.Leagues[i].Total > report.Leagues[j].Total
		}
		return report.Leagues[i].League < report.Leagues[j].League
	})

	return report
}

// String renders the report as plain text for chat and terminal output
func (r *Report) String() string {
	s := fmt.Sprintf("Review summary, last %d day(s)\nMatches reviewed: %d\n", r.Days, r.Total)
	if r.Total == 0 {
		return s
	}
	s += fmt.Sprintf("Winner:   %5.1f%% (%d)\n", r.Winner.Accuracy, r.Winner.Correct)
	s += fmt.Sprintf("Handicap: %5.1f%% (%d)\n", r.Handicap.Accuracy, r.Handicap.Correct)
	s += fmt.Sprintf("Totals:   %5.1f%% (%d)\n", r.Totals.Accuracy, r.Totals.Correct)
	s += fmt.Sprintf("Score:    %5.1f%% (%d)\n", r.Score.Accuracy, r.Score.Correct)
	s += fmt.Sprintf("Average accuracy: %.1f%%\n", r.AvgAccuracy)
	for _, l := range r.Leagues {
		s += fmt.Sprintf("  %s: %d matches, winner %.1f%%, handicap %.1f%%, totals %.1f%%\n",
			l.League, l.Total, l.Winner.Accuracy, l.Handicap.Accuracy, l.Totals.Accuracy)
	}
	return s
}
