// Package prediction turns a match's odds and the two teams' recent form into
// forecasts for the winner, handicap, totals and exact-score markets.
//
// Every computation is a pure function of the Snapshot: the same snapshot
// always yields the same Forecast.
package prediction

import (
	"github.com/Alias1177/football-predictor/models"
)

// Config holds the weights of the scoring heuristics
type Config struct {
	MinFormGames int // form is ignored below this many games per team

	WinnerFormShift  float64 // max probability moved by the form differential
	WinnerMarginGain float64 // confidence points per unit of winning margin

	HandicapMaterialSkew float64 // relative price gap that counts as a real lean
	HandicapSkewGain     float64 // confidence points per unit of skew
	HandicapMovement     float64 // confidence points added/removed by line movement
	HandicapLineStep     float64 // line change that counts as movement
	HandicapPriceStep    float64 // home price change that counts as movement on an unchanged line

	TotalsPriceWeight float64
	TotalsFormWeight  float64
	TotalsSkewGain    float64 // scales price skew into [-1, 1]
	TotalsSignalGain  float64 // confidence points per unit of blended signal

	DefaultHomeGoals float64 // expected goals without form
	DefaultAwayGoals float64
	LoserGoalStep    int // goals taken off the loser when the score contradicts the winner call
}

// DefaultConfig returns the production weights
func DefaultConfig() *Config {
	return &Config{
		MinFormGames: 3,

		WinnerFormShift:  0.05,
		WinnerMarginGain: 200,

		HandicapMaterialSkew: 0.03,
		HandicapSkewGain:     100,
		HandicapMovement:     5,
		HandicapLineStep:     0.125,
		HandicapPriceStep:    0.03,

		TotalsPriceWeight: 0.6,
		TotalsFormWeight:  0.4,
		TotalsSkewGain:    5,
		TotalsSignalGain:  25,

		DefaultHomeGoals: 1.5,
		DefaultAwayGoals: 1.1,
		LoserGoalStep:    1,
	}
}

// Snapshot is everything the engine may look at for one match
type Snapshot struct {
	Match    models.Match
	HomeForm *models.TeamForm
	AwayForm *models.TeamForm
}

// Engine produces forecasts. It holds no mutable state and is safe for concurrent use.
type Engine struct {
	cfg *Config
}

// NewEngine creates an engine; a nil config means DefaultConfig
func NewEngine(cfg *Config) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Engine{cfg: cfg}
}

// Predict forecasts all four markets. It fails with MissingDataError when
// neither the current nor the opening odds snapshot is complete.
func (e *Engine) Predict(s Snapshot) (models.Forecast, error) {
	odds, ok := s.Match.EffectiveOdds()
	if !ok {
		return models.Forecast{}, &models.MissingDataError{
			MatchID: s.Match.ID,
			Reason:  "neither current nor opening odds carry all three markets",
		}
	}

	home, away := s.HomeForm, s.AwayForm
	if home.Games() < e.cfg.MinFormGames || away.Games() < e.cfg.MinFormGames {
		home, away = nil, nil
	}

	var factors []string

	winner, winnerConf, f := e.predictWinner(odds.Moneyline, home, away)
	factors = append(factors, f...)

	side, handicapConf, f := e.predictHandicap(odds.Handicap, s.Match.Opening, s.Match.Current)
	factors = append(factors, f...)

	totals, totalsConf, f := e.predictTotals(odds.Totals, home, away)
	factors = append(factors, f...)

	score := e.predictScore(home, away, winner)

	return models.Forecast{
		Winner:             winner,
		WinnerConfidence:   winnerConf,
		HandicapSide:       side,
		HandicapLine:       odds.Handicap.Line,
		HandicapConfidence: handicapConf,
		TotalsSide:         totals,
		TotalsLine:         odds.Totals.Line,
		TotalsConfidence:   totalsConf,
		Score:              score,
		Basis:              copySnapshot(odds),
		Factors:            factors,
	}, nil
}

func copySnapshot(o *models.OddsSnapshot) models.OddsSnapshot {
	ml := *o.Moneyline
	ah := *o.Handicap
	ou := *o.Totals
	return models.OddsSnapshot{Moneyline: &ml, Handicap: &ah, Totals: &ou}
}
