package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Outcome is a winner-market call
type Outcome string

const (
	OutcomeHome Outcome = "home"
	OutcomeDraw Outcome = "draw"
	OutcomeAway Outcome = "away"
)

func (o Outcome) Valid() bool {
	return o == OutcomeHome || o == OutcomeDraw || o == OutcomeAway
}

// ParseOutcome converts a stored string back into an Outcome
func ParseOutcome(s string) (Outcome, error) {
	o := Outcome(s)
	if !o.Valid() {
		return "", fmt.Errorf("invalid winner outcome %q", s)
	}
	return o, nil
}

// Side is a handicap-market call
type Side string

const (
	SideHome Side = "home"
	SideAway Side = "away"
)

func (s Side) Valid() bool {
	return s == SideHome || s == SideAway
}

func (s Side) Opposite() Side {
	if s == SideHome {
		return SideAway
	}
	return SideHome
}

func ParseSide(s string) (Side, error) {
	v := Side(s)
	if !v.Valid() {
		return "", fmt.Errorf("invalid handicap side %q", s)
	}
	return v, nil
}

// TotalsSide is an over/under call
type TotalsSide string

const (
	TotalsOver  TotalsSide = "over"
	TotalsUnder TotalsSide = "under"
)

func (t TotalsSide) Valid() bool {
	return t == TotalsOver || t == TotalsUnder
}

func ParseTotalsSide(s string) (TotalsSide, error) {
	v := TotalsSide(s)
	if !v.Valid() {
		return "", fmt.Errorf("invalid totals side %q", s)
	}
	return v, nil
}

// Confidence ranges per market, in percent
const (
	WinnerConfidenceMin   = 50.0
	WinnerConfidenceMax   = 90.0
	HandicapConfidenceMin = 50.0
	HandicapConfidenceMax = 70.0
	TotalsConfidenceMin   = 50.0
	TotalsConfidenceMax   = 75.0
)

// Forecast is the pre-match block of a prediction. It is frozen once the
// prediction has been reviewed.
type Forecast struct {
	Winner             Outcome      `json:"win_prediction"`
	WinnerConfidence   float64      `json:"win_confidence"`
	HandicapSide       Side         `json:"asian_prediction"`
	HandicapLine       float64      `json:"asian_handicap"`
	HandicapConfidence float64      `json:"asian_confidence"`
	TotalsSide         TotalsSide   `json:"ou_prediction"`
	TotalsLine         float64      `json:"ou_total"`
	TotalsConfidence   float64      `json:"ou_confidence"`
	Score              Score        `json:"predicted_score"`
	Basis              OddsSnapshot `json:"odds_basis"`
	Factors            []string     `json:"factors,omitempty"`
}

// Review is the post-match block, written exactly once
type Review struct {
	ActualScore     Score     `json:"actual_score"`
	ActualWinner    Outcome   `json:"actual_winner"`
	WinnerCorrect   bool      `json:"win_correct"`
	HandicapCorrect bool      `json:"asian_correct"`
	TotalsCorrect   bool      `json:"ou_correct"`
	ScoreCorrect    bool      `json:"score_correct"`
	Accuracy        float64   `json:"accuracy"`
	ReviewedAt      time.Time `json:"review_date"`
}

// CorrectCount returns how many of the four markets were called correctly
func (r Review) CorrectCount() int {
	n := 0
	for _, ok := range []bool{r.WinnerCorrect, r.HandicapCorrect, r.TotalsCorrect, r.ScoreCorrect} {
		if ok {
			n++
		}
	}
	return n
}

// Prediction is the one-per-match record owned by the engine
type Prediction struct {
	MatchID    string    `json:"match_id"`
	League     string    `json:"league"`
	HomeTeam   string    `json:"home_team"`
	AwayTeam   string    `json:"away_team"`
	KickoffAt  time.Time `json:"match_time"`
	Forecast   Forecast  `json:"forecast"`
	Revision   int       `json:"revision"`
	CreatedAt  time.Time `json:"predict_date"`
	ForecastAt time.Time `json:"forecast_at"`
	Review     *Review   `json:"review,omitempty"`
}

func (p *Prediction) IsReviewed() bool {
	return p != nil && p.Review != nil
}

// MarshalJSON adds the derived is_reviewed flag to the persisted document shape
func (p Prediction) MarshalJSON() ([]byte, error) {
	type plain Prediction
	return json.Marshal(struct {
		plain
		IsReviewed bool `json:"is_reviewed"`
	}{plain(p), p.Review != nil})
}

// ReviewResult is returned to callers of a single-match review
type ReviewResult struct {
	MatchID  string   `json:"match_id"`
	League   string   `json:"league"`
	HomeTeam string   `json:"home_team"`
	AwayTeam string   `json:"away_team"`
	Forecast Forecast `json:"forecast"`
	Review   Review   `json:"review"`
}

// PredictionFilter selects stored predictions
type PredictionFilter struct {
	Reviewed      *bool
	ReviewedSince time.Time
	Limit         int
}

// TeamForm is a team's trailing record, newest result first
type TeamForm struct {
	Team    string       `json:"team"`
	Results []FormResult `json:"results"`
}

// FormResult is one past match from the team's perspective
type FormResult struct {
	Scored   int `json:"scored"`
	Conceded int `json:"conceded"`
}

func (f *TeamForm) Games() int {
	if f == nil {
		return 0
	}
	return len(f.Results)
}

func (f *TeamForm) WinRate() float64 {
	if f.Games() == 0 {
		return 0
	}
	wins := 0
	for _, r := range f.Results {
		if r.Scored > r.Conceded {
			wins++
		}
	}
	return float64(wins) / float64(len(f.Results))
}

func (f *TeamForm) AvgScored() float64 {
	if f.Games() == 0 {
		return 0
	}
	total := 0
	for _, r := range f.Results {
		total += r.Scored
	}
	return float64(total) / float64(len(f.Results))
}

func (f *TeamForm) AvgConceded() float64 {
	if f.Games() == 0 {
		return 0
	}
	total := 0
	for _, r := range f.Results {
		total += r.Conceded
	}
	return float64(total) / float64(len(f.Results))
}

func (f *TeamForm) GoalDiffPerGame() float64 {
	return f.AvgScored() - f.AvgConceded()
}

// OverRate is the fraction of the team's recent matches whose combined goals exceeded line
func (f *TeamForm) OverRate(line float64) float64 {
	if f.Games() == 0 {
		return 0
	}
	over := 0
	for _, r := range f.Results {
		if float64(r.Scored+r.Conceded) > line {
			over++
		}
	}
	return float64(over) / float64(len(f.Results))
}

// ForecastRevision is one entry of a prediction's append-only forecast history
type ForecastRevision struct {
	MatchID    string    `json:"match_id"`
	Revision   int       `json:"revision"`
	Forecast   Forecast  `json:"forecast"`
	ForecastAt time.Time `json:"forecast_at"`
}
