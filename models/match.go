package models

import (
	"math"
	"time"
)

// MatchStatus is the lifecycle status of a match as reported by the scraper
type MatchStatus int

const (
	StatusScheduled  MatchStatus = 0
	StatusInProgress MatchStatus = 1
	StatusFinished   MatchStatus = 2
)

func (s MatchStatus) String() string {
	switch s {
	case StatusScheduled:
		return "scheduled"
	case StatusInProgress:
		return "in_progress"
	case StatusFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Moneyline holds decimal prices for the 1X2 market
type Moneyline struct {
	Home float64 `json:"home"`
	Draw float64 `json:"draw"`
	Away float64 `json:"away"`
}

// Valid reports whether all three prices are usable decimal odds
func (m *Moneyline) Valid() bool {
	return m != nil && m.Home > 1 && m.Draw > 1 && m.Away > 1 && finite(m.Home, m.Draw, m.Away)
}

// HandicapOdds is an asian handicap quote. Line is the goal adjustment
// applied to the home side's score (-0.5 means home gives half a goal).
type HandicapOdds struct {
	Line float64 `json:"line"`
	Home float64 `json:"home"`
	Away float64 `json:"away"`
}

func (h *HandicapOdds) Valid() bool {
	return h != nil && h.Home > 0 && h.Away > 0 && finite(h.Line, h.Home, h.Away)
}

// TotalsOdds is an over/under quote on combined goals
type TotalsOdds struct {
	Line  float64 `json:"line"`
	Over  float64 `json:"over"`
	Under float64 `json:"under"`
}

func (t *TotalsOdds) Valid() bool {
	return t != nil && t.Line > 0 && t.Over > 0 && t.Under > 0 && finite(t.Line, t.Over, t.Under)
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// OddsSnapshot groups the three markets quoted at one point in time
type OddsSnapshot struct {
	Moneyline *Moneyline    `json:"moneyline,omitempty"`
	Handicap  *HandicapOdds `json:"handicap,omitempty"`
	Totals    *TotalsOdds   `json:"totals,omitempty"`
}

// Complete reports whether every market of the snapshot can be scored
func (o *OddsSnapshot) Complete() bool {
	return o != nil && o.Moneyline.Valid() && o.Handicap.Valid() && o.Totals.Valid()
}

// Score is a final or predicted scoreline
type Score struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// Valid reports whether both sides are non-negative
func (s *Score) Valid() bool {
	return s != nil && s.Home >= 0 && s.Away >= 0
}

// Winner returns the 1X2 outcome implied by the score
func (s Score) Winner() Outcome {
	switch {
	case s.Home > s.Away:
		return OutcomeHome
	case s.Home < s.Away:
		return OutcomeAway
	default:
		return OutcomeDraw
	}
}

func (s Score) Total() int {
	return s.Home + s.Away
}

// Match is a scraped fixture with its odds history. The core never writes it.
type Match struct {
	ID         string        `json:"match_id"`
	League     string        `json:"league"`
	HomeTeam   string        `json:"home_team"`
	AwayTeam   string        `json:"away_team"`
	KickoffAt  time.Time     `json:"match_time"`
	Status     MatchStatus   `json:"status"`
	Opening    *OddsSnapshot `json:"opening_odds,omitempty"`
	Current    *OddsSnapshot `json:"current_odds,omitempty"`
	FinalScore *Score        `json:"final_score,omitempty"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// EffectiveOdds returns the snapshot the engine should score: current odds
// when complete, otherwise the opening odds when complete.
func (m *Match) EffectiveOdds() (*OddsSnapshot, bool) {
	if m.Current.Complete() {
		return m.Current, true
	}
	if m.Opening.Complete() {
		return m.Opening, true
	}
	return nil, false
}

// MatchFilter selects matches from the accessor. Zero values mean "no constraint".
type MatchFilter struct {
	Statuses []MatchStatus
	From     time.Time // kickoff >= From
	To       time.Time // kickoff < To
	Team     string    // home or away team
	Limit    int
	Newest   bool // order by kickoff descending
}
