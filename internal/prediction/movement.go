package prediction

import (
	"github.com/Alias1177/football-predictor/internal/utils"
	"github.com/Alias1177/football-predictor/models"
)

// ShorteningStep is the 1X2 price drop that marks the market leaning to an outcome
const ShorteningStep = 0.1

// PriceMove is one quote at opening and now
type PriceMove struct {
	Opening float64 `json:"opening"`
	Current float64 `json:"current"`
	Change  float64 `json:"change"`
}

func move(opening, current float64) PriceMove {
	return PriceMove{Opening: opening, Current: current, Change: utils.Round(current-opening, 2)}
}

type MoneylineMovement struct {
	Home     PriceMove      `json:"home"`
	Draw     PriceMove      `json:"draw"`
	Away     PriceMove      `json:"away"`
	Favoured models.Outcome `json:"favoured,omitempty"`
}

type HandicapMovement struct {
	Line      PriceMove `json:"line"`
	Home      PriceMove `json:"home"`
	Away      PriceMove `json:"away"`
	Direction string    `json:"direction"`
}

type TotalsMovement struct {
	Line  PriceMove `json:"line"`
	Over  PriceMove `json:"over"`
	Under PriceMove `json:"under"`
}

// MovementReport compares a match's opening and current odds market by market.
// A market is nil unless both quotes are present.
type MovementReport struct {
	MatchID   string             `json:"match_id"`
	Moneyline *MoneylineMovement `json:"moneyline,omitempty"`
	Handicap  *HandicapMovement  `json:"handicap,omitempty"`
	Totals    *TotalsMovement    `json:"totals,omitempty"`
}

// Movement reports how the odds drifted since opening. It fails with
// MissingDataError when the match lacks either snapshot.
func (e *Engine) Movement(m models.Match) (*MovementReport, error) {
	if m.Opening == nil || m.Current == nil {
		return nil, &models.MissingDataError{MatchID: m.ID, Reason: "opening and current odds are both required"}
	}

	report := &MovementReport{MatchID: m.ID}
	open, cur := m.Opening, m.Current

	if open.Moneyline.Valid() && cur.Moneyline.Valid() {
		ml := &MoneylineMovement{
			Home: move(open.Moneyline.Home, cur.Moneyline.Home),
			Draw: move(open.Moneyline.Draw, cur.Moneyline.Draw),
			Away: move(open.Moneyline.Away, cur.Moneyline.Away),
		}
		switch {
		case ml.Home.Change < -ShorteningStep:
			ml.Favoured = models.OutcomeHome
		case ml.Away.Change < -ShorteningStep:
			ml.Favoured = models.OutcomeAway
		case ml.Draw.Change < -ShorteningStep:
			ml.Favoured = models.OutcomeDraw
		}
		report.Moneyline = ml
	}

	if open.Handicap.Valid() && cur.Handicap.Valid() {
		report.Handicap = &HandicapMovement{
			Line:      move(open.Handicap.Line, cur.Handicap.Line),
			Home:      move(open.Handicap.Home, cur.Handicap.Home),
			Away:      move(open.Handicap.Away, cur.Handicap.Away),
			Direction: LineMovement(open.Handicap, cur.Handicap, e.cfg.HandicapLineStep, e.cfg.HandicapPriceStep).String(),
		}
	}

	if open.Totals.Valid() && cur.Totals.Valid() {
		report.Totals = &TotalsMovement{
			Line:  move(open.Totals.Line, cur.Totals.Line),
			Over:  move(open.Totals.Over, cur.Totals.Over),
			Under: move(open.Totals.Under, cur.Totals.Under),
		}
	}

	return report, nil
}
