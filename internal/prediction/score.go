package prediction

import (
	"github.com/Alias1177/football-predictor/internal/utils"
	"github.com/Alias1177/football-predictor/models"
)

// predictScore rounds each side's expected goals and then bends the result so
// it agrees with the winner call. The score market carries no confidence.
func (e *Engine) predictScore(home, away *models.TeamForm, winner models.Outcome) models.Score {
	xgHome, xgAway := e.cfg.DefaultHomeGoals, e.cfg.DefaultAwayGoals
	if home != nil && away != nil {
		xgHome = (home.AvgScored() + away.AvgConceded()) / 2
		xgAway = (away.AvgScored() + home.AvgConceded()) / 2
	}

	h, a := utils.RoundHalfUp(xgHome), utils.RoundHalfUp(xgAway)

	switch winner {
	case models.OutcomeHome:
		if h <= a {
			a = max(0, a-e.cfg.LoserGoalStep)
			if h <= a {
				h = a + 1
			}
		}
	case models.OutcomeAway:
		if a <= h {
			h = max(0, h-e.cfg.LoserGoalStep)
			if a <= h {
				a = h + 1
			}
		}
	case models.OutcomeDraw:
		g := max(1, min(h, a))
		h, a = g, g
	}

	return models.Score{Home: h, Away: a}
}
