package prediction

import (
	"fmt"

	"github.com/Alias1177/football-predictor/internal/utils"
	"github.com/Alias1177/football-predictor/models"
)

// ImpliedProbabilities inverts the three moneyline prices and normalizes them to sum to 1
func ImpliedProbabilities(ml *models.Moneyline) (home, draw, away float64) {
	ih, id, ia := 1/ml.Home, 1/ml.Draw, 1/ml.Away
	sum := ih + id + ia
	return ih / sum, id / sum, ia / sum
}

// formDifferential is in [-1, 1]; positive favours the home side
func formDifferential(home, away *models.TeamForm) float64 {
	winRate := home.WinRate() - away.WinRate()
	goalDiff := utils.Clamp((home.GoalDiffPerGame()-away.GoalDiffPerGame())/3, -1, 1)
	return 0.6*winRate + 0.4*goalDiff
}

func (e *Engine) predictWinner(ml *models.Moneyline, home, away *models.TeamForm) (models.Outcome, float64, []string) {
	pHome, pDraw, pAway := ImpliedProbabilities(ml)
	factors := []string{fmt.Sprintf("implied 1X2 %.3f/%.3f/%.3f", pHome, pDraw, pAway)}

	if home != nil && away != nil {
		shift := e.cfg.WinnerFormShift * formDifferential(home, away)
		pHome += shift
		pAway -= shift
		if shift != 0 {
			factors = append(factors, fmt.Sprintf("form shift %+.3f toward home", shift))
		}
	}

	// ties resolve in home, draw, away order
	outcomes := []struct {
		o models.Outcome
		p float64
	}{
		{models.OutcomeHome, pHome},
		{models.OutcomeDraw, pDraw},
		{models.OutcomeAway, pAway},
	}

	best, second := 0, -1
	for i := 1; i < len(outcomes); i++ {
		if outcomes[i].p > outcomes[best].p {
			second = best
			best = i
		} else if second == -1 || outcomes[i].p > outcomes[second].p {
			second = i
		}
	}

	margin := outcomes[best].p - outcomes[second].p
	confidence := utils.Clamp(
		utils.Round1(models.WinnerConfidenceMin+e.cfg.WinnerMarginGain*margin),
		models.WinnerConfidenceMin, models.WinnerConfidenceMax,
	)

	return outcomes[best].o, confidence, factors
}
