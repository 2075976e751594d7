package prediction

import (
	"fmt"
	"math"

	"github.com/Alias1177/football-predictor/internal/utils"
	"github.com/Alias1177/football-predictor/models"
)

func (e *Engine) predictTotals(ou *models.TotalsOdds, home, away *models.TeamForm) (models.TotalsSide, float64, []string) {
	// positive skew: the over price is the shorter one
	skew := priceSkew(ou.Over, ou.Under)
	priceSignal := utils.Clamp(e.cfg.TotalsSkewGain*skew, -1, 1)

	formSignal := 0.0
	if home != nil && away != nil {
		overRate := (home.OverRate(ou.Line) + away.OverRate(ou.Line)) / 2
		formSignal = 2 * (overRate - 0.5)
	}

	signal := e.cfg.TotalsPriceWeight*priceSignal + e.cfg.TotalsFormWeight*formSignal

	side := models.TotalsOver
	if signal < 0 {
		side = models.TotalsUnder
	}

	confidence := utils.Clamp(
		utils.Round1(models.TotalsConfidenceMin+e.cfg.TotalsSignalGain*math.Abs(signal)),
		models.TotalsConfidenceMin, models.TotalsConfidenceMax,
	)

	factors := []string{fmt.Sprintf("totals %.2f price %+.3f form %+.3f", ou.Line, priceSignal, formSignal)}
	return side, confidence, factors
}
