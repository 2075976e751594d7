package prediction

import (
	"math"

	"github.com/Alias1177/football-predictor/models"
)

// PriceTolerance is the largest price move that does not warrant a re-forecast
const PriceTolerance = 0.02

// OddsChanged reports whether cur differs materially from the odds a forecast
// was built on: any line moved, or any price moved by more than PriceTolerance.
func OddsChanged(prev models.OddsSnapshot, cur *models.OddsSnapshot) bool {
	if cur == nil {
		return false
	}
	if !prev.Complete() {
		return cur.Complete()
	}
	if !cur.Complete() {
		return false
	}

	moved := func(a, b float64) bool { return math.Abs(a-b) > PriceTolerance }

	if moved(prev.Moneyline.Home, cur.Moneyline.Home) ||
		moved(prev.Moneyline.Draw, cur.Moneyline.Draw) ||
		moved(prev.Moneyline.Away, cur.Moneyline.Away) {
		return true
	}
	if prev.Handicap.Line != cur.Handicap.Line ||
		moved(prev.Handicap.Home, cur.Handicap.Home) ||
		moved(prev.Handicap.Away, cur.Handicap.Away) {
		return true
	}
	return prev.Totals.Line != cur.Totals.Line ||
		moved(prev.Totals.Over, cur.Totals.Over) ||
		moved(prev.Totals.Under, cur.Totals.Under)
}
