// Package review scores a stored forecast against the final result of its match.
package review

import (
	"time"

	"github.com/Alias1177/football-predictor/internal/utils"
	"github.com/Alias1177/football-predictor/models"
)

// Markets is the number of markets that enter the accuracy figure
const Markets = 4

// HandicapCorrect settles a handicap call on a single numeric line. The line
// is added to the home score; a level adjusted result (a push) counts as wrong.
func HandicapCorrect(side models.Side, line float64, actual models.Score) bool {
	diff := float64(actual.Home) + line - float64(actual.Away)
	switch side {
	case models.SideHome:
		return diff > 0
	case models.SideAway:
		return diff < 0
	default:
		return false
	}
}

// TotalsCorrect settles an over/under call; a total equal to the line counts as wrong
func TotalsCorrect(side models.TotalsSide, line float64, actual models.Score) bool {
	total := float64(actual.Total())
	switch side {
	case models.TotalsOver:
		return total > line
	case models.TotalsUnder:
		return total < line
	default:
		return false
	}
}

// Evaluate compares f with the actual score. The forecast itself is not touched.
func Evaluate(f models.Forecast, actual models.Score, at time.Time) models.Review {
	r := models.Review{
		ActualScore:     actual,
		ActualWinner:    actual.Winner(),
		HandicapCorrect: HandicapCorrect(f.HandicapSide, f.HandicapLine, actual),
		TotalsCorrect:   TotalsCorrect(f.TotalsSide, f.TotalsLine, actual),
		ScoreCorrect:    f.Score == actual,
		ReviewedAt:      at,
	}
	r.WinnerCorrect = f.Winner == r.ActualWinner
	r.Accuracy = utils.Percent(r.CorrectCount(), Markets)
	return r
}
