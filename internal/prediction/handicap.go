package prediction

import (
	"fmt"

	"github.com/Alias1177/football-predictor/internal/utils"
	"github.com/Alias1177/football-predictor/models"
)

// Movement is the direction the handicap market drifted from opening to current
type Movement int

const (
	MovementNone Movement = iota
	MovementHome
	MovementAway
)

func (m Movement) String() string {
	switch m {
	case MovementHome:
		return "toward home"
	case MovementAway:
		return "toward away"
	default:
		return "none"
	}
}

// LineMovement compares opening and current handicap quotes. A falling line
// (home asked to give more goals) is movement toward home; on an unchanged
// line a shortening home price is movement toward home.
func LineMovement(opening, current *models.HandicapOdds, lineStep, priceStep float64) Movement {
	if !opening.Valid() || !current.Valid() {
		return MovementNone
	}

	delta := current.Line - opening.Line
	switch {
	case delta <= -lineStep:
		return MovementHome
	case delta >= lineStep:
		return MovementAway
	}

	priceDelta := current.Home - opening.Home
	switch {
	case priceDelta < -priceStep:
		return MovementHome
	case priceDelta > priceStep:
		return MovementAway
	}
	return MovementNone
}

func priceSkew(a, b float64) float64 {
	return (b - a) / ((a + b) / 2)
}

func (e *Engine) predictHandicap(ah *models.HandicapOdds, opening, current *models.OddsSnapshot) (models.Side, float64, []string) {
	// positive skew: the home price is the shorter one
	skew := priceSkew(ah.Home, ah.Away)

	var side models.Side
	confidence := models.HandicapConfidenceMin
	switch {
	case skew > e.cfg.HandicapMaterialSkew:
		side = models.SideHome
		confidence += e.cfg.HandicapSkewGain * skew
	case skew < -e.cfg.HandicapMaterialSkew:
		side = models.SideAway
		confidence += e.cfg.HandicapSkewGain * -skew
	// below the material skew the side comes from the line and the price adds nothing
	case ah.Line > 0:
		side = models.SideHome
	case ah.Line < 0:
		side = models.SideAway
	case skew >= 0:
		side = models.SideHome
	default:
		side = models.SideAway
	}

	factors := []string{fmt.Sprintf("handicap %+.2f price skew %+.3f", ah.Line, skew)}

	var open, cur *models.HandicapOdds
	if opening != nil {
		open = opening.Handicap
	}
	if current != nil {
		cur = current.Handicap
	}
	movement := LineMovement(open, cur, e.cfg.HandicapLineStep, e.cfg.HandicapPriceStep)
	switch {
	case movement == MovementHome && side == models.SideHome,
		movement == MovementAway && side == models.SideAway:
		confidence += e.cfg.HandicapMovement
		factors = append(factors, "line movement "+movement.String()+" confirms call")
	case movement != MovementNone:
		confidence -= e.cfg.HandicapMovement
		factors = append(factors, "line movement "+movement.String()+" conflicts with call")
	}

	confidence = utils.Clamp(utils.Round1(confidence), models.HandicapConfidenceMin, models.HandicapConfidenceMax)
	return side, confidence, factors
}
