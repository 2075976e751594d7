// Package lifecycle guards the per-match state machine
// Unpredicted -> Predicted -> Reviewed. Reviewed is terminal.
package lifecycle

import (
	"github.com/Alias1177/football-predictor/models"
)

// State of a match from the engine's point of view
type State int

const (
	Unpredicted State = iota
	Predicted
	Reviewed
)

func (s State) String() string {
	switch s {
	case Unpredicted:
		return "unpredicted"
	case Predicted:
		return "predicted"
	case Reviewed:
		return "reviewed"
	default:
		return "unknown"
	}
}

// Of derives the state from the stored prediction, nil meaning none exists
func Of(pred *models.Prediction) State {
	switch {
	case pred == nil:
		return Unpredicted
	case pred.IsReviewed():
		return Reviewed
	default:
		return Predicted
	}
}

// CanForecast allows Unpredicted -> Predicted and Predicted -> Predicted
// (a re-forecast) for matches that have not kicked off.
func CanForecast(match *models.Match, pred *models.Prediction) error {
	if Of(pred) == Reviewed {
		return &models.AlreadyReviewedError{MatchID: match.ID}
	}
	if match.Status != models.StatusScheduled {
		return &models.NotPredictableError{MatchID: match.ID, Status: match.Status}
	}
	return nil
}

// CanReview allows Predicted -> Reviewed once the match is finished with a usable score
func CanReview(match *models.Match, pred *models.Prediction) error {
	switch Of(pred) {
	case Unpredicted:
		return &models.NotReviewableError{MatchID: match.ID, Reason: "no prediction stored"}
	case Reviewed:
		return &models.AlreadyReviewedError{MatchID: match.ID}
	}

	if match.Status != models.StatusFinished {
		return &models.NotReviewableError{MatchID: match.ID, Reason: "match is " + match.Status.String()}
	}
	if !match.FinalScore.Valid() {
		return &models.NotReviewableError{MatchID: match.ID, Reason: "final score missing"}
	}
	return nil
}
