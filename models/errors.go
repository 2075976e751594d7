package models

import (
	"errors"
	"fmt"
)

// ErrMatchNotFound is returned by accessors when no match or prediction exists for an id
var ErrMatchNotFound = errors.New("match not found")

// MissingDataError means the match has no complete odds snapshot. Retry once odds arrive.
type MissingDataError struct {
	MatchID string
	Reason  string
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("match %s: no odds available: %s", e.MatchID, e.Reason)
}

// NotReviewableError means the match is not finished or has not been predicted yet
type NotReviewableError struct {
	MatchID string
	Reason  string
}

func (e *NotReviewableError) Error() string {
	return fmt.Sprintf("match %s: not reviewable: %s", e.MatchID, e.Reason)
}

// AlreadyReviewedError guards the single review per match. Callers treat it as a no-op.
type AlreadyReviewedError struct {
	MatchID string
}

func (e *AlreadyReviewedError) Error() string {
	return fmt.Sprintf("match %s: already reviewed", e.MatchID)
}

// NotPredictableError means the match has already kicked off
type NotPredictableError struct {
	MatchID string
	Status  MatchStatus
}

func (e *NotPredictableError) Error() string {
	return fmt.Sprintf("match %s: cannot forecast a match that is %s", e.MatchID, e.Status)
}

// ForecastChangedError means the forecast was revised while its review was
// being scored. The review was not written; scoring again picks up the new revision.
type ForecastChangedError struct {
	MatchID  string
	Revision int
}

func (e *ForecastChangedError) Error() string {
	return fmt.Sprintf("match %s: forecast revision %d was replaced before the review was saved", e.MatchID, e.Revision)
}

// AccessorError wraps a store or network failure
type AccessorError struct {
	Op      string
	MatchID string
	Err     error
}

func (e *AccessorError) Error() string {
	if e.MatchID == "" {
		return fmt.Sprintf("accessor %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("accessor %s (match %s): %v", e.Op, e.MatchID, e.Err)
}

func (e *AccessorError) Unwrap() error {
	return e.Err
}

// IsAlreadyReviewed reports whether err is an AlreadyReviewedError
func IsAlreadyReviewed(err error) bool {
	var target *AlreadyReviewedError
	return errors.As(err, &target)
}
