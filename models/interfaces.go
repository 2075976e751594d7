package models

import "context"

// MatchAccessor is the match/odds/prediction store used by the engine.
// Writes are atomic per record.
type MatchAccessor interface {
	GetMatch(ctx context.Context, id string) (*Match, error)
	GetMatches(ctx context.Context, filter MatchFilter) ([]Match, error)
	GetPrediction(ctx context.Context, matchID string) (*Prediction, error)
	ListPredictions(ctx context.Context, filter PredictionFilter) ([]Prediction, error)
	// SavePrediction upserts the forecast block, assigning Revision and CreatedAt.
	// It fails with AlreadyReviewedError once the prediction is reviewed.
	SavePrediction(ctx context.Context, p *Prediction) error
	// SaveReview writes the whole review block or nothing. It fails with
	// ForecastChangedError when the stored revision is no longer the one scored.
	SaveReview(ctx context.Context, matchID string, revision int, review Review) error
}

// MatchWriter accepts scraped matches from the feed
type MatchWriter interface {
	UpsertMatches(ctx context.Context, matches []Match) error
}

// HistoryReader exposes the append-only forecast history kept by stores that support it
type HistoryReader interface {
	History(ctx context.Context, matchID string) ([]ForecastRevision, error)
}
