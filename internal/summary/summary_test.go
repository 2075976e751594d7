package summary

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/football-predictor/internal/database"
	"github.com/Alias1177/football-predictor/models"
)

var now = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return now }

func seed(t *testing.T, s *database.MemoryStore, id, league string, review *models.Review) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.SavePrediction(ctx, &models.Prediction{
		MatchID:    id,
		League:     league,
		KickoffAt:  now.Add(-72 * time.Hour),
		ForecastAt: now.Add(-96 * time.Hour),
	}))
	if review != nil {
		require.NoError(t, s.SaveReview(ctx, id, 1, *review))
	}
}

func TestSummarizeEmptyWindow(t *testing.T) {
	r := NewReporter(database.NewMemoryStore(), fixedNow)

	report, err := r.Summarize(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, 7, report.Days)
	assert.Equal(t, 0, report.Total)
	assert.Equal(t, MarketStats{}, report.Winner)
	assert.Equal(t, MarketStats{}, report.Score)
	assert.Equal(t, 0.0, report.AvgAccuracy)
	assert.Empty(t, report.Leagues)
	assert.True(t, report.To.Equal(now))
	assert.True(t, report.From.Equal(now.AddDate(0, 0, -7)))
}

func TestSummarizeClampsDays(t *testing.T) {
	r := NewReporter(database.NewMemoryStore(), fixedNow)

	for _, days := range []int{0, -3} {
		report, err := r.Summarize(context.Background(), days)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Days)
		assert.True(t, report.From.Equal(now.Add(-24*time.Hour)))
	}
}

func TestSummarizeAggregates(t *testing.T) {
	s := database.NewMemoryStore()
	seed(t, s, "m1", "EPL", &models.Review{
		WinnerCorrect: true, HandicapCorrect: true, TotalsCorrect: true, Accuracy: 75,
		ReviewedAt: now.Add(-48 * time.Hour),
	})
	seed(t, s, "m2", "EPL", &models.Review{
		WinnerCorrect: true, Accuracy: 25,
		ReviewedAt: now.Add(-24 * time.Hour),
	})
	seed(t, s, "m3", "La Liga", &models.Review{
		WinnerCorrect: true, HandicapCorrect: true, TotalsCorrect: true, ScoreCorrect: true, Accuracy: 100,
		ReviewedAt: now.Add(-72 * time.Hour),
	})
	seed(t, s, "m4", "EPL", &models.Review{
		Accuracy:   0,
		ReviewedAt: now.Add(-10 * 24 * time.Hour),
	})
	seed(t, s, "m5", "Serie A", nil)

	report, err := NewReporter(s, fixedNow).Summarize(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, MarketStats{Correct: 3, Accuracy: 100}, report.Winner)
	assert.Equal(t, MarketStats{Correct: 2, Accuracy: 66.7}, report.Handicap)
	assert.Equal(t, MarketStats{Correct: 2, Accuracy: 66.7}, report.Totals)
	assert.Equal(t, MarketStats{Correct: 1, Accuracy: 33.3}, report.Score)
	assert.Equal(t, 66.7, report.AvgAccuracy)

	require.Len(t, report.Leagues, 2)
	epl := report.Leagues[0]
	assert.Equal(t, "EPL", epl.League)
	assert.Equal(t, 2, epl.Total)
	assert.Equal(t, 100.0, epl.Winner.Accuracy)
	assert.Equal(t, 50.0, epl.Handicap.Accuracy)
	assert.Equal(t, 50.0, epl.AvgAccuracy)
	assert.Equal(t, "La Liga", report.Leagues[1].League)
	assert.Equal(t, 100.0, report.Leagues[1].Score.Accuracy)

	assert.Contains(t, report.String(), "Matches reviewed: 3")
}

type failingLister struct{}

func (failingLister) ListPredictions(context.Context, models.PredictionFilter) ([]models.Prediction, error) {
	return nil, errors.New("connection refused")
}

func TestSummarizeAccessorError(t *testing.T) {
	_, err := NewReporter(failingLister{}, fixedNow).Summarize(context.Background(), 7)

	var accessorErr *models.AccessorError
	require.True(t, errors.As(err, &accessorErr))
	assert.Contains(t, err.Error(), "connection refused")
}
