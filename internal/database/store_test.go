package database

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/football-predictor/models"
)

type store interface {
	models.MatchAccessor
	models.MatchWriter
	History(ctx context.Context, matchID string) ([]models.ForecastRevision, error)
}

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func odds(home, draw, away float64) *models.OddsSnapshot {
	return &models.OddsSnapshot{
		Moneyline: &models.Moneyline{Home: home, Draw: draw, Away: away},
		Handicap:  &models.HandicapOdds{Line: -0.25, Home: 1.92, Away: 1.98},
		Totals:    &models.TotalsOdds{Line: 2.5, Over: 1.85, Under: 2.05},
	}
}

func seedMatches() []models.Match {
	return []models.Match{
		{ID: "m1", League: "EPL", HomeTeam: "Arsenal", AwayTeam: "Chelsea", KickoffAt: base.Add(2 * time.Hour),
			Status: models.StatusScheduled, Opening: odds(2.1, 3.3, 3.4), Current: odds(2.0, 3.4, 3.6), UpdatedAt: base},
		{ID: "m2", League: "EPL", HomeTeam: "Liverpool", AwayTeam: "Arsenal", KickoffAt: base.Add(-26 * time.Hour),
			Status: models.StatusFinished, Current: odds(1.8, 3.8, 4.2), FinalScore: &models.Score{Home: 0, Away: 2}, UpdatedAt: base},
		{ID: "m3", League: "La Liga", HomeTeam: "Sevilla", AwayTeam: "Betis", KickoffAt: base.Add(-3 * time.Hour),
			Status: models.StatusFinished, FinalScore: &models.Score{Home: 1, Away: 1}, UpdatedAt: base},
		{ID: "m4", League: "La Liga", HomeTeam: "Girona", AwayTeam: "Getafe", KickoffAt: base.Add(-30 * time.Minute),
			Status: models.StatusInProgress, UpdatedAt: base},
	}
}

func prediction(m models.Match, winner models.Outcome, at time.Time) *models.Prediction {
	return &models.Prediction{
		MatchID:   m.ID,
		League:    m.League,
		HomeTeam:  m.HomeTeam,
		AwayTeam:  m.AwayTeam,
		KickoffAt: m.KickoffAt,
		Forecast: models.Forecast{
			Winner:             winner,
			WinnerConfidence:   57,
			HandicapSide:       models.SideAway,
			HandicapLine:       -0.25,
			HandicapConfidence: 52.5,
			TotalsSide:         models.TotalsOver,
			TotalsLine:         2.5,
			TotalsConfidence:   55,
			Score:              models.Score{Home: 1, Away: 2},
			Basis:              *odds(2.0, 3.4, 3.6),
			Factors:            []string{"implied"},
		},
		ForecastAt: at,
	}
}

func stores(t *testing.T) map[string]store {
	t.Helper()
	ctx := context.Background()

	db, err := NewSQLite(ctx, filepath.Join(t.TempDir(), "predictor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return map[string]store{
		"sqlite": db,
		"memory": NewMemoryStore(),
	}
}

func TestMatches(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.UpsertMatches(ctx, seedMatches()))

			m, err := s.GetMatch(ctx, "m1")
			require.NoError(t, err)
			assert.Equal(t, "Arsenal", m.HomeTeam)
			assert.True(t, m.KickoffAt.Equal(base.Add(2*time.Hour)))
			assert.Equal(t, models.StatusScheduled, m.Status)
			assert.Equal(t, 2.1, m.Opening.Moneyline.Home)
			assert.Equal(t, -0.25, m.Current.Handicap.Line)
			assert.Nil(t, m.FinalScore)

			m, err = s.GetMatch(ctx, "m2")
			require.NoError(t, err)
			assert.Nil(t, m.Opening)
			require.NotNil(t, m.FinalScore)
			assert.Equal(t, models.Score{Home: 0, Away: 2}, *m.FinalScore)

			_, err = s.GetMatch(ctx, "missing")
			assert.True(t, errors.Is(err, models.ErrMatchNotFound))

			// update in place
			updated := seedMatches()[0]
			updated.Status = models.StatusInProgress
			require.NoError(t, s.UpsertMatches(ctx, []models.Match{updated}))
			m, err = s.GetMatch(ctx, "m1")
			require.NoError(t, err)
			assert.Equal(t, models.StatusInProgress, m.Status)
		})
	}
}

func TestUpsertSkipsUnstorableOdds(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			good := seedMatches()[0]
			bad := seedMatches()[1]
			bad.Current = odds(math.Inf(1), 3.8, 4.2)

			require.NoError(t, s.UpsertMatches(ctx, []models.Match{bad, good}))

			m, err := s.GetMatch(ctx, good.ID)
			require.NoError(t, err)
			assert.Equal(t, "Arsenal", m.HomeTeam)

			_, err = s.GetMatch(ctx, bad.ID)
			assert.ErrorIs(t, err, models.ErrMatchNotFound)
		})
	}
}

func TestGetMatchesFilter(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.UpsertMatches(ctx, seedMatches()))

			tests := []struct {
				name   string
				filter models.MatchFilter
				want   []string
			}{
				{"all ascending", models.MatchFilter{}, []string{"m2", "m3", "m4", "m1"}},
				{"finished", models.MatchFilter{Statuses: []models.MatchStatus{models.StatusFinished}}, []string{"m2", "m3"}},
				{"finished last day", models.MatchFilter{
					Statuses: []models.MatchStatus{models.StatusFinished},
					From:     base.Add(-24 * time.Hour),
					To:       base,
				}, []string{"m3"}},
				{"upcoming", models.MatchFilter{From: base, To: base.Add(48 * time.Hour)}, []string{"m1"}},
				{"team newest", models.MatchFilter{Team: "Arsenal", Newest: true}, []string{"m1", "m2"}},
				{"limit", models.MatchFilter{Newest: true, Limit: 2}, []string{"m1", "m4"}},
				{"two statuses", models.MatchFilter{Statuses: []models.MatchStatus{models.StatusScheduled, models.StatusInProgress}}, []string{"m4", "m1"}},
			}

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					got, err := s.GetMatches(ctx, tt.filter)
					require.NoError(t, err)
					ids := make([]string, 0, len(got))
					for _, m := range got {
						ids = append(ids, m.ID)
					}
					assert.Equal(t, tt.want, ids)
				})
			}
		})
	}
}

func TestSavePredictionRevisions(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			m := seedMatches()[0]

			got, err := s.GetPrediction(ctx, m.ID)
			require.NoError(t, err)
			assert.Nil(t, got)

			first := prediction(m, models.OutcomeHome, base)
			require.NoError(t, s.SavePrediction(ctx, first))
			assert.Equal(t, 1, first.Revision)
			assert.True(t, first.CreatedAt.Equal(base))

			second := prediction(m, models.OutcomeAway, base.Add(time.Hour))
			require.NoError(t, s.SavePrediction(ctx, second))
			assert.Equal(t, 2, second.Revision)
			assert.True(t, second.CreatedAt.Equal(base), "creation time is kept across revisions")

			stored, err := s.GetPrediction(ctx, m.ID)
			require.NoError(t, err)
			require.NotNil(t, stored)
			assert.Equal(t, 2, stored.Revision)
			assert.Equal(t, models.OutcomeAway, stored.Forecast.Winner)
			assert.Equal(t, 52.5, stored.Forecast.HandicapConfidence)
			assert.Equal(t, 3.6, stored.Forecast.Basis.Moneyline.Away)
			assert.True(t, stored.ForecastAt.Equal(base.Add(time.Hour)))
			assert.True(t, stored.KickoffAt.Equal(m.KickoffAt))
			assert.False(t, stored.IsReviewed())

			history, err := s.History(ctx, m.ID)
			require.NoError(t, err)
			require.Len(t, history, 2)
			assert.Equal(t, models.OutcomeHome, history[0].Forecast.Winner)
			assert.Equal(t, 1, history[0].Revision)
			assert.Equal(t, models.OutcomeAway, history[1].Forecast.Winner)
		})
	}
}

func TestSavePredictionConcurrentRevisions(t *testing.T) {
	const writers = 8

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			m := seedMatches()[0]

			var wg sync.WaitGroup
			revisions := make([]int, writers)
			errs := make([]error, writers)
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					p := prediction(m, models.OutcomeHome, base.Add(time.Duration(i)*time.Minute))
					errs[i] = s.SavePrediction(ctx, p)
					revisions[i] = p.Revision
				}(i)
			}
			wg.Wait()

			seen := map[int]bool{}
			for i := 0; i < writers; i++ {
				require.NoError(t, errs[i])
				assert.False(t, seen[revisions[i]], "revision %d assigned twice", revisions[i])
				seen[revisions[i]] = true
			}
			for r := 1; r <= writers; r++ {
				assert.True(t, seen[r], "revision %d missing", r)
			}

			history, err := s.History(ctx, m.ID)
			require.NoError(t, err)
			assert.Len(t, history, writers)

			stored, err := s.GetPrediction(ctx, m.ID)
			require.NoError(t, err)
			assert.Equal(t, writers, stored.Revision)
		})
	}
}

func TestSaveReviewStaleRevision(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			m := seedMatches()[1]

			require.NoError(t, s.SavePrediction(ctx, prediction(m, models.OutcomeHome, base.Add(-40*time.Hour))))
			require.NoError(t, s.SavePrediction(ctx, prediction(m, models.OutcomeAway, base.Add(-30*time.Hour))))

			review := models.Review{ActualScore: models.Score{Home: 0, Away: 2}, Accuracy: 25, ReviewedAt: base}
			err := s.SaveReview(ctx, m.ID, 1, review)
			var changed *models.ForecastChangedError
			require.True(t, errors.As(err, &changed), "review of replaced revision: %v", err)
			assert.Equal(t, 1, changed.Revision)

			stored, err := s.GetPrediction(ctx, m.ID)
			require.NoError(t, err)
			assert.False(t, stored.IsReviewed())

			require.NoError(t, s.SaveReview(ctx, m.ID, 2, review))
		})
	}
}

func TestSaveReviewOnce(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			m := seedMatches()[1]

			err := s.SaveReview(ctx, m.ID, 1, models.Review{})
			var notReviewable *models.NotReviewableError
			assert.True(t, errors.As(err, &notReviewable), "review without prediction: %v", err)

			require.NoError(t, s.SavePrediction(ctx, prediction(m, models.OutcomeAway, base.Add(-30*time.Hour))))

			review := models.Review{
				ActualScore:     models.Score{Home: 0, Away: 2},
				ActualWinner:    models.OutcomeAway,
				WinnerCorrect:   true,
				HandicapCorrect: true,
				TotalsCorrect:   false,
				ScoreCorrect:    false,
				Accuracy:        50,
				ReviewedAt:      base,
			}
			require.NoError(t, s.SaveReview(ctx, m.ID, 1, review))

			stored, err := s.GetPrediction(ctx, m.ID)
			require.NoError(t, err)
			require.True(t, stored.IsReviewed())
			assert.Equal(t, review, *stored.Review)

			second := review
			second.Accuracy = 100
			err = s.SaveReview(ctx, m.ID, 1, second)
			assert.True(t, models.IsAlreadyReviewed(err), "second review: %v", err)

			err = s.SavePrediction(ctx, prediction(m, models.OutcomeHome, base))
			assert.True(t, models.IsAlreadyReviewed(err), "forecast after review: %v", err)

			stored, err = s.GetPrediction(ctx, m.ID)
			require.NoError(t, err)
			assert.Equal(t, models.OutcomeAway, stored.Forecast.Winner)
			assert.Equal(t, 1, stored.Revision)
			assert.Equal(t, 50.0, stored.Review.Accuracy)
		})
	}
}

func TestListPredictions(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			matches := seedMatches()
			for _, m := range matches {
				require.NoError(t, s.SavePrediction(ctx, prediction(m, models.OutcomeHome, base.Add(-48*time.Hour))))
			}
			require.NoError(t, s.SaveReview(ctx, "m2", 1, models.Review{Accuracy: 75, ReviewedAt: base.Add(-10 * 24 * time.Hour)}))
			require.NoError(t, s.SaveReview(ctx, "m3", 1, models.Review{Accuracy: 25, ReviewedAt: base}))

			reviewed, unreviewed := true, false

			tests := []struct {
				name   string
				filter models.PredictionFilter
				want   []string
			}{
				{"all newest first", models.PredictionFilter{}, []string{"m1", "m4", "m3", "m2"}},
				{"reviewed", models.PredictionFilter{Reviewed: &reviewed}, []string{"m3", "m2"}},
				{"unreviewed", models.PredictionFilter{Reviewed: &unreviewed}, []string{"m1", "m4"}},
				{"reviewed this week", models.PredictionFilter{Reviewed: &reviewed, ReviewedSince: base.Add(-7 * 24 * time.Hour)}, []string{"m3"}},
				{"limit", models.PredictionFilter{Limit: 1}, []string{"m1"}},
			}

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					got, err := s.ListPredictions(ctx, tt.filter)
					require.NoError(t, err)
					ids := make([]string, 0, len(got))
					for _, p := range got {
						ids = append(ids, p.MatchID)
					}
					assert.Equal(t, tt.want, ids)
				})
			}
		})
	}
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.UpsertMatches(ctx, seedMatches()))

	m, err := s.GetMatch(ctx, "m1")
	require.NoError(t, err)
	m.Current.Moneyline.Home = 99

	again, err := s.GetMatch(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 2.0, again.Current.Moneyline.Home)
}

func TestRebind(t *testing.T) {
	query := `SELECT a FROM t WHERE b = ? AND c IN (?, ?) LIMIT ?`

	pg := &DB{dialect: Postgres}
	assert.Equal(t, `SELECT a FROM t WHERE b = $1 AND c IN ($2, $3) LIMIT $4`, pg.rebind(query))

	lite := &DB{dialect: SQLite}
	assert.Equal(t, query, lite.rebind(query))
}
