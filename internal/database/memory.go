package database

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Alias1177/football-predictor/models"
)

// MemoryStore is an in-process models.MatchAccessor. Records are deep-copied
// on the way in and out so callers never share state with the store.
type MemoryStore struct {
	mu          sync.RWMutex
	matches     map[string]models.Match
	predictions map[string]models.Prediction
	history     map[string][]models.ForecastRevision
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		matches:     make(map[string]models.Match),
		predictions: make(map[string]models.Prediction),
		history:     make(map[string][]models.ForecastRevision),
	}
}

func (s *MemoryStore) GetMatch(_ context.Context, id string) (*models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.matches[id]
	if !ok {
		return nil, models.ErrMatchNotFound
	}
	c := cloneMatch(m)
	return &c, nil
}

func (s *MemoryStore) GetMatches(_ context.Context, filter models.MatchFilter) ([]models.Match, error) {
	s.mu.RLock()
	var out []models.Match
	for _, m := range s.matches {
		if matchSelected(m, filter) {
			out = append(out, cloneMatch(m))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].KickoffAt.Equal(out[j].KickoffAt) {
			if filter.Newest {
				return out[i].KickoffAt.After(out[j].KickoffAt)
			}
			return out[i].KickoffAt.Before(out[j].KickoffAt)
		}
		return out[i].ID < out[j].ID
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryStore) UpsertMatches(_ context.Context, matches []models.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range matches {
		if _, _, err := encodeMatchOdds(m); err != nil {
			log.Warn().Err(err).Str("match_id", m.ID).Msg("Skipping match with unstorable odds")
			continue
		}
		c := cloneMatch(m)
		c.KickoffAt = c.KickoffAt.UTC().Truncate(time.Second)
		c.UpdatedAt = c.UpdatedAt.UTC().Truncate(time.Second)
		s.matches[m.ID] = c
	}
	return nil
}

func (s *MemoryStore) GetPrediction(_ context.Context, matchID string) (*models.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.predictions[matchID]
	if !ok {
		return nil, nil
	}
	c := clonePrediction(p)
	return &c, nil
}

func (s *MemoryStore) ListPredictions(_ context.Context, filter models.PredictionFilter) ([]models.Prediction, error) {
	s.mu.RLock()
	var out []models.Prediction
	for _, p := range s.predictions {
		if filter.Reviewed != nil && p.IsReviewed() != *filter.Reviewed {
			continue
		}
		if !filter.ReviewedSince.IsZero() && (p.Review == nil || p.Review.ReviewedAt.Before(filter.ReviewedSince)) {
			continue
		}
		out = append(out, clonePrediction(p))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].KickoffAt.Equal(out[j].KickoffAt) {
			return out[i].KickoffAt.After(out[j].KickoffAt)
		}
		return out[i].MatchID < out[j].MatchID
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryStore) SavePrediction(_ context.Context, p *models.Prediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	forecastAt := p.ForecastAt.UTC().Truncate(time.Second)
	stored := clonePrediction(*p)
	stored.KickoffAt = stored.KickoffAt.UTC().Truncate(time.Second)
	stored.ForecastAt = forecastAt
	stored.Review = nil

	if prev, ok := s.predictions[p.MatchID]; ok {
		if prev.IsReviewed() {
			return &models.AlreadyReviewedError{MatchID: p.MatchID}
		}
		stored.Revision = prev.Revision + 1
		stored.CreatedAt = prev.CreatedAt
	} else {
		stored.Revision = 1
		stored.CreatedAt = forecastAt
	}

	s.predictions[p.MatchID] = stored
	s.history[p.MatchID] = append(s.history[p.MatchID], models.ForecastRevision{
		MatchID:    p.MatchID,
		Revision:   stored.Revision,
		Forecast:   cloneForecast(stored.Forecast),
		ForecastAt: forecastAt,
	})

	p.Revision = stored.Revision
	p.CreatedAt = stored.CreatedAt
	return nil
}

func (s *MemoryStore) SaveReview(_ context.Context, matchID string, revision int, r models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.predictions[matchID]
	if !ok {
		return &models.NotReviewableError{MatchID: matchID, Reason: "no prediction stored"}
	}
	if p.IsReviewed() {
		return &models.AlreadyReviewedError{MatchID: matchID}
	}
	if p.Revision != revision {
		return &models.ForecastChangedError{MatchID: matchID, Revision: revision}
	}

	r.ReviewedAt = r.ReviewedAt.UTC().Truncate(time.Second)
	p.Review = &r
	s.predictions[matchID] = p
	return nil
}

func (s *MemoryStore) History(_ context.Context, matchID string) ([]models.ForecastRevision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	revs := s.history[matchID]
	out := make([]models.ForecastRevision, len(revs))
	for i, r := range revs {
		r.Forecast = cloneForecast(r.Forecast)
		out[i] = r
	}
	return out, nil
}

func matchSelected(m models.Match, f models.MatchFilter) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, st := range f.Statuses {
			if m.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.From.IsZero() && m.KickoffAt.Before(f.From.UTC().Truncate(time.Second)) {
		return false
	}
	if !f.To.IsZero() && !m.KickoffAt.Before(f.To.UTC().Truncate(time.Second)) {
		return false
	}
	if f.Team != "" && m.HomeTeam != f.Team && m.AwayTeam != f.Team {
		return false
	}
	return true
}

// deepCopy round-trips through JSON, the same encoding the SQL stores persist
func deepCopy[T any](v T) T {
	var out T
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

func cloneMatch(m models.Match) models.Match {
	c := m
	c.Opening = deepCopy(m.Opening)
	c.Current = deepCopy(m.Current)
	if m.FinalScore != nil {
		score := *m.FinalScore
		c.FinalScore = &score
	}
	return c
}

func cloneForecast(f models.Forecast) models.Forecast {
	return deepCopy(f)
}

func clonePrediction(p models.Prediction) models.Prediction {
	c := p
	c.Forecast = cloneForecast(p.Forecast)
	if p.Review != nil {
		r := *p.Review
		c.Review = &r
	}
	return c
}
