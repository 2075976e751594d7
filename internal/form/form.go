// Package form derives a team's trailing record from its finished matches.
package form

import (
	"sort"

	"github.com/Alias1177/football-predictor/models"
)

// DefaultGames is how many recent matches make up a team's form
const DefaultGames = 10

// Build returns the team's form over at most limit finished matches,
// newest first. Matches without a valid final score or not involving the
// team are ignored.
func Build(team string, history []models.Match, limit int) *models.TeamForm {
	if limit <= 0 {
		limit = DefaultGames
	}

	matches := make([]models.Match, 0, len(history))
	for _, m := range history {
		if m.Status != models.StatusFinished || !m.FinalScore.Valid() {
			continue
		}
		if m.HomeTeam != team && m.AwayTeam != team {
			continue
		}
		matches = append(matches, m)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].KickoffAt.After(matches[j].KickoffAt)
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	f := &models.TeamForm{Team: team, Results: make([]models.FormResult, 0, len(matches))}
	for _, m := range matches {
		if m.HomeTeam == team {
			f.Results = append(f.Results, models.FormResult{Scored: m.FinalScore.Home, Conceded: m.FinalScore.Away})
		} else {
			f.Results = append(f.Results, models.FormResult{Scored: m.FinalScore.Away, Conceded: m.FinalScore.Home})
		}
	}
	return f
}
