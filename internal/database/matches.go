package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Alias1177/football-predictor/models"
)

const matchColumns = `match_id, league, home_team, away_team, kickoff_at, status,
	opening_odds, current_odds, home_score, away_score, updated_at`

// GetMatch retrieves one match; models.ErrMatchNotFound when absent
func (db *DB) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	row := db.QueryRowContext(ctx, db.rebind(`SELECT `+matchColumns+` FROM matches WHERE match_id = ?`), id)

	m, err := scanMatch(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

// GetMatches retrieves matches ordered by kickoff
func (db *DB) GetMatches(ctx context.Context, filter models.MatchFilter) ([]models.Match, error) {
	var (
		where []string
		args  []any
	)

	if len(filter.Statuses) > 0 {
		marks := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			marks[i] = "?"
			args = append(args, int(s))
		}
		where = append(where, "status IN ("+strings.Join(marks, ", ")+")")
	}
	if !filter.From.IsZero() {
		where = append(where, "kickoff_at >= ?")
		args = append(args, formatTime(filter.From))
	}
	if !filter.To.IsZero() {
		where = append(where, "kickoff_at < ?")
		args = append(args, formatTime(filter.To))
	}
	if filter.Team != "" {
		where = append(where, "(home_team = ? OR away_team = ?)")
		args = append(args, filter.Team, filter.Team)
	}

	query := `SELECT ` + matchColumns + ` FROM matches`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if filter.Newest {
		query += " ORDER BY kickoff_at DESC, match_id"
	} else {
		query += " ORDER BY kickoff_at ASC, match_id"
	}
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := db.QueryContext(ctx, db.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, *m)
	}
	return matches, rows.Err()
}

// UpsertMatches stores scraped matches in one transaction. A match whose odds
// cannot be encoded is logged and left out; the rest of the batch is stored.
func (db *DB) UpsertMatches(ctx context.Context, matches []models.Match) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, db.rebind(`
		INSERT INTO matches (`+matchColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (match_id)
		DO UPDATE SET
			league = EXCLUDED.league,
			home_team = EXCLUDED.home_team,
			away_team = EXCLUDED.away_team,
			kickoff_at = EXCLUDED.kickoff_at,
			status = EXCLUDED.status,
			opening_odds = EXCLUDED.opening_odds,
			current_odds = EXCLUDED.current_odds,
			home_score = EXCLUDED.home_score,
			away_score = EXCLUDED.away_score,
			updated_at = EXCLUDED.updated_at
	`))
	if err != nil {
		return fmt.Errorf("prepare match upsert: %w", err)
	}
	defer stmt.Close()

	skipped := 0
	for _, m := range matches {
		opening, current, err := encodeMatchOdds(m)
		if err != nil {
			db.logger.Warn().Err(err).Str("match_id", m.ID).Msg("Skipping match with unstorable odds")
			skipped++
			continue
		}

		var home, away sql.NullInt64
		if m.FinalScore != nil {
			home = sql.NullInt64{Int64: int64(m.FinalScore.Home), Valid: true}
			away = sql.NullInt64{Int64: int64(m.FinalScore.Away), Valid: true}
		}

		if _, err := stmt.ExecContext(ctx,
			m.ID, m.League, m.HomeTeam, m.AwayTeam, formatTime(m.KickoffAt), int(m.Status),
			opening, current, home, away, formatTime(m.UpdatedAt),
		); err != nil {
			return fmt.Errorf("upsert match %s: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	db.logger.Debug().Int("count", len(matches)-skipped).Int("skipped", skipped).Msg("Matches upserted")
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(row rowScanner) (*models.Match, error) {
	var (
		m                    models.Match
		status               int
		kickoff, updated     string
		opening, current     sql.NullString
		homeGoals, awayGoals sql.NullInt64
	)

	err := row.Scan(
		&m.ID, &m.League, &m.HomeTeam, &m.AwayTeam, &kickoff, &status,
		&opening, &current, &homeGoals, &awayGoals, &updated,
	)
	if err != nil {
		return nil, err
	}

	m.Status = models.MatchStatus(status)
	if m.KickoffAt, err = parseTime(kickoff); err != nil {
		return nil, err
	}
	if m.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	if m.Opening, err = decodeOdds(opening); err != nil {
		return nil, fmt.Errorf("match %s opening odds: %w", m.ID, err)
	}
	if m.Current, err = decodeOdds(current); err != nil {
		return nil, fmt.Errorf("match %s current odds: %w", m.ID, err)
	}
	if homeGoals.Valid && awayGoals.Valid {
		m.FinalScore = &models.Score{Home: int(homeGoals.Int64), Away: int(awayGoals.Int64)}
	}

	return &m, nil
}

func encodeOdds(o *models.OddsSnapshot) (sql.NullString, error) {
	if o == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(o)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode odds: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func encodeMatchOdds(m models.Match) (opening, current sql.NullString, err error) {
	if opening, err = encodeOdds(m.Opening); err != nil {
		return
	}
	current, err = encodeOdds(m.Current)
	return
}

func decodeOdds(s sql.NullString) (*models.OddsSnapshot, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var o models.OddsSnapshot
	if err := json.Unmarshal([]byte(s.String), &o); err != nil {
		return nil, err
	}
	return &o, nil
}
