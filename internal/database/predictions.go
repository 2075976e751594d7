package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Alias1177/football-predictor/models"
)

const predictionColumns = `match_id, league, home_team, away_team, match_time, forecast, revision,
	predict_date, forecast_at, is_reviewed, actual_home, actual_away, actual_winner,
	win_correct, asian_correct, ou_correct, score_correct, accuracy, review_date`

// GetPrediction retrieves the prediction of a match, nil when none exists
func (db *DB) GetPrediction(ctx context.Context, matchID string) (*models.Prediction, error) {
	row := db.QueryRowContext(ctx,
		db.rebind(`SELECT `+predictionColumns+` FROM predictions WHERE match_id = ?`), matchID)

	p, err := scanPrediction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// ListPredictions retrieves predictions, most recent kickoff first
func (db *DB) ListPredictions(ctx context.Context, filter models.PredictionFilter) ([]models.Prediction, error) {
	var (
		where []string
		args  []any
	)

	if filter.Reviewed != nil {
		where = append(where, "is_reviewed = ?")
		args = append(args, *filter.Reviewed)
	}
	if !filter.ReviewedSince.IsZero() {
		where = append(where, "review_date >= ?")
		args = append(args, formatTime(filter.ReviewedSince))
	}

	query := `SELECT ` + predictionColumns + ` FROM predictions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY match_time DESC, match_id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := db.QueryContext(ctx, db.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	var predictions []models.Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		predictions = append(predictions, *p)
	}
	return predictions, rows.Err()
}

// SavePrediction upserts the forecast block and appends it to forecast_history.
// The revision is bumped inside the upsert, so concurrent writers for the
// same match serialize on the primary key and each gets its own revision.
// On success p carries the assigned Revision and CreatedAt.
func (db *DB) SavePrediction(ctx context.Context, p *models.Prediction) error {
	forecast, err := json.Marshal(p.Forecast)
	if err != nil {
		return fmt.Errorf("encode forecast: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var (
		revision int
		created  string
	)
	err = tx.QueryRowContext(ctx, db.rebind(`
		INSERT INTO predictions (
			match_id, league, home_team, away_team, match_time, forecast, revision, predict_date, forecast_at, is_reviewed
		) VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?, FALSE)
		ON CONFLICT (match_id)
		DO UPDATE SET
			league = EXCLUDED.league,
			home_team = EXCLUDED.home_team,
			away_team = EXCLUDED.away_team,
			match_time = EXCLUDED.match_time,
			forecast = EXCLUDED.forecast,
			revision = predictions.revision + 1,
			forecast_at = EXCLUDED.forecast_at
		WHERE predictions.is_reviewed = FALSE
		RETURNING revision, predict_date
	`),
		p.MatchID, p.League, p.HomeTeam, p.AwayTeam, formatTime(p.KickoffAt), string(forecast),
		formatTime(p.ForecastAt), formatTime(p.ForecastAt),
	).Scan(&revision, &created)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// the conflict branch was filtered out by is_reviewed
		return &models.AlreadyReviewedError{MatchID: p.MatchID}
	case err != nil:
		return fmt.Errorf("upsert prediction: %w", err)
	}

	createdAt, err := parseTime(created)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, db.rebind(`
		INSERT INTO forecast_history (match_id, revision, forecast, forecast_at)
		VALUES (?, ?, ?, ?)
	`), p.MatchID, revision, string(forecast), formatTime(p.ForecastAt)); err != nil {
		return fmt.Errorf("append forecast history (match %s revision %d): %w", p.MatchID, revision, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	p.Revision = revision
	p.CreatedAt = createdAt.UTC().Truncate(time.Second)
	db.logger.Debug().Str("match_id", p.MatchID).Int("revision", revision).Msg("Forecast saved")
	return nil
}

// SaveReview writes the review block with a single conditional update, so a
// prediction flips to reviewed at most once and only for the scored revision.
func (db *DB) SaveReview(ctx context.Context, matchID string, revision int, r models.Review) error {
	res, err := db.ExecContext(ctx, db.rebind(`
		UPDATE predictions
		SET is_reviewed = TRUE,
			actual_home = ?,
			actual_away = ?,
			actual_winner = ?,
			win_correct = ?,
			asian_correct = ?,
			ou_correct = ?,
			score_correct = ?,
			accuracy = ?,
			review_date = ?
		WHERE match_id = ? AND is_reviewed = FALSE AND revision = ?
	`),
		r.ActualScore.Home, r.ActualScore.Away, string(r.ActualWinner),
		r.WinnerCorrect, r.HandicapCorrect, r.TotalsCorrect, r.ScoreCorrect,
		r.Accuracy, formatTime(r.ReviewedAt), matchID, revision,
	)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if n > 0 {
		return nil
	}

	var (
		reviewed bool
		stored   int
	)
	err = db.QueryRowContext(ctx,
		db.rebind(`SELECT is_reviewed, revision FROM predictions WHERE match_id = ?`), matchID,
	).Scan(&reviewed, &stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return &models.NotReviewableError{MatchID: matchID, Reason: "no prediction stored"}
	case err != nil:
		return fmt.Errorf("check prediction: %w", err)
	case reviewed:
		return &models.AlreadyReviewedError{MatchID: matchID}
	default:
		return &models.ForecastChangedError{MatchID: matchID, Revision: revision}
	}
}

// History returns every stored forecast revision of a match, oldest first
func (db *DB) History(ctx context.Context, matchID string) ([]models.ForecastRevision, error) {
	rows, err := db.QueryContext(ctx, db.rebind(`
		SELECT match_id, revision, forecast, forecast_at
		FROM forecast_history
		WHERE match_id = ?
		ORDER BY revision
	`), matchID)
	if err != nil {
		return nil, fmt.Errorf("query forecast history: %w", err)
	}
	defer rows.Close()

	var history []models.ForecastRevision
	for rows.Next() {
		var (
			rev      models.ForecastRevision
			forecast string
			at       string
		)
		if err := rows.Scan(&rev.MatchID, &rev.Revision, &forecast, &at); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(forecast), &rev.Forecast); err != nil {
			return nil, fmt.Errorf("decode forecast revision %d: %w", rev.Revision, err)
		}
		if rev.ForecastAt, err = parseTime(at); err != nil {
			return nil, err
		}
		history = append(history, rev)
	}
	return history, rows.Err()
}

func scanPrediction(row rowScanner) (*models.Prediction, error) {
	var (
		p                   models.Prediction
		matchTime, forecast string
		created, forecastAt string
		reviewed            bool
		actualHome          sql.NullInt64
		actualAway          sql.NullInt64
		actualWinner        sql.NullString
		winOK, asianOK      sql.NullBool
		ouOK, scoreOK       sql.NullBool
		accuracy            sql.NullFloat64
		reviewDate          sql.NullString
	)

	err := row.Scan(
		&p.MatchID, &p.League, &p.HomeTeam, &p.AwayTeam, &matchTime, &forecast, &p.Revision,
		&created, &forecastAt, &reviewed, &actualHome, &actualAway, &actualWinner,
		&winOK, &asianOK, &ouOK, &scoreOK, &accuracy, &reviewDate,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(forecast), &p.Forecast); err != nil {
		return nil, fmt.Errorf("decode forecast of %s: %w", p.MatchID, err)
	}
	if p.KickoffAt, err = parseTime(matchTime); err != nil {
		return nil, err
	}
	if p.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if p.ForecastAt, err = parseTime(forecastAt); err != nil {
		return nil, err
	}

	if !reviewed {
		return &p, nil
	}

	r := &models.Review{
		ActualScore:     models.Score{Home: int(actualHome.Int64), Away: int(actualAway.Int64)},
		ActualWinner:    models.Outcome(actualWinner.String),
		WinnerCorrect:   winOK.Bool,
		HandicapCorrect: asianOK.Bool,
		TotalsCorrect:   ouOK.Bool,
		ScoreCorrect:    scoreOK.Bool,
		Accuracy:        accuracy.Float64,
	}
	if reviewDate.Valid {
		if r.ReviewedAt, err = parseTime(reviewDate.String); err != nil {
			return nil, err
		}
	}
	p.Review = r

	return &p, nil
}
