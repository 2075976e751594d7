package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/football-predictor/internal/summary"
	"github.com/Alias1177/football-predictor/models"
)

type fakePredictor struct {
	days     int
	reviewed *bool
	limit    int
	preds    []models.Prediction
	err      error
}

func (f *fakePredictor) PredictMatch(_ context.Context, id string) (*models.Prediction, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Prediction{
		MatchID:  id,
		League:   "EPL",
		HomeTeam: "Arsenal",
		AwayTeam: "Chelsea",
		Revision: 1,
		Forecast: models.Forecast{
			Winner:             models.OutcomeHome,
			WinnerConfidence:   62.5,
			HandicapSide:       models.SideHome,
			HandicapLine:       -0.5,
			HandicapConfidence: 58,
			TotalsSide:         models.TotalsOver,
			TotalsLine:         2.5,
			TotalsConfidence:   55,
			Score:              models.Score{Home: 2, Away: 1},
		},
	}, nil
}

func (f *fakePredictor) ReviewMatch(_ context.Context, id string) (*models.ReviewResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.ReviewResult{
		MatchID:  id,
		HomeTeam: "Arsenal",
		AwayTeam: "Chelsea",
		Review: models.Review{
			ActualScore:   models.Score{Home: 2, Away: 1},
			WinnerCorrect: true,
			ScoreCorrect:  true,
			Accuracy:      50,
		},
	}, nil
}

func (f *fakePredictor) ListPredictions(_ context.Context, reviewed *bool, limit int) ([]models.Prediction, error) {
	f.reviewed, f.limit = reviewed, limit
	return f.preds, f.err
}

func (f *fakePredictor) Summary(_ context.Context, days int) (*summary.Report, error) {
	f.days = days
	if f.err != nil {
		return nil, f.err
	}
	return &summary.Report{Days: days}, nil
}

func TestBotHandle(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		text     string
		contains []string
	}{
		{"empty", "  ", []string{"Commands:"}},
		{"help", "/start", []string{"/summary", "/pending"}},
		{"unknown", "/nope", []string{"Unknown command"}},
		{"predict usage", "/predict", []string{"usage: /predict"}},
		{"review usage", "/review", []string{"usage: /review"}},
		{"predict", "/predict 1001", []string{"Arsenal v Chelsea (EPL, rev 1)", "Winner: home 62.5%", "Handicap: home -0.50", "Totals: over 2.50", "Score: 2-1"}},
		{"predict with bot suffix", "/predict@match_bot 1001", []string{"Arsenal v Chelsea"}},
		{"review", "/review 1001", []string{"finished 2-1", "Winner: hit, handicap: miss, totals: miss, score: hit", "Accuracy: 50.0%"}},
		{"summary bad days", "/summary week", []string{"days must be a number"}},
	}

	bot := NewBot(&fakePredictor{}, 42, 7)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := bot.Handle(ctx, tt.text)
			for _, want := range tt.contains {
				assert.Contains(t, reply, want)
			}
		})
	}
}

func TestBotSummaryDays(t *testing.T) {
	ctx := context.Background()
	svc := &fakePredictor{}

	bot := NewBot(svc, 42, 0)
	reply := bot.Handle(ctx, "/summary")
	assert.Equal(t, summary.DefaultDays, svc.days)
	assert.Contains(t, reply, "last 7 day(s)")

	bot.Handle(ctx, "/summary 30")
	assert.Equal(t, 30, svc.days)
}

func TestBotPending(t *testing.T) {
	ctx := context.Background()
	svc := &fakePredictor{}
	bot := NewBot(svc, 42, 7)

	assert.Equal(t, "No forecasts waiting for a result", bot.Handle(ctx, "/pending"))
	require.NotNil(t, svc.reviewed)
	assert.False(t, *svc.reviewed)
	assert.Equal(t, pendingLimit, svc.limit)

	svc.preds = []models.Prediction{{
		MatchID:   "1001",
		HomeTeam:  "Arsenal",
		AwayTeam:  "Chelsea",
		KickoffAt: time.Date(2024, 3, 2, 15, 0, 0, 0, time.UTC),
		Forecast:  models.Forecast{Winner: models.OutcomeDraw},
	}}
	assert.Equal(t, "1001 03-02 15:00 Arsenal v Chelsea: draw", bot.Handle(ctx, "/pending"))
}

func TestBotErrors(t *testing.T) {
	svc := &fakePredictor{err: &models.NotReviewableError{MatchID: "1001"}}
	bot := NewBot(svc, 42, 7)

	for _, cmd := range []string{"/predict 1001", "/review 1001", "/pending", "/summary"} {
		t.Run(cmd, func(t *testing.T) {
			assert.Contains(t, bot.Handle(context.Background(), cmd), "Error: ")
		})
	}
}

func TestBotServe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan tgbotapi.Update, 4)
	updates <- tgbotapi.Update{}
	updates <- tgbotapi.Update{Message: &tgbotapi.Message{MessageID: 1, Chat: &tgbotapi.Chat{ID: 7}, Text: "/start"}}
	updates <- tgbotapi.Update{Message: &tgbotapi.Message{MessageID: 2, Chat: &tgbotapi.Chat{ID: 42}, Text: "/predict 1001"}}
	close(updates)

	sender := &fakeSender{}
	NewBot(&fakePredictor{}, 42, 7).Serve(ctx, updates, sender)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(42), sender.sent[0].ChatID)
	assert.Equal(t, 2, sender.sent[0].ReplyToMessageID)
	assert.Contains(t, sender.sent[0].Text, "Arsenal v Chelsea")
}

func TestBotServeSendFailure(t *testing.T) {
	updates := make(chan tgbotapi.Update, 1)
	updates <- tgbotapi.Update{Message: &tgbotapi.Message{MessageID: 1, Chat: &tgbotapi.Chat{ID: 42}, Text: "/help"}}
	close(updates)

	sender := &fakeSender{err: errors.New("telegram down")}
	NewBot(&fakePredictor{}, 42, 7).Serve(context.Background(), updates, sender)
	assert.Empty(t, sender.sent)
}
