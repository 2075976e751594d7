package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/Alias1177/football-predictor/internal/scheduler"
	"github.com/Alias1177/football-predictor/internal/summary"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func unlimited() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

func passResult(failed int) *scheduler.PassResult {
	started := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	res := &scheduler.PassResult{
		RunID:      "run-1",
		Job:        "morning-predict",
		Kind:       scheduler.KindPredict,
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
		Succeeded:  2,
		Skipped:    1,
		Items: []scheduler.Item{
			{MatchID: "a", Status: scheduler.StatusSucceeded, Outcome: "created"},
			{MatchID: "b", Status: scheduler.StatusSucceeded, Outcome: "updated"},
			{MatchID: "c", Status: scheduler.StatusSkipped, Outcome: "missing_odds"},
		},
	}
	for i := 0; i < failed; i++ {
		res.Items = append(res.Items, scheduler.Item{
			MatchID: fmt.Sprintf("f%d", i),
			Status:  scheduler.StatusFailed,
			Error:   "accessor save prediction: timeout",
		})
	}
	res.Failed = failed
	res.Attempted = len(res.Items)
	return res
}

func TestFormatPass(t *testing.T) {
	tests := []struct {
		name     string
		failed   int
		contains []string
		absent   []string
	}{
		{
			name:     "clean pass",
			failed:   0,
			contains: []string{"morning-predict (predict) finished in 3s", "Matches: 3, ok: 2, skipped: 1, failed: 0", "Run run-1"},
			absent:   []string{"f0"},
		},
		{
			name:     "failures listed",
			failed:   2,
			contains: []string{"failed: 2", "f0: accessor save prediction: timeout", "f1:"},
			absent:   []string{"more failures"},
		},
		{
			name:     "failures capped",
			failed:   maxListedFailures + 3,
			contains: []string{"f9:", "... and 3 more failures"},
			absent:   []string{"f10:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := FormatPass(passResult(tt.failed))
			for _, s := range tt.contains {
				assert.Contains(t, text, s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, text, s)
			}
		})
	}
}

func TestTelegramSends(t *testing.T) {
	ctx := context.Background()
	sender := &fakeSender{}
	n := New(sender, 42, unlimited())

	require.NoError(t, n.NotifyPass(ctx, passResult(0)))
	require.NoError(t, n.SendReport(ctx, &summary.Report{Days: 7}))

	require.Len(t, sender.sent, 2)
	assert.Equal(t, int64(42), sender.sent[0].ChatID)
	assert.True(t, strings.HasPrefix(sender.sent[0].Text, "morning-predict"))
	assert.Contains(t, sender.sent[1].Text, "last 7 day(s)")
}

func TestTelegramErrors(t *testing.T) {
	sender := &fakeSender{err: errors.New("Bad Request: chat not found")}
	n := New(sender, 42, unlimited())
	assert.Error(t, n.Send(context.Background(), "hello"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	slow := New(&fakeSender{}, 42, rate.NewLimiter(rate.Every(time.Hour), 0))
	assert.Error(t, slow.Send(ctx, "hello"))
}

func TestNewTelegramRequiresToken(t *testing.T) {
	_, err := NewTelegram("", 1)
	assert.Error(t, err)
}
