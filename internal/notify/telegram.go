// Package notify posts pass results and summary reports to a Telegram chat.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/Alias1177/football-predictor/internal/scheduler"
	"github.com/Alias1177/football-predictor/internal/summary"
)

// maxListedFailures caps the failed matches spelled out in a pass message
const maxListedFailures = 10

// Sender is the part of the bot API the notifier uses
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends plain-text messages to one chat
type Telegram struct {
	sender  Sender
	chatID  int64
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewTelegram connects to the bot API with the given token
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token not set")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("initializing telegram bot: %w", err)
	}
	return New(bot, chatID, nil), nil
}

// New wraps a sender. A nil limiter allows one message per second, the
// per-chat limit of the bot API.
func New(sender Sender, chatID int64, limiter *rate.Limiter) *Telegram {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Every(time.Second), 1)
	}
	return &Telegram{
		sender:  sender,
		chatID:  chatID,
		limiter: limiter,
		logger:  log.With().Str("component", "telegram").Int64("chat_id", chatID).Logger(),
	}
}

// NotifyPass reports the outcome of a scheduler pass
func (t *Telegram) NotifyPass(ctx context.Context, res *scheduler.PassResult) error {
	return t.Send(ctx, FormatPass(res))
}

// SendReport posts a summary report
func (t *Telegram) SendReport(ctx context.Context, report *summary.Report) error {
	return t.Send(ctx, report.String())
}

// Send posts a message, waiting for the rate limiter
func (t *Telegram) Send(ctx context.Context, text string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := t.sender.Send(msg); err != nil {
		t.logger.Error().Err(err).Msg("Failed to send message")
		return fmt.Errorf("sending telegram message: %w", err)
	}

	t.logger.Debug().Int("length", len(text)).Msg("Message sent")
	return nil
}

// FormatPass renders a pass result as plain text
func FormatPass(res *scheduler.PassResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s) finished in %s\n", res.Job, res.Kind, res.Duration().Round(time.Second))
	fmt.Fprintf(&b, "Matches: %d, ok: %d, skipped: %d, failed: %d\n",
		res.Attempted, res.Succeeded, res.Skipped, res.Failed)

	listed := 0
	for _, it := range res.Items {
		if it.Status != scheduler.StatusFailed {
			continue
		}
		if listed == maxListedFailures {
			fmt.Fprintf(&b, "... and %d more failures\n", res.Failed-listed)
			break
		}
		fmt.Fprintf(&b, "  %s: %s\n", it.MatchID, it.Error)
		listed++
	}
	fmt.Fprintf(&b, "Run %s", res.RunID)
	return b.String()
}
