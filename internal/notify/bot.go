package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/football-predictor/internal/summary"
	"github.com/Alias1177/football-predictor/models"
)

// pendingLimit caps the /pending listing
const pendingLimit = 10

const helpText = `Commands:
/summary [days] - review accuracy over the trailing days
/predict <match_id> - forecast a match now
/review <match_id> - review a finished match
/pending - forecasts still waiting for a result`

// Predictor is what the bot can ask of the predictor service
type Predictor interface {
	PredictMatch(ctx context.Context, matchID string) (*models.Prediction, error)
	ReviewMatch(ctx context.Context, matchID string) (*models.ReviewResult, error)
	ListPredictions(ctx context.Context, reviewed *bool, limit int) ([]models.Prediction, error)
	Summary(ctx context.Context, days int) (*summary.Report, error)
}

// Bot answers commands sent from the configured chat
type Bot struct {
	svc    Predictor
	chatID int64
	days   int
	logger zerolog.Logger
}

func NewBot(svc Predictor, chatID int64, summaryDays int) *Bot {
	if summaryDays < 1 {
		summaryDays = summary.DefaultDays
	}
	return &Bot{
		svc:    svc,
		chatID: chatID,
		days:   summaryDays,
		logger: log.With().Str("component", "telegram_bot").Logger(),
	}
}

// Serve handles updates until ctx is cancelled or the channel closes
func (b *Bot) Serve(ctx context.Context, updates <-chan tgbotapi.Update, sender Sender) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			chat := update.Message.Chat
			if chat == nil || chat.ID != b.chatID {
				b.logger.Warn().Int("message_id", update.Message.MessageID).Msg("Ignoring message from unknown chat")
				continue
			}

			reply := b.Handle(ctx, update.Message.Text)
			msg := tgbotapi.NewMessage(b.chatID, reply)
			msg.ReplyToMessageID = update.Message.MessageID
			if _, err := sender.Send(msg); err != nil {
				b.logger.Error().Err(err).Msg("Failed to send reply")
			}
		}
	}
}

// Handle runs one command and returns the reply text
func (b *Bot) Handle(ctx context.Context, text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return helpText
	}
	// strip the @botname suffix used in group chats
	cmd, _, _ := strings.Cut(fields[0], "@")
	args := fields[1:]

	switch cmd {
	case "/start", "/help":
		return helpText

	case "/summary":
		days := b.days
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return "days must be a number"
			}
			days = n
		}
		report, err := b.svc.Summary(ctx, days)
		if err != nil {
			return b.failure(cmd, err)
		}
		return report.String()

	case "/predict":
		if len(args) == 0 {
			return "usage: /predict <match_id>"
		}
		p, err := b.svc.PredictMatch(ctx, args[0])
		if err != nil {
			return b.failure(cmd, err)
		}
		return formatPrediction(p)

	case "/review":
		if len(args) == 0 {
			return "usage: /review <match_id>"
		}
		res, err := b.svc.ReviewMatch(ctx, args[0])
		if err != nil {
			return b.failure(cmd, err)
		}
		return formatReview(res)

	case "/pending":
		reviewed := false
		preds, err := b.svc.ListPredictions(ctx, &reviewed, pendingLimit)
		if err != nil {
			return b.failure(cmd, err)
		}
		if len(preds) == 0 {
			return "No forecasts waiting for a result"
		}
		var sb strings.Builder
		for _, p := range preds {
			fmt.Fprintf(&sb, "%s %s %s v %s: %s\n", p.MatchID, p.KickoffAt.Format("01-02 15:04"), p.HomeTeam, p.AwayTeam, p.Forecast.Winner)
		}
		return strings.TrimRight(sb.String(), "\n")

	default:
		return "Unknown command\n\n" + helpText
	}
}

func (b *Bot) failure(cmd string, err error) string {
	b.logger.Warn().Err(err).Str("command", cmd).Msg("Command failed")
	return "Error: " + err.Error()
}

func formatPrediction(p *models.Prediction) string {
	f := p.Forecast
	return fmt.Sprintf("%s v %s (%s, rev %d)\nWinner: %s %.1f%%\nHandicap: %s %+.2f %.1f%%\nTotals: %s %.2f %.1f%%\nScore: %d-%d",
		p.HomeTeam, p.AwayTeam, p.League, p.Revision,
		f.Winner, f.WinnerConfidence,
		f.HandicapSide, f.HandicapLine, f.HandicapConfidence,
		f.TotalsSide, f.TotalsLine, f.TotalsConfidence,
		f.Score.Home, f.Score.Away)
}

func formatReview(res *models.ReviewResult) string {
	r := res.Review
	mark := func(ok bool) string {
		if ok {
			return "hit"
		}
		return "miss"
	}
	return fmt.Sprintf("%s v %s finished %d-%d\nWinner: %s, handicap: %s, totals: %s, score: %s\nAccuracy: %.1f%%",
		res.HomeTeam, res.AwayTeam, r.ActualScore.Home, r.ActualScore.Away,
		mark(r.WinnerCorrect), mark(r.HandicapCorrect), mark(r.TotalsCorrect), mark(r.ScoreCorrect),
		r.Accuracy)
}
