package handlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/dskvich/fluentmind-bot/pkg/domain"
	"github.com/dskvich/fluentmind-bot/pkg/logger"
)

type chatAnswerer interface {
	Answer(ctx context.Context, ownerID int64, displayName, text string) (string, error)
	Enrich(ctx context.Context, ownerID int64) error
}

type chatRetrier interface {
	Retry(ctx context.Context, ownerID int64) (string, error)
}

// Chat answers free text and summarizes the conversation once the answer is
// out. It is the default handler, so updates without a text message are
// ignored here.
func Chat(answerer chatAnswerer) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		msg := update.Message
		if msg == nil || msg.Text == "" {
			return
		}

		slog.InfoContext(ctx, "Chat message received", "length", len([]rune(msg.Text)))

		answer, err := answerer.Answer(ctx, msg.Chat.ID, displayName(msg.From), msg.Text)
		if err != nil {
			slog.ErrorContext(ctx, "Answering message", logger.Err(err))
			sendText(ctx, b, msg, errorText(err))
			return
		}

		sendAnswer(ctx, b, msg, answer)

		if err := answerer.Enrich(ctx, msg.Chat.ID); err != nil {
			slog.WarnContext(ctx, "Summarization skipped", logger.Err(err))
		}
	}
}

func Retry(retrier chatRetrier) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		msg := update.Message

		answer, err := retrier.Retry(ctx, msg.Chat.ID)
		if err != nil {
			if !errors.Is(err, domain.ErrNothingToRetry) {
				slog.ErrorContext(ctx, "Retrying answer", logger.Err(err))
			}
			sendText(ctx, b, msg, errorText(err))
			return
		}

		sendAnswer(ctx, b, msg, answer)
	}
}
