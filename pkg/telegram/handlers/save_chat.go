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

type chatSaver interface {
	Save(ctx context.Context, ownerID int64) (string, error)
}

type chatSummarizer interface {
	Summary(ctx context.Context, ownerID int64) (string, error)
}

func SaveChat(saver chatSaver) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		msg := update.Message
		sendText(ctx, b, msg, "Saving the chat...")

		topic, err := saver.Save(ctx, msg.Chat.ID)
		if err != nil {
			if !errors.Is(err, domain.ErrNothingToSave) {
				slog.ErrorContext(ctx, "Saving chat", logger.Err(err))
			}
			sendText(ctx, b, msg, errorText(err))
			return
		}

		sendText(ctx, b, msg, "Chat saved: "+topic)
	}
}

func ShowSummary(summarizer chatSummarizer) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		msg := update.Message

		summary, err := summarizer.Summary(ctx, msg.Chat.ID)
		if err != nil {
			if !errors.Is(err, domain.ErrNothingToSave) {
				slog.ErrorContext(ctx, "Summarizing chat", logger.Err(err))
			}
			sendText(ctx, b, msg, errorText(err))
			return
		}

		sendText(ctx, b, msg, "📝 "+summary)
	}
}
