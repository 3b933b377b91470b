package middleware

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/dskvich/fluentmind-bot/pkg/logger"
)

func Typing(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if chatID, topicID, ok := ownerOf(update); ok {
			if _, err := b.SendChatAction(ctx, &bot.SendChatActionParams{
				ChatID:          chatID,
				MessageThreadID: topicID,
				Action:          models.ChatActionTyping,
			}); err != nil {
				slog.DebugContext(ctx, "Sending typing action", logger.Err(err))
			}
		}

		next(ctx, b, update)
	}
}
