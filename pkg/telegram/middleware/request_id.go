package middleware

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/dskvich/fluentmind-bot/pkg/logger"
)

func RequestID(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		ctx = logger.ContextWithRequestID(ctx, update.ID)
		if chatID, _, ok := ownerOf(update); ok {
			ctx = logger.ContextWithOwnerID(ctx, chatID)
		}

		next(ctx, b, update)
	}
}
