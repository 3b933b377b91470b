package handlers

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/dskvich/fluentmind-bot/pkg/logger"
)

type balanceProvider interface {
	GetBalanceMessage(ctx context.Context) (string, error)
}

func ShowBalance(provider balanceProvider) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		text, err := provider.GetBalanceMessage(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "Fetching balance", logger.Err(err))
			text = "❌ Could not fetch the hosting balance."
		}

		sendText(ctx, b, update.Message, text)
	}
}
