package handlers

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/dskvich/fluentmind-bot/pkg/domain"
	"github.com/dskvich/fluentmind-bot/pkg/logger"
	"github.com/dskvich/fluentmind-bot/pkg/telegram/matchers"
)

const maxCaptionLength = 1024

type imageGenerator interface {
	GenerateImage(ctx context.Context, ownerID int64, displayName, prompt string) (string, error)
}

func GenerateImage(generator imageGenerator) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		msg := update.Message

		prompt := matchers.CommandArgs(msg.Text)
		if prompt == "" {
			sendText(ctx, b, msg, "Usage: /img <prompt>")
			return
		}

		url, err := generator.GenerateImage(ctx, msg.Chat.ID, displayName(msg.From), prompt)
		if err != nil {
			slog.ErrorContext(ctx, "Generating image", logger.Err(err))
			sendText(ctx, b, msg, errorText(err))
			return
		}

		if _, err := b.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:          msg.Chat.ID,
			MessageThreadID: msg.MessageThreadID,
			Photo:           &models.InputFileString{Data: url},
			Caption:         domain.Truncate(prompt, maxCaptionLength),
		}); err != nil {
			slog.ErrorContext(ctx, "Sending image", logger.Err(err))
			sendText(ctx, b, msg, url)
		}
	}
}
