package middleware

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/dskvich/fluentmind-bot/pkg/logger"
)

const notAuthorizedText = "❌ Not authorized"

type Authorizer interface {
	IsAuthorized(userID int64) bool
}

func Auth(authorizer Authorizer) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			var userID int64
			switch {
			case update.Message != nil && update.Message.From != nil:
				userID = update.Message.From.ID
			case update.CallbackQuery != nil:
				userID = update.CallbackQuery.From.ID
			default:
				slog.WarnContext(ctx, "Received unknown update type", "updateID", update.ID)
				return
			}

			if authorizer.IsAuthorized(userID) {
				next(ctx, b, update)
				return
			}

			slog.WarnContext(ctx, "Unauthorized access attempt", "userID", userID)

			var err error
			if update.CallbackQuery != nil {
				_, err = b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
					CallbackQueryID: update.CallbackQuery.ID,
					Text:            notAuthorizedText,
					ShowAlert:       true,
				})
			} else {
				_, err = b.SendMessage(ctx, &bot.SendMessageParams{
					ChatID:          update.Message.Chat.ID,
					MessageThreadID: update.Message.MessageThreadID,
					Text:            notAuthorizedText,
				})
			}
			if err != nil {
				slog.ErrorContext(ctx, "Rejecting unauthorized update", logger.Err(err))
			}
		}
	}
}
