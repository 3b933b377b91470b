package handlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/samber/lo"

	"github.com/dskvich/fluentmind-bot/pkg/domain"
	"github.com/dskvich/fluentmind-bot/pkg/logger"
	"github.com/dskvich/fluentmind-bot/pkg/render"
	"github.com/dskvich/fluentmind-bot/pkg/settings"
)

const (
	nothingToRetryText = "There is nothing to retry."
	nothingToSaveText  = "There are no messages in the current chat to save."
	unknownCommandText = "Sorry, I didn't understand that command."
)

func sendText(ctx context.Context, b *bot.Bot, msg *models.Message, text string) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          msg.Chat.ID,
		MessageThreadID: msg.MessageThreadID,
		Text:            text,
	}); err != nil {
		slog.ErrorContext(ctx, "Sending message", logger.Err(err))
	}
}

func sendHTML(ctx context.Context, b *bot.Bot, msg *models.Message, text string) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          msg.Chat.ID,
		MessageThreadID: msg.MessageThreadID,
		Text:            text,
		ParseMode:       models.ParseModeHTML,
	}); err != nil {
		slog.ErrorContext(ctx, "Sending message", logger.Err(err))
	}
}

func sendMenu(ctx context.Context, b *bot.Bot, msg *models.Message, menu settings.Menu) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          msg.Chat.ID,
		MessageThreadID: msg.MessageThreadID,
		Text:            menu.Text,
		ReplyMarkup:     keyboard(menu),
	}); err != nil {
		slog.ErrorContext(ctx, "Sending settings menu", logger.Err(err))
	}
}

// sendAnswer delivers a model answer as Telegram HTML split into allowed
// message sizes. When Telegram rejects the markup the plain answer is sent.
func sendAnswer(ctx context.Context, b *bot.Bot, msg *models.Message, answer string) {
	for _, part := range render.Split(render.ToHTML(answer), render.MaxMessageLength) {
		_, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:          msg.Chat.ID,
			MessageThreadID: msg.MessageThreadID,
			Text:            part,
			ParseMode:       models.ParseModeHTML,
		})
		if err == nil {
			continue
		}

		slog.WarnContext(ctx, "Telegram rejected the answer markup, sending plain text", logger.Err(err))
		for _, plain := range render.Split(answer, render.MaxMessageLength) {
			sendText(ctx, b, msg, plain)
		}
		return
	}
}

// errorText turns a failed operation into the message shown to the user.
func errorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrNothingToRetry):
		return nothingToRetryText
	case errors.Is(err, domain.ErrNothingToSave):
		return nothingToSaveText
	case errors.Is(err, domain.ErrInvalidTemperature):
		return "❌ " + domain.ErrInvalidTemperature.Error() + ". Try again, for example 0.7."
	case errors.Is(err, domain.ErrRateLimited):
		return "⏳ OpenAI is rate limiting requests right now. Please try again in a minute."
	case errors.Is(err, domain.ErrCompletionTimeout):
		return "⌛ The model took too long to answer. Please try again."
	case errors.Is(err, domain.ErrCompletionFailed):
		return "❌ Could not get an answer from OpenAI. Please try again."
	case errors.Is(err, domain.ErrBrokenAlternation):
		return "❌ The history of this chat is damaged. Start a new chat with /new."
	default:
		return "❌ Something went wrong. Please try again."
	}
}

func displayName(user *models.User) string {
	if user == nil {
		return ""
	}
	return lo.CoalesceOrEmpty(user.Username, user.FirstName)
}

// keyboard converts a settings menu into an inline keyboard. A menu without
// buttons yields no markup so that editing a message removes its keyboard.
func keyboard(menu settings.Menu) models.ReplyMarkup {
	if len(menu.Buttons) == 0 {
		return nil
	}

	rows := lo.Map(menu.Buttons, func(row []settings.Button, _ int) []models.InlineKeyboardButton {
		return lo.Map(row, func(btn settings.Button, _ int) models.InlineKeyboardButton {
			return models.InlineKeyboardButton{Text: btn.Text, CallbackData: btn.CallbackData()}
		})
	})

	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}
