package handlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/dskvich/fluentmind-bot/pkg/domain"
	"github.com/dskvich/fluentmind-bot/pkg/logger"
	"github.com/dskvich/fluentmind-bot/pkg/settings"
)

type settingsProvider interface {
	Get(ctx context.Context, ownerID int64) (domain.Settings, error)
	Save(ctx context.Context, s domain.Settings) error
}

type stateStore interface {
	Save(ownerID int64, state domain.State)
	Get(ownerID int64) (domain.State, bool)
	Clear(ownerID int64)
}

// ShowSettings opens the settings menu at its first step.
func ShowSettings(provider settingsProvider, states stateStore) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		msg := update.Message

		s, err := provider.Get(ctx, msg.Chat.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Loading settings", logger.Err(err))
			sendText(ctx, b, msg, errorText(err))
			return
		}

		states.Save(msg.Chat.ID, domain.StateSelectingSetting)

		sendMenu(ctx, b, msg, settings.Render(domain.StateSelectingSetting, s))
	}
}

// SettingsCallback handles a press on a settings menu button and redraws
// the menu in place.
func SettingsCallback(provider settingsProvider, states stateStore) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		query := update.CallbackQuery

		answer := func(text string) {
			if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
				CallbackQueryID: query.ID,
				Text:            text,
			}); err != nil {
				slog.ErrorContext(ctx, "Answering settings callback", logger.Err(err))
			}
		}

		msg := query.Message.Message
		if msg == nil {
			answer("This menu is too old, open /settings again.")
			return
		}
		ownerID := msg.Chat.ID

		action, ok := settings.ParseAction(query.Data)
		if !ok {
			answer("")
			return
		}

		// A menu sent before a restart has no stored state.
		state, ok := states.Get(ownerID)
		if !ok {
			state = domain.StateSelectingSetting
		}

		current, err := provider.Get(ctx, ownerID)
		if err != nil {
			slog.ErrorContext(ctx, "Loading settings", logger.Err(err))
			answer(errorText(err))
			return
		}

		next, updated, err := settings.Press(state, action, current)
		if err != nil {
			slog.WarnContext(ctx, "Settings button rejected", "state", state, "action", action, logger.Err(err))
			answer("This button is no longer available.")
			return
		}

		if updated != current {
			if err := provider.Save(ctx, updated); err != nil {
				slog.ErrorContext(ctx, "Saving settings", logger.Err(err))
				answer(errorText(err))
				return
			}
		}

		if next == domain.StateDone {
			states.Clear(ownerID)
		} else {
			states.Save(ownerID, next)
		}
		answer("")

		menu := settings.Render(next, updated)
		if _, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:      ownerID,
			MessageID:   msg.ID,
			Text:        menu.Text,
			ReplyMarkup: keyboard(menu),
		}); err != nil {
			slog.ErrorContext(ctx, "Updating settings menu", logger.Err(err))
		}
	}
}

// SetTemperature takes the value typed while the temperature step is open.
func SetTemperature(provider settingsProvider, states stateStore) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		msg := update.Message
		ownerID := msg.Chat.ID

		state, _ := states.Get(ownerID)

		current, err := provider.Get(ctx, ownerID)
		if err != nil {
			slog.ErrorContext(ctx, "Loading settings", logger.Err(err))
			sendText(ctx, b, msg, errorText(err))
			return
		}

		next, updated, err := settings.Enter(state, msg.Text, current)
		if err != nil {
			if !errors.Is(err, domain.ErrInvalidTemperature) {
				slog.ErrorContext(ctx, "Entering setting", logger.Err(err))
			}
			sendText(ctx, b, msg, errorText(err))
			return
		}

		if err := provider.Save(ctx, updated); err != nil {
			slog.ErrorContext(ctx, "Saving settings", logger.Err(err))
			sendText(ctx, b, msg, errorText(err))
			return
		}
		states.Save(ownerID, next)

		sendText(ctx, b, msg, "✅ Temperature set to "+settings.FormatTemperature(updated.Temperature))

		sendMenu(ctx, b, msg, settings.Render(next, updated))
	}
}
