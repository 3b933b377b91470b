package workers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/dskvich/fluentmind-bot/pkg/logger"
)

type pollingBot interface {
	Start(ctx context.Context)
	DeleteWebhook(ctx context.Context, params *bot.DeleteWebhookParams) (bool, error)
	SetMyCommands(ctx context.Context, params *bot.SetMyCommandsParams) (bool, error)
}

// telegramBot receives updates by long polling. It is used when no public
// webhook URL is configured.
type telegramBot struct {
	bot      pollingBot
	commands []models.BotCommand
}

func NewTelegramBot(bot pollingBot, commands []models.BotCommand) (*telegramBot, error) {
	return &telegramBot{
		bot:      bot,
		commands: commands,
	}, nil
}

func (t *telegramBot) Name() string { return "telegram_bot" }

func (t *telegramBot) Start(ctx context.Context) error {
	slog.Info("Starting worker", "name", t.Name())
	defer slog.Info("Worker stopped", "name", t.Name())

	// getUpdates is refused while a webhook is set.
	if _, err := t.bot.DeleteWebhook(ctx, &bot.DeleteWebhookParams{}); err != nil {
		return fmt.Errorf("deleting webhook: %w", err)
	}
	publishCommands(ctx, t.bot, t.commands)

	t.bot.Start(ctx)

	return nil
}

type commandPublisher interface {
	SetMyCommands(ctx context.Context, params *bot.SetMyCommandsParams) (bool, error)
}

func publishCommands(ctx context.Context, p commandPublisher, commands []models.BotCommand) {
	if len(commands) == 0 {
		return
	}
	if _, err := p.SetMyCommands(ctx, &bot.SetMyCommandsParams{Commands: commands}); err != nil {
		slog.WarnContext(ctx, "Publishing bot commands", logger.Err(err))
	}
}
