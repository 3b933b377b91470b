package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/samber/lo"

	"github.com/dskvich/fluentmind-bot/pkg/domain"
	"github.com/dskvich/fluentmind-bot/pkg/logger"
	"github.com/dskvich/fluentmind-bot/pkg/telegram/handlers"
	"github.com/dskvich/fluentmind-bot/pkg/telegram/matchers"
	"github.com/dskvich/fluentmind-bot/pkg/telegram/middleware"
)

type ChatService interface {
	Answer(ctx context.Context, ownerID int64, displayName, text string) (string, error)
	Enrich(ctx context.Context, ownerID int64) error
	Retry(ctx context.Context, ownerID int64) (string, error)
	NewConversation(ctx context.Context, ownerID int64) error
	Save(ctx context.Context, ownerID int64) (string, error)
	Summary(ctx context.Context, ownerID int64) (string, error)
	GenerateImage(ctx context.Context, ownerID int64, displayName, prompt string) (string, error)
}

type SettingsService interface {
	Get(ctx context.Context, ownerID int64) (domain.Settings, error)
	Save(ctx context.Context, s domain.Settings) error
}

type StateStore interface {
	Save(ownerID int64, state domain.State)
	Get(ownerID int64) (domain.State, bool)
	Clear(ownerID int64)
}

type BalanceProvider interface {
	GetBalanceMessage(ctx context.Context) (string, error)
}

type Config struct {
	Token string
	// ServerURL overrides the Bot API endpoint, empty means api.telegram.org.
	ServerURL string
}

type Deps struct {
	Chat       ChatService
	Settings   SettingsService
	States     StateStore
	Authorizer middleware.Authorizer
	// Balance enables /balance when set.
	Balance BalanceProvider
}

// NewBot wires every command, callback and free-text handler.
func NewBot(cfg Config, deps Deps) (*bot.Bot, error) {
	opts := []bot.Option{
		bot.WithSkipGetMe(),
		bot.WithNotAsyncHandlers(),
		bot.WithMiddlewares(middleware.RequestID, middleware.Auth(deps.Authorizer)),
		bot.WithDefaultHandler(middleware.Typing(handlers.Chat(deps.Chat))),
		bot.WithErrorsHandler(func(err error) {
			slog.Error("Telegram API error", logger.Err(err))
		}),
	}
	if cfg.ServerURL != "" {
		opts = append(opts, bot.WithServerURL(cfg.ServerURL))
	}

	b, err := bot.New(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}

	commands := map[string]bot.HandlerFunc{
		"start":    handlers.Start(deps.Chat),
		"help":     handlers.Help(),
		"new":      handlers.NewChat(deps.Chat),
		"save":     middleware.Typing(handlers.SaveChat(deps.Chat)),
		"sum":      middleware.Typing(handlers.ShowSummary(deps.Chat)),
		"retry":    middleware.Typing(handlers.Retry(deps.Chat)),
		"img":      middleware.Typing(handlers.GenerateImage(deps.Chat)),
		"settings": handlers.ShowSettings(deps.Settings, deps.States),
	}
	if deps.Balance != nil {
		commands["balance"] = handlers.ShowBalance(deps.Balance)
	}

	known := lo.Keys(commands)
	slices.Sort(known)
	for _, name := range known {
		b.RegisterHandlerMatchFunc(matchers.Command(name), commands[name])
	}

	b.RegisterHandlerMatchFunc(matchers.IsUnknownCommand(known), handlers.Unknown())
	b.RegisterHandlerMatchFunc(matchers.IsEnteringSettingsText(deps.States), handlers.SetTemperature(deps.Settings, deps.States))
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, domain.SettingsCallbackPrefix, bot.MatchTypePrefix,
		handlers.SettingsCallback(deps.Settings, deps.States))

	slog.Info("Telegram handlers registered", "commands", known)

	return b, nil
}

// Commands lists the bot menu published to Telegram.
func Commands(withBalance bool) []models.BotCommand {
	cmds := []models.BotCommand{
		{Command: "new", Description: "Start new chat"},
		{Command: "retry", Description: "Regenerate last answer"},
		{Command: "save", Description: "Save current chat"},
		{Command: "sum", Description: "Show chat summary"},
		{Command: "img", Description: "Generate image"},
		{Command: "settings", Description: "Change model and memory settings"},
		{Command: "help", Description: "Show help"},
	}
	if withBalance {
		cmds = append(cmds, models.BotCommand{Command: "balance", Description: "Show hosting balance"})
	}
	return cmds
}
