package handlers

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/dskvich/fluentmind-bot/pkg/logger"
)

const helpText = `Available commands:
🔄 /retry — Regenerate last answer
✨ /new — Start new chat
💾 /save — Save current chat
📝 /sum — Show chat summary
🏞️ /img <i>&lt;prompt&gt;</i> — Generate image
⚙️ /settings — Change model and memory settings
❓ /help — Show help`

const startText = "🤖 Hi! I'm <b>FluentMind</b>, a ChatGPT bot built on the OpenAI API 🤖\n\n" +
	helpText + "\n\nAnd now... ask me anything!"

type conversationStarter interface {
	NewConversation(ctx context.Context, ownerID int64) error
}

func Start(starter conversationStarter) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		msg := update.Message

		sendHTML(ctx, b, msg, startText)

		if err := starter.NewConversation(ctx, msg.Chat.ID); err != nil {
			slog.ErrorContext(ctx, "Starting conversation", logger.Err(err))
		}
	}
}

func Help() bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		sendHTML(ctx, b, update.Message, helpText)
	}
}

func NewChat(starter conversationStarter) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		sendText(ctx, b, update.Message, "Let's start over.")

		if err := starter.NewConversation(ctx, update.Message.Chat.ID); err != nil {
			slog.ErrorContext(ctx, "Starting new conversation", logger.Err(err))
			sendText(ctx, b, update.Message, errorText(err))
		}
	}
}

func Unknown() bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		slog.WarnContext(ctx, "Unknown command", "text", update.Message.Text)
		sendText(ctx, b, update.Message, unknownCommandText)
	}
}
