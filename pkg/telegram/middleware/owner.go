package middleware

import "github.com/go-telegram/bot/models"

// ownerOf returns the chat an update belongs to. Conversations and settings
// are keyed by this id.
func ownerOf(update *models.Update) (chatID int64, topicID int, ok bool) {
	switch {
	case update.Message != nil:
		return update.Message.Chat.ID, update.Message.MessageThreadID, true
	case update.CallbackQuery != nil && update.CallbackQuery.Message.Message != nil:
		msg := update.CallbackQuery.Message.Message
		return msg.Chat.ID, msg.MessageThreadID, true
	case update.CallbackQuery != nil && update.CallbackQuery.Message.InaccessibleMessage != nil:
		return update.CallbackQuery.Message.InaccessibleMessage.Chat.ID, 0, true
	default:
		return 0, 0, false
	}
}
