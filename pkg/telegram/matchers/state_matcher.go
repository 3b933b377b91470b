package matchers

import (
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/dskvich/fluentmind-bot/pkg/domain"
	"github.com/dskvich/fluentmind-bot/pkg/settings"
)

type StateProvider interface {
	Get(ownerID int64) (domain.State, bool)
}

// IsEnteringSettingsText matches plain text sent while the owner's settings
// menu waits for a typed value.
func IsEnteringSettingsText(provider StateProvider) bot.MatchFunc {
	return func(update *models.Update) bool {
		if update.Message == nil || update.Message.Text == "" {
			return false
		}
		if _, ok := CommandName(update.Message.Text); ok {
			return false
		}

		state, ok := provider.Get(update.Message.Chat.ID)
		if !ok {
			return false
		}

		return settings.AcceptsText(state)
	}
}
