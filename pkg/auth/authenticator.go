package auth

import (
	"log/slog"

	"github.com/samber/lo"
)

type authenticator struct {
	authorizedUserIDs []int64
}

// NewAuthenticator restricts the bot to the given Telegram user ids. An
// empty list lets everyone in.
func NewAuthenticator(authorizedUserIDs []int64) *authenticator {
	if len(authorizedUserIDs) == 0 {
		slog.Warn("No authorized user IDs configured, the bot is open to everyone")
	} else {
		slog.Info("Telegram authorized user IDs", "userIDs", authorizedUserIDs)
	}

	return &authenticator{
		authorizedUserIDs: authorizedUserIDs,
	}
}

func (a *authenticator) IsAuthorized(userID int64) bool {
	return len(a.authorizedUserIDs) == 0 || lo.Contains(a.authorizedUserIDs, userID)
}
