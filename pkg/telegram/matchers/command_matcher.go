package matchers

import (
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/samber/lo"
)

// CommandName returns the command of a "/name" or "/name@bot" message.
func CommandName(text string) (string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", false
	}

	name, _, _ := strings.Cut(strings.TrimPrefix(fields[0], "/"), "@")
	if name == "" {
		return "", false
	}
	return strings.ToLower(name), true
}

// CommandArgs returns everything after the command, joined by single spaces.
func CommandArgs(text string) string {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return ""
	}
	return strings.Join(fields[1:], " ")
}

func Command(name string) bot.MatchFunc {
	return func(update *models.Update) bool {
		if update.Message == nil {
			return false
		}
		cmd, ok := CommandName(update.Message.Text)
		return ok && cmd == name
	}
}

// IsUnknownCommand matches commands that are not in known.
func IsUnknownCommand(known []string) bot.MatchFunc {
	return func(update *models.Update) bool {
		if update.Message == nil {
			return false
		}
		cmd, ok := CommandName(update.Message.Text)
		return ok && !lo.Contains(known, cmd)
	}
}
