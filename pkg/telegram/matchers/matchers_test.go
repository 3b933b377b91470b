package matchers

import (
	"testing"

	"github.com/go-telegram/bot/models"

	"github.com/dskvich/fluentmind-bot/pkg/domain"
)

type stubStates map[int64]domain.State

func (s stubStates) Get(ownerID int64) (domain.State, bool) {
	state, ok := s[ownerID]
	return state, ok
}

func textUpdate(chatID int64, text string) *models.Update {
	return &models.Update{Message: &models.Message{Chat: models.Chat{ID: chatID}, Text: text}}
}

func TestCommandName(t *testing.T) {
	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{"/new", "new", true},
		{"/img a red fox", "img", true},
		{"/Retry@fluentmind_bot", "retry", true},
		{"  /help  ", "help", true},
		{"hello /new", "", false},
		{"/", "", false},
		{"", "", false},
	}

	for _, test := range tests {
		got, ok := CommandName(test.text)
		if got != test.want || ok != test.ok {
			t.Errorf("CommandName(%q) = (%q, %v), want (%q, %v)", test.text, got, ok, test.want, test.ok)
		}
	}
}

func TestCommandArgs(t *testing.T) {
	tests := map[string]string{
		"/img":               "",
		"/img   a  red fox ": "a red fox",
		"/img@bot sunset":    "sunset",
	}

	for text, want := range tests {
		if got := CommandArgs(text); got != want {
			t.Errorf("CommandArgs(%q) = %q, want %q", text, got, want)
		}
	}
}

func TestCommand(t *testing.T) {
	match := Command("new")

	if !match(textUpdate(1, "/new")) {
		t.Error("want /new to match")
	}
	if match(textUpdate(1, "/news")) {
		t.Error("want /news not to match")
	}
	if match(&models.Update{CallbackQuery: &models.CallbackQuery{Data: "/new"}}) {
		t.Error("want callbacks not to match")
	}
}

func TestIsUnknownCommand(t *testing.T) {
	match := IsUnknownCommand([]string{"start", "new"})

	tests := []struct {
		text string
		want bool
	}{
		{"/start", false},
		{"/new@bot", false},
		{"/stat", true},
		{"just text", false},
	}

	for _, test := range tests {
		if got := match(textUpdate(1, test.text)); got != test.want {
			t.Errorf("IsUnknownCommand(%q) = %v, want %v", test.text, got, test.want)
		}
	}
}

func TestIsEnteringSettingsText(t *testing.T) {
	states := stubStates{
		1: domain.StateTemperature,
		2: domain.StateModelParameters,
	}
	match := IsEnteringSettingsText(states)

	tests := []struct {
		name   string
		update *models.Update
		want   bool
	}{
		{"temperature input", textUpdate(1, "0.7"), true},
		{"command while editing", textUpdate(1, "/new"), false},
		{"menu without text input", textUpdate(2, "0.7"), false},
		{"no menu open", textUpdate(3, "0.7"), false},
		{"empty text", textUpdate(1, ""), false},
		{"callback", &models.Update{CallbackQuery: &models.CallbackQuery{Data: "x"}}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := match(test.update); got != test.want {
				t.Errorf("match = %v, want %v", got, test.want)
			}
		})
	}
}
