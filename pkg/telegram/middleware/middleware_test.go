package middleware

import (
	"context"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/dskvich/fluentmind-bot/pkg/logger"
	"github.com/dskvich/fluentmind-bot/pkg/telegram/telegramtest"
)

type allowList []int64

func (a allowList) IsAuthorized(userID int64) bool {
	for _, id := range a {
		if id == userID {
			return true
		}
	}
	return false
}

func message(userID int64, text string) *models.Update {
	return &models.Update{
		ID: 42,
		Message: &models.Message{
			Chat: models.Chat{ID: 7},
			From: &models.User{ID: userID},
			Text: text,
		},
	}
}

func TestAuth(t *testing.T) {
	srv := telegramtest.NewServer(t)
	b := srv.Bot(t)

	called := 0
	next := func(context.Context, *bot.Bot, *models.Update) { called++ }
	h := Auth(allowList{1})(next)

	h(context.Background(), b, message(1, "hi"))
	if called != 1 {
		t.Fatalf("authorized user: next called %d times, want 1", called)
	}

	h(context.Background(), b, message(2, "hi"))
	if called != 1 {
		t.Fatalf("unauthorized user reached the handler")
	}
	if got := srv.Texts(); len(got) != 1 || got[0] != notAuthorizedText {
		t.Errorf("sent %q, want %q", got, notAuthorizedText)
	}

	h(context.Background(), b, &models.Update{CallbackQuery: &models.CallbackQuery{ID: "cb", From: models.User{ID: 2}}})
	if called != 1 {
		t.Fatalf("unauthorized callback reached the handler")
	}
	if got := srv.Requests("answerCallbackQuery"); len(got) != 1 || got[0].Fields["callback_query_id"] != "cb" {
		t.Errorf("answerCallbackQuery calls = %+v", got)
	}

	h(context.Background(), b, &models.Update{})
	if called != 1 {
		t.Errorf("unknown update reached the handler")
	}
}

func TestRequestID(t *testing.T) {
	var gotRequest, gotOwner int64
	h := RequestID(func(ctx context.Context, _ *bot.Bot, _ *models.Update) {
		gotRequest, _ = logger.RequestIDFromContext(ctx)
		gotOwner, _ = logger.OwnerIDFromContext(ctx)
	})

	h(context.Background(), nil, message(1, "hi"))

	if gotRequest != 42 || gotOwner != 7 {
		t.Errorf("context carries request %d owner %d, want 42 and 7", gotRequest, gotOwner)
	}
}

func TestTyping(t *testing.T) {
	srv := telegramtest.NewServer(t)

	called := false
	Typing(func(context.Context, *bot.Bot, *models.Update) { called = true })(context.Background(), srv.Bot(t), message(1, "hi"))

	if !called {
		t.Fatal("next was not called")
	}
	got := srv.Requests("sendChatAction")
	if len(got) != 1 || got[0].Fields["action"] != string(models.ChatActionTyping) {
		t.Errorf("sendChatAction calls = %+v", got)
	}
}
