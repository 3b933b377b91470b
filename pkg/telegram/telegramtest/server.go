// Package telegramtest runs a fake Telegram Bot API for handler tests.
package telegramtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-telegram/bot"
)

const Token = "123456:test-token"

// Request is one recorded Bot API call.
type Request struct {
	Method string
	Fields map[string]string
}

type Server struct {
	srv *httptest.Server

	mu       sync.Mutex
	requests []Request
	failures map[string]int
}

func NewServer(t *testing.T) *Server {
	t.Helper()

	s := &Server{failures: map[string]int{}}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.srv.Close)

	return s
}

func (s *Server) URL() string { return s.srv.URL }

// Bot returns a client talking to the fake server.
func (s *Server) Bot(t *testing.T) *bot.Bot {
	t.Helper()

	b, err := bot.New(Token, bot.WithServerURL(s.URL()), bot.WithSkipGetMe())
	if err != nil {
		t.Fatalf("creating bot: %v", err)
	}
	return b
}

// FailNext makes the next n calls of method answer with an API error.
func (s *Server) FailNext(method string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] += n
}

func (s *Server) Requests(method string) []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Request
	for _, r := range s.requests {
		if r.Method == method {
			out = append(out, r)
		}
	}
	return out
}

// Texts returns the text of every sendMessage call in order.
func (s *Server) Texts() []string {
	var out []string
	for _, r := range s.Requests("sendMessage") {
		out = append(out, r.Fields["text"])
	}
	return out
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

	fields := map[string]string{}
	if err := r.ParseMultipartForm(1 << 20); err == nil && r.MultipartForm != nil {
		for k, v := range r.MultipartForm.Value {
			if len(v) > 0 {
				fields[k] = v[0]
			}
		}
	}

	s.mu.Lock()
	s.requests = append(s.requests, Request{Method: method, Fields: fields})
	fail := s.failures[method] > 0
	if fail {
		s.failures[method]--
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	if fail {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"ok":          false,
			"error_code":  http.StatusBadRequest,
			"description": "Bad Request: can't parse entities",
		})
		return
	}

	var result any = map[string]any{
		"message_id": 1,
		"date":       0,
		"chat":       map[string]any{"id": 1, "type": "private"},
	}
	switch method {
	case "answerCallbackQuery", "sendChatAction", "setWebhook", "deleteWebhook":
		result = true
	}

	json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
}
