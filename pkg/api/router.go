package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type WebhookHandler interface {
	HandleUpdate(w http.ResponseWriter, r *http.Request)
}

func NewRouter(webhookPath string, webhook WebhookHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Post(webhookPath, webhook.HandleUpdate)

	return r
}
