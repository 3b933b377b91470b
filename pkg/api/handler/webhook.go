package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-telegram/bot/models"

	"github.com/dskvich/fluentmind-bot/pkg/api/response"
	"github.com/dskvich/fluentmind-bot/pkg/logger"
)

const (
	SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

	maxUpdateSize = 1 << 20
)

type UpdateProcessor interface {
	ProcessUpdate(ctx context.Context, update *models.Update)
}

type webhook struct {
	ctx       context.Context
	processor UpdateProcessor
	secret    string
	writer    response.JSONResponseWriter
	wg        sync.WaitGroup
}

// NewWebhook accepts Telegram updates over HTTP. Updates are processed with
// ctx rather than the request context so they outlive the delivery.
func NewWebhook(ctx context.Context, processor UpdateProcessor, secret string) *webhook {
	return &webhook{
		ctx:       ctx,
		processor: processor,
		secret:    secret,
		writer:    response.JSONResponseWriter{},
	}
}

func (h *webhook) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if h.secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(SecretTokenHeader)), []byte(h.secret)) != 1 {
		slog.WarnContext(r.Context(), "Webhook call with wrong secret token", "remoteAddr", r.RemoteAddr)
		h.writer.WriteErrorResponse(w, http.StatusUnauthorized, "invalid secret token")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUpdateSize)

	var update models.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		// Telegram redelivers every non-200 answer.
		slog.ErrorContext(r.Context(), "Decoding webhook update", logger.Err(err))
		h.writer.WriteOK(w)
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				slog.ErrorContext(h.ctx, "Update processing panicked", "updateID", update.ID, "panic", p)
			}
		}()

		h.processor.ProcessUpdate(h.ctx, &update)
	}()

	h.writer.WriteOK(w)
}

// Wait blocks until every accepted update has been processed.
func (h *webhook) Wait() {
	h.wg.Wait()
}
