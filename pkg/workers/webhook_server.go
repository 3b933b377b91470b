package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/dskvich/fluentmind-bot/pkg/api"
	"github.com/dskvich/fluentmind-bot/pkg/api/handler"
	"github.com/dskvich/fluentmind-bot/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

type webhookBot interface {
	handler.UpdateProcessor
	SetWebhook(ctx context.Context, params *bot.SetWebhookParams) (bool, error)
	SetMyCommands(ctx context.Context, params *bot.SetMyCommandsParams) (bool, error)
}

type WebhookConfig struct {
	Addr string
	Path string
	// PublicURL is registered with Telegram when set.
	PublicURL string
	Secret    string
}

// webhookServer serves the Telegram webhook and health endpoints.
type webhookServer struct {
	bot      webhookBot
	cfg      WebhookConfig
	commands []models.BotCommand
	listen   func(network, address string) (net.Listener, error)
}

func NewWebhookServer(bot webhookBot, cfg WebhookConfig, commands []models.BotCommand) (*webhookServer, error) {
	if cfg.Path == "" || cfg.Path[0] != '/' {
		return nil, fmt.Errorf("webhook path %q must start with /", cfg.Path)
	}

	return &webhookServer{
		bot:      bot,
		cfg:      cfg,
		commands: commands,
		listen:   net.Listen,
	}, nil
}

func (s *webhookServer) Name() string { return "webhook_server" }

func (s *webhookServer) Start(ctx context.Context) error {
	slog.Info("Starting worker", "name", s.Name(), "addr", s.cfg.Addr, "path", s.cfg.Path)
	defer slog.Info("Worker stopped", "name", s.Name())

	ln, err := s.listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}

	webhook := handler.NewWebhook(ctx, s.bot, s.cfg.Secret)
	srv := &http.Server{
		Handler:      api.NewRouter(s.cfg.Path, webhook),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if s.cfg.PublicURL != "" {
		if _, err := s.bot.SetWebhook(ctx, &bot.SetWebhookParams{
			URL:         s.cfg.PublicURL,
			SecretToken: s.cfg.Secret,
		}); err != nil {
			s.shutdown(srv, webhook)
			return fmt.Errorf("registering webhook: %w", err)
		}
		slog.Info("Webhook registered", "url", s.cfg.PublicURL)
	}
	publishCommands(ctx, s.bot, s.commands)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			s.shutdown(srv, webhook)
			return fmt.Errorf("serving http: %w", err)
		}
	}

	s.shutdown(srv, webhook)
	return nil
}

// shutdown stops accepting deliveries and waits for the accepted ones.
func (s *webhookServer) shutdown(srv *http.Server, webhook interface{ Wait() }) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Shutting down http server", logger.Err(err))
	}
	webhook.Wait()
}
