package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"

	"github.com/dskvich/fluentmind-bot/pkg/auth"
	"github.com/dskvich/fluentmind-bot/pkg/database"
	"github.com/dskvich/fluentmind-bot/pkg/digitalocean"
	"github.com/dskvich/fluentmind-bot/pkg/logger"
	"github.com/dskvich/fluentmind-bot/pkg/openai"
	"github.com/dskvich/fluentmind-bot/pkg/repository"
	"github.com/dskvich/fluentmind-bot/pkg/repository/boltstore"
	"github.com/dskvich/fluentmind-bot/pkg/services"
	"github.com/dskvich/fluentmind-bot/pkg/telegram"
	"github.com/dskvich/fluentmind-bot/pkg/tokenizer"
	"github.com/dskvich/fluentmind-bot/pkg/workers"
)

const (
	storagePostgres = "postgres"
	storageBolt     = "bolt"
)

type Config struct {
	OpenAIToken               string        `env:"OPEN_AI_TOKEN,required,notEmpty"`
	OpenAITimeout             time.Duration `env:"OPENAI_TIMEOUT" envDefault:"60s"`
	TelegramBotToken          string        `env:"TELEGRAM_BOT_TOKEN,required,notEmpty"`
	TelegramAuthorizedUserIDs []int64       `env:"TELEGRAM_AUTHORIZED_USER_IDS" envSeparator:" "`
	WebhookURL                string        `env:"WEBHOOK_URL"`
	WebhookSecret             string        `env:"WEBHOOK_SECRET"`
	WebhookPath               string        `env:"WEBHOOK_PATH" envDefault:"/webhook"`
	HTTPAddr                  string        `env:"HTTP_ADDR" envDefault:":8080"`
	Storage                   string        `env:"STORAGE" envDefault:"postgres"`
	PgURL                     string        `env:"DATABASE_URL"`
	PgHost                    string        `env:"DB_HOST" envDefault:"localhost:65432"`
	BoltPath                  string        `env:"BOLT_PATH" envDefault:"fluentmind.db"`
	TokenBudget               int           `env:"TOKEN_BUDGET" envDefault:"4096"`
	TokenSafetyMargin         int           `env:"TOKEN_SAFETY_MARGIN" envDefault:"1024"`
	TokenizerEncoding         string        `env:"TOKENIZER_ENCODING" envDefault:"cl100k_base"`
	SystemPrompt              string        `env:"SYSTEM_PROMPT" envDefault:"You are a helpful assistant."`
	DefaultModel              string        `env:"DEFAULT_MODEL" envDefault:"gpt-3.5-turbo"`
	DigitalOceanToken         string        `env:"DIGITALOCEAN_TOKEN"`
	LogLevel                  string        `env:"LOG_LEVEL" envDefault:"info"`
	LogNoColor                bool          `env:"LOG_NO_COLOR"`
}

func main() {
	slog.SetDefault(slog.New(logger.NewHandler(os.Stderr, logger.DefaultOptions)))

	if err := runMain(); err != nil {
		slog.Error("shutting down due to error", logger.Err(err))
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

func runMain() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts, err := logger.NewOptions(cfg.LogLevel, cfg.LogNoColor)
	if err != nil {
		return fmt.Errorf("configuring logger: %w", err)
	}
	slog.SetDefault(slog.New(logger.NewHandler(os.Stderr, opts)))

	store, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.close(); err != nil {
			slog.Error("closing storage", logger.Err(err))
		}
	}()

	workerGroup, err := setupWorkers(cfg, store)
	if err != nil {
		return err
	}

	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGHUP, syscall.SIGTERM)
		select {
		case s := <-sigCh:
			slog.Info("shutting down due to signal", "signal", s.String())
			cancelFn()
		case <-ctx.Done():
		}
	}()

	return workerGroup.Start(ctx)
}

// loadConfig reads .env when present and then the environment.
func loadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing env config: %w", err)
	}

	switch cfg.Storage {
	case storagePostgres, storageBolt:
	default:
		return Config{}, fmt.Errorf("unknown STORAGE %q, want %s or %s", cfg.Storage, storagePostgres, storageBolt)
	}

	return cfg, nil
}

type storage struct {
	conversations services.ConversationRepository
	turns         services.TurnRepository
	settings      services.SettingsRepository
	close         func() error
}

func openStorage(cfg Config) (*storage, error) {
	if cfg.Storage == storageBolt {
		store, err := boltstore.Open(cfg.BoltPath)
		if err != nil {
			return nil, fmt.Errorf("opening bolt store: %w", err)
		}
		slog.Info("Using bolt storage", "path", cfg.BoltPath)

		return &storage{
			conversations: store.Conversations(),
			turns:         store.Turns(),
			settings:      store.Settings(),
			close:         store.Close,
		}, nil
	}

	db, err := database.NewPostgres(cfg.PgURL, cfg.PgHost)
	if err != nil {
		return nil, fmt.Errorf("creating db: %w", err)
	}

	return &storage{
		conversations: repository.NewConversationRepository(db),
		turns:         repository.NewTurnRepository(db),
		settings:      repository.NewSettingsRepository(db),
		close:         db.Close,
	}, nil
}

func setupWorkers(cfg Config, store *storage) (workers.Group, error) {
	var workerGroup workers.Group

	openAIClient, err := openai.NewClient(cfg.OpenAIToken)
	if err != nil {
		return nil, fmt.Errorf("creating open ai client: %w", err)
	}

	settingsService := services.NewSettingsService(store.settings, cfg.DefaultModel, cfg.TokenBudget)

	chatService := services.NewChatService(
		store.conversations,
		store.turns,
		settingsService,
		openAIClient,
		tokenizer.New(cfg.TokenizerEncoding),
		services.ChatConfig{
			SystemPrompt: cfg.SystemPrompt,
			Budget:       cfg.TokenBudget,
			SafetyMargin: cfg.TokenSafetyMargin,
			Timeout:      cfg.OpenAITimeout,
		},
	)

	deps := telegram.Deps{
		Chat:       chatService,
		Settings:   settingsService,
		States:     repository.NewStateRepository(),
		Authorizer: auth.NewAuthenticator(cfg.TelegramAuthorizedUserIDs),
	}
	if cfg.DigitalOceanToken != "" {
		deps.Balance = digitalocean.NewClient(cfg.DigitalOceanToken)
	}

	b, err := telegram.NewBot(telegram.Config{Token: cfg.TelegramBotToken}, deps)
	if err != nil {
		return nil, err
	}
	commands := telegram.Commands(deps.Balance != nil)

	if cfg.WebhookURL == "" {
		slog.Info("WEBHOOK_URL is empty, receiving updates by long polling")

		worker, err := workers.NewTelegramBot(b, commands)
		if err != nil {
			return nil, err
		}
		return append(workerGroup, worker), nil
	}

	worker, err := workers.NewWebhookServer(b, workers.WebhookConfig{
		Addr:      cfg.HTTPAddr,
		Path:      cfg.WebhookPath,
		PublicURL: cfg.WebhookURL,
		Secret:    cfg.WebhookSecret,
	}, commands)
	if err != nil {
		return nil, err
	}

	return append(workerGroup, worker), nil
}
