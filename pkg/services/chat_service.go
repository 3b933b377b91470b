package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/dskvich/fluentmind-bot/pkg/domain"
	"github.com/dskvich/fluentmind-bot/pkg/history"
	"github.com/dskvich/fluentmind-bot/pkg/logger"
)

const (
	summaryInstruction = "You summarize conversations between a user and an AI assistant."
	summaryRequest     = "Summarize the conversation above in one short paragraph. Reply with the summary only."
	topicInstruction   = "You name conversations. Reply with a title of at most eight words for the conversation summary you are given, without quotes."
)

type ConversationRepository interface {
	Current(ctx context.Context, ownerID int64) (*domain.Conversation, error)
	Save(ctx context.Context, c *domain.Conversation) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type TurnRepository interface {
	Add(ctx context.Context, t *domain.Turn) error
	UpdateResponse(ctx context.Context, t domain.Turn) error
	List(ctx context.Context, conversationID uuid.UUID) ([]domain.Turn, error)
}

type CompletionClient interface {
	CreateChatCompletion(ctx context.Context, req domain.CompletionRequest) (*domain.Completion, error)
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

type SettingsProvider interface {
	Get(ctx context.Context, ownerID int64) (domain.Settings, error)
}

type ChatConfig struct {
	SystemPrompt string
	// Budget applies when the owner has no memory size of their own.
	Budget       int
	SafetyMargin int
	Timeout      time.Duration
}

type chatService struct {
	conversations ConversationRepository
	turns         TurnRepository
	settings      SettingsProvider
	client        CompletionClient
	counter       history.Counter
	cfg           ChatConfig
}

func NewChatService(
	conversations ConversationRepository,
	turns TurnRepository,
	settings SettingsProvider,
	client CompletionClient,
	counter history.Counter,
	cfg ChatConfig,
) *chatService {
	return &chatService{
		conversations: conversations,
		turns:         turns,
		settings:      settings,
		client:        client,
		counter:       counter,
		cfg:           cfg,
	}
}

// Answer runs one chat turn for the owner and returns the model's reply.
// A failed completion leaves no trace in storage. A failed write of the turn
// is only logged because the reply is still worth delivering. Summarizing is
// left to Enrich.
func (c *chatService) Answer(ctx context.Context, ownerID int64, displayName, text string) (string, error) {
	settings, err := c.settings.Get(ctx, ownerID)
	if err != nil {
		return "", err
	}

	conv, err := c.current(ctx, ownerID)
	if err != nil {
		return "", err
	}

	var past []domain.Turn
	if settings.MemoryEnabled {
		if past, err = c.textTurns(ctx, conv.ID); err != nil {
			return "", err
		}
	}

	messages, err := c.buildMessages(ctx, settings, past, text)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	completion, err := c.complete(ctx, settings, messages)
	if err != nil {
		return "", fmt.Errorf("answering: %w", err)
	}

	logUsage(ctx, "Turn answered", settings.Model, completion)

	now := time.Now().UTC()
	turn := domain.Turn{
		ConversationID:   conv.ID,
		OwnerID:          ownerID,
		DisplayName:      displayName,
		Request:          text,
		Response:         completion.Content,
		PromptTokens:     completion.PromptTokens,
		CompletionTokens: completion.CompletionTokens,
		Kind:             domain.ContentKindText,
		CreatedAt:        now,
	}
	if err := c.turns.Add(ctx, &turn); err != nil {
		slog.ErrorContext(ctx, "Turn was answered but not stored", logger.Err(err))
	}

	conv.UpdatedAt = now
	if err := c.conversations.Save(ctx, conv); err != nil {
		slog.ErrorContext(ctx, "Updating conversation timestamp", logger.Err(err))
	}

	return completion.Content, nil
}

// Enrich gives the current conversation its summary and topic once it has
// turns and none yet. Callers run it after the answer went out.
func (c *chatService) Enrich(ctx context.Context, ownerID int64) error {
	conv, turns, err := c.currentWithText(ctx, ownerID)
	if errors.Is(err, domain.ErrNothingToSave) {
		return nil
	}
	if err != nil {
		return err
	}
	if conv.IsSummarized() {
		return nil
	}

	settings, err := c.settings.Get(ctx, ownerID)
	if err != nil {
		return err
	}

	return c.summarize(ctx, conv, settings, turns)
}

// Retry asks for a new answer to the latest request and overwrites the
// stored answer of that turn.
func (c *chatService) Retry(ctx context.Context, ownerID int64) (string, error) {
	conv, err := c.conversations.Current(ctx, ownerID)
	if errors.Is(err, domain.ErrNotFound) {
		return "", domain.ErrNothingToRetry
	}
	if err != nil {
		return "", err
	}

	turns, err := c.textTurns(ctx, conv.ID)
	if err != nil {
		return "", err
	}
	if len(turns) == 0 {
		return "", domain.ErrNothingToRetry
	}

	settings, err := c.settings.Get(ctx, ownerID)
	if err != nil {
		return "", err
	}

	last := turns[len(turns)-1]
	var past []domain.Turn
	if settings.MemoryEnabled {
		past = turns[:len(turns)-1]
	}

	messages, err := c.buildMessages(ctx, settings, past, last.Request)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	completion, err := c.complete(ctx, settings, messages)
	if err != nil {
		return "", fmt.Errorf("retrying: %w", err)
	}

	logUsage(ctx, "Turn retried", settings.Model, completion)

	last.Response = completion.Content
	last.PromptTokens = completion.PromptTokens
	last.CompletionTokens = completion.CompletionTokens
	if err := c.turns.UpdateResponse(ctx, last); err != nil {
		slog.ErrorContext(ctx, "Retried answer was not stored", "turnID", last.ID, logger.Err(err))
	}

	return completion.Content, nil
}

// NewConversation closes the current conversation and opens a fresh one.
// A conversation with turns gets its summary first, one without any turns
// is discarded.
func (c *chatService) NewConversation(ctx context.Context, ownerID int64) error {
	conv, err := c.conversations.Current(ctx, ownerID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return err
	default:
		if err := c.close(ctx, conv); err != nil {
			return err
		}
	}

	if err := c.conversations.Save(ctx, domain.NewConversation(ownerID)); err != nil {
		return fmt.Errorf("creating conversation: %w", err)
	}

	return nil
}

func (c *chatService) close(ctx context.Context, conv *domain.Conversation) error {
	all, err := c.turns.List(ctx, conv.ID)
	if err != nil {
		return fmt.Errorf("listing turns: %w", err)
	}

	if len(all) == 0 {
		if conv.IsBlank() {
			slog.DebugContext(ctx, "Discarding empty conversation", "conversationID", conv.ID)
			return c.conversations.Delete(ctx, conv.ID)
		}
		return nil
	}

	text := textOnly(all)
	if len(text) == 0 || conv.IsSummarized() {
		return nil
	}

	settings, err := c.settings.Get(ctx, conv.OwnerID)
	if err != nil {
		return err
	}

	if err := c.summarize(ctx, conv, settings, text); err != nil {
		slog.WarnContext(ctx, "Closing conversation without summary", "conversationID", conv.ID, logger.Err(err))
	}
	return nil
}

// Save derives summary and topic of the current conversation right away and
// returns the topic.
func (c *chatService) Save(ctx context.Context, ownerID int64) (string, error) {
	conv, turns, err := c.currentWithText(ctx, ownerID)
	if err != nil {
		return "", err
	}

	settings, err := c.settings.Get(ctx, ownerID)
	if err != nil {
		return "", err
	}

	if err := c.summarize(ctx, conv, settings, turns); err != nil {
		return "", err
	}

	return conv.Topic, nil
}

// Summary returns the stored summary, deriving it when there is none yet.
func (c *chatService) Summary(ctx context.Context, ownerID int64) (string, error) {
	conv, turns, err := c.currentWithText(ctx, ownerID)
	if err != nil {
		return "", err
	}

	if conv.Summary != "" {
		return conv.Summary, nil
	}

	settings, err := c.settings.Get(ctx, ownerID)
	if err != nil {
		return "", err
	}

	if err := c.summarize(ctx, conv, settings, turns); err != nil {
		return "", err
	}

	return conv.Summary, nil
}

// GenerateImage makes one image for the prompt without any conversation
// context and records it as an image turn.
func (c *chatService) GenerateImage(ctx context.Context, ownerID int64, displayName, prompt string) (string, error) {
	conv, err := c.current(ctx, ownerID)
	if err != nil {
		return "", err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	url, err := c.client.GenerateImage(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generating image: %w", err)
	}

	slog.InfoContext(ctx, "Image generated", "costUSD", domain.DefaultModelCosts()[domain.ImageModelKey].Image)

	turn := domain.Turn{
		ConversationID: conv.ID,
		OwnerID:        ownerID,
		DisplayName:    displayName,
		Request:        prompt,
		Response:       url,
		Kind:           domain.ContentKindImage,
		CreatedAt:      time.Now().UTC(),
	}
	if err := c.turns.Add(ctx, &turn); err != nil {
		slog.ErrorContext(ctx, "Image was generated but not stored", logger.Err(err))
	}

	return url, nil
}

func (c *chatService) current(ctx context.Context, ownerID int64) (*domain.Conversation, error) {
	conv, err := c.conversations.Current(ctx, ownerID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	conv = domain.NewConversation(ownerID)
	if err := c.conversations.Save(ctx, conv); err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}

	slog.DebugContext(ctx, "Conversation created", "conversationID", conv.ID)
	return conv, nil
}

func (c *chatService) currentWithText(ctx context.Context, ownerID int64) (*domain.Conversation, []domain.Turn, error) {
	conv, err := c.conversations.Current(ctx, ownerID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil, domain.ErrNothingToSave
	}
	if err != nil {
		return nil, nil, err
	}

	turns, err := c.textTurns(ctx, conv.ID)
	if err != nil {
		return nil, nil, err
	}
	if len(turns) == 0 {
		return nil, nil, domain.ErrNothingToSave
	}

	return conv, turns, nil
}

func (c *chatService) textTurns(ctx context.Context, conversationID uuid.UUID) ([]domain.Turn, error) {
	turns, err := c.turns.List(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("listing turns: %w", err)
	}
	return textOnly(turns), nil
}

// textOnly drops image turns: their response is a URL, not a reply.
func textOnly(turns []domain.Turn) []domain.Turn {
	return lo.Filter(turns, func(t domain.Turn, _ int) bool {
		return t.Kind != domain.ContentKindImage
	})
}

// policy sizes the context window as the owner's memory plus the room kept
// for the reply, so the memory size alone bounds the text that is sent.
func (c *chatService) policy(settings domain.Settings, system string) history.Policy {
	margin := max(c.cfg.SafetyMargin, settings.MaxTokens)
	memory := lo.Ternary(settings.MemorySize > 0, settings.MemorySize, c.cfg.Budget)

	return history.Policy{
		Budget:       memory + margin,
		SafetyMargin: margin,
		SystemText:   system,
	}
}

func (c *chatService) buildMessages(ctx context.Context, settings domain.Settings, past []domain.Turn, pending string) ([]domain.RoleMessage, error) {
	kept := history.Truncate(c.counter, past, pending, c.policy(settings, c.cfg.SystemPrompt))
	if dropped := len(past) - len(kept); dropped > 0 {
		slog.DebugContext(ctx, "History truncated", "kept", len(kept), "dropped", dropped)
	}

	return history.Assemble(c.cfg.SystemPrompt, kept, pending)
}

func (c *chatService) complete(ctx context.Context, settings domain.Settings, messages []domain.RoleMessage) (*domain.Completion, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	return c.client.CreateChatCompletion(ctx, domain.CompletionRequest{
		Model:       settings.Model,
		Temperature: settings.Temperature,
		MaxTokens:   settings.MaxTokens,
		Messages:    messages,
	})
}

func (c *chatService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.cfg.Timeout)
}

// summarize derives the summary from the turns and then the topic from the
// summary, and stores both on the conversation.
func (c *chatService) summarize(ctx context.Context, conv *domain.Conversation, settings domain.Settings, turns []domain.Turn) error {
	kept := history.Truncate(c.counter, turns, summaryRequest, c.policy(settings, summaryInstruction))

	messages, err := history.Assemble(summaryInstruction, kept, summaryRequest)
	if err != nil {
		return fmt.Errorf("building summary request: %w", err)
	}

	summary, err := c.complete(ctx, settings, messages)
	if err != nil {
		return fmt.Errorf("summarizing: %w", err)
	}

	messages = []domain.RoleMessage{
		{Role: domain.RoleSystem, Content: topicInstruction},
		{Role: domain.RoleUser, Content: summary.Content},
	}
	if err := history.Validate(messages); err != nil {
		return err
	}

	topic, err := c.complete(ctx, settings, messages)
	if err != nil {
		return fmt.Errorf("deriving topic: %w", err)
	}

	conv.SetSummary(summary.Content, topic.Content)
	if err := c.conversations.Save(ctx, conv); err != nil {
		return fmt.Errorf("saving summary: %w", err)
	}

	slog.InfoContext(ctx, "Conversation summarized", "conversationID", conv.ID, "topic", conv.Topic)
	return nil
}

func logUsage(ctx context.Context, msg, model string, completion *domain.Completion) {
	attrs := []any{
		"model", model,
		"promptTokens", completion.PromptTokens,
		"completionTokens", completion.CompletionTokens,
	}
	if cost, ok := domain.EstimateCost(model, completion.PromptTokens, completion.CompletionTokens); ok {
		attrs = append(attrs, "costUSD", cost)
	}
	slog.InfoContext(ctx, msg, attrs...)
}
