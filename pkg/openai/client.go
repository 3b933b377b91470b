package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/dskvich/fluentmind-bot/pkg/domain"
)

type client struct {
	api *openai.Client
}

type Option func(*openai.ClientConfig)

// WithBaseURL points the client at an OpenAI compatible endpoint.
func WithBaseURL(url string) Option {
	return func(cfg *openai.ClientConfig) {
		if url != "" {
			cfg.BaseURL = strings.TrimSuffix(url, "/")
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(cfg *openai.ClientConfig) {
		cfg.HTTPClient = hc
	}
}

func NewClient(token string, opts ...Option) (*client, error) {
	if token == "" {
		return nil, fmt.Errorf("token is empty")
	}

	cfg := openai.DefaultConfig(token)
	for _, opt := range opts {
		opt(&cfg)
	}

	return &client{
		api: openai.NewClientWithConfig(cfg),
	}, nil
}

func (c *client) CreateChatCompletion(ctx context.Context, req domain.CompletionRequest) (*domain.Completion, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	slog.DebugContext(ctx, "Calling chat completion", "model", req.Model, "messagesCount", len(messages))

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: temperature(req.Temperature),
	})
	if err != nil {
		return nil, fmt.Errorf("creating chat completion: %w", classify(ctx, err))
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, domain.ErrEmptyCompletion
	}

	return &domain.Completion{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// GenerateImage returns the URL of a single 512x512 image.
func (c *client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Size:           openai.CreateImageSize512x512,
		ResponseFormat: openai.CreateImageResponseFormatURL,
		N:              1,
	})
	if err != nil {
		return "", fmt.Errorf("creating image: %w", classify(ctx, err))
	}

	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", domain.ErrEmptyCompletion
	}

	return resp.Data[0].URL, nil
}

// temperature keeps an explicit zero on the wire: the request field is
// omitted when empty and the API would fall back to its own default.
func temperature(t float32) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrCompletionTimeout, err)
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
	case status >= 400 && status < 500:
		return fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	default:
		return fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
}
