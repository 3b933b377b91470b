package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/dskvich/fluentmind-bot/pkg/domain"
	"github.com/dskvich/fluentmind-bot/pkg/repository/boltstore"
)

type wordCounter struct{}

func (wordCounter) Count(text string) (int, error) {
	return len(strings.Fields(text)), nil
}

type reply struct {
	content string
	err     error
}

type fakeClient struct {
	mu       sync.Mutex
	replies  []reply
	requests []domain.CompletionRequest

	imageURL     string
	imageErr     error
	imagePrompts []string
}

func (f *fakeClient) CreateChatCompletion(_ context.Context, req domain.CompletionRequest) (*domain.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)

	r := reply{content: "reply"}
	if len(f.replies) > 0 {
		r, f.replies = f.replies[0], f.replies[1:]
	}
	if r.err != nil {
		return nil, r.err
	}
	return &domain.Completion{Content: r.content, PromptTokens: 10, CompletionTokens: 5}, nil
}

func (f *fakeClient) GenerateImage(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.imagePrompts = append(f.imagePrompts, prompt)
	return f.imageURL, f.imageErr
}

type fixture struct {
	svc      *chatService
	settings *settingsService
	store    *boltstore.Store
	client   *fakeClient
}

func newFixture(t *testing.T, replies ...reply) *fixture {
	t.Helper()

	store, err := boltstore.Open(filepath.Join(t.TempDir(), "bot.db"))
	if err != nil {
		t.Fatalf("boltstore.Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	client := &fakeClient{replies: replies, imageURL: "https://images.example/1.png"}
	settings := NewSettingsService(store.Settings(), "", 4096)

	svc := NewChatService(store.Conversations(), store.Turns(), settings, client, wordCounter{}, ChatConfig{
		SystemPrompt: "You are helpful.",
		Budget:       4096,
		SafetyMargin: 8,
		Timeout:      time.Second,
	})

	return &fixture{svc: svc, settings: settings, store: store, client: client}
}

func (f *fixture) current(t *testing.T, ownerID int64) (*domain.Conversation, []domain.Turn) {
	t.Helper()

	ctx := context.Background()
	conv, err := f.store.Conversations().Current(ctx, ownerID)
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	turns, err := f.store.Turns().List(ctx, conv.ID)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	return conv, turns
}

func (f *fixture) seed(t *testing.T, ownerID int64, turns ...domain.Turn) *domain.Conversation {
	t.Helper()

	ctx := context.Background()
	conv := domain.NewConversation(ownerID)
	if err := f.store.Conversations().Save(ctx, conv); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	for i := range turns {
		turns[i].ConversationID = conv.ID
		turns[i].OwnerID = ownerID
		turns[i].CreatedAt = conv.CreatedAt.Add(time.Duration(i+1) * time.Second)
		if turns[i].Kind == "" {
			turns[i].Kind = domain.ContentKindText
		}
		if err := f.store.Turns().Add(ctx, &turns[i]); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}
	return conv
}

func contents(messages []domain.RoleMessage) []string {
	var out []string
	for _, m := range messages {
		out = append(out, m.Role+":"+m.Content)
	}
	return out
}

func TestAnswerThenEnrichOnFreshConversation(t *testing.T) {
	f := newFixture(t,
		reply{content: "Hi!"},
		reply{content: strings.Repeat("s", 1200)},
		reply{content: strings.Repeat("t", 300)},
	)
	ctx := context.Background()

	got, err := f.svc.Answer(ctx, 1, "alice", "Hello")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if got != "Hi!" {
		t.Errorf("Answer() = %q, want %q", got, "Hi!")
	}
	if len(f.client.requests) != 1 {
		t.Fatalf("completion calls before Answer() returned = %d, want only the answer", len(f.client.requests))
	}
	if conv, _ := f.current(t, 1); conv.IsSummarized() {
		t.Errorf("conversation summarized by Answer(): %+v", conv)
	}

	if err := f.svc.Enrich(ctx, 1); err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}
	if len(f.client.requests) != 3 {
		t.Fatalf("completion calls = %d, want answer, summary and topic", len(f.client.requests))
	}
	first := f.client.requests[0]
	if want := []string{"system:You are helpful.", "user:Hello"}; strings.Join(contents(first.Messages), "|") != strings.Join(want, "|") {
		t.Errorf("answer request = %q, want %q", contents(first.Messages), want)
	}
	if first.Model != domain.DefaultModel || first.Temperature != domain.DefaultTemperature || first.MaxTokens != domain.DefaultMaxTokens {
		t.Errorf("answer request parameters = %+v", first)
	}

	conv, turns := f.current(t, 1)
	if utf8.RuneCountInString(conv.Summary) != domain.MaxSummaryLength {
		t.Errorf("summary length = %d, want %d", utf8.RuneCountInString(conv.Summary), domain.MaxSummaryLength)
	}
	if utf8.RuneCountInString(conv.Topic) != domain.MaxTopicLength {
		t.Errorf("topic length = %d, want %d", utf8.RuneCountInString(conv.Topic), domain.MaxTopicLength)
	}

	if len(turns) != 1 {
		t.Fatalf("stored turns = %d, want 1", len(turns))
	}
	turn := turns[0]
	if turn.Request != "Hello" || turn.Response != "Hi!" || turn.DisplayName != "alice" ||
		turn.PromptTokens != 10 || turn.CompletionTokens != 5 || turn.Kind != domain.ContentKindText {
		t.Errorf("stored turn = %+v", turn)
	}

	topicRequest := f.client.requests[2].Messages
	if len(topicRequest) != 2 || topicRequest[1].Content != strings.Repeat("s", 1200) {
		t.Errorf("topic request = %q, want it derived from the summary", contents(topicRequest))
	}
}

func TestAnswerSendsHistory(t *testing.T) {
	f := newFixture(t, reply{content: "Hi!"})
	ctx := context.Background()

	if _, err := f.svc.Answer(ctx, 1, "alice", "Hello"); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if _, err := f.svc.Answer(ctx, 1, "alice", "Again"); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	if len(f.client.requests) != 2 {
		t.Fatalf("completion calls = %d, want 2", len(f.client.requests))
	}
	want := []string{"system:You are helpful.", "user:Hello", "assistant:Hi!", "user:Again"}
	if got := contents(f.client.requests[1].Messages); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("second request = %q, want %q", got, want)
	}
}

func TestAnswerTruncatesHistoryToMemorySize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	settings := f.settings.Defaults(1)
	settings.MaxTokens = 10
	settings.MemorySize = 20
	if err := f.settings.Save(ctx, settings); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	conv := f.seed(t, 1,
		domain.Turn{Request: "a b c d e", Response: "f g h i j"},
		domain.Turn{Request: "k l m n o", Response: "p q r s t"},
	)
	conv.SetSummary("summary", "topic")
	f.store.Conversations().Save(ctx, conv)

	if _, err := f.svc.Answer(ctx, 1, "alice", "one two"); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	// the window is 20 + 10, fixed cost is 3 + 2 + 10, the newest turn adds 10, the older one would reach 35
	want := []string{"system:You are helpful.", "user:k l m n o", "assistant:p q r s t", "user:one two"}
	if got := contents(f.client.requests[0].Messages); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("request = %q, want %q", got, want)
	}
}

func TestAnswerWithMemoryDisabled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	settings := f.settings.Defaults(1)
	settings.MemoryEnabled = false
	settings.Model = "gpt-4o"
	settings.Temperature = 0
	f.settings.Save(ctx, settings)

	conv := f.seed(t, 1, domain.Turn{Request: "earlier", Response: "answer"})
	conv.SetSummary("summary", "topic")
	f.store.Conversations().Save(ctx, conv)

	if _, err := f.svc.Answer(ctx, 1, "alice", "Now"); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	req := f.client.requests[0]
	if got := contents(req.Messages); len(got) != 2 || got[1] != "user:Now" {
		t.Errorf("request = %q, want no history", got)
	}
	if req.Model != "gpt-4o" || req.Temperature != 0 {
		t.Errorf("request parameters = %+v, want the owner's settings", req)
	}

	// settings of one owner never leak into another
	if _, err := f.svc.Answer(ctx, 2, "bob", "Hi"); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if got := f.client.requests[1].Model; got != domain.DefaultModel {
		t.Errorf("model for another owner = %q, want %q", got, domain.DefaultModel)
	}
}

func TestAnswerCompletionFailureIsNotPersisted(t *testing.T) {
	f := newFixture(t, reply{err: domain.ErrRateLimited})

	_, err := f.svc.Answer(context.Background(), 1, "alice", "Hello")
	if !errors.Is(err, domain.ErrRateLimited) || !errors.Is(err, domain.ErrCompletionFailed) {
		t.Fatalf("Answer() error = %v, want a rate limit failure", err)
	}

	_, turns := f.current(t, 1)
	if len(turns) != 0 {
		t.Errorf("stored turns = %d, want none after a failed completion", len(turns))
	}
}

func TestAnswerKeepsShortHistoryForEveryPreset(t *testing.T) {
	for _, memorySize := range domain.MemorySizeOptions {
		for _, maxTokens := range domain.MaxTokensOptions {
			t.Run(fmt.Sprintf("memory %d max tokens %d", memorySize, maxTokens), func(t *testing.T) {
				f := newFixture(t)
				f.svc.cfg.SafetyMargin = 1024
				ctx := context.Background()

				settings := f.settings.Defaults(7)
				settings.MemorySize = memorySize
				settings.MaxTokens = maxTokens
				if err := f.settings.Save(ctx, settings); err != nil {
					t.Fatalf("Save() error = %v", err)
				}

				conv := f.seed(t, 7, domain.Turn{Request: "short q", Response: "short a"})
				conv.SetSummary("summary", "topic")
				f.store.Conversations().Save(ctx, conv)

				if _, err := f.svc.Answer(ctx, 7, "u", "next"); err != nil {
					t.Fatalf("Answer() error = %v", err)
				}

				want := []string{"system:You are helpful.", "user:short q", "assistant:short a", "user:next"}
				if got := contents(f.client.requests[0].Messages); strings.Join(got, "|") != strings.Join(want, "|") {
					t.Errorf("request = %q, want %q", got, want)
				}
			})
		}
	}
}

func TestEnrichFailureIsBestEffort(t *testing.T) {
	f := newFixture(t, reply{content: "Hi!"}, reply{err: domain.ErrTransport})
	ctx := context.Background()

	got, err := f.svc.Answer(ctx, 1, "alice", "Hello")
	if err != nil || got != "Hi!" {
		t.Fatalf("Answer() = %q, %v", got, err)
	}
	if err := f.svc.Enrich(ctx, 1); !errors.Is(err, domain.ErrTransport) {
		t.Errorf("Enrich() error = %v, want ErrTransport", err)
	}

	conv, turns := f.current(t, 1)
	if conv.IsSummarized() {
		t.Errorf("conversation summarized after a failed summary call: %+v", conv)
	}
	if len(turns) != 1 {
		t.Errorf("stored turns = %d, want 1", len(turns))
	}
}

func TestAnswerRejectsBrokenHistory(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, domain.Turn{Request: "question", Response: ""})

	_, err := f.svc.Answer(context.Background(), 1, "alice", "Hello")
	if !errors.Is(err, domain.ErrBrokenAlternation) {
		t.Fatalf("Answer() error = %v, want ErrBrokenAlternation", err)
	}
	if len(f.client.requests) != 0 {
		t.Errorf("completion calls = %d, want none", len(f.client.requests))
	}
}

func TestRetryWithoutTurns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Retry(ctx, 1); !errors.Is(err, domain.ErrNothingToRetry) {
		t.Errorf("Retry() without a conversation error = %v, want ErrNothingToRetry", err)
	}

	f.seed(t, 1, domain.Turn{Request: "a cat", Response: "https://images.example/cat.png", Kind: domain.ContentKindImage})
	if _, err := f.svc.Retry(ctx, 1); !errors.Is(err, domain.ErrNothingToRetry) {
		t.Errorf("Retry() with only image turns error = %v, want ErrNothingToRetry", err)
	}

	if len(f.client.requests) != 0 {
		t.Errorf("completion calls = %d, want none", len(f.client.requests))
	}
	_, turns := f.current(t, 1)
	if len(turns) != 1 || turns[0].Response != "https://images.example/cat.png" {
		t.Errorf("turns changed by a failed retry: %+v", turns)
	}
}

func TestRetryOverwritesLastTurn(t *testing.T) {
	f := newFixture(t, reply{content: "retried"})
	ctx := context.Background()

	f.seed(t, 1,
		domain.Turn{Request: "Hello", Response: "first"},
		domain.Turn{Request: "Second", Response: "second answer"},
	)
	_, before := f.current(t, 1)

	got, err := f.svc.Retry(ctx, 1)
	if err != nil || got != "retried" {
		t.Fatalf("Retry() = %q, %v", got, err)
	}

	want := []string{"system:You are helpful.", "user:Hello", "assistant:first", "user:Second"}
	if got := contents(f.client.requests[0].Messages); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("retry request = %q, want %q", got, want)
	}

	_, after := f.current(t, 1)
	if len(after) != 2 {
		t.Fatalf("turns after retry = %d, want 2", len(after))
	}
	last := after[1]
	if last.ID != before[1].ID || last.Request != "Second" || last.Response != "retried" || !last.CreatedAt.Equal(before[1].CreatedAt) {
		t.Errorf("last turn after retry = %+v", last)
	}
	if after[0].Response != "first" {
		t.Errorf("first turn changed by retry: %+v", after[0])
	}
}

func TestNewConversationDiscardsEmptyConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.NewConversation(ctx, 1); err != nil {
		t.Fatalf("NewConversation() error = %v", err)
	}
	first, _ := f.current(t, 1)

	if err := f.svc.NewConversation(ctx, 1); err != nil {
		t.Fatalf("NewConversation() error = %v", err)
	}
	second, _ := f.current(t, 1)
	if second.ID == first.ID {
		t.Fatal("NewConversation() did not create a new conversation")
	}

	if err := f.store.Conversations().Delete(ctx, second.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := f.store.Conversations().Current(ctx, 1); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("empty conversation was kept, Current() error = %v", err)
	}
	if len(f.client.requests) != 0 {
		t.Errorf("completion calls = %d, want none for empty conversations", len(f.client.requests))
	}
}

func TestNewConversationSummarizesPreviousOne(t *testing.T) {
	f := newFixture(t, reply{content: "We greeted each other."}, reply{content: "Greetings"})
	ctx := context.Background()

	old := f.seed(t, 1, domain.Turn{Request: "Hello", Response: "Hi!"})

	if err := f.svc.NewConversation(ctx, 1); err != nil {
		t.Fatalf("NewConversation() error = %v", err)
	}

	current, turns := f.current(t, 1)
	if current.ID == old.ID || len(turns) != 0 {
		t.Fatalf("current conversation = %+v with %d turns, want a fresh one", current, len(turns))
	}

	f.store.Conversations().Delete(ctx, current.ID)
	previous, turns := f.current(t, 1)
	if previous.ID != old.ID || previous.Topic != "Greetings" || previous.Summary != "We greeted each other." {
		t.Errorf("previous conversation = %+v", previous)
	}
	if len(turns) != 1 {
		t.Errorf("previous conversation turns = %d, want 1", len(turns))
	}
}

func TestSave(t *testing.T) {
	f := newFixture(t, reply{content: "summary"}, reply{content: "Cats"})
	ctx := context.Background()

	if _, err := f.svc.Save(ctx, 1); !errors.Is(err, domain.ErrNothingToSave) {
		t.Errorf("Save() without conversation error = %v, want ErrNothingToSave", err)
	}

	f.seed(t, 1)
	if _, err := f.svc.Save(ctx, 1); !errors.Is(err, domain.ErrNothingToSave) {
		t.Errorf("Save() of an empty conversation error = %v, want ErrNothingToSave", err)
	}

	f.seed(t, 1, domain.Turn{Request: "Tell me about cats", Response: "Cats are great."})
	topic, err := f.svc.Save(ctx, 1)
	if err != nil || topic != "Cats" {
		t.Fatalf("Save() = %q, %v", topic, err)
	}

	conv, _ := f.current(t, 1)
	if conv.Summary != "summary" || conv.Topic != "Cats" {
		t.Errorf("conversation after Save() = %+v", conv)
	}
}

func TestEnrichSkipsWhenNothingToDo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.Enrich(ctx, 1); err != nil {
		t.Errorf("Enrich() without a conversation error = %v", err)
	}

	conv := f.seed(t, 1, domain.Turn{Request: "q", Response: "a"})
	conv.SetSummary("summary", "topic")
	f.store.Conversations().Save(ctx, conv)
	if err := f.svc.Enrich(ctx, 1); err != nil {
		t.Errorf("Enrich() of a summarized conversation error = %v", err)
	}

	if len(f.client.requests) != 0 {
		t.Errorf("completion calls = %d, want none", len(f.client.requests))
	}
}

func TestSummary(t *testing.T) {
	f := newFixture(t, reply{content: "fresh summary"}, reply{content: "topic"})
	ctx := context.Background()

	f.seed(t, 1, domain.Turn{Request: "q", Response: "a"})

	got, err := f.svc.Summary(ctx, 1)
	if err != nil || got != "fresh summary" {
		t.Fatalf("Summary() = %q, %v", got, err)
	}

	got, err = f.svc.Summary(ctx, 1)
	if err != nil || got != "fresh summary" {
		t.Fatalf("second Summary() = %q, %v", got, err)
	}
	if len(f.client.requests) != 2 {
		t.Errorf("completion calls = %d, want the stored summary reused", len(f.client.requests))
	}
}

func TestGenerateImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	url, err := f.svc.GenerateImage(ctx, 1, "alice", "a red fox")
	if err != nil || url != "https://images.example/1.png" {
		t.Fatalf("GenerateImage() = %q, %v", url, err)
	}
	if len(f.client.imagePrompts) != 1 || f.client.imagePrompts[0] != "a red fox" {
		t.Errorf("image prompts = %q", f.client.imagePrompts)
	}
	if len(f.client.requests) != 0 {
		t.Errorf("completion calls = %d, want image generation only", len(f.client.requests))
	}

	_, turns := f.current(t, 1)
	if len(turns) != 1 || turns[0].Kind != domain.ContentKindImage || turns[0].Response != url {
		t.Fatalf("stored turns = %+v", turns)
	}

	if _, err := f.svc.Answer(ctx, 1, "alice", "Hello"); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if got := contents(f.client.requests[0].Messages); len(got) != 2 {
		t.Errorf("request after an image turn = %q, want image turns left out", got)
	}
}

func TestGenerateImageFailure(t *testing.T) {
	f := newFixture(t)
	f.client.imageErr = domain.ErrInvalidRequest

	if _, err := f.svc.GenerateImage(context.Background(), 1, "alice", "forbidden"); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("GenerateImage() error = %v, want ErrInvalidRequest", err)
	}

	_, turns := f.current(t, 1)
	if len(turns) != 0 {
		t.Errorf("stored turns = %d, want none", len(turns))
	}
}
