package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	MaxTopicLength   = 250
	MaxSummaryLength = 1000
)

// Conversation is one dialogue session of an owner. The most recently created
// conversation of an owner is the current one.
type Conversation struct {
	ID        uuid.UUID
	OwnerID   int64
	Topic     string
	Summary   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewConversation(ownerID int64) *Conversation {
	now := time.Now().UTC()
	return &Conversation{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsSummarized reports whether topic and summary were already derived.
func (c *Conversation) IsSummarized() bool {
	return c.Topic != "" && c.Summary != ""
}

// IsBlank reports whether the conversation carries nothing worth keeping
// once it has no turns.
func (c *Conversation) IsBlank() bool {
	return c.Topic == "" && c.Summary == ""
}

func (c *Conversation) SetSummary(summary, topic string) {
	c.Summary = Truncate(summary, MaxSummaryLength)
	c.Topic = Truncate(topic, MaxTopicLength)
}

type ContentKind string

const (
	ContentKindText  ContentKind = "text"
	ContentKindImage ContentKind = "img"
)

// Turn is one request/response exchange inside a conversation.
type Turn struct {
	ID               int64
	ConversationID   uuid.UUID
	OwnerID          int64
	DisplayName      string
	Request          string
	Response         string
	PromptTokens     int
	CompletionTokens int
	Kind             ContentKind
	CreatedAt        time.Time
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
