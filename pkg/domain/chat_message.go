package domain

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// RoleMessage is a single entry of the request sent to the completion API.
type RoleMessage struct {
	Role    string
	Content string
}

// CompletionRequest carries the per-owner model parameters of one call.
type CompletionRequest struct {
	Model       string
	Temperature float32
	MaxTokens   int
	Messages    []RoleMessage
}

type Completion struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}
