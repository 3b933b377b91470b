package history

import (
	"fmt"

	"github.com/dskvich/fluentmind-bot/pkg/domain"
)

// Assemble builds the request: one system message, a user/assistant pair per
// turn and the pending user message last.
func Assemble(system string, turns []domain.Turn, pending string) ([]domain.RoleMessage, error) {
	messages := make([]domain.RoleMessage, 0, 2*len(turns)+2)
	messages = append(messages, domain.RoleMessage{Role: domain.RoleSystem, Content: system})

	for _, turn := range turns {
		if turn.Request == "" || turn.Response == "" {
			return nil, fmt.Errorf("turn %d has an empty side: %w", turn.ID, domain.ErrBrokenAlternation)
		}
		messages = append(messages,
			domain.RoleMessage{Role: domain.RoleUser, Content: turn.Request},
			domain.RoleMessage{Role: domain.RoleAssistant, Content: turn.Response},
		)
	}

	messages = append(messages, domain.RoleMessage{Role: domain.RoleUser, Content: pending})

	if err := Validate(messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// Validate checks that messages start with exactly one system message, end
// with a user message and strictly alternate user/assistant in between.
func Validate(messages []domain.RoleMessage) error {
	if len(messages) < 2 {
		return fmt.Errorf("%d messages: %w", len(messages), domain.ErrBrokenAlternation)
	}
	if messages[0].Role != domain.RoleSystem {
		return fmt.Errorf("first message has role %q: %w", messages[0].Role, domain.ErrBrokenAlternation)
	}

	for i, m := range messages[1:] {
		want := domain.RoleUser
		if i%2 == 1 {
			want = domain.RoleAssistant
		}
		if m.Role != want {
			return fmt.Errorf("message %d has role %q, want %q: %w", i+1, m.Role, want, domain.ErrBrokenAlternation)
		}
		if m.Content == "" {
			return fmt.Errorf("message %d is empty: %w", i+1, domain.ErrBrokenAlternation)
		}
	}

	if last := messages[len(messages)-1]; last.Role != domain.RoleUser {
		return fmt.Errorf("last message has role %q: %w", last.Role, domain.ErrBrokenAlternation)
	}
	return nil
}
