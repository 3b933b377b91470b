// Package history turns the stored turns of a conversation into the role
// tagged request sent to the completion API.
package history

import (
	"slices"

	"github.com/dskvich/fluentmind-bot/pkg/domain"
)

type Counter interface {
	Count(text string) (int, error)
}

// Policy bounds the size of an assembled request.
type Policy struct {
	// Budget caps the total tokens sent to the completion call.
	Budget int
	// SafetyMargin is kept free for the completion tokens of the reply.
	SafetyMargin int
	SystemText   string
}

// Truncate returns the longest run of most recent turns that fits the budget
// together with the system text, the pending message and the safety margin.
// The walk goes from the newest turn backwards and stops at the first turn
// that does not fit, so the result is always a contiguous suffix of turns in
// chronological order. A turn is kept whole or dropped, never shortened.
// A text that cannot be tokenized costs more than any budget.
func Truncate(counter Counter, turns []domain.Turn, pending string, policy Policy) []domain.Turn {
	fixed, ok := cost(counter, policy.SystemText, pending)
	if !ok {
		return nil
	}
	fixed += policy.SafetyMargin

	accumulated := 0
	start := len(turns)
	for i := len(turns) - 1; i >= 0; i-- {
		turnCost, ok := cost(counter, turns[i].Request, turns[i].Response)
		if !ok || accumulated+fixed+turnCost > policy.Budget {
			break
		}
		accumulated += turnCost
		start = i
	}

	return slices.Clone(turns[start:])
}

func cost(counter Counter, texts ...string) (int, bool) {
	total := 0
	for _, text := range texts {
		n, err := counter.Count(text)
		if err != nil {
			return 0, false
		}
		total += n
	}
	return total, true
}
