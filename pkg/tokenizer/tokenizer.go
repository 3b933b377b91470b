package tokenizer

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktokenloader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/dskvich/fluentmind-bot/pkg/domain"
	"github.com/dskvich/fluentmind-bot/pkg/logger"
)

const DefaultEncoding = "cl100k_base"

// Counter maps text to its token cost. The same input always yields the same cost.
type Counter interface {
	Count(text string) (int, error)
}

var setLoaderOnce sync.Once

type tiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktoken loads the BPE ranks of the given encoding from the embedded
// offline loader, so no network access happens at runtime.
func NewTiktoken(encoding string) (*tiktokenCounter, error) {
	setLoaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktokenloader.NewOfflineLoader())
	})

	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("loading encoding %q: %w", encoding, err)
	}

	return &tiktokenCounter{encoding: enc}, nil
}

func (t *tiktokenCounter) Count(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	return len(t.encoding.Encode(text, nil, nil)), nil
}

type unavailable struct{}

// Unavailable is used when no encoding could be loaded; every count fails
// with domain.ErrTokenizationUnavailable.
var Unavailable = unavailable{}

func (unavailable) Count(string) (int, error) {
	return 0, domain.ErrTokenizationUnavailable
}

// New returns a tiktoken counter, falling back to Unavailable.
func New(encoding string) Counter {
	counter, err := NewTiktoken(encoding)
	if err != nil {
		slog.Error("Tokenizer is unavailable, history will not be sent", "encoding", encoding, logger.Err(err))
		return Unavailable
	}
	return counter
}
