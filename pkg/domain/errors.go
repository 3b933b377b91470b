package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")

	ErrTokenizationUnavailable = errors.New("tokenization unavailable")
	ErrBrokenAlternation       = errors.New("conversation history breaks user/assistant alternation")

	ErrNothingToRetry     = errors.New("nothing to retry")
	ErrNothingToSave      = errors.New("nothing to save")
	ErrInvalidTemperature = errors.New("temperature must be a number between 0 and 2")
)

// ErrCompletionFailed matches every completion API failure kind below.
var ErrCompletionFailed = errors.New("completion failed")

var (
	ErrRateLimited       error = &completionError{"rate limited"}
	ErrInvalidRequest    error = &completionError{"invalid request"}
	ErrCompletionTimeout error = &completionError{"completion timed out"}
	ErrTransport         error = &completionError{"transport failure"}
	ErrEmptyCompletion   error = &completionError{"empty completion"}
)

type completionError struct {
	kind string
}

func (e *completionError) Error() string { return "completion failed: " + e.kind }

func (e *completionError) Is(target error) bool { return target == ErrCompletionFailed }
