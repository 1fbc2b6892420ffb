package llmclient

import (
	"context"
	"errors"
)

var ErrEmptyResponse = errors.New("empty response from model")

// ChatOptions carries per-call generation knobs. MaxTokens is a hint the
// pipeline sets proportional to the remaining character deficit; providers
// that have no equivalent knob may ignore it.
type ChatOptions struct {
	Temperature float64
	MaxTokens   int
}

// Client is the capability provider: one named model identity that can
// answer a system/user prompt pair, optionally as an incremental stream.
// Cross-cutting concerns (retries, rate limiting, logging) are applied via
// llm.Middleware, not implemented by providers.
type Client interface {
	Name() string
	Chat(ctx context.Context, system, user string, opts ChatOptions) (string, error)
	// ChatStream calls onFragment for every text fragment as it arrives and
	// returns after the stream is drained. Fragments are raw model output;
	// they carry no framing of their own.
	ChatStream(ctx context.Context, system, user string, opts ChatOptions, onFragment func(fragment string)) error
	Close() error
}

// PermanentError indicates an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}
