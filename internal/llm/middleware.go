package llm

import (
	"context"
	"log"

	"reportify/internal/llmclient"
)

// Middleware decorates a Client to inject cross-cutting concerns
// (rate limiting, retries, logging).
type Middleware func(llmclient.Client) llmclient.Client

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner llmclient.Client, mws ...Middleware) llmclient.Client {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// -------- Rate Limiting --------

// RateLimit limits request rate using the token-bucket rpsLimiter.
// If rps <= 0, the limiter is effectively disabled.
func RateLimit(rps float64, burst int) Middleware {
	return func(next llmclient.Client) llmclient.Client {
		rl := newRPSLimiter(rps, burst) // nil when disabled
		return &rateLimited{next: next, rl: rl}
	}
}

type rateLimited struct {
	next llmclient.Client
	rl   *rpsLimiter
}

func (c *rateLimited) Name() string { return c.next.Name() }
func (c *rateLimited) Close() error {
	c.rl.Stop()
	return c.next.Close()
}

func (c *rateLimited) Chat(ctx context.Context, system, user string, opts llmclient.ChatOptions) (string, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return "", err
	}
	return c.next.Chat(ctx, system, user, opts)
}

func (c *rateLimited) ChatStream(ctx context.Context, system, user string, opts llmclient.ChatOptions, onFragment func(string)) error {
	if err := c.rl.Acquire(ctx); err != nil {
		return err
	}
	return c.next.ChatStream(ctx, system, user, opts, onFragment)
}

// -------- Logging --------

// WithLogging logs request size and errors. Provide a custom logger or nil
// to use log.Default().
func WithLogging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next llmclient.Client) llmclient.Client {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next llmclient.Client
	log  *log.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }

func (l *logging) Chat(ctx context.Context, system, user string, opts llmclient.ChatOptions) (string, error) {
	l.log.Printf("LLM request (%s): %d bytes", l.next.Name(), len(system)+len(user))
	out, err := l.next.Chat(ctx, system, user, opts)
	if err != nil {
		l.log.Printf("LLM error (%s): %v", l.next.Name(), err)
	}
	return out, err
}

func (l *logging) ChatStream(ctx context.Context, system, user string, opts llmclient.ChatOptions, onFragment func(string)) error {
	l.log.Printf("LLM stream request (%s): %d bytes", l.next.Name(), len(system)+len(user))
	err := l.next.ChatStream(ctx, system, user, opts, onFragment)
	if err != nil {
		l.log.Printf("LLM stream error (%s): %v", l.next.Name(), err)
	}
	return err
}
