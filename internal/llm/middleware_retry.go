package llm

import (
	"context"
	"errors"
	"time"

	"reportify/internal/llmclient"
)

// Retry retries Chat/ChatStream up to maxAttempts with exponential backoff
// starting at baseDelay. If context is canceled, it stops immediately.
func Retry(maxAttempts int, baseDelay time.Duration) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 300 * time.Millisecond
	}
	return func(next llmclient.Client) llmclient.Client {
		return &retrying{next: next, max: maxAttempts, base: baseDelay}
	}
}

type retrying struct {
	next llmclient.Client
	max  int
	base time.Duration
}

func (r *retrying) Name() string { return r.next.Name() }
func (r *retrying) Close() error { return r.next.Close() }

func (r *retrying) Chat(ctx context.Context, system, user string, opts llmclient.ChatOptions) (string, error) {
	var last error
	for i := 0; i < r.max; i++ {
		out, err := r.next.Chat(ctx, system, user, opts)
		if err == nil {
			return out, nil
		}
		// If it's a permanent error, do not retry.
		var pErr *llmclient.PermanentError
		if errors.As(err, &pErr) {
			return "", err
		}
		last = err
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
		time.Sleep(r.base * time.Duration(1<<i))
	}
	return "", last
}

// ChatStream is retried only when no fragment was delivered yet; once output
// has reached the caller a retry would duplicate content.
func (r *retrying) ChatStream(ctx context.Context, system, user string, opts llmclient.ChatOptions, onFragment func(string)) error {
	var last error
	for i := 0; i < r.max; i++ {
		delivered := false
		wrapped := func(fragment string) {
			delivered = true
			if onFragment != nil {
				onFragment(fragment)
			}
		}
		err := r.next.ChatStream(ctx, system, user, opts, wrapped)
		if err == nil {
			return nil
		}
		var pErr *llmclient.PermanentError
		if errors.As(err, &pErr) {
			return err
		}
		if delivered {
			return err
		}
		last = err
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		time.Sleep(r.base * time.Duration(1<<i))
	}
	return last
}
