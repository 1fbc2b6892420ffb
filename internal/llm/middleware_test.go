package llm

import (
	"context"
	"fmt"
	"testing"
	"time"

	"reportify/internal/llmclient"
)

func TestRetry_RecoversFromTransientError(t *testing.T) {
	fake := llmclient.NewFakeClient("ok").FailCall(0, fmt.Errorf("transient"))
	cli := Wrap(fake, Retry(3, time.Millisecond))

	out, err := cli.Chat(context.Background(), "", "hi", llmclient.ChatOptions{})
	if err != nil {
		t.Fatalf("retry should have recovered: %v", err)
	}
	if out != "ok" {
		t.Fatalf("got %q", out)
	}
	if fake.Calls() != 2 {
		t.Fatalf("calls = %d, want 2", fake.Calls())
	}
}

func TestRetry_PermanentErrorShortCircuits(t *testing.T) {
	perm := llmclient.NewPermanentError(fmt.Errorf("model not found"))
	fake := llmclient.NewFakeClient("never").FailCall(0, perm)
	cli := Wrap(fake, Retry(5, time.Millisecond))

	if _, err := cli.Chat(context.Background(), "", "hi", llmclient.ChatOptions{}); err == nil {
		t.Fatalf("expected error")
	}
	if fake.Calls() != 1 {
		t.Fatalf("permanent error must not retry, calls = %d", fake.Calls())
	}
}

func TestRetry_StreamNotRetriedAfterDelivery(t *testing.T) {
	inner := &partialStream{}
	cli := Wrap(inner, Retry(3, time.Millisecond))

	var got []string
	err := cli.ChatStream(context.Background(), "", "hi", llmclient.ChatOptions{}, func(f string) {
		got = append(got, f)
	})
	if err == nil {
		t.Fatalf("expected the stream error to surface")
	}
	if inner.calls != 1 {
		t.Fatalf("stream with delivered output must not retry, calls = %d", inner.calls)
	}
	if len(got) != 1 || got[0] != "partial" {
		t.Fatalf("fragments: %v", got)
	}
}

func TestRetry_StreamRetriedBeforeDelivery(t *testing.T) {
	inner := &failFirstStream{}
	cli := Wrap(inner, Retry(3, time.Millisecond))

	var got []string
	err := cli.ChatStream(context.Background(), "", "hi", llmclient.ChatOptions{}, func(f string) {
		got = append(got, f)
	})
	if err != nil {
		t.Fatalf("second attempt should succeed: %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("calls = %d, want 2", inner.calls)
	}
	if len(got) != 1 || got[0] != "done" {
		t.Fatalf("fragments: %v", got)
	}
}

func TestWrap_Order(t *testing.T) {
	fake := llmclient.NewFakeClient("x")
	cli := Wrap(fake, WithLogging(nil), RateLimit(0, 1))
	if cli.Name() != fake.Name() {
		t.Fatalf("name must pass through: %q", cli.Name())
	}
	if _, err := cli.Chat(context.Background(), "", "u", llmclient.ChatOptions{}); err != nil {
		t.Fatalf("chat through stack failed: %v", err)
	}
	if err := cli.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

// partialStream emits one fragment and then fails, every call.
type partialStream struct{ calls int }

func (p *partialStream) Name() string { return "partial" }
func (p *partialStream) Close() error { return nil }
func (p *partialStream) Chat(ctx context.Context, system, user string, opts llmclient.ChatOptions) (string, error) {
	return "", fmt.Errorf("unused")
}
func (p *partialStream) ChatStream(ctx context.Context, system, user string, opts llmclient.ChatOptions, onFragment func(string)) error {
	p.calls++
	onFragment("partial")
	return fmt.Errorf("connection reset")
}

// failFirstStream fails before any delivery on the first call only.
type failFirstStream struct{ calls int }

func (p *failFirstStream) Name() string { return "failFirst" }
func (p *failFirstStream) Close() error { return nil }
func (p *failFirstStream) Chat(ctx context.Context, system, user string, opts llmclient.ChatOptions) (string, error) {
	return "", fmt.Errorf("unused")
}
func (p *failFirstStream) ChatStream(ctx context.Context, system, user string, opts llmclient.ChatOptions, onFragment func(string)) error {
	p.calls++
	if p.calls == 1 {
		return fmt.Errorf("dial timeout")
	}
	onFragment("done")
	return nil
}
