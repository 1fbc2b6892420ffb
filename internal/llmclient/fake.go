package llmclient

import (
	"context"
	"sync"
)

// FakeClient returns scripted responses for offline use and tests.
// Responses are consumed in order; the last one repeats once the script is
// exhausted. Errs scheduled at an index take precedence over the response.
type FakeClient struct {
	mu        sync.Mutex
	responses []string
	errs      map[int]error
	calls     int

	// FragmentSize controls how ChatStream splits a response. <=0 streams
	// the whole response as one fragment.
	FragmentSize int
}

func NewFakeClient(responses ...string) *FakeClient {
	return &FakeClient{responses: responses, errs: map[int]error{}}
}

// FailCall schedules an error for the n-th call (0-based).
func (f *FakeClient) FailCall(n int, err error) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[n] = err
	return f
}

func (f *FakeClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) next() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.calls
	f.calls++
	if err, ok := f.errs[n]; ok {
		return "", err
	}
	if len(f.responses) == 0 {
		return "", ErrEmptyResponse
	}
	if n >= len(f.responses) {
		return f.responses[len(f.responses)-1], nil
	}
	return f.responses[n], nil
}

func (f *FakeClient) Chat(ctx context.Context, system, user string, opts ChatOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.next()
}

func (f *FakeClient) ChatStream(ctx context.Context, system, user string, opts ChatOptions, onFragment func(fragment string)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	resp, err := f.next()
	if err != nil {
		return err
	}
	if onFragment == nil {
		return nil
	}
	size := f.FragmentSize
	if size <= 0 || size >= len(resp) {
		onFragment(resp)
		return nil
	}
	for i := 0; i < len(resp); i += size {
		end := i + size
		if end > len(resp) {
			end = len(resp)
		}
		onFragment(resp[i:end])
	}
	return nil
}
