package retrieve

import (
	"context"
	"strings"
	"unicode/utf8"
)

// Retriever supplies optional background material for a section's drafting
// prompt. The RAG subsystem behind it is an external collaborator; this
// package only fixes the consumed interface and small local implementations.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK, maxChars int) (string, error)
}

// Noop returns no background material.
type Noop struct{}

func (Noop) Retrieve(ctx context.Context, query string, topK, maxChars int) (string, error) {
	return "", nil
}

// Static serves a fixed corpus, truncated to maxChars. Used in tests and
// for runs where the caller pre-fetched material itself.
type Static struct {
	Text string
}

func (s Static) Retrieve(ctx context.Context, query string, topK, maxChars int) (string, error) {
	text := strings.TrimSpace(s.Text)
	if maxChars > 0 && utf8.RuneCountInString(text) > maxChars {
		runes := []rune(text)
		text = string(runes[:maxChars])
	}
	return text, nil
}
