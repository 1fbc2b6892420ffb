package modelpool

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"reportify/internal/llmclient"
)

// Inventory answers which model identities are actually installed and how
// big their resident footprint is. Constructor-injected so the selector is
// testable without a live model host.
type Inventory interface {
	ListInstalled(ctx context.Context) (map[string]struct{}, error)
	// EstimateSizeGB reports a model's resident footprint. ok=false means
	// unknown; callers fall back to a default.
	EstimateSizeGB(ctx context.Context, model string) (float64, bool)
}

// OllamaInventory backs Inventory with an Ollama host's /api/tags listing.
// The tag list is fetched once per run and reused for size estimates.
type OllamaInventory struct {
	Endpoint string
	HTTP     *http.Client

	once   sync.Once
	models []llmclient.OllamaModelInfo
	err    error
}

func NewOllamaInventory(endpoint string) *OllamaInventory {
	return &OllamaInventory{
		Endpoint: endpoint,
		HTTP:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (inv *OllamaInventory) load(ctx context.Context) ([]llmclient.OllamaModelInfo, error) {
	inv.once.Do(func() {
		inv.models, inv.err = llmclient.ListOllamaModels(ctx, inv.Endpoint, inv.HTTP)
	})
	return inv.models, inv.err
}

func (inv *OllamaInventory) ListInstalled(ctx context.Context) (map[string]struct{}, error) {
	models, err := inv.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(models))
	for _, m := range models {
		out[normalizeModelName(m.Name)] = struct{}{}
	}
	return out, nil
}

func (inv *OllamaInventory) EstimateSizeGB(ctx context.Context, model string) (float64, bool) {
	models, err := inv.load(ctx)
	if err != nil {
		return 0, false
	}
	want := normalizeModelName(model)
	for _, m := range models {
		if normalizeModelName(m.Name) == want && m.SizeBytes > 0 {
			return float64(m.SizeBytes) / (1 << 30), true
		}
	}
	return 0, false
}

// normalizeModelName equates "llama3" and "llama3:latest".
func normalizeModelName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.TrimSuffix(name, ":latest")
}

// StaticInventory is a fixed in-memory inventory for tests and offline runs.
type StaticInventory struct {
	Installed map[string]struct{}
	SizesGB   map[string]float64
}

func (s *StaticInventory) ListInstalled(ctx context.Context) (map[string]struct{}, error) {
	return s.Installed, nil
}

func (s *StaticInventory) EstimateSizeGB(ctx context.Context, model string) (float64, bool) {
	v, ok := s.SizesGB[normalizeModelName(model)]
	return v, ok
}
