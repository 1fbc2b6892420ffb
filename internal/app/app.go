package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"reportify/internal/blocks"
	"reportify/internal/config"
	"reportify/internal/draft"
	"reportify/internal/llm"
	"reportify/internal/llmclient"
	"reportify/internal/modelpool"
	"reportify/internal/pipeline"
	"reportify/internal/retrieve"
	"reportify/internal/store"
)

// App wires the generation pipeline from configuration: client pool,
// model selector, block sink and run store.
type App struct {
	Generator *pipeline.Generator
	Runs      *store.RunStore

	pool *clientPool
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	pool, err := newClientPool(ctx, cfg.Provider)
	if err != nil {
		return nil, err
	}

	var selector *modelpool.Selector
	if cfg.Provider.Kind == "ollama" {
		selector = modelpool.NewSelector(
			modelpool.NewOllamaInventory(cfg.Provider.OllamaEndpoint),
			modelpool.ProcMeminfoProbe{},
			modelpool.SelectorConfig{
				ReserveGB:       cfg.Budget.ReserveGB,
				UsableRatio:     cfg.Budget.UsableRatio,
				OverheadFactor:  1.15,
				MaxActiveModels: cfg.Budget.MaxActiveModels,
				DraftMaxModels:  cfg.Budget.DraftMaxModels,
				DefaultSizeGB:   4.0,
			},
		)
	}

	var sinkFactory func(runID string) blocks.Sink
	var retriever retrieve.Retriever = retrieve.Noop{}
	if cfg.Artifact.Enabled {
		sink, err := store.NewS3BlockSink(store.S3Config{
			Endpoint:  cfg.Artifact.Endpoint,
			Region:    cfg.Artifact.Region,
			AccessKey: cfg.Artifact.AccessKey,
			SecretKey: cfg.Artifact.SecretKey,
			Bucket:    cfg.Artifact.Bucket,
			UseSSL:    cfg.Artifact.UseSSL,
		})
		if err != nil {
			log.Printf("app: block sink disabled: %v", err)
		} else {
			sinkFactory = sink.ForRun
			if r := store.NewObjectRetriever(sink, cfg.Artifact.ReferencePrefix); r != nil {
				retriever = r
			}
		}
	}

	policy := pipeline.DefaultSchedulingPolicy()
	policy.ParallelModels = cfg.Draft.ParallelModels
	policy.SectionRetries = cfg.Draft.SectionRetries

	gen := &pipeline.Generator{
		Pool:            pool,
		Selector:        selector,
		SinkFactory:     sinkFactory,
		Retriever:       retriever,
		Policy:          policy,
		Draft:           draftConfig(cfg.Draft),
		DefaultSections: cfg.Draft.DefaultSections,
	}
	return &App{
		Generator: gen,
		Runs:      store.NewRunStoreFromEnv(cfg.RunStore.Path),
		pool:      pool,
	}, nil
}

func (a *App) Close() error {
	var first error
	if a.pool != nil {
		if err := a.pool.Close(); err != nil {
			first = err
		}
	}
	if a.Runs != nil {
		if err := a.Runs.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func draftConfig(d config.DraftConfig) draft.Config {
	return draft.Config{
		StrictBlocks:       d.StrictBlocks,
		StrictMinimums:     d.StrictMinimums,
		ContinuationRounds: d.ContinuationRounds,
		Temperature:        0.7,
		RetrieveTopK:       4,
		RetrieveMaxChars:   1200,
	}
}

// clientPool hands out one wrapped client per model identity and caches it
// so every section drafted on a model shares the connection.
type clientPool struct {
	cfg config.ProviderConfig

	mu      sync.Mutex
	clients map[string]llmclient.Client
}

func newClientPool(ctx context.Context, cfg config.ProviderConfig) (*clientPool, error) {
	switch cfg.Kind {
	case "ollama", "gemini", "fake":
	default:
		return nil, fmt.Errorf("app: unknown provider kind %q", cfg.Kind)
	}
	if cfg.Kind == "gemini" && strings.TrimSpace(os.Getenv("GEMINI_API_KEY")) == "" {
		return nil, fmt.Errorf("app: GEMINI_API_KEY is not set")
	}
	_ = ctx
	return &clientPool{cfg: cfg, clients: map[string]llmclient.Client{}}, nil
}

func (p *clientPool) ClientFor(model string) llmclient.Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[model]; ok {
		return c
	}

	var inner llmclient.Client
	switch p.cfg.Kind {
	case "ollama":
		inner = llmclient.NewOllamaClient(p.cfg.OllamaEndpoint, model, p.cfg.Timeout)
	case "gemini":
		cli, err := llmclient.NewGeminiClient(context.Background(), os.Getenv("GEMINI_API_KEY"), model)
		if err != nil {
			log.Printf("app: gemini client for %q failed: %v", model, err)
			return nil
		}
		inner = cli
	case "fake":
		inner = llmclient.NewFakeClient()
	default:
		return nil
	}

	wrapped := llm.Wrap(inner,
		llm.WithLogging(nil),
		llm.Retry(p.cfg.RetryAttempts+1, 0),
		llm.RateLimit(p.cfg.RateRPS, 1),
	)
	p.clients[model] = wrapped
	return wrapped
}

func (p *clientPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var first error
	for _, c := range p.clients {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	p.clients = map[string]llmclient.Client{}
	return first
}
