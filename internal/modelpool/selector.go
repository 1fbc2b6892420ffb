package modelpool

import (
	"context"
	"log"
	"strings"
)

// SelectorConfig tunes the budget-aware model selection.
type SelectorConfig struct {
	// ReserveGB is memory held back for the OS and everything that is not
	// a model weight.
	ReserveGB float64
	// UsableRatio is the share of post-reserve memory the run may spend.
	UsableRatio float64
	// OverheadFactor inflates each model's estimated footprint to account
	// for KV cache and runtime overhead.
	OverheadFactor float64
	// MaxActiveModels caps how many models are kept resident at once.
	MaxActiveModels int
	// DraftMaxModels truncates the final selection. 1 keeps drafting sticky
	// on a single model to avoid reload thrash.
	DraftMaxModels int
	// DefaultSizeGB is assumed when the inventory cannot estimate a model.
	DefaultSizeGB float64
}

// DefaultSelectorConfig matches single-host local drafting: ~5 GB reserved,
// 60% of the remainder usable, sticky single-model drafting.
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		ReserveGB:       5.0,
		UsableRatio:     0.6,
		OverheadFactor:  1.15,
		MaxActiveModels: 2,
		DraftMaxModels:  1,
		DefaultSizeGB:   4.0,
	}
}

// Selector picks the ordered subset of candidate models kept resident for
// one generation run.
type Selector struct {
	Inventory Inventory
	Memory    MemoryProbe
	Config    SelectorConfig
}

func NewSelector(inv Inventory, mem MemoryProbe, cfg SelectorConfig) *Selector {
	if cfg.OverheadFactor <= 0 {
		cfg.OverheadFactor = 1.15
	}
	if cfg.UsableRatio <= 0 || cfg.UsableRatio > 1 {
		cfg.UsableRatio = 0.6
	}
	if cfg.MaxActiveModels <= 0 {
		cfg.MaxActiveModels = 2
	}
	if cfg.DraftMaxModels <= 0 {
		cfg.DraftMaxModels = 1
	}
	if cfg.DefaultSizeGB <= 0 {
		cfg.DefaultSizeGB = 4.0
	}
	return &Selector{Inventory: inv, Memory: mem, Config: cfg}
}

// Select filters candidates against the installed set and packs as many as
// the memory budget allows. The first surviving candidate is always kept so
// a run never starts with zero models; fallback covers the case where
// filtering leaves nothing.
func (s *Selector) Select(ctx context.Context, candidates []string, fallback string) []string {
	cfg := s.Config

	var installed map[string]struct{}
	if s.Inventory != nil {
		var err error
		installed, err = s.Inventory.ListInstalled(ctx)
		if err != nil {
			log.Printf("modelpool: list installed failed, skipping intersection: %v", err)
			installed = nil
		}
	}

	var pool []string
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" || isEmbeddingModel(c) {
			continue
		}
		if len(installed) > 0 {
			if _, ok := installed[normalizeModelName(c)]; !ok {
				continue
			}
		}
		pool = append(pool, c)
	}
	if len(pool) == 0 {
		return []string{fallback}
	}

	budgetGB := s.budgetGB()

	selected := make([]string, 0, cfg.MaxActiveModels)
	var used float64
	for i, c := range pool {
		size := s.estimate(ctx, c) * cfg.OverheadFactor
		if i == 0 {
			// The first candidate is always selected regardless of budget.
			selected = append(selected, c)
			used += size
			continue
		}
		if len(selected) >= cfg.MaxActiveModels {
			break
		}
		if used+size > budgetGB {
			continue
		}
		selected = append(selected, c)
		used += size
	}

	if len(selected) > cfg.DraftMaxModels {
		selected = selected[:cfg.DraftMaxModels]
	}
	return selected
}

func (s *Selector) budgetGB() float64 {
	if s.Memory == nil {
		return 0
	}
	_, avail, err := s.Memory.Memory()
	if err != nil {
		log.Printf("modelpool: memory probe failed: %v", err)
		return 0
	}
	budget := (avail - s.Config.ReserveGB) * s.Config.UsableRatio
	if budget < 0 {
		return 0
	}
	return budget
}

func (s *Selector) estimate(ctx context.Context, model string) float64 {
	if s.Inventory != nil {
		if gb, ok := s.Inventory.EstimateSizeGB(ctx, model); ok && gb > 0 {
			return gb
		}
	}
	return s.Config.DefaultSizeGB
}

// isEmbeddingModel filters embedding-only identities by name heuristic.
func isEmbeddingModel(name string) bool {
	return strings.Contains(strings.ToLower(name), "embed")
}
