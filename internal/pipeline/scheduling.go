package pipeline

import "time"

// SchedulingPolicy decides how section drafting is fanned out: how many
// workers may run at once and whether models rotate per task or one sticky
// model serves every section. Passed into the Generator at construction.
type SchedulingPolicy struct {
	// PerModelConcurrency caps concurrent drafts per resident model.
	PerModelConcurrency int
	// MaxWorkers is the hard pool ceiling.
	MaxWorkers int
	// ParallelModels enables rotating drafts across resident models.
	// Disabled by default: reloading a large local model between sections
	// costs more than sequential drafting saves.
	ParallelModels bool
	// SectionRetries is the number of extra attempts per section task.
	SectionRetries int
	// RetryBackoff is the sleep between section attempts.
	RetryBackoff time.Duration
}

func DefaultSchedulingPolicy() SchedulingPolicy {
	return SchedulingPolicy{
		PerModelConcurrency: 2,
		MaxWorkers:          8,
		ParallelModels:      false,
		SectionRetries:      2,
		RetryBackoff:        500 * time.Millisecond,
	}
}

// Concurrency computes the draft pool size for a run. With multi-model
// drafting disabled or a single resident model it collapses to 1 so every
// section reuses the same loaded model.
func (p SchedulingPolicy) Concurrency(requestedWorkers, residentModels int) int {
	if !p.ParallelModels || residentModels <= 1 {
		return 1
	}
	perModel := p.PerModelConcurrency
	if perModel <= 0 {
		perModel = 1
	}
	maxWorkers := p.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 8
	}
	n := requestedWorkers
	if limit := perModel * residentModels; limit < n {
		n = limit
	}
	if maxWorkers < n {
		n = maxWorkers
	}
	if n < 1 {
		n = 1
	}
	return n
}
