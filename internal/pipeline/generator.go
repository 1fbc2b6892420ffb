package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"reportify/internal/blocks"
	"reportify/internal/compose"
	"reportify/internal/draft"
	"reportify/internal/event"
	"reportify/internal/llmclient"
	"reportify/internal/modelpool"
	"reportify/internal/plan"
	"reportify/internal/retrieve"
)

// Pipeline stage names, each bracketed by a state event pair.
const (
	StagePlan     = "PLAN"
	StageDraft    = "DRAFT_SECTIONS"
	StageAggreg   = "AGGREGATE"
	StageValidate = "VALIDATE"
	StageRepair   = "REPAIR"
)

// ClientPool hands out a capability-provider client per model identity.
type ClientPool interface {
	ClientFor(model string) llmclient.Client
}

// ClientPoolFunc adapts a function to ClientPool.
type ClientPoolFunc func(model string) llmclient.Client

func (f ClientPoolFunc) ClientFor(model string) llmclient.Client { return f(model) }

// sectionStatus tracks one section record through the run. The record is
// owned exclusively by its draft task while drafting; everyone else reads
// it only after done/failed.
type sectionStatus string

const (
	statusPending  sectionStatus = "pending"
	statusDrafting sectionStatus = "drafting"
	statusDone     sectionStatus = "done"
	statusFailed   sectionStatus = "failed"
)

type sectionRecord struct {
	Title  string
	ID     string
	Text   string
	Status sectionStatus
}

// Result is what a generation run hands back alongside the event stream.
type Result struct {
	RunID    string
	Title    string
	Document string
	Problems []string
}

// Generator owns one run of the document generation pipeline: planning,
// budget-aware model selection, fan-out section drafting, aggregation,
// validation and repair. It owns no document data between runs.
type Generator struct {
	Pool     ClientPool
	Selector *modelpool.Selector
	Sink     blocks.Sink
	// SinkFactory, when set, supersedes Sink with a sink scoped to the run id.
	SinkFactory func(runID string) blocks.Sink
	Retriever   retrieve.Retriever
	Policy      SchedulingPolicy
	Draft       draft.Config
	// DefaultSections overrides the planner's default outline.
	DefaultSections []string
	// TotalFloorRatio sets the document-wide length floor as a fraction of
	// the requested character budget.
	TotalFloorRatio float64
}

// Run executes the pipeline. Events are emitted to em throughout; the final
// event is always the last one, and it is emitted even when Run returns an
// error-free but imperfect document. A nil or unreachable provider is the
// only fatal condition.
func (g *Generator) Run(ctx context.Context, req GenerationRequest, em event.Emitter) (Result, error) {
	if em == nil {
		em = event.EmitterFrom(ctx)
	}
	ctx = event.WithEmitter(ctx, em)
	req.normalize()

	runID := uuid.NewString()
	if g.Pool == nil {
		return Result{RunID: runID}, fmt.Errorf("pipeline: no capability provider configured")
	}

	// ---- PLAN ----
	em.Emit(event.StateEvent{Name: StagePlan, Phase: event.StageStart})
	title, sections := plan.Plan(req.CurrentText, req.Instruction, req.RequiredSections, g.DefaultSections)
	targets := plan.Targets(sections, req.MinParagraphs, req.TotalChars, req.SectionWeights)
	em.Emit(event.PlanEvent{Title: title, Sections: sections})
	em.Emit(event.TargetsEvent{Targets: targets})
	em.Emit(event.StateEvent{Name: StagePlan, Phase: event.StageEnd})

	models := g.residentModels(ctx, req)
	primary := g.Pool.ClientFor(models[0])
	if primary == nil {
		return Result{RunID: runID, Title: title}, fmt.Errorf("pipeline: provider has no client for model %q", models[0])
	}

	sink := g.Sink
	if g.SinkFactory != nil {
		sink = g.SinkFactory(runID)
	}

	// ---- DRAFT_SECTIONS ----
	em.Emit(event.StateEvent{Name: StageDraft, Phase: event.StageStart})
	records := g.draftSections(ctx, req, title, sections, targets, models, sink)
	em.Emit(event.StateEvent{Name: StageDraft, Phase: event.StageEnd})

	texts := make(map[string]string, len(records))
	for _, r := range records {
		texts[r.Title] = r.Text
	}
	merged := compose.MergeDocument(title, sections, texts)

	// ---- AGGREGATE ----
	em.Emit(event.StateEvent{Name: StageAggreg, Phase: event.StageStart})
	agg := &compose.Aggregator{LLM: primary, Temperature: 0.3}
	doc, usedModel := agg.Aggregate(ctx, merged)
	if usedModel {
		em.Emit(event.DeltaEvent{Text: "aggregated section drafts into a unified document"})
	} else {
		em.Emit(event.DeltaEvent{Text: "kept the raw section merge"})
	}
	em.Emit(event.StateEvent{Name: StageAggreg, Phase: event.StageEnd})

	// ---- VALIDATE ----
	totalFloor := g.totalFloor(req)
	em.Emit(event.StateEvent{Name: StageValidate, Phase: event.StageStart})
	problems := compose.Validate(doc, sections, targets, totalFloor)
	em.Emit(event.StateEvent{Name: StageValidate, Phase: event.StageEnd})

	// ---- REPAIR (single pass, only if needed) ----
	if len(problems) > 0 {
		em.Emit(event.StateEvent{Name: StageRepair, Phase: event.StageStart})
		repaired, err := compose.Repair(ctx, primary, doc, problems)
		if err != nil {
			log.Printf("pipeline: repair failed, shipping unrepaired document: %v", err)
		} else {
			doc = repaired
		}
		em.Emit(event.StateEvent{Name: StageRepair, Phase: event.StageEnd})

		em.Emit(event.StateEvent{Name: StageValidate, Phase: event.StageStart})
		problems = compose.Validate(doc, sections, targets, totalFloor)
		em.Emit(event.StateEvent{Name: StageValidate, Phase: event.StageEnd})
	}

	em.Emit(event.FinalEvent{Text: doc, Problems: problems})
	return Result{RunID: runID, Title: title, Document: doc, Problems: problems}, nil
}

// residentModels picks the ordered model subset kept loaded for the run.
func (g *Generator) residentModels(ctx context.Context, req GenerationRequest) []string {
	fallback := req.FallbackModel
	if fallback == "" {
		fallback = "llama3"
	}
	if g.Selector == nil {
		if len(req.CandidateModels) > 0 {
			return req.CandidateModels[:1]
		}
		return []string{fallback}
	}
	models := g.Selector.Select(ctx, req.CandidateModels, fallback)
	if len(models) == 0 {
		return []string{fallback}
	}
	return models
}

// draftSections fans one task per section onto a bounded pool. A failing
// section degrades to a placeholder; it never aborts the run, and its end
// event is emitted regardless.
func (g *Generator) draftSections(ctx context.Context, req GenerationRequest, title string, sections []string, targets map[string]plan.SectionTarget, models []string, sink blocks.Sink) []*sectionRecord {
	concurrency := g.Policy.Concurrency(req.Workers, len(models))

	records := make([]*sectionRecord, len(sections))
	for i, s := range sections {
		records[i] = &sectionRecord{Title: s, ID: blocks.SectionIDFor(s), Status: statusPending}
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for i := range records {
		rec := records[i]
		model := models[0]
		if g.Policy.ParallelModels && len(models) > 1 {
			model = models[i%len(models)]
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			g.draftOne(ctx, req, title, rec, targets[rec.Title], model, sink)
		}()
	}
	wg.Wait()
	return records
}

// draftOne runs one section task to completion: bounded retries with a
// short backoff, then a clearly marked placeholder.
func (g *Generator) draftOne(ctx context.Context, req GenerationRequest, title string, rec *sectionRecord, tgt plan.SectionTarget, model string, sink blocks.Sink) {
	em := event.EmitterFrom(ctx)
	em.Emit(event.SectionEvent{Phase: event.SectionStart, Section: rec.Title})
	defer em.Emit(event.SectionEvent{Phase: event.SectionEnd, Section: rec.Title})

	rec.Status = statusDrafting
	worker := &draft.Worker{
		LLM:       g.Pool.ClientFor(model),
		Retriever: g.Retriever,
		Sink:      sink,
		Config:    g.Draft,
	}
	in := draft.Input{
		DocTitle:    title,
		Section:     rec.Title,
		Instruction: req.Instruction,
		Target:      tgt,
	}

	attempts := g.Policy.SectionRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	backoff := g.Policy.RetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			em.Emit(event.SectionEvent{Phase: event.SectionRetry, Section: rec.Title})
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				attempt = attempts
				continue
			case <-time.After(backoff):
			}
		}
		text, err := worker.Draft(ctx, in)
		if err == nil {
			rec.Text = text
			rec.Status = statusDone
			return
		}
		lastErr = err
		log.Printf("pipeline: draft attempt %d for %q failed: %v", attempt+1, rec.Title, err)
	}

	rec.Text = placeholderSection(rec.Title, lastErr)
	rec.Status = statusFailed
}

func placeholderSection(section string, cause error) string {
	reason := "drafting did not complete"
	if cause != nil {
		reason = cause.Error()
	}
	return fmt.Sprintf("> NEEDS FOLLOW-UP: the %s section could not be drafted (%s). Please regenerate this section.", section, reason)
}

func (g *Generator) totalFloor(req GenerationRequest) int {
	ratio := g.TotalFloorRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 0.5
	}
	return int(float64(req.TotalChars) * ratio)
}
