package event

import (
	"reportify/internal/plan"
)

// Event is the closed union of records the pipeline emits to its caller.
// Variants are the only implementations of the marker method; a switch over
// them is exhaustive.
type Event interface {
	isEvent()
}

// StagePhase marks entering or leaving a pipeline stage.
type StagePhase string

const (
	StageStart StagePhase = "start"
	StageEnd   StagePhase = "end"
)

// StateEvent brackets one pipeline stage (PLAN, DRAFT_SECTIONS, ...).
type StateEvent struct {
	Name  string     `json:"name"`
	Phase StagePhase `json:"phase"`
}

// PlanEvent reports the derived title and ordered section list.
type PlanEvent struct {
	Title    string   `json:"title"`
	Sections []string `json:"sections"`
}

// TargetsEvent reports the per-section completeness targets.
type TargetsEvent struct {
	Targets map[string]plan.SectionTarget `json:"targets"`
}

// SectionPhase is the lifecycle of one section draft.
type SectionPhase string

const (
	SectionStart SectionPhase = "start"
	SectionDelta SectionPhase = "delta"
	SectionEnd   SectionPhase = "end"
	SectionRetry SectionPhase = "retry"
)

// SectionEvent carries per-section progress. Delta is rendered block text;
// BlockID/BlockType are set only for table and figure blocks so the caller
// can track those individually while treating prose as free-flowing text.
type SectionEvent struct {
	Phase     SectionPhase `json:"phase"`
	Section   string       `json:"section"`
	Delta     string       `json:"delta,omitempty"`
	BlockID   string       `json:"block_id,omitempty"`
	BlockType string       `json:"block_type,omitempty"`
}

// DeltaEvent is free-form pipeline narration.
type DeltaEvent struct {
	Text string `json:"text"`
}

// FinalEvent closes the run. Problems is empty on clean validation.
type FinalEvent struct {
	Text     string   `json:"text"`
	Problems []string `json:"problems"`
}

func (StateEvent) isEvent()   {}
func (PlanEvent) isEvent()    {}
func (TargetsEvent) isEvent() {}
func (SectionEvent) isEvent() {}
func (DeltaEvent) isEvent()   {}
func (FinalEvent) isEvent()   {}
