package pipeline

import "strings"

// GenerationRequest is the immutable description of one generation run.
type GenerationRequest struct {
	// Instruction is the user's writing instruction.
	Instruction string `json:"instruction"`
	// CurrentText is the document being revised; may be empty.
	CurrentText string `json:"current_text,omitempty"`
	// RequiredSections, when non-empty, is used verbatim as the outline.
	RequiredSections []string `json:"required_sections,omitempty"`
	// SectionWeights overrides the keyword weight heuristic per title.
	SectionWeights map[string]float64 `json:"section_weights,omitempty"`
	// Workers is the requested draft concurrency.
	Workers int `json:"workers,omitempty"`
	// CandidateModels are model identities considered for residency, in
	// preference order.
	CandidateModels []string `json:"candidate_models,omitempty"`
	// FallbackModel is used when no candidate survives selection.
	FallbackModel string `json:"fallback_model,omitempty"`
	// MinParagraphs is the per-section base paragraph minimum.
	MinParagraphs int `json:"min_paragraphs,omitempty"`
	// TotalChars is the whole-document character budget.
	TotalChars int `json:"total_chars,omitempty"`
}

func (r *GenerationRequest) normalize() {
	r.Instruction = strings.TrimSpace(r.Instruction)
	if r.Workers <= 0 {
		r.Workers = 1
	}
	if r.MinParagraphs <= 0 {
		r.MinParagraphs = 3
	}
	if r.TotalChars <= 0 {
		r.TotalChars = 6000
	}
	if r.FallbackModel == "" && len(r.CandidateModels) > 0 {
		r.FallbackModel = r.CandidateModels[0]
	}
}
