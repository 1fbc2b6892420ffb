package plan

import (
	"math"
	"strings"
)

// SectionTarget captures the per-section completeness contract. It is
// computed once before drafting and never mutated; the draft worker, the
// continuation loop and the validator all key off the same numbers.
type SectionTarget struct {
	Weight        float64 `json:"weight"`
	MinParagraphs int     `json:"min_paragraphs"`
	MinChars      int     `json:"min_chars"`
	TargetChars   int     `json:"target_chars"`
	MaxChars      int     `json:"max_chars"`
	MinTables     int     `json:"min_tables"`
	MinFigures    int     `json:"min_figures"`
}

// Kind classifies a section title for weighting and floor selection.
type Kind int

const (
	KindOther Kind = iota
	KindSummary
	KindIntroduction
	KindMethod
	KindResults
	KindConclusion
	KindReferences
	KindAppendix
)

var kindKeywords = []struct {
	kind Kind
	keys []string
}{
	{KindSummary, []string{"summary", "abstract", "overview", "摘要", "概要"}},
	{KindIntroduction, []string{"introduction", "intro", "background", "引言", "绪论", "背景"}},
	{KindMethod, []string{"method", "design", "approach", "architecture", "implementation", "方法", "设计", "实现"}},
	{KindResults, []string{"result", "evaluation", "experiment", "analysis", "findings", "结果", "实验", "评估", "分析"}},
	{KindConclusion, []string{"conclusion", "discussion", "future work", "结论", "讨论", "展望"}},
	{KindReferences, []string{"reference", "bibliography", "参考文献", "文献"}},
	{KindAppendix, []string{"appendix", "附录"}},
}

// KindOf matches the title against keyword lists; first match wins in the
// order above, so "Summary of Results" classifies as a summary.
func KindOf(title string) Kind {
	t := strings.ToLower(strings.TrimSpace(title))
	for _, kk := range kindKeywords {
		for _, k := range kk.keys {
			if strings.Contains(t, k) {
				return kk.kind
			}
		}
	}
	return KindOther
}

func defaultWeight(kind Kind) float64 {
	switch kind {
	case KindSummary:
		return 0.7
	case KindIntroduction:
		return 1.0
	case KindMethod:
		return 1.35
	case KindResults:
		return 1.45
	case KindConclusion:
		return 0.9
	case KindReferences:
		return 0.6
	case KindAppendix:
		return 0.55
	default:
		return 1.0
	}
}

const (
	weightMin = 0.3
	weightMax = 3.0

	minParagraphFloor = 2
	minParagraphCap   = 12

	charFloorReferences = 180
	charFloorSummary    = 260
	charFloorDefault    = 420
	charCap             = 9000
)

// Targets converts the section list and a total character budget into
// per-section targets using weighted proportional allocation. Explicit
// entries in weights override the keyword heuristic.
func Targets(sections []string, baseMinParagraphs, totalChars int, weights map[string]float64) map[string]SectionTarget {
	if baseMinParagraphs <= 0 {
		baseMinParagraphs = 3
	}
	if totalChars <= 0 {
		totalChars = 6000
	}

	kinds := make([]Kind, len(sections))
	ws := make([]float64, len(sections))
	var sum float64
	for i, s := range sections {
		kinds[i] = KindOf(s)
		w := defaultWeight(kinds[i])
		if weights != nil {
			if ow, ok := weights[s]; ok {
				w = ow
			}
		}
		w = clampF(w, weightMin, weightMax)
		ws[i] = w
		sum += w
	}
	if sum <= 0 {
		sum = 1
	}

	out := make(map[string]SectionTarget, len(sections))
	for i, s := range sections {
		w := ws[i]
		kind := kinds[i]

		minPars := clampI(int(math.Round(float64(baseMinParagraphs)*w)), minParagraphFloor, minParagraphCap)

		share := int(float64(totalChars) * w / sum)
		floor := charFloorDefault
		switch kind {
		case KindReferences:
			floor = charFloorReferences
		case KindSummary:
			floor = charFloorSummary
		}
		if share < floor {
			share = floor
		}
		if share > charCap {
			share = charCap
		}

		tgt := SectionTarget{
			Weight:        w,
			MinParagraphs: minPars,
			MinChars:      share,
			TargetChars:   share,
			MaxChars:      share * 2,
		}
		switch kind {
		case KindResults:
			tgt.MinTables = 1
			tgt.MinFigures = 1
		case KindMethod:
			tgt.MinFigures = 1
		}
		if w >= 1.35 && kind != KindReferences && kind != KindAppendix {
			tgt.MinFigures = 1
		}
		out[s] = tgt
	}
	return out
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampI(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
