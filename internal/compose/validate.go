package compose

import (
	"fmt"

	"reportify/internal/blocks"
	"reportify/internal/plan"
)

// Validate checks the (possibly aggregated) document against every
// section's target and the document-wide total-length floor. It never
// short-circuits: all failures are collected into one list, and an empty
// list is the terminal pass state.
func Validate(doc string, sections []string, targets map[string]plan.SectionTarget, totalFloorChars int) []string {
	var problems []string
	parsed := SplitSections(doc)

	for _, s := range sections {
		text, ok := parsed[s]
		if !ok || text == "" {
			problems = append(problems, fmt.Sprintf("missing section: %s", s))
			continue
		}
		tgt, hasTarget := targets[s]
		if !hasTarget {
			continue
		}
		if n := blocks.CountParagraphs(text); n < tgt.MinParagraphs {
			problems = append(problems, fmt.Sprintf("section %s: %d paragraphs, need at least %d", s, n, tgt.MinParagraphs))
		}
		if n := blocks.NonMarkerLen(text); tgt.MinChars > 0 && n < tgt.MinChars {
			problems = append(problems, fmt.Sprintf("section %s: %d characters, need at least %d", s, n, tgt.MinChars))
		}
		tables, figures := blocks.CountMarkers(text)
		if tables < tgt.MinTables {
			problems = append(problems, fmt.Sprintf("section %s: %d tables, need at least %d", s, tables, tgt.MinTables))
		}
		if figures < tgt.MinFigures {
			problems = append(problems, fmt.Sprintf("section %s: %d figures, need at least %d", s, figures, tgt.MinFigures))
		}
	}

	if totalFloorChars > 0 {
		if n := blocks.NonMarkerLen(doc); n < totalFloorChars {
			problems = append(problems, fmt.Sprintf("document: %d characters total, need at least %d", n, totalFloorChars))
		}
	}
	return problems
}
