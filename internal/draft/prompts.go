package draft

import (
	"fmt"
	"strings"

	"reportify/internal/plan"
)

// The drafting protocol asks the model for newline-delimited JSON records,
// one structured block per line. Exact wording is deliberately plain; the
// parser tolerates minor deviations and strict mode catches the rest.
const blockProtocolSystem = `You are drafting one section of a long report.
Output newline-delimited JSON only: one self-contained JSON object per line, no prose outside JSON, no code fences.
Each object is one block: {"id":"<stable id>","section":"<section id>","type":"paragraph|list|table|figure|reference","text":...,"items":[...],"caption":...,"columns":[...],"rows":[[...]],"data":{...}}.
Use "paragraph" for prose, "list" for bullet items, "table" with caption/columns/rows, "figure" with caption/data describing the chart.
Never repeat a block id. Only use type "reference" in a references section.`

func draftUserPrompt(docTitle, section, sectionID, instruction string, tgt plan.SectionTarget, reference string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Document title: %s\n", docTitle)
	fmt.Fprintf(&sb, "Section to draft: %s (section id: %s)\n", section, sectionID)
	fmt.Fprintf(&sb, "Writing instruction: %s\n\n", strings.TrimSpace(instruction))
	fmt.Fprintf(&sb, "Aim for about %d characters in at least %d paragraphs.\n", tgt.TargetChars, tgt.MinParagraphs)
	if tgt.MinTables > 0 {
		fmt.Fprintf(&sb, "Include at least %d table block(s).\n", tgt.MinTables)
	}
	if tgt.MinFigures > 0 {
		fmt.Fprintf(&sb, "Include at least %d figure block(s).\n", tgt.MinFigures)
	}
	if strings.TrimSpace(reference) != "" {
		sb.WriteString("\nOptional reference material follows. Use it for grounding only; do not fabricate data from this:\n")
		sb.WriteString(strings.TrimSpace(reference))
		sb.WriteString("\n")
	}
	return sb.String()
}

func continuationUserPrompt(docTitle, section, sectionID, instruction, current string, neededChars int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Document title: %s\n", docTitle)
	fmt.Fprintf(&sb, "Section being extended: %s (section id: %s)\n", section, sectionID)
	fmt.Fprintf(&sb, "Writing instruction: %s\n\n", strings.TrimSpace(instruction))
	sb.WriteString("The section draft so far:\n---\n")
	sb.WriteString(current)
	sb.WriteString("\n---\n")
	fmt.Fprintf(&sb, "Continue this section with additional, non-repeating blocks. Do not restate existing content and do not reuse existing block ids. Add roughly %d more characters.\n", neededChars)
	return sb.String()
}
