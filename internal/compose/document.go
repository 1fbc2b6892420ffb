package compose

import (
	"strings"
)

// MergeDocument assembles the per-section drafts into one markdown document:
// a single first-level title followed by one second-level heading per
// section in plan order.
func MergeDocument(title string, sections []string, texts map[string]string) string {
	var sb strings.Builder
	sb.WriteString("# ")
	sb.WriteString(strings.TrimSpace(title))
	sb.WriteString("\n\n")
	for _, s := range sections {
		sb.WriteString("## ")
		sb.WriteString(s)
		sb.WriteString("\n\n")
		if t := strings.TrimSpace(texts[s]); t != "" {
			sb.WriteString(t)
			sb.WriteString("\n\n")
		}
	}
	return strings.TrimSpace(sb.String()) + "\n"
}

// SplitSections re-parses a document into its second-level sections.
// Content before the first section heading (the title block) is dropped.
func SplitSections(doc string) map[string]string {
	out := map[string]string{}
	var current string
	var buf []string
	flush := func() {
		if current != "" {
			out[current] = strings.TrimSpace(strings.Join(buf, "\n"))
		}
		buf = nil
	}
	for _, line := range strings.Split(doc, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "## ") {
			flush()
			current = strings.TrimSpace(strings.TrimPrefix(trimmed, "## "))
			continue
		}
		buf = append(buf, line)
	}
	flush()
	return out
}
