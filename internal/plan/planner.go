package plan

import (
	"strings"
	"unicode/utf8"
)

// DefaultSections is the outline used when the caller supplies no headings
// and the current document has none. Labels are a configuration concern;
// callers may pass their own set to Plan.
var DefaultSections = []string{
	"Summary",
	"Introduction",
	"Method",
	"Results",
	"Conclusion",
	"References",
}

const maxDerivedTitleLen = 40

// Plan derives the document title and the ordered section list.
// Explicit requiredHeadings win verbatim (trimmed, order preserved).
func Plan(currentText, instruction string, requiredHeadings, defaults []string) (string, []string) {
	title := titleFrom(currentText, instruction)

	sections := make([]string, 0, len(requiredHeadings))
	for _, h := range requiredHeadings {
		h = strings.TrimSpace(h)
		if h != "" {
			sections = append(sections, h)
		}
	}
	if len(sections) > 0 {
		return title, sections
	}
	if len(defaults) == 0 {
		defaults = DefaultSections
	}
	return title, append([]string(nil), defaults...)
}

func titleFrom(currentText, instruction string) string {
	// Reuse an existing first-level heading when the document already has one.
	for _, line := range strings.Split(currentText, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			if t := strings.TrimSpace(strings.TrimPrefix(line, "# ")); t != "" {
				return t
			}
		}
	}
	return shortTitle(instruction)
}

// shortTitle takes the first clause of the instruction, cut at sentence
// punctuation and capped at maxDerivedTitleLen runes.
func shortTitle(instruction string) string {
	s := strings.TrimSpace(instruction)
	if s == "" {
		return "Untitled Document"
	}
	if idx := strings.IndexFunc(s, isSentenceBreak); idx > 0 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > maxDerivedTitleLen {
		runes := []rune(s)
		s = string(runes[:maxDerivedTitleLen])
	}
	if s == "" {
		return "Untitled Document"
	}
	return s
}

func isSentenceBreak(r rune) bool {
	switch r {
	case '.', '!', '?', ';', ':', ',', '\n', '。', '！', '？', '；', '：', '，':
		return true
	}
	return false
}
