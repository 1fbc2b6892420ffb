package draft

import (
	"fmt"
	"regexp"
	"strings"

	"reportify/internal/blocks"
	"reportify/internal/plan"
)

// sentenceChunkLen is the approximate paragraph size used when a long draft
// arrives with no paragraph breaks at all.
const sentenceChunkLen = 180

var (
	refLineRe  = regexp.MustCompile(`^(\[\d+\]|references\b|bibliography\b|参考文献)`)
	headingRe  = regexp.MustCompile(`^#{1,6}\s`)
	fillerRe   = regexp.MustCompile(`^Note \d+: further material for`)
	bulletLine = regexp.MustCompile(`^[-*]\s`)
)

// Postprocess normalizes one drafted section against its target:
// reference and heading stripping, paragraph re-splitting, filler up to the
// paragraph minimum, optional hard-max trimming and marker top-up.
// Idempotent for fixed targets: Postprocess(Postprocess(x)) == Postprocess(x).
func Postprocess(section, text string, tgt plan.SectionTarget, isReferences, enforceMax bool) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		t := strings.TrimSpace(line)
		lower := strings.ToLower(t)
		if !isReferences && refLineRe.MatchString(lower) {
			continue
		}
		// Models sometimes echo the section heading; blocks carry no headings.
		if headingRe.MatchString(t) {
			continue
		}
		kept = append(kept, line)
	}

	pars := splitParagraphs(strings.Join(kept, "\n"))

	// Generic filler paragraphs, one per still-missing paragraph, only while
	// the section is also short on characters. Filler never states facts.
	nonMarker := blocks.NonMarkerLen(strings.Join(pars, "\n\n"))
	existingFillers := countFillers(pars)
	proseCount := countProseParagraphs(pars)
	if proseCount < tgt.MinParagraphs && nonMarker < tgt.MinChars {
		for i := proseCount; i < tgt.MinParagraphs; i++ {
			existingFillers++
			pars = append(pars, fillerParagraph(section, existingFillers))
		}
	}

	// Up to 3 additional fillers when the character minimum is still unmet.
	const maxCharFillers = 3
	for countFillers(pars) < maxCharFillers {
		joined := strings.Join(pars, "\n\n")
		if tgt.MinChars <= 0 || blocks.NonMarkerLen(joined) >= tgt.MinChars {
			break
		}
		filler := fillerParagraph(section, countFillers(pars)+1)
		if enforceMax && tgt.MaxChars > 0 && blocks.NonMarkerLen(joined)+len([]rune(filler)) > tgt.MaxChars {
			break
		}
		pars = append(pars, filler)
	}

	// Trailing-paragraph trim, never mid-paragraph and never below the
	// paragraph minimum (which would just re-trigger filler next pass).
	if enforceMax && tgt.MaxChars > 0 {
		for len(pars) > 1 &&
			countProseParagraphs(pars) > tgt.MinParagraphs &&
			blocks.NonMarkerLen(strings.Join(pars, "\n\n")) > tgt.MaxChars {
			pars = pars[:len(pars)-1]
		}
	}

	out := strings.Join(pars, "\n\n")

	tables, figures := blocks.CountMarkers(out)
	for i := tables; i < tgt.MinTables; i++ {
		out += "\n\n" + blocks.PlaceholderTable(section)
	}
	for i := figures; i < tgt.MinFigures; i++ {
		out += "\n\n" + blocks.PlaceholderFigure(section)
	}

	return strings.TrimSpace(out)
}

// splitParagraphs re-splits section text into paragraphs: blank-line
// delimited first, bullet-aware when that yields a single block, and
// sentence-boundary chunking only when the text is long with no breaks.
func splitParagraphs(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var pars []string
	for _, p := range regexp.MustCompile(`\n\s*\n`).Split(text, -1) {
		p = strings.TrimSpace(p)
		if p != "" {
			pars = append(pars, p)
		}
	}
	if len(pars) != 1 {
		return pars
	}

	if bullets := splitBulletAware(pars[0]); len(bullets) > 1 {
		return bullets
	}

	if blocks.NonMarkerLen(pars[0]) > 2*sentenceChunkLen && !strings.Contains(pars[0], "\n") {
		return chunkSentences(pars[0])
	}
	return pars
}

// splitBulletAware separates a bullet run from surrounding prose so that a
// list and its framing text count as distinct paragraphs.
func splitBulletAware(text string) []string {
	lines := strings.Split(text, "\n")
	var pars []string
	var cur []string
	curBullet := false
	flush := func() {
		if len(cur) > 0 {
			pars = append(pars, strings.TrimSpace(strings.Join(cur, "\n")))
			cur = nil
		}
	}
	for _, line := range lines {
		isBullet := bulletLine.MatchString(strings.TrimSpace(line))
		if len(cur) > 0 && isBullet != curBullet {
			flush()
		}
		curBullet = isBullet
		cur = append(cur, line)
	}
	flush()
	return pars
}

func chunkSentences(text string) []string {
	var pars []string
	var cur strings.Builder
	for _, r := range text {
		cur.WriteRune(r)
		if isSentenceEnd(r) && len([]rune(cur.String())) >= sentenceChunkLen {
			pars = append(pars, strings.TrimSpace(cur.String()))
			cur.Reset()
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		pars = append(pars, s)
	}
	return pars
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}

func fillerParagraph(section string, n int) string {
	return fmt.Sprintf("Note %d: further material for the %s section is pending; this paragraph marks content to be expanded and introduces no new facts.", n, section)
}

// countProseParagraphs ignores paragraphs that are marker-only.
func countProseParagraphs(pars []string) int {
	n := 0
	for _, p := range pars {
		if strings.TrimSpace(blocks.StripMarkers(p)) != "" {
			n++
		}
	}
	return n
}

func countFillers(pars []string) int {
	n := 0
	for _, p := range pars {
		if fillerRe.MatchString(p) {
			n++
		}
	}
	return n
}
