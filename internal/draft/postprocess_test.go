package draft

import (
	"strings"
	"testing"

	"reportify/internal/blocks"
	"reportify/internal/plan"
)

func basicTarget() plan.SectionTarget {
	return plan.SectionTarget{
		Weight:        1.0,
		MinParagraphs: 3,
		MinChars:      100,
		TargetChars:   100,
		MaxChars:      2000,
	}
}

func TestPostprocess_FillsToParagraphMinimum(t *testing.T) {
	tgt := basicTarget()
	out := Postprocess("Summary", "only one short paragraph", tgt, false, false)
	if got := blocks.CountParagraphs(out); got < tgt.MinParagraphs {
		t.Fatalf("paragraphs = %d, want >= %d", got, tgt.MinParagraphs)
	}
	if !strings.Contains(out, "Note 1:") {
		t.Fatalf("expected filler paragraphs:\n%s", out)
	}
}

func TestPostprocess_Idempotent(t *testing.T) {
	tgt := basicTarget()
	tgt.MinTables = 1
	once := Postprocess("Results", "short draft", tgt, false, true)
	twice := Postprocess("Results", once, tgt, false, true)
	if once != twice {
		t.Fatalf("not idempotent:\n--- once ---\n%s\n--- twice ---\n%s", once, twice)
	}
}

func TestPostprocess_StripsHeadingsAndStrayReferences(t *testing.T) {
	in := "## Summary\nreal content here\n[1] A. Author, Some Paper\nmore content"
	out := Postprocess("Summary", in, basicTarget(), false, false)
	if strings.Contains(out, "## Summary") {
		t.Fatalf("heading survived: %s", out)
	}
	if strings.Contains(out, "[1] A. Author") {
		t.Fatalf("stray reference survived: %s", out)
	}
}

func TestPostprocess_KeepsReferenceLinesInReferencesSection(t *testing.T) {
	tgt := plan.SectionTarget{MinParagraphs: 1, MinChars: 10, MaxChars: 2000}
	in := "[1] A. Author, Some Paper\n\n[2] B. Author, Another Paper"
	out := Postprocess("References", in, tgt, true, false)
	if !strings.Contains(out, "[1] A. Author") || !strings.Contains(out, "[2] B. Author") {
		t.Fatalf("reference lines dropped:\n%s", out)
	}
}

func TestPostprocess_TopsUpMissingMarkers(t *testing.T) {
	tgt := basicTarget()
	tgt.MinTables = 1
	tgt.MinFigures = 1
	out := Postprocess("Results", "enough prose to stand alone", tgt, false, false)
	tables, figures := blocks.CountMarkers(out)
	if tables < 1 || figures < 1 {
		t.Fatalf("markers not topped up: %d tables, %d figures\n%s", tables, figures, out)
	}
}

func TestPostprocess_MarkerTopUpKeepsExisting(t *testing.T) {
	tgt := basicTarget()
	tgt.MinTables = 1
	in := "prose\n\n" + blocks.PlaceholderTable("Results")
	out := Postprocess("Results", in, tgt, false, false)
	tables, _ := blocks.CountMarkers(out)
	if tables != 1 {
		t.Fatalf("expected exactly 1 table marker, got %d", tables)
	}
}

func TestPostprocess_HardMaxTrimsTrailingParagraphs(t *testing.T) {
	tgt := plan.SectionTarget{MinParagraphs: 2, MinChars: 50, MaxChars: 260}
	long := strings.Repeat("alpha beta gamma. ", 10)
	in := strings.Join([]string{long, long, long, long}, "\n\n")
	out := Postprocess("Summary", in, tgt, false, true)
	if got := blocks.NonMarkerLen(out); got > len([]rune(in)) {
		t.Fatalf("output grew: %d", got)
	}
	if got := blocks.CountParagraphs(out); got < tgt.MinParagraphs {
		t.Fatalf("trim fell below paragraph minimum: %d", got)
	}
	if blocks.CountParagraphs(out) >= 4 {
		t.Fatalf("nothing was trimmed:\n%s", out)
	}
}

func TestPostprocess_NoTrimWithoutEnforceMax(t *testing.T) {
	tgt := plan.SectionTarget{MinParagraphs: 2, MinChars: 50, MaxChars: 100}
	long := strings.Repeat("word ", 60)
	in := long + "\n\n" + long + "\n\n" + long
	out := Postprocess("Summary", in, tgt, false, false)
	if got := blocks.CountParagraphs(out); got != 3 {
		t.Fatalf("paragraphs = %d, want 3 untouched", got)
	}
}

func TestSplitParagraphs_BulletAware(t *testing.T) {
	in := "lead-in text\n- item one\n- item two\nclosing text"
	pars := splitParagraphs(in)
	if len(pars) != 3 {
		t.Fatalf("expected 3 paragraphs, got %d: %v", len(pars), pars)
	}
	if !strings.HasPrefix(pars[1], "- item one") {
		t.Fatalf("bullet run not isolated: %q", pars[1])
	}
}

func TestSplitParagraphs_ChunksLongSingleLine(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 12; i++ {
		sb.WriteString(strings.Repeat("x", 60))
		sb.WriteString(". ")
	}
	pars := splitParagraphs(sb.String())
	if len(pars) < 2 {
		t.Fatalf("long single line should chunk, got %d paragraphs", len(pars))
	}
}
