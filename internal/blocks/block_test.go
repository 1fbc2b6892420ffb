package blocks

import (
	"strings"
	"testing"
)

func TestRender_ParagraphAndList(t *testing.T) {
	p := Block{Type: TypeParagraph, Text: "  hello world  "}
	if got := p.Render(); got != "hello world" {
		t.Fatalf("paragraph render: %q", got)
	}

	l := Block{Type: TypeList, Items: []string{"one", " ", "two"}}
	if got := l.Render(); got != "- one\n- two" {
		t.Fatalf("list render: %q", got)
	}
}

func TestRender_TableAndFigureAreSingleLineMarkers(t *testing.T) {
	tb := Block{Type: TypeTable, Caption: "latency", Columns: []string{"p50", "p99"}, Rows: [][]string{{"10ms", "80ms"}}}
	out := tb.Render()
	if !strings.HasPrefix(out, "[[TABLE:") || !strings.HasSuffix(out, "]]") {
		t.Fatalf("table marker shape: %q", out)
	}
	if strings.Contains(out, "\n") {
		t.Fatalf("table marker must be single-line: %q", out)
	}

	fg := Block{Type: TypeFigure, Caption: "arch"}
	out = fg.Render()
	if !strings.HasPrefix(out, "[[FIGURE:") {
		t.Fatalf("figure marker shape: %q", out)
	}
}

func TestStripMarkersAndNonMarkerLen(t *testing.T) {
	text := "abc " + PlaceholderTable("Results") + " def"
	stripped := StripMarkers(text)
	if strings.Contains(stripped, "[[TABLE") {
		t.Fatalf("marker survived strip: %q", stripped)
	}
	if got := NonMarkerLen(text); got != len("abc  def") {
		t.Fatalf("NonMarkerLen = %d", got)
	}
}

func TestCountParagraphs_IgnoresMarkerOnlyParagraphs(t *testing.T) {
	text := "first paragraph\n\n" + PlaceholderFigure("Method") + "\n\nsecond paragraph"
	if got := CountParagraphs(text); got != 2 {
		t.Fatalf("CountParagraphs = %d, want 2", got)
	}
}

func TestCountMarkers(t *testing.T) {
	text := PlaceholderTable("A") + "\n\n" + PlaceholderFigure("A") + "\n\n" + PlaceholderFigure("B")
	tables, figures := CountMarkers(text)
	if tables != 1 || figures != 2 {
		t.Fatalf("got %d tables, %d figures", tables, figures)
	}
}

func TestSectionIDFor(t *testing.T) {
	cases := map[string]string{
		"Results":             "results",
		"Future Work / Plans": "future-work-plans",
		"  Summary  ":         "summary",
		"!!!":                 "section",
	}
	for in, want := range cases {
		if got := SectionIDFor(in); got != want {
			t.Fatalf("SectionIDFor(%q) = %q, want %q", in, got, want)
		}
	}
}
