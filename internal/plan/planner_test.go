package plan

import (
	"strings"
	"testing"
)

func TestPlan_RequiredHeadingsWinVerbatim(t *testing.T) {
	title, sections := Plan("", "Write a quarterly infrastructure report", []string{" Costs ", "", "Risks"}, nil)
	if title == "" {
		t.Fatalf("expected a derived title")
	}
	if len(sections) != 2 || sections[0] != "Costs" || sections[1] != "Risks" {
		t.Fatalf("unexpected sections: %v", sections)
	}
}

func TestPlan_DefaultsWhenNothingRequired(t *testing.T) {
	_, sections := Plan("", "anything", nil, nil)
	if len(sections) != len(DefaultSections) {
		t.Fatalf("expected default outline, got %v", sections)
	}
	for i, s := range DefaultSections {
		if sections[i] != s {
			t.Fatalf("section %d: got %q want %q", i, sections[i], s)
		}
	}
}

func TestPlan_TitleReusesExistingHeading(t *testing.T) {
	doc := "intro text\n# Storage Review 2026\n\n## Summary\n"
	title, _ := Plan(doc, "revise the report", nil, nil)
	if title != "Storage Review 2026" {
		t.Fatalf("got title %q", title)
	}
}

func TestShortTitle_CutsAtPunctuationAndLength(t *testing.T) {
	title, _ := Plan("", "Summarize the migration, then list open risks", nil, nil)
	if title != "Summarize the migration" {
		t.Fatalf("got title %q", title)
	}

	long := strings.Repeat("a", 100)
	title, _ = Plan("", long, nil, nil)
	if got := len([]rune(title)); got != maxDerivedTitleLen {
		t.Fatalf("title length %d, want %d", got, maxDerivedTitleLen)
	}
}

func TestShortTitle_EmptyInstruction(t *testing.T) {
	title, _ := Plan("", "   ", nil, nil)
	if title != "Untitled Document" {
		t.Fatalf("got title %q", title)
	}
}
