package plan

import "testing"

func TestKindOf(t *testing.T) {
	cases := []struct {
		title string
		want  Kind
	}{
		{"Summary", KindSummary},
		{"Executive Overview", KindSummary},
		{"Introduction", KindIntroduction},
		{"System Design", KindMethod},
		{"Experimental Results", KindResults},
		{"Conclusion and Future Work", KindConclusion},
		{"References", KindReferences},
		{"Appendix A", KindAppendix},
		{"摘要", KindSummary},
		{"结论", KindConclusion},
		{"Something Else", KindOther},
	}
	for _, c := range cases {
		if got := KindOf(c.title); got != c.want {
			t.Fatalf("KindOf(%q) = %v, want %v", c.title, got, c.want)
		}
	}
}

func TestTargets_WeightedAllocation(t *testing.T) {
	sections := []string{"Summary", "Results", "References"}
	targets := Targets(sections, 3, 6000, nil)

	if len(targets) != 3 {
		t.Fatalf("expected 3 targets, got %d", len(targets))
	}
	if targets["Results"].MinChars <= targets["Summary"].MinChars {
		t.Fatalf("results share (%d) should exceed summary share (%d)",
			targets["Results"].MinChars, targets["Summary"].MinChars)
	}
	if targets["References"].MinChars < charFloorReferences {
		t.Fatalf("references below floor: %d", targets["References"].MinChars)
	}
	for s, tgt := range targets {
		if tgt.MaxChars != tgt.MinChars*2 {
			t.Fatalf("section %s: max %d is not twice min %d", s, tgt.MaxChars, tgt.MinChars)
		}
	}
}

func TestTargets_StructuralMinimums(t *testing.T) {
	targets := Targets([]string{"Method", "Results", "Summary"}, 3, 6000, nil)
	if got := targets["Results"]; got.MinTables != 1 || got.MinFigures != 1 {
		t.Fatalf("results minimums: %+v", got)
	}
	if got := targets["Method"]; got.MinFigures != 1 {
		t.Fatalf("method should require a figure: %+v", got)
	}
	if got := targets["Summary"]; got.MinTables != 0 || got.MinFigures != 0 {
		t.Fatalf("summary should require no structure: %+v", got)
	}
}

func TestTargets_ExplicitWeightOverrideAndClamp(t *testing.T) {
	weights := map[string]float64{"Summary": 10.0, "Notes": 0.01}
	targets := Targets([]string{"Summary", "Notes"}, 3, 6000, weights)
	if got := targets["Summary"].Weight; got != weightMax {
		t.Fatalf("summary weight %v, want clamp to %v", got, weightMax)
	}
	if got := targets["Notes"].Weight; got != weightMin {
		t.Fatalf("notes weight %v, want clamp to %v", got, weightMin)
	}
}

func TestTargets_ParagraphMinimumScalesAndClamps(t *testing.T) {
	targets := Targets([]string{"Results", "References"}, 3, 6000, nil)
	// round(3 * 1.45) = 4
	if got := targets["Results"].MinParagraphs; got != 4 {
		t.Fatalf("results min paragraphs %d, want 4", got)
	}
	// round(3 * 0.6) = 2, already at the floor
	if got := targets["References"].MinParagraphs; got != 2 {
		t.Fatalf("references min paragraphs %d, want 2", got)
	}

	big := Targets([]string{"Results"}, 12, 6000, nil)
	if got := big["Results"].MinParagraphs; got != minParagraphCap {
		t.Fatalf("min paragraphs %d, want cap %d", got, minParagraphCap)
	}
}

func TestTargets_ThreeSectionScenario(t *testing.T) {
	targets := Targets([]string{"Introduction", "Method", "References"}, 3, 3000, nil)
	intro := targets["Introduction"]
	refs := targets["References"]
	if intro.MinChars <= refs.MinChars {
		t.Fatalf("introduction share (%d) must exceed references share (%d)", intro.MinChars, refs.MinChars)
	}
	if refs.MinTables != 0 {
		t.Fatalf("references must not require tables: %+v", refs)
	}
}

func TestTargets_ZeroInputsUseDefaults(t *testing.T) {
	targets := Targets([]string{"Introduction"}, 0, 0, nil)
	tgt := targets["Introduction"]
	if tgt.MinParagraphs < 2 || tgt.MinChars <= 0 {
		t.Fatalf("defaulted target looks wrong: %+v", tgt)
	}
}
