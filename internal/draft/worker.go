package draft

import (
	"context"
	"fmt"
	"log"
	"strings"

	"reportify/internal/blocks"
	"reportify/internal/event"
	"reportify/internal/llmclient"
	"reportify/internal/plan"
	"reportify/internal/retrieve"
)

// Config tunes one section draft worker. Zero value is not usable; start
// from DefaultConfig.
type Config struct {
	// StrictBlocks fails the draft when the stream contained invalid lines
	// and produced no usable block.
	StrictBlocks bool
	// ContinuationRounds bounds the extra drafting rounds for a section
	// that undershoots its target.
	ContinuationRounds int
	// StrictMinimums fails a section that still misses its paragraph or
	// character minimum after every continuation round. Off by default; a
	// short section ships rather than aborting the run.
	StrictMinimums bool
	// EnforceMaxChars enables trailing-paragraph trimming at MaxChars.
	EnforceMaxChars bool
	Temperature     float64
	// RetrieveTopK/RetrieveMaxChars shape the optional background-material
	// lookup per section.
	RetrieveTopK     int
	RetrieveMaxChars int
}

func DefaultConfig() Config {
	return Config{
		ContinuationRounds: 2,
		Temperature:        0.7,
		RetrieveTopK:       4,
		RetrieveMaxChars:   1200,
	}
}

// Worker drafts one section by streaming structured blocks from the
// capability provider. One Draft call is one attempt; the scheduler owns
// the retry policy around it.
type Worker struct {
	LLM       llmclient.Client
	Retriever retrieve.Retriever
	Sink      blocks.Sink
	Config    Config
}

// Input is the immutable per-section drafting task.
type Input struct {
	DocTitle    string
	Section     string
	Instruction string
	Target      plan.SectionTarget
}

// Draft produces the section's final text: initial streamed draft,
// postprocessing, then bounded continuation rounds until the target's
// minimums are met (best-effort floor; a short section after all rounds is
// returned as-is, not failed).
func (w *Worker) Draft(ctx context.Context, in Input) (string, error) {
	if w.LLM == nil {
		return "", fmt.Errorf("draft: llm client is nil")
	}
	isRefs := plan.KindOf(in.Section) == plan.KindReferences

	reference := ""
	if w.Retriever != nil {
		var err error
		reference, err = w.Retriever.Retrieve(ctx, in.Section+" "+in.Instruction, w.Config.RetrieveTopK, w.Config.RetrieveMaxChars)
		if err != nil {
			// Background material is optional; drafting proceeds without it.
			log.Printf("draft: retrieve for %q failed: %v", in.Section, err)
			reference = ""
		}
	}

	parser := blocks.NewStreamParser(in.Section, isRefs, w.Sink)
	user := draftUserPrompt(in.DocTitle, in.Section, parser.SectionID(), in.Instruction, in.Target, reference)
	text, err := w.streamBlocks(ctx, in.Section, parser, user, in.Target.TargetChars)
	if err != nil {
		return "", err
	}
	if parser.Accepted() == 0 {
		if w.Config.StrictBlocks {
			if parser.InvalidLines() > 0 {
				return "", fmt.Errorf("draft: stream for %q produced only invalid lines", in.Section)
			}
			return "", fmt.Errorf("draft: stream for %q produced no blocks", in.Section)
		}
		log.Printf("draft: stream for %q produced no blocks, relying on postprocessing", in.Section)
	}

	text = Postprocess(in.Section, text, in.Target, isRefs, w.Config.EnforceMaxChars)
	text = w.ensureMinimums(ctx, in, isRefs, text)
	if w.Config.StrictMinimums && !meetsTarget(text, in.Target) {
		return "", fmt.Errorf("draft: section %q below minimums (%d/%d chars, %d/%d paragraphs)",
			in.Section, blocks.NonMarkerLen(text), in.Target.MinChars,
			blocks.CountParagraphs(text), in.Target.MinParagraphs)
	}
	return text, nil
}

// streamBlocks runs one streamed provider call, feeding the parser and
// emitting a section delta event per accepted block.
func (w *Worker) streamBlocks(ctx context.Context, section string, parser *blocks.StreamParser, user string, wantChars int) (string, error) {
	emitter := event.EmitterFrom(ctx)
	var sb strings.Builder

	deliver := func(rs []blocks.Rendered) {
		for _, r := range rs {
			emitter.Emit(event.SectionEvent{
				Phase:     event.SectionDelta,
				Section:   section,
				Delta:     r.Text,
				BlockID:   r.TrackID,
				BlockType: string(r.TrackType),
			})
			sb.WriteString(r.Text)
			sb.WriteString("\n\n")
		}
	}

	opts := llmclient.ChatOptions{
		Temperature: w.Config.Temperature,
		MaxTokens:   maxTokensForChars(wantChars),
	}
	err := w.LLM.ChatStream(ctx, blockProtocolSystem, user, opts, func(fragment string) {
		deliver(parser.Feed(ctx, fragment))
	})
	deliver(parser.Flush(ctx))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(sb.String()), nil
}

// ensureMinimums runs bounded continuation rounds, appending new blocks and
// re-postprocessing, then one final topping-off retry before settling for
// whatever was produced.
func (w *Worker) ensureMinimums(ctx context.Context, in Input, isRefs bool, text string) string {
	tgt := in.Target
	rounds := w.Config.ContinuationRounds
	for round := 0; round < rounds; round++ {
		if meetsTarget(text, tgt) {
			return text
		}
		text = w.continueOnce(ctx, in, isRefs, text)
	}
	if !meetsTarget(text, tgt) {
		// Last topping-off attempt; short output here is accepted as final.
		text = w.continueOnce(ctx, in, isRefs, text)
		if !meetsTarget(text, tgt) {
			log.Printf("draft: section %q finished under target (%d/%d chars)", in.Section, blocks.NonMarkerLen(text), tgt.MinChars)
		}
	}
	return text
}

func (w *Worker) continueOnce(ctx context.Context, in Input, isRefs bool, current string) string {
	needed := in.Target.MinChars - blocks.NonMarkerLen(current)
	if needed < 220 {
		needed = 220
	}
	parser := blocks.NewStreamParser(in.Section, isRefs, w.Sink)
	user := continuationUserPrompt(in.DocTitle, in.Section, parser.SectionID(), in.Instruction, current, needed)
	add, err := w.streamBlocks(ctx, in.Section, parser, user, needed)
	if err != nil {
		log.Printf("draft: continuation for %q failed: %v", in.Section, err)
		return current
	}
	combined := current
	if add != "" {
		// New blocks are appended, never replacing existing content.
		combined = current + "\n\n" + add
	}
	return Postprocess(in.Section, combined, in.Target, isRefs, w.Config.EnforceMaxChars)
}

func meetsTarget(text string, tgt plan.SectionTarget) bool {
	if blocks.CountParagraphs(text) < tgt.MinParagraphs {
		return false
	}
	return tgt.MinChars <= 0 || blocks.NonMarkerLen(text) >= tgt.MinChars
}

// maxTokensForChars converts a character deficit into a token-budget hint.
func maxTokensForChars(chars int) int {
	if chars <= 0 {
		return 0
	}
	tokens := chars
	if tokens < 256 {
		tokens = 256
	}
	return tokens
}
