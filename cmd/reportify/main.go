package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"reportify/internal/app"
	"reportify/internal/config"
	"reportify/internal/event"
	"reportify/internal/pipeline"
	"reportify/internal/store"
)

func main() {
	instruction := flag.String("instruction", "", "writing instruction for the document")
	inPath := flag.String("in", "", "path to the current document to revise (optional)")
	outPath := flag.String("out", "", "output file; stdout when empty")
	sections := flag.String("sections", "", "comma-separated required section titles (optional)")
	models := flag.String("models", "", "comma-separated candidate models, overrides MODEL_CANDIDATES")
	workers := flag.Int("workers", 0, "requested draft concurrency")
	totalChars := flag.Int("chars", 0, "whole-document character budget")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if strings.TrimSpace(*instruction) == "" {
		log.Fatal("--instruction is required")
	}

	currentText := ""
	if *inPath != "" {
		b, err := os.ReadFile(*inPath)
		if err != nil {
			log.Fatal(err)
		}
		currentText = string(b)
	}

	candidates := cfg.Models.Candidates
	if strings.TrimSpace(*models) != "" {
		candidates = splitList(*models)
	}

	req := pipeline.GenerationRequest{
		Instruction:      *instruction,
		CurrentText:      currentText,
		RequiredSections: splitList(*sections),
		Workers:          *workers,
		CandidateModels:  candidates,
		FallbackModel:    cfg.Models.Fallback,
		MinParagraphs:    cfg.Draft.MinParagraphs,
		TotalChars:       cfg.Draft.TotalChars,
	}
	if *totalChars > 0 {
		req.TotalChars = *totalChars
	}
	if req.Workers <= 0 {
		req.Workers = cfg.Draft.Workers
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	events := make(chan event.Event, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		narrate(events)
	}()

	res, err := a.Generator.Run(ctx, req, &event.ChannelEmitter{Ch: events})
	close(events)
	<-done
	if err != nil {
		log.Fatal(err)
	}

	if err := a.Runs.Save(store.RunDocument{
		RunID:    res.RunID,
		Title:    res.Title,
		Document: res.Document,
		Problems: res.Problems,
	}); err != nil {
		log.Printf("save run failed: %v", err)
	}

	if *outPath == "" {
		fmt.Println(res.Document)
	} else if err := os.WriteFile(*outPath, []byte(res.Document), 0o644); err != nil {
		log.Fatal(err)
	}

	log.Printf("run %s finished with %d problem(s)", res.RunID, len(res.Problems))
	for _, p := range res.Problems {
		log.Printf("problem: %s", p)
	}
}

// narrate prints run progress to the log without echoing section deltas.
func narrate(events <-chan event.Event) {
	for ev := range events {
		switch e := ev.(type) {
		case event.StateEvent:
			log.Printf("[%s] %s", e.Phase, e.Name)
		case event.PlanEvent:
			log.Printf("planned %q with %d sections", e.Title, len(e.Sections))
		case event.SectionEvent:
			switch e.Phase {
			case event.SectionStart:
				log.Printf("drafting %s", e.Section)
			case event.SectionRetry:
				log.Printf("retrying %s", e.Section)
			case event.SectionEnd:
				log.Printf("finished %s", e.Section)
			}
		case event.FinalEvent:
			log.Printf("final document: %d chars, %d problem(s)", len(e.Text), len(e.Problems))
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
