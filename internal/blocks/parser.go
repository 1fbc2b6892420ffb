package blocks

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Sink optionally persists each parsed block. When present, the returned
// stored id replaces the block's own id for de-duplication and reporting.
type Sink interface {
	Persist(ctx context.Context, b Block) (string, error)
}

// Rendered is one accepted block together with its text form. TrackID and
// TrackType are set only for table/figure blocks; prose blocks are reported
// as free-flowing text.
type Rendered struct {
	Block     Block
	Text      string
	TrackID   string
	TrackType Type
}

const seenCacheSize = 512

// StreamParser consumes capability-provider output fragment by fragment and
// produces structured blocks. The provider is asked for newline-delimited
// self-contained JSON records; the parser buffers until a newline, parses
// the line, filters and de-duplicates, and renders accepted blocks.
type StreamParser struct {
	sectionID  string
	isRefs     bool
	sink       Sink
	seen       *lru.Cache[string, struct{}]
	buf        strings.Builder
	invalid    int
	accepted   int
	anonymousN int
}

// NewStreamParser builds a parser for one section draft. isReferences gates
// reference-typed blocks, which every other section rejects.
func NewStreamParser(sectionTitle string, isReferences bool, sink Sink) *StreamParser {
	seen, _ := lru.New[string, struct{}](seenCacheSize)
	return &StreamParser{
		sectionID: SectionIDFor(sectionTitle),
		isRefs:    isReferences,
		sink:      sink,
		seen:      seen,
	}
}

// SectionID exposes the token incoming blocks must carry (or omit).
func (p *StreamParser) SectionID() string { return p.sectionID }

// InvalidLines is the count of non-empty lines that failed to parse.
func (p *StreamParser) InvalidLines() int { return p.invalid }

// Accepted is the count of blocks that survived filtering and de-dup.
func (p *StreamParser) Accepted() int { return p.accepted }

// Feed appends a stream fragment and returns the blocks completed by it.
func (p *StreamParser) Feed(ctx context.Context, fragment string) []Rendered {
	p.buf.WriteString(fragment)
	raw := p.buf.String()
	idx := strings.LastIndexByte(raw, '\n')
	if idx < 0 {
		return nil
	}
	complete := raw[:idx]
	p.buf.Reset()
	p.buf.WriteString(raw[idx+1:])

	var out []Rendered
	for _, line := range strings.Split(complete, "\n") {
		out = append(out, p.parseLine(ctx, line)...)
	}
	return out
}

// Flush parses any leftover buffered content after the stream ends.
func (p *StreamParser) Flush(ctx context.Context) []Rendered {
	rest := p.buf.String()
	p.buf.Reset()
	if strings.TrimSpace(rest) == "" {
		return nil
	}
	return p.parseLine(ctx, rest)
}

// payload is the wire shape of one NDJSON line: either a single block or an
// object wrapping a blocks array.
type payload struct {
	Block
	Blocks []Block `json:"blocks,omitempty"`
}

func (p *StreamParser) parseLine(ctx context.Context, line string) []Rendered {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	// Models occasionally fence the protocol; tolerate bare fences.
	if strings.HasPrefix(line, "```") {
		return nil
	}

	var pl payload
	if err := json.Unmarshal([]byte(line), &pl); err != nil {
		p.invalid++
		return nil
	}

	list := pl.Blocks
	if len(list) == 0 {
		list = []Block{pl.Block}
	}

	var out []Rendered
	for _, b := range list {
		if r, ok := p.admit(ctx, b); ok {
			out = append(out, r)
		}
	}
	return out
}

func (p *StreamParser) admit(ctx context.Context, b Block) (Rendered, bool) {
	switch b.Type {
	case TypeParagraph, TypeList, TypeTable, TypeFigure, TypeReference:
	default:
		return Rendered{}, false
	}
	// Reject blocks addressed to a different section.
	if sid := strings.TrimSpace(b.SectionID); sid != "" && sid != p.sectionID {
		return Rendered{}, false
	}
	if b.Type == TypeReference && !p.isRefs {
		return Rendered{}, false
	}

	if strings.TrimSpace(b.ID) == "" {
		p.anonymousN++
		b.ID = p.sectionID + "-anon-" + strconv.Itoa(p.anonymousN)
	}

	if p.sink != nil {
		storedID, err := p.sink.Persist(ctx, b)
		if err != nil {
			// Persistence is best-effort; the draft must not fail on it.
			log.Printf("blocks: persist %s failed: %v", b.ID, err)
		} else if strings.TrimSpace(storedID) != "" {
			b.ID = storedID
		}
	}

	// First occurrence wins.
	if _, dup := p.seen.Get(b.ID); dup {
		return Rendered{}, false
	}
	p.seen.Add(b.ID, struct{}{})

	text := b.Render()
	if strings.TrimSpace(text) == "" {
		return Rendered{}, false
	}
	p.accepted++

	r := Rendered{Block: b, Text: text}
	if b.Type == TypeTable || b.Type == TypeFigure {
		r.TrackID = b.ID
		r.TrackType = b.Type
	}
	return r, true
}
