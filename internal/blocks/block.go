package blocks

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Type discriminates the structured-block union.
type Type string

const (
	TypeParagraph Type = "paragraph"
	TypeList      Type = "list"
	TypeTable     Type = "table"
	TypeFigure    Type = "figure"
	TypeReference Type = "reference"
)

// Block is one self-describing unit of drafted content, produced
// incrementally by the capability provider.
type Block struct {
	ID        string          `json:"id"`
	SectionID string          `json:"section,omitempty"`
	Type      Type            `json:"type"`
	Text      string          `json:"text,omitempty"`
	Items     []string        `json:"items,omitempty"`
	Caption   string          `json:"caption,omitempty"`
	Columns   []string        `json:"columns,omitempty"`
	Rows      [][]string      `json:"rows,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type tableMarkerPayload struct {
	Caption string     `json:"caption,omitempty"`
	Columns []string   `json:"columns,omitempty"`
	Rows    [][]string `json:"rows,omitempty"`
}

type figureMarkerPayload struct {
	Caption string          `json:"caption,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Render converts a block to its text form. Table and figure blocks become
// single-line markers carrying only their payload so downstream length
// accounting can strip them.
func (b Block) Render() string {
	switch b.Type {
	case TypeParagraph:
		return strings.TrimSpace(b.Text)
	case TypeList:
		var sb strings.Builder
		for _, it := range b.Items {
			it = strings.TrimSpace(it)
			if it == "" {
				continue
			}
			sb.WriteString("- ")
			sb.WriteString(it)
			sb.WriteString("\n")
		}
		return strings.TrimRight(sb.String(), "\n")
	case TypeTable:
		payload, _ := json.Marshal(tableMarkerPayload{Caption: b.Caption, Columns: b.Columns, Rows: b.Rows})
		return fmt.Sprintf("[[TABLE:%s]]", payload)
	case TypeFigure:
		payload, _ := json.Marshal(figureMarkerPayload{Caption: b.Caption, Data: b.Data})
		return fmt.Sprintf("[[FIGURE:%s]]", payload)
	case TypeReference:
		if t := strings.TrimSpace(b.Text); t != "" {
			return t
		}
		return strings.TrimSpace(strings.Join(b.Items, "\n"))
	}
	return ""
}

var markerRe = regexp.MustCompile(`\[\[(TABLE|FIGURE):[^\n]*?\]\]`)

// StripMarkers removes table/figure markers from text.
func StripMarkers(text string) string {
	return markerRe.ReplaceAllString(text, "")
}

// NonMarkerLen is the rune count of text with markers stripped. All
// character budgets in the pipeline use this length.
func NonMarkerLen(text string) int {
	return utf8.RuneCountInString(StripMarkers(text))
}

// CountParagraphs counts blank-line-delimited paragraphs, ignoring
// paragraphs that consist only of table/figure markers. Postprocessed
// section text is normalized to blank-line separators, so this is the
// paragraph count the continuation loop and the validator share.
func CountParagraphs(text string) int {
	n := 0
	for _, p := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(StripMarkers(p)) != "" {
			n++
		}
	}
	return n
}

// CountMarkers returns the number of table and figure markers in text.
func CountMarkers(text string) (tables, figures int) {
	for _, m := range markerRe.FindAllStringSubmatch(text, -1) {
		if m[1] == "TABLE" {
			tables++
		} else {
			figures++
		}
	}
	return
}

// PlaceholderTable renders a generic table marker used when a section is
// missing its required table.
func PlaceholderTable(section string) string {
	return Block{
		Type:    TypeTable,
		Caption: section + " overview",
		Columns: []string{"Item", "Description"},
		Rows:    [][]string{{"TBD", "to be completed"}},
	}.Render()
}

// PlaceholderFigure renders a generic figure marker.
func PlaceholderFigure(section string) string {
	data, _ := json.Marshal(map[string]string{"kind": "diagram", "subject": section})
	return Block{Type: TypeFigure, Caption: section + " diagram", Data: data}.Render()
}

// SectionIDFor derives the stable section token used to match incoming
// blocks against the section being drafted.
func SectionIDFor(title string) string {
	var sb strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				sb.WriteRune('-')
				lastDash = true
			}
		}
	}
	id := strings.Trim(sb.String(), "-")
	if id == "" {
		return "section"
	}
	return id
}
