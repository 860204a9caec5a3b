// Package subgoal maps highlighted spans of a reference solution onto
// vocabulary features.
package subgoal

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Highlight marks text on one line of the reference code as belonging to a subgoal.
// Line and ColumnStart are zero based; columns count characters, not bytes.
type Highlight struct {
	Subgoal     int    `json:"subgoal" koanf:"subgoal"`
	Line        int    `json:"line" koanf:"line"`
	ColumnStart int    `json:"column_start" koanf:"column_start"`
	Text        string `json:"text" koanf:"text"`
}

// Definition is the reference code of a problem with its subgoal highlights.
type Definition struct {
	CodeLines  []string    `json:"code_lines" koanf:"code_lines"`
	Highlights []Highlight `json:"highlights" koanf:"highlights"`
}

// Span is a half-open character interval [Start, End) of the reference code.
type Span struct {
	Subgoal int
	Start   int
	End     int
}

// Code joins the reference lines with newlines.
func (d Definition) Code() string {
	return strings.Join(d.CodeLines, "\n")
}

// IDs returns the distinct subgoal ids that have at least one highlight.
func (d Definition) IDs() []int {
	seen := make(map[int]struct{})
	for _, h := range d.Highlights {
		seen[h.Subgoal] = struct{}{}
	}
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Spans converts the highlights of one subgoal to absolute offsets.
// Highlights on lines past the end of the code are measured against the
// full code length.
func (d Definition) Spans(id int) []Span {
	var spans []Span
	for _, h := range d.Highlights {
		if h.Subgoal != id {
			continue
		}
		start := h.ColumnStart
		for i := 0; i < h.Line && i < len(d.CodeLines); i++ {
			start += utf8.RuneCountInString(d.CodeLines[i]) + 1
		}
		spans = append(spans, Span{Subgoal: id, Start: start, End: start + utf8.RuneCountInString(h.Text)})
	}
	return spans
}

// Relevant reports, for each token, whether any literal occurrence of the
// token in the reference code overlaps one of the subgoal's spans.
func Relevant(d Definition, tokens []string, id int) []bool {
	code := d.Code()
	spans := d.Spans(id)
	out := make([]bool, len(tokens))
	if len(spans) == 0 {
		return out
	}
	for i, tok := range tokens {
		out[i] = overlapsAny(code, tok, spans)
	}
	return out
}

// Masks computes Relevant for every subgoal id in d.
func Masks(d Definition, tokens []string) map[int][]bool {
	ids := d.IDs()
	if len(ids) == 0 {
		return nil
	}
	masks := make(map[int][]bool, len(ids))
	for _, id := range ids {
		masks[id] = Relevant(d, tokens, id)
	}
	return masks
}

func overlapsAny(code, tok string, spans []Span) bool {
	if tok == "" {
		return false
	}
	tokLen := utf8.RuneCountInString(tok)
	for _, start := range occurrences(code, tok) {
		end := start + tokLen
		for _, s := range spans {
			if !(start >= s.End || end <= s.Start) {
				return true
			}
		}
	}
	return false
}

// occurrences returns the character offsets of every match of sub in s,
// overlapping matches included.
func occurrences(s, sub string) []int {
	var out []int
	byteOff, runeOff := 0, 0
	for {
		i := strings.Index(s[byteOff:], sub)
		if i < 0 {
			return out
		}
		runeOff += utf8.RuneCountInString(s[byteOff : byteOff+i])
		byteOff += i
		out = append(out, runeOff)

		// advance one character to allow overlap
		_, size := utf8.DecodeRuneInString(s[byteOff:])
		byteOff += size
		runeOff++
	}
}
