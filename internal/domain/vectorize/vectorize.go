// Package vectorize turns code text into n-gram count vectors over a fitted vocabulary.
package vectorize

import (
	"errors"
	"regexp"
	"sort"
	"strings"
)

// ErrEmptyVocabulary is returned when fitting produces no tokens.
var ErrEmptyVocabulary = errors.New("empty vocabulary")

// tokenPattern matches a run of word characters, any single non-space
// character, or a four-space indent.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]+|[^\s]|[ ]{4}`)

// Vectorizer counts n-grams of code tokens. It is safe for concurrent use
// once fitted.
type Vectorizer struct {
	ngramMin int
	ngramMax int
	vocab    []string
	index    map[string]int
}

// New creates an unfitted vectorizer.
func New(opts ...Option) *Vectorizer {
	v := &Vectorizer{ngramMin: 1, ngramMax: 3}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// FromVocabulary restores a fitted vectorizer from persisted tokens.
// The tokens are expected in the order Vocabulary returned them.
func FromVocabulary(tokens []string, opts ...Option) *Vectorizer {
	v := New(opts...)
	v.setVocabulary(append([]string(nil), tokens...))
	return v
}

// Fit builds a sorted vocabulary from every n-gram found in texts.
func (v *Vectorizer) Fit(texts []string) error {
	seen := make(map[string]struct{})
	for _, text := range texts {
		for _, g := range v.ngrams(text) {
			seen[g] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return ErrEmptyVocabulary
	}
	vocab := make([]string, 0, len(seen))
	for g := range seen {
		vocab = append(vocab, g)
	}
	sort.Strings(vocab)
	v.setVocabulary(vocab)
	return nil
}

// Transform returns the dense count vector of text. N-grams outside the
// vocabulary are ignored.
func (v *Vectorizer) Transform(text string) []float64 {
	out := make([]float64, len(v.vocab))
	for _, g := range v.ngrams(text) {
		if i, ok := v.index[g]; ok {
			out[i]++
		}
	}
	return out
}

// TransformAll vectorizes each text.
func (v *Vectorizer) TransformAll(texts []string) [][]float64 {
	rows := make([][]float64, len(texts))
	for i, t := range texts {
		rows[i] = v.Transform(t)
	}
	return rows
}

// Vocabulary returns the ordered tokens. The slice must not be modified.
func (v *Vectorizer) Vocabulary() []string { return v.vocab }

// Size is the vocabulary length.
func (v *Vectorizer) Size() int { return len(v.vocab) }

func (v *Vectorizer) setVocabulary(tokens []string) {
	v.vocab = tokens
	v.index = make(map[string]int, len(tokens))
	for i, t := range tokens {
		v.index[t] = i
	}
}

// Tokenize splits text with the code token pattern.
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(text, -1)
}

func (v *Vectorizer) ngrams(text string) []string {
	tokens := Tokenize(text)
	var out []string
	for n := v.ngramMin; n <= v.ngramMax; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			if n == 1 {
				out = append(out, tokens[i])
				continue
			}
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}
