// Package progress estimates how close a code sample is to a correct solution.
//
// A Model is fitted from the feature vectors of correct submissions. Each
// feature that is common among solutions and more frequent than in the
// starter code is "useful"; a sample's completion is the mean, over useful
// features, of how much of the average solution's count it already has.
// Completion is then rescaled so that a low percentile of the training
// solutions maps to 1.
package progress

import (
	"fmt"
	"math"
	"sort"
)

// Model is a fitted progress estimator. A Model is immutable after Fit and
// safe for concurrent scoring.
type Model struct {
	// Vocabulary is the feature order the vectors were built with.
	Vocabulary []string `json:"vocabulary"`

	Baseline []float64 `json:"baseline"`
	// Mean holds the per-feature solution mean minus Baseline.
	Mean   []float64 `json:"mean"`
	Useful []bool    `json:"useful"`

	MinScore float64 `json:"min_score"`
	MaxScore float64 `json:"max_score"`

	// SubgoalMasks are subsets of Useful keyed by subgoal id.
	SubgoalMasks map[int][]bool `json:"subgoal_masks,omitempty"`

	// Degenerate is set when every training completion was identical and
	// the score range was reset to (0,1).
	Degenerate bool     `json:"degenerate,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

// Fit builds a Model from correct-submission rows. baseline may be nil, in
// which case the starter code is taken to be empty.
func Fit(rows [][]float64, baseline []float64, opts ...Option) (*Model, error) {
	p := defaultParams()
	for _, opt := range opts {
		opt(&p)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no training rows", ErrInsufficientData)
	}
	n := len(rows[0])
	if n == 0 {
		return nil, fmt.Errorf("%w: empty feature vectors", ErrInsufficientData)
	}
	for i, r := range rows {
		if len(r) != n {
			return nil, fmt.Errorf("%w: row %d has %d features, want %d", ErrInsufficientData, i, len(r), n)
		}
	}
	if baseline == nil {
		baseline = make([]float64, n)
	}
	if len(baseline) != n {
		return nil, fmt.Errorf("%w: baseline has %d features, want %d", ErrInsufficientData, len(baseline), n)
	}
	if p.vocabulary != nil && len(p.vocabulary) != n {
		return nil, fmt.Errorf("%w: vocabulary has %d tokens, want %d", ErrInsufficientData, len(p.vocabulary), n)
	}

	m := &Model{
		Vocabulary: p.vocabulary,
		Baseline:   append([]float64(nil), baseline...),
		Mean:       make([]float64, n),
		Useful:     make([]bool, n),
	}

	count := float64(len(rows))
	for j := 0; j < n; j++ {
		present, sum := 0, 0.0
		for _, r := range rows {
			if r[j] > 0 {
				present++
			}
			sum += r[j]
		}
		m.Mean[j] = sum/count - baseline[j]
		m.Useful[j] = float64(present)/count > p.minFeatureProportion && m.Mean[j] > 0
	}

	scores := make([]float64, len(rows))
	for i, r := range rows {
		scores[i] = m.completion(r, m.Useful)
	}
	m.MinScore = 0
	m.MaxScore = percentile(scores, p.maxScorePercentile*100)
	if m.MinScore == m.MaxScore || allEqual(scores) {
		m.Degenerate = true
		m.Warnings = append(m.Warnings,
			fmt.Sprintf("degenerate score range (percentile %g over %d rows): reset to (0,1)", m.MaxScore, len(scores)))
		m.MinScore, m.MaxScore = 0, 1
	}

	if len(p.subgoalMasks) > 0 {
		m.SubgoalMasks = make(map[int][]bool, len(p.subgoalMasks))
		for id, mask := range p.subgoalMasks {
			if len(mask) != n {
				return nil, fmt.Errorf("%w: subgoal %d mask has %d features, want %d", ErrInsufficientData, id, len(mask), n)
			}
			sub := make([]bool, n)
			for j := range sub {
				sub[j] = mask[j] && m.Useful[j]
			}
			m.SubgoalMasks[id] = sub
		}
	}

	return m, nil
}

// Score returns the whole-model progress of x in [0,1].
func (m *Model) Score(x []float64) float64 {
	return m.scale(m.completion(x, m.Useful))
}

// ScoreSubgoal returns the progress of x on one subgoal. Subgoal completion
// counts a feature as done when it exceeds the baseline at all, which is
// coarser than the whole-model ratio but steadier over the few features a
// subgoal usually has.
func (m *Model) ScoreSubgoal(x []float64, id int) (float64, error) {
	mask, ok := m.SubgoalMasks[id]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownSubgoal, id)
	}
	total, hit := 0, 0
	for j, on := range mask {
		if !on {
			continue
		}
		total++
		if at(x, j) > m.Baseline[j] {
			hit++
		}
	}
	if total == 0 {
		return m.scale(0), nil
	}
	return m.scale(float64(hit) / float64(total)), nil
}

// Subgoals lists the subgoal ids in ascending order.
func (m *Model) Subgoals() []int {
	ids := make([]int, 0, len(m.SubgoalMasks))
	for id := range m.SubgoalMasks {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// UsefulCount is the number of useful features.
func (m *Model) UsefulCount() int {
	c := 0
	for _, u := range m.Useful {
		if u {
			c++
		}
	}
	return c
}

// UsefulTokens returns the vocabulary entries marked useful.
func (m *Model) UsefulTokens() []string {
	if m.Vocabulary == nil {
		return nil
	}
	out := make([]string, 0, m.UsefulCount())
	for j, u := range m.Useful {
		if u {
			out = append(out, m.Vocabulary[j])
		}
	}
	return out
}

// completion is the raw, unscaled mean ratio over the masked features.
// With no masked features it is 0.
func (m *Model) completion(x []float64, mask []bool) float64 {
	sum, c := 0.0, 0
	for j, on := range mask {
		if !on {
			continue
		}
		sum += clip((at(x, j)-m.Baseline[j])/m.Mean[j], 0, 1)
		c++
	}
	if c == 0 {
		return 0
	}
	return sum / float64(c)
}

func (m *Model) scale(raw float64) float64 {
	return clip((raw-m.MinScore)/(m.MaxScore-m.MinScore), 0, 1)
}

func at(x []float64, j int) float64 {
	if j < len(x) {
		return x[j]
	}
	return 0
}

func clip(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func allEqual(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

// percentile uses linear interpolation between closest ranks.
func percentile(values []float64, q float64) float64 {
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	if len(s) == 1 {
		return s[0]
	}
	rank := q / 100 * float64(len(s)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return s[lo]
	}
	return s[lo] + (s[hi]-s[lo])*(rank-float64(lo))
}
