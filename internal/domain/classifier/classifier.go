// Package classifier predicts whether code is correct from its n-gram counts.
//
// Training runs a short pipeline whose stages are chosen before fitting from
// the label statistics: balanced naive Bayes when both outcomes were seen,
// a constant predictor when every label agrees.
package classifier

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// Stage names one step of the training pipeline.
type Stage string

// Pipeline stages.
const (
	StageOversample Stage = "oversample"
	StageNaiveBayes Stage = "naive_bayes"
	StageConstant   Stage = "constant"
)

// ErrNoData is returned when there is nothing to train on.
var ErrNoData = errors.New("classifier: no training data")

const (
	alpha          = 1.0
	oversampleSeed = 0
)

// Model is a fitted classifier. It is immutable after Fit.
type Model struct {
	Vocabulary []string `json:"vocabulary"`
	Stages     []Stage  `json:"stages"`

	// Constant is the probability returned by a constant pipeline.
	Constant float64 `json:"constant,omitempty"`

	// LogPrior and FeatureLogProb are indexed [incorrect, correct].
	LogPrior       [2]float64   `json:"log_prior"`
	FeatureLogProb [2][]float64 `json:"feature_log_prob,omitempty"`
}

// Plan decides the pipeline stages from the labels.
func Plan(labels []bool) []Stage {
	pos := 0
	for _, l := range labels {
		if l {
			pos++
		}
	}
	if pos == 0 || pos == len(labels) {
		return []Stage{StageConstant}
	}
	return []Stage{StageOversample, StageNaiveBayes}
}

// Fit trains on rows with labels (true = correct). vocabulary is kept on the
// model so callers can rebuild the matching vectorizer.
func Fit(rows [][]float64, labels []bool, vocabulary []string) (*Model, error) {
	if len(rows) == 0 {
		return nil, ErrNoData
	}
	if len(rows) != len(labels) {
		return nil, fmt.Errorf("classifier: %d rows but %d labels", len(rows), len(labels))
	}

	m := &Model{
		Vocabulary: append([]string(nil), vocabulary...),
		Stages:     Plan(labels),
	}

	for _, st := range m.Stages {
		switch st {
		case StageConstant:
			if labels[0] {
				m.Constant = 1
			}
		case StageOversample:
			rows, labels = oversample(rows, labels)
		case StageNaiveBayes:
			if err := m.fitNaiveBayes(rows, labels); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// PredictProbability returns P(correct | x).
func (m *Model) PredictProbability(x []float64) float64 {
	if len(m.Stages) > 0 && m.Stages[len(m.Stages)-1] == StageConstant {
		return m.Constant
	}
	var joint [2]float64
	for c := 0; c < 2; c++ {
		joint[c] = m.LogPrior[c]
		for j, lp := range m.FeatureLogProb[c] {
			if j < len(x) && x[j] > 0 {
				joint[c] += x[j] * lp
			}
		}
	}
	// softmax over the two classes
	hi := math.Max(joint[0], joint[1])
	e0 := math.Exp(joint[0] - hi)
	e1 := math.Exp(joint[1] - hi)
	return e1 / (e0 + e1)
}

func (m *Model) fitNaiveBayes(rows [][]float64, labels []bool) error {
	n := len(rows[0])
	var classCount [2]float64
	var featCount [2][]float64
	featCount[0] = make([]float64, n)
	featCount[1] = make([]float64, n)

	for i, r := range rows {
		if len(r) != n {
			return fmt.Errorf("classifier: row %d has %d features, want %d", i, len(r), n)
		}
		c := classIndex(labels[i])
		classCount[c]++
		for j, v := range r {
			featCount[c][j] += v
		}
	}

	total := classCount[0] + classCount[1]
	for c := 0; c < 2; c++ {
		m.LogPrior[c] = math.Log(classCount[c] / total)
		sum := 0.0
		for _, v := range featCount[c] {
			sum += v
		}
		denom := sum + alpha*float64(n)
		m.FeatureLogProb[c] = make([]float64, n)
		for j, v := range featCount[c] {
			m.FeatureLogProb[c][j] = math.Log((v + alpha) / denom)
		}
	}
	return nil
}

// oversample duplicates randomly chosen minority rows until both classes
// are the same size. The draw is seeded so retraining is reproducible.
func oversample(rows [][]float64, labels []bool) ([][]float64, []bool) {
	var idx [2][]int
	for i, l := range labels {
		c := classIndex(l)
		idx[c] = append(idx[c], i)
	}
	minority := 0
	if len(idx[1]) < len(idx[0]) {
		minority = 1
	}
	need := len(idx[1-minority]) - len(idx[minority])
	if need <= 0 || len(idx[minority]) == 0 {
		return rows, labels
	}

	outRows := append(make([][]float64, 0, len(rows)+need), rows...)
	outLabels := append(make([]bool, 0, len(labels)+need), labels...)
	rng := rand.New(rand.NewSource(oversampleSeed))
	for k := 0; k < need; k++ {
		i := idx[minority][rng.Intn(len(idx[minority]))]
		outRows = append(outRows, rows[i])
		outLabels = append(outLabels, labels[i])
	}
	return outRows, outLabels
}

func classIndex(correct bool) int {
	if correct {
		return 1
	}
	return 0
}
