package model

import (
	"time"

	"github.com/okian/stride/internal/domain/classifier"
	"github.com/okian/stride/internal/domain/progress"
	"github.com/okian/stride/internal/domain/vectorize"
)

// Record is the published model pair for one problem. Records are replaced
// wholesale and never mutated after Prepare.
type Record struct {
	ProblemID  string            `json:"problem_id"`
	Progress   *progress.Model   `json:"progress"`
	Classifier *classifier.Model `json:"classifier,omitempty"`

	// TrainingCount is the number of distinct correct submissions used.
	TrainingCount int `json:"training_count"`

	Language  string    `json:"language,omitempty"`
	NgramMin  int       `json:"ngram_min"`
	NgramMax  int       `json:"ngram_max"`
	TrainedAt time.Time `json:"trained_at"`

	progressVec   *vectorize.Vectorizer
	classifierVec *vectorize.Vectorizer
}

// Prepare builds the vectorizers for the stored vocabularies. It must be
// called before the record is shared.
func (r *Record) Prepare() {
	opts := []vectorize.Option{vectorize.WithNgramRange(r.NgramMin, r.NgramMax)}
	if r.Progress != nil {
		r.progressVec = vectorize.FromVocabulary(r.Progress.Vocabulary, opts...)
	}
	if r.Classifier != nil {
		r.classifierVec = vectorize.FromVocabulary(r.Classifier.Vocabulary, opts...)
	}
}

// ProgressVectorizer returns the vectorizer matching the progress model.
func (r *Record) ProgressVectorizer() *vectorize.Vectorizer {
	if r.progressVec == nil && r.Progress != nil {
		return vectorize.FromVocabulary(r.Progress.Vocabulary, vectorize.WithNgramRange(r.NgramMin, r.NgramMax))
	}
	return r.progressVec
}

// ClassifierVectorizer returns the vectorizer matching the classifier, or nil.
func (r *Record) ClassifierVectorizer() *vectorize.Vectorizer {
	if r.classifierVec == nil && r.Classifier != nil {
		return vectorize.FromVocabulary(r.Classifier.Vocabulary, vectorize.WithNgramRange(r.NgramMin, r.NgramMax))
	}
	return r.classifierVec
}

// Feedback is the serving response for one code sample.
type Feedback struct {
	Shown    bool            `json:"shown"`
	Progress *float64        `json:"progress,omitempty"`
	Score    *float64        `json:"score,omitempty"`
	Subgoals map[int]float64 `json:"subgoal_scores,omitempty"`
}
