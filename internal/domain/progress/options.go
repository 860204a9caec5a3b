package progress

type params struct {
	minFeatureProportion float64
	maxScorePercentile   float64
	vocabulary           []string
	subgoalMasks         map[int][]bool
}

func defaultParams() params {
	return params{
		minFeatureProportion: 0.5,
		maxScorePercentile:   0.25,
	}
}

// Option applies a fitting parameter.
type Option func(*params)

// WithMinFeatureProportion sets the share of solutions a feature must
// appear in (strictly more than) to be useful.
func WithMinFeatureProportion(v float64) Option {
	return func(p *params) {
		if v >= 0 && v < 1 {
			p.minFeatureProportion = v
		}
	}
}

// WithMaxScorePercentile sets the training percentile, in [0,1], that maps to full progress.
func WithMaxScorePercentile(v float64) Option {
	return func(p *params) {
		if v >= 0 && v <= 1 {
			p.maxScorePercentile = v
		}
	}
}

// WithVocabulary records the feature tokens on the fitted model.
func WithVocabulary(tokens []string) Option {
	return func(p *params) {
		p.vocabulary = append([]string(nil), tokens...)
	}
}

// WithSubgoalMasks supplies per-subgoal relevance masks. They are
// intersected with the useful mask during Fit.
func WithSubgoalMasks(masks map[int][]bool) Option {
	return func(p *params) {
		p.subgoalMasks = masks
	}
}
