package vectorize

// Option applies a configuration option to the Vectorizer.
type Option func(*Vectorizer)

// WithNgramRange sets the inclusive n-gram lengths. Invalid ranges are ignored.
func WithNgramRange(minN, maxN int) Option {
	return func(v *Vectorizer) {
		if minN >= 1 && maxN >= minN {
			v.ngramMin = minN
			v.ngramMax = maxN
		}
	}
}
