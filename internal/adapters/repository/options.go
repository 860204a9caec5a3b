package repository

import "github.com/okian/stride/pkg/logger"

type options struct {
	logger logger.Logger
}

func defaultOptions() options {
	return options{logger: logger.Nop()}
}

// Option applies a configuration option to a store.
type Option func(*options)

// WithLogger sets the logger used to report publishes.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
