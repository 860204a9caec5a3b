package condition

import "errors"

// ErrConfiguration reports an invalid experiment configuration.
var ErrConfiguration = errors.New("invalid condition configuration")
