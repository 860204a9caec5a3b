package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNoModel        = errors.New("no model published for problem")
	ErrInvalidRequest = errors.New("invalid request")
)
