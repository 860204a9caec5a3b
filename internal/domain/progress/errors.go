package progress

import "errors"

// Sentinel errors for fitting and scoring.
var (
	ErrInsufficientData = errors.New("insufficient training data")
	ErrUnknownSubgoal   = errors.New("unknown subgoal")
)
