package eventlog

import "errors"

// Sentinel kinds for event log errors.
var (
	ErrDuplicateEvent = errors.New("duplicate event id")
	ErrPersistence    = errors.New("event log persistence failure")
	ErrInvalidEvent   = errors.New("invalid event")
)
