package repository

import "errors"

// Sentinel kinds for model store errors.
var (
	ErrNotFound      = errors.New("model not found")
	ErrInvalidRecord = errors.New("invalid model record")
	ErrPersistence   = errors.New("model store persistence failure")
)
