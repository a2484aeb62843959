package jobs

import "errors"

var (
	ErrNotFound        = errors.New("job record not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrContentTooShort = errors.New("job content too short")
	ErrAlreadyAnalyzed = errors.New("analysis already attached")
)
