package generation

import "errors"

var (
	ErrNotFound     = errors.New("generated content not found")
	ErrInvalidInput = errors.New("invalid input")
)
