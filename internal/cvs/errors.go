package cvs

import "errors"

var (
	ErrNotFound          = errors.New("cv record not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrAlreadyProcessing = errors.New("cv record is already processing")
	ErrInvalidTransition = errors.New("invalid processing status transition")
	ErrUnsupportedType   = errors.New("unsupported file type")
)
