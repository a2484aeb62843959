package gdpr

import "errors"

var ErrNothingSelected = errors.New("no data category selected")
