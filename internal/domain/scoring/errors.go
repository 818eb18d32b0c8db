package scoring

import "errors"

// Sentinel kinds for scoring errors.
var (
	ErrInvalidTerm      = errors.New("invalid term")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
)
