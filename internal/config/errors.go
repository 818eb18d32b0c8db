package config

import "errors"

// Sentinel kinds for configuration failures. Validate wraps ErrInvalidConfig
// with the offending field; Load wraps ErrLoadConfig around provider errors.
// Both are matchable with errors.Is.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
