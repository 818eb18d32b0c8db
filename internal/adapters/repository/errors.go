package repository

import "errors"

// Sentinel kinds for persistence errors.
var (
	ErrPersist = errors.New("snapshot persist failed")
	ErrRestore = errors.New("snapshot restore failed")
)
