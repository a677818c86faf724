package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrCorruptCache     = errors.New("corrupt count file")
	ErrStoreUnavailable = errors.New("store unavailable")
)
