package domain

import "errors"

// Sentinel errors for the domain layer.
var (
	ErrNotFound        = errors.New("domain: not found")
	ErrIndexOutOfRange = errors.New("domain: index out of range")
)
