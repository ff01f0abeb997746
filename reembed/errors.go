package reembed

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrRepositoryRequired is returned when no checkpoint repository is provided.
	ErrRepositoryRequired = errors.New("checkpoint repository required")

	// ErrIndexRequired is returned when no index is provided.
	ErrIndexRequired = errors.New("index required")
)
