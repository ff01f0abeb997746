package index

import "errors"

var (
	// ErrBackendRequired is returned when no vector index backend is provided.
	ErrBackendRequired = errors.New("vector index backend required")

	// ErrEmbedderRequired is returned when no embedder is provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrInvalidDimension is returned for a non-positive vector dimension.
	ErrInvalidDimension = errors.New("invalid vector dimension")

	// ErrInvalidBand is returned when radius >= range filter or either is outside [-1, 1].
	ErrInvalidBand = errors.New("invalid similarity band")

	// ErrCollectionNotFound is returned by backends for unknown collections.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrDimensionMismatch is returned when a vector does not match the collection dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
