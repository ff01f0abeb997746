package httpapi

import "errors"

var (
	ErrIngesterRequired = errors.New("ingester is required")
	ErrSearcherRequired = errors.New("searcher is required")
)
