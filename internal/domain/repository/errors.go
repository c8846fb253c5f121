package repository

import "errors"

var (
	// ErrNotFound is returned when a lookup matched no record. The catalog
	// was consulted successfully; this is not an availability failure.
	ErrNotFound = errors.New("record not found")

	// ErrCatalogUnavailable is returned when the catalog's backing store
	// could not be consulted at all. Callers must not treat this as
	// "zero matches".
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	// ErrEmptyBatch is returned when a batch request resolves to zero
	// products.
	ErrEmptyBatch = errors.New("no resolvable products in batch")
)
