package engine

import "errors"

var (
	// ErrInsufficientMargin rejects an open whose required margin exceeds
	// free margin. Recoverable: retry smaller or after closing exposure.
	ErrInsufficientMargin = errors.New("insufficient free margin")

	// ErrNoPrice means the price cache has nothing usable for the
	// instrument. The operation is a no-op, never fatal.
	ErrNoPrice = errors.New("price not available")

	// ErrNotFound means the referenced position or order id no longer
	// exists.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput rejects malformed requests before any state mutation.
	ErrInvalidInput = errors.New("invalid input")
)
