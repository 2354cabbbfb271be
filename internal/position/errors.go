package position

import "errors"

// Validation failures are terminal for the enclosing operation: the
// caller must discard every buffered mutation and surface the specific
// kind to the operation's initiator. None of these are retried inside the
// core.
var (
	// ErrEmptyPosition: a position failed the non-empty invariant
	// (sizeInUsd, sizeInTokens and collateralAmount must all be > 0).
	ErrEmptyPosition = errors.New("empty position")

	// ErrZeroPositionSize: a size field was zero at validation time.
	ErrZeroPositionSize = errors.New("zero position size")

	// ErrLiquidatablePosition: the position would be immediately
	// liquidatable if persisted.
	ErrLiquidatablePosition = errors.New("liquidatable position")
)
