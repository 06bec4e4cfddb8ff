package grid

import "errors"

var (
	// ErrInvalidCellSize indicates a cell size that is zero, negative or NaN.
	ErrInvalidCellSize = errors.New("grid: cell size must be positive")

	// ErrInvalidDomain indicates a domain extent that is zero, negative or NaN.
	ErrInvalidDomain = errors.New("grid: domain size must be positive on every axis")

	// ErrGridTooLarge indicates more cells than can be addressed by a uint32.
	ErrGridTooLarge = errors.New("grid: too many cells")

	// ErrInvalidCapacity indicates a non-positive cell capacity.
	ErrInvalidCapacity = errors.New("grid: cell capacity must be positive")

	// ErrUnknownStorage indicates an unrecognised storage kind.
	ErrUnknownStorage = errors.New("grid: unknown storage kind")
)
