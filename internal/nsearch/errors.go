package nsearch

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRadius indicates a support radius that is not a positive finite number.
	ErrInvalidRadius = errors.New("nsearch: support radius must be positive and finite")

	// ErrInvalidCapacity indicates a non-positive cell or neighbor capacity.
	ErrInvalidCapacity = errors.New("nsearch: capacity must be positive")

	// ErrTooManyParticles indicates more particles than int32 indices can address.
	ErrTooManyParticles = errors.New("nsearch: particle count exceeds index range")

	// ErrParticleCountChanged indicates SetPositions with a different length.
	ErrParticleCountChanged = errors.New("nsearch: particle count is fixed for the engine lifetime")
)

// ConfigError names the construction parameter that was rejected.
type ConfigError struct {
	Field   string
	Value   any
	Wrapped error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s=%v: %v", e.Field, e.Value, e.Wrapped)
}

func (e *ConfigError) Unwrap() error {
	return e.Wrapped
}
