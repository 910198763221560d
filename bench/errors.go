package bench

import (
	"errors"
	"fmt"
)

// ErrResourceExhausted is returned when a rank cannot
// allocate its buffers.
var ErrResourceExhausted = errors.New("resource exhausted")

// A ConfigError indicates that a run cannot start with the
// given options.
type ConfigError struct {
	Msg string
}

func (c *ConfigError) Error() string {
	return "configuration error: " + c.Msg
}

// A ValidationError indicates that some rank received
// wrong data for a message size.
// No larger sizes are attempted after one.
type ValidationError struct {
	// Size is the failing message size in bytes.
	Size int

	// Errors is the number of wrong elements across the
	// whole group.
	Errors int
}

func (v *ValidationError) Error() string {
	return fmt.Sprintf("data validation error: %d wrong elements on message size %d",
		v.Errors, v.Size)
}
