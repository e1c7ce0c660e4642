// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"errors"
	"fmt"
	"io"
	"slices"
)

// ErrInvalidMode is the sentinel error wrapped by InvalidModeError.
var ErrInvalidMode = errors.New("invalid executor mode")

// InvalidModeError is returned when a Mode is not one of the known values.
type InvalidModeError struct {
	Value Mode
}

// Error implements the error interface.
func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid executor mode %q (valid: %s, %s, %s)", e.Value, ModeNative, ModeVirtual, ModeDryRun)
}

// Unwrap returns ErrInvalidMode for errors.Is.
func (e *InvalidModeError) Unwrap() error { return ErrInvalidMode }

// Modes returns every supported Mode.
func Modes() []Mode {
	return []Mode{ModeNative, ModeVirtual, ModeDryRun}
}

// Validate returns an InvalidModeError for unknown modes.
func (m Mode) Validate() error {
	if !slices.Contains(Modes(), m) {
		return &InvalidModeError{Value: m}
	}
	return nil
}

// String returns the mode name.
func (m Mode) String() string { return string(m) }

// NewExecutor returns the Executor for mode. stream receives a live copy of
// command output (nil disables streaming); for ModeDryRun it receives the
// command lines instead.
func NewExecutor(mode Mode, stream io.Writer) (Executor, error) {
	switch mode {
	case ModeNative:
		return NewNativeExecutor(WithStream(stream)), nil
	case ModeVirtual:
		return NewVirtualExecutor(stream), nil
	case ModeDryRun:
		return NewDryRunExecutor(stream), nil
	default:
		return nil, &InvalidModeError{Value: mode}
	}
}
