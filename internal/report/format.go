// SPDX-License-Identifier: MPL-2.0

package report

import (
	"errors"
	"fmt"
)

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ErrInvalidFormat is the sentinel error wrapped by InvalidFormatError.
var ErrInvalidFormat = errors.New("invalid report format")

type (
	// Format selects a report encoding.
	Format string

	// InvalidFormatError is returned when a Format value is not recognized.
	InvalidFormatError struct {
		Value Format
	}
)

func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("invalid report format %q (valid: text, json, yaml, toml)", e.Value)
}

func (e *InvalidFormatError) Unwrap() error { return ErrInvalidFormat }

func (f Format) String() string { return string(f) }

// Validate returns an error if f is not a known format.
func (f Format) Validate() error {
	switch f {
	case FormatText, FormatJSON, FormatYAML, FormatTOML:
		return nil
	default:
		return &InvalidFormatError{Value: f}
	}
}

// Formats returns every supported format.
func Formats() []Format {
	return []Format{FormatText, FormatJSON, FormatYAML, FormatTOML}
}
