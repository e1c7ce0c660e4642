// SPDX-License-Identifier: MPL-2.0

package registrar

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/afero"
)

const (
	// AutoDetect as Target.OS reads the target from /etc/os-release.
	AutoDetect = "auto"

	osReleasePath = "/etc/os-release"
)

var (
	// ErrInvalidTarget is the sentinel error wrapped by InvalidTargetError.
	ErrInvalidTarget = errors.New("invalid target")

	supportedOS = []string{"debian", "ubuntu"}
)

type (
	// Target is the OS release the vendor repository is registered for.
	Target struct {
		// OS is the distribution ID ("debian", "ubuntu") or "auto".
		OS string
		// Release is the distribution version ID ("12", "22.04").
		Release string
	}

	// InvalidTargetError is returned when a Target cannot be used to build
	// a repository URL.
	InvalidTargetError struct {
		Value  Target
		Reason string
	}
)

// Error implements the error interface.
func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("invalid target %s/%s: %s", e.Value.OS, e.Value.Release, e.Reason)
}

// Unwrap returns ErrInvalidTarget for errors.Is.
func (e *InvalidTargetError) Unwrap() error { return ErrInvalidTarget }

// Validate checks the target names a supported apt distribution. An "auto"
// target is valid before detection.
func (t Target) Validate() error {
	if t.OS == AutoDetect {
		return nil
	}
	if !slices.Contains(supportedOS, t.OS) {
		return &InvalidTargetError{Value: t, Reason: fmt.Sprintf("os must be one of %s or %s", strings.Join(supportedOS, ", "), AutoDetect)}
	}
	if t.Release == "" || strings.ContainsAny(t.Release, "/ \t") {
		return &InvalidTargetError{Value: t, Reason: "release must be a version ID such as 12 or 22.04"}
	}
	return nil
}

// String returns "os/release".
func (t Target) String() string {
	return t.OS + "/" + t.Release
}

// Resolve returns t unchanged, or the target described by the filesystem's
// os-release file when t.OS is "auto".
func (t Target) Resolve(fs afero.Fs) (Target, error) {
	if t.OS != AutoDetect {
		return t, t.Validate()
	}
	return DetectTarget(fs)
}

// DetectTarget reads ID and VERSION_ID from /etc/os-release. Derivatives
// are accepted when ID_LIKE names a supported distribution and VERSION_ID
// matches it; otherwise detection fails.
func DetectTarget(fs afero.Fs) (Target, error) {
	data, err := afero.ReadFile(fs, osReleasePath)
	if err != nil {
		return Target{}, fmt.Errorf("detect target: %w", err)
	}
	fields, err := ParseOSRelease(data)
	if err != nil {
		return Target{}, fmt.Errorf("detect target: %w", err)
	}

	t := Target{OS: fields["ID"], Release: fields["VERSION_ID"]}
	if !slices.Contains(supportedOS, t.OS) {
		for _, like := range strings.Fields(fields["ID_LIKE"]) {
			if slices.Contains(supportedOS, like) {
				t.OS = like
				break
			}
		}
	}
	return t, t.Validate()
}

// ParseOSRelease parses os-release(5) content: KEY=value lines with
// optional single or double quotes. Comments and blank lines are skipped.
func ParseOSRelease(content []byte) (map[string]string, error) {
	fields := make(map[string]string)
	for i, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("os-release:%d: invalid format (missing '=')", i+1)
		}

		unquoted, err := unquoteOSReleaseValue(value)
		if err != nil {
			return nil, fmt.Errorf("os-release:%d: %w", i+1, err)
		}
		fields[key] = unquoted
	}
	return fields, nil
}

func unquoteOSReleaseValue(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	switch value[0] {
	case '"':
		if len(value) < 2 || value[len(value)-1] != '"' {
			return "", errors.New("unterminated double quote")
		}
		inner := value[1 : len(value)-1]
		var b strings.Builder
		for i := 0; i < len(inner); i++ {
			if inner[i] == '\\' && i+1 < len(inner) {
				i++
			}
			b.WriteByte(inner[i])
		}
		return b.String(), nil
	case '\'':
		if len(value) < 2 || value[len(value)-1] != '\'' {
			return "", errors.New("unterminated single quote")
		}
		return value[1 : len(value)-1], nil
	default:
		return value, nil
	}
}
