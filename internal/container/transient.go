// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"os/exec"
	"strings"
)

// transientMarkers are fragments of engine or build output that indicate a
// failure a second attempt may not repeat.
var transientMarkers = []string{
	// registry pulls of the base image
	"TLS handshake timeout",
	"toomanyrequests",
	"i/o timeout",
	// apt inside the build reaching the vendor repository
	"Temporary failure resolving",
	"Could not resolve host",
	"Hash Sum mismatch",
	"connection timed out",
	"connection refused",
	// rootless podman storage
	"error creating overlay mount",
	"error mounting layer",
	"OCI runtime error",
}

// IsTransientError reports whether a failed engine call may succeed on retry.
// Cancellation is never transient. Exit code 125 is the engines' generic
// internal failure and is treated as transient.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 125 {
		return true
	}

	msg := err.Error()
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
