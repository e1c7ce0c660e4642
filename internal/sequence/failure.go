// SPDX-License-Identifier: MPL-2.0

package sequence

import (
	"errors"
	"fmt"

	"github.com/odbcprov/odbcprov/internal/issue"
	"github.com/odbcprov/odbcprov/internal/shell"
)

const (
	// KindNetworkFetch means a vendor key or repository descriptor could not
	// be downloaded.
	KindNetworkFetch FailureKind = "network-fetch"
	// KindTrustStoreWrite means the keyring or source list could not be written.
	KindTrustStoreWrite FailureKind = "trust-store-write"
	// KindPackageResolution means the package manager failed to refresh or install.
	KindPackageResolution FailureKind = "package-resolution"
	// KindLicenseNotAccepted means the driver license was not explicitly
	// accepted. It is a kind of package resolution failure.
	KindLicenseNotAccepted FailureKind = "license-not-accepted"
	// KindDependencyResolution means the dependency manifest could not be installed.
	KindDependencyResolution FailureKind = "dependency-resolution"
	// KindInternal covers failures not attributable to a provisioning phase.
	KindInternal FailureKind = "internal"
)

type (
	// FailureKind classifies why a step failed. Every kind aborts the run
	// with the same exit status.
	FailureKind string

	// StepError is the failure of a single step.
	StepError struct {
		// Step is the name of the failed step.
		Step string
		// Kind classifies the failure.
		Kind FailureKind
		// ExitCode is the exit status of the failing command, when one ran.
		ExitCode shell.ExitCode
		// Err is the underlying cause.
		Err error
	}
)

// Fail classifies err as a step failure of the given kind.
func Fail(kind FailureKind, err error) error {
	return &StepError{Kind: kind, Err: err}
}

// Failf is Fail with a formatted cause.
func Failf(kind FailureKind, format string, args ...any) error {
	return &StepError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Error implements the error interface.
func (e *StepError) Error() string {
	name := e.Step
	if name == "" {
		name = "unnamed"
	}
	if e.ExitCode != 0 {
		return fmt.Sprintf("step %s failed (%s, exit status %d): %v", name, e.Kind, e.ExitCode, e.Err)
	}
	return fmt.Sprintf("step %s failed (%s): %v", name, e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *StepError) Unwrap() error { return e.Err }

// Issue returns the catalog entry that explains the failure.
func (k FailureKind) Issue() issue.Id {
	switch k {
	case KindNetworkFetch:
		return issue.NetworkFetchFailedId
	case KindTrustStoreWrite:
		return issue.TrustStoreWriteFailedId
	case KindPackageResolution:
		return issue.PackageResolutionFailedId
	case KindLicenseNotAccepted:
		return issue.LicenseNotAcceptedId
	case KindDependencyResolution:
		return issue.DependencyResolutionFailedId
	default:
		return 0
	}
}

// IsPackageResolution reports whether k belongs to the package resolution
// family, which includes an unaccepted license.
func (k FailureKind) IsPackageResolution() bool {
	return k == KindPackageResolution || k == KindLicenseNotAccepted
}

// String returns the kind name.
func (k FailureKind) String() string { return string(k) }

// KindOf returns the failure kind carried by err, or KindInternal.
func KindOf(err error) FailureKind {
	var se *StepError
	if errors.As(err, &se) && se.Kind != "" {
		return se.Kind
	}
	return KindInternal
}
