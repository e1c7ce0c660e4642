// SPDX-License-Identifier: MPL-2.0

package packages

import (
	"strings"
)

// LicenseEnvVar is the vendor's acceptance variable, read from the host
// environment and passed to the package manager.
const LicenseEnvVar = "ACCEPT_EULA"

type (
	// LicenseSource is one place the acceptance flag may come from.
	LicenseSource struct {
		// Name describes the source in step output, e.g. "--accept-eula".
		Name string
		// Value is the raw value.
		Value string
		// Set is false when the source did not provide a value at all.
		Set bool
	}

	// License is the resolved acceptance decision.
	License struct {
		Accepted bool
		// Source names where the decision came from; empty when no source
		// was set.
		Source string
	}
)

// IsAcceptance reports whether v explicitly accepts the license: y, yes,
// true or 1, case-insensitive. Everything else is a refusal.
func IsAcceptance(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "y", "yes", "true", "1":
		return true
	default:
		return false
	}
}

// ResolveLicense returns the decision of the first source that is set.
// Sources are given in precedence order (flag, environment, config).
func ResolveLicense(sources ...LicenseSource) License {
	for _, s := range sources {
		if s.Set {
			return License{Accepted: IsAcceptance(s.Value), Source: s.Name}
		}
	}
	return License{}
}
