// SPDX-License-Identifier: MPL-2.0

package plan

import (
	"cmp"
	"slices"

	"github.com/odbcprov/odbcprov/internal/config"
	"github.com/odbcprov/odbcprov/internal/registrar"
)

// Profile holds the defaults that differ between provisioning platforms.
type Profile struct {
	// Name is the platform the profile applies to.
	Name config.PlatformName
	// Target is the OS release the vendor repository is registered for.
	Target registrar.Target
	// Python is the interpreter used to run pip.
	Python string
	// BaseImage is the image built on; empty when the platform builds its
	// own image and only runs a hook.
	BaseImage string
	// Description is shown by `odbcprov plan`.
	Description string
}

var profiles = map[config.PlatformName]Profile{
	config.PlatformContainer: {
		Name:        config.PlatformContainer,
		Target:      registrar.Target{OS: "debian", Release: "12"},
		Python:      "python",
		BaseImage:   "python:3.12-slim-bookworm",
		Description: "generic container image build",
	},
	config.PlatformManaged: {
		Name:        config.PlatformManaged,
		Target:      registrar.Target{OS: "debian", Release: "11"},
		Python:      "python3",
		Description: "managed platform build hook",
	},
}

// ProfileFor returns the profile for name.
func ProfileFor(name config.PlatformName) (Profile, error) {
	if err := name.Validate(); err != nil {
		return Profile{}, err
	}
	return profiles[name], nil
}

// Profiles returns every profile ordered by name.
func Profiles() []Profile {
	out := make([]Profile, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Profile) int { return cmp.Compare(a.Name, b.Name) })
	return out
}
