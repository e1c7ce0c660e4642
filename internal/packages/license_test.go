// SPDX-License-Identifier: MPL-2.0

package packages

import "testing"

func TestIsAcceptance(t *testing.T) {
	t.Parallel()

	for _, v := range []string{"y", "Y", "yes", "YES", "true", "True", "1", " y "} {
		if !IsAcceptance(v) {
			t.Errorf("IsAcceptance(%q) = false", v)
		}
	}
	for _, v := range []string{"", "n", "no", "false", "0", "accept", "yes please"} {
		if IsAcceptance(v) {
			t.Errorf("IsAcceptance(%q) = true", v)
		}
	}
}

func TestResolveLicense(t *testing.T) {
	t.Parallel()

	flag := func(v string, set bool) LicenseSource { return LicenseSource{Name: "--accept-eula", Value: v, Set: set} }
	env := func(v string, set bool) LicenseSource { return LicenseSource{Name: "ACCEPT_EULA", Value: v, Set: set} }
	cfg := func(v string, set bool) LicenseSource {
		return LicenseSource{Name: "license.accept_eula", Value: v, Set: set}
	}

	tests := []struct {
		name    string
		sources []LicenseSource
		want    License
	}{
		{name: "nothing set", sources: []LicenseSource{flag("", false), env("", false), cfg("", false)}, want: License{}},
		{name: "flag wins over env", sources: []LicenseSource{flag("false", true), env("Y", true)}, want: License{Source: "--accept-eula"}},
		{name: "env when flag unset", sources: []LicenseSource{flag("", false), env("Y", true), cfg("false", true)}, want: License{Accepted: true, Source: "ACCEPT_EULA"}},
		{name: "config last", sources: []LicenseSource{flag("", false), env("", false), cfg("true", true)}, want: License{Accepted: true, Source: "license.accept_eula"}},
		{name: "set but empty refuses", sources: []LicenseSource{env("", true), cfg("true", true)}, want: License{Source: "ACCEPT_EULA"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ResolveLicense(tt.sources...); got != tt.want {
				t.Errorf("ResolveLicense() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
