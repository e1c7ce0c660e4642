// SPDX-License-Identifier: MPL-2.0

package sequence

import (
	"errors"
	"testing"

	"github.com/odbcprov/odbcprov/internal/dag"
)

func TestValidatePlan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func([]Step) []Step
		wantErr bool
		target  error
	}{
		{name: "full plan", mutate: func(s []Step) []Step { return s }},
		{name: "empty", mutate: func([]Step) []Step { return nil }, wantErr: true},
		{
			name:    "duplicate name",
			mutate:  func(s []Step) []Step { s[1].Name = "register-key"; return s },
			wantErr: true,
		},
		{
			name:    "unknown prerequisite",
			mutate:  func(s []Step) []Step { s[2].Requires = []string{"fetch-gpg"}; return s },
			wantErr: true,
			target:  &dag.UnknownNodeError{},
		},
		{
			name: "cycle",
			mutate: func(s []Step) []Step {
				s[0].Requires = []string{"install-dependencies"}
				return s
			},
			wantErr: true,
			target:  &dag.CycleError{},
		},
		{
			name: "prerequisite after dependent",
			mutate: func(s []Step) []Step {
				s[1].Requires = append(s[1].Requires, "refresh-index")
				s[2].Requires = nil
				return s
			},
			wantErr: true,
		},
		{
			name: "skipped state",
			mutate: func(s []Step) []Step {
				s[3].Requires = []string{"register-source"}
				return append(s[:2:2], s[3:]...)
			},
			wantErr: true,
		},
		{
			name: "does not reach DEPS_INSTALLED",
			mutate: func(s []Step) []Step {
				return s[:4]
			},
			wantErr: true,
		},
		{
			name:    "aborted as a target",
			mutate:  func(s []Step) []Step { s[4].Reaches = StateAborted; return s },
			wantErr: true,
		},
		{
			name:    "unknown phase",
			mutate:  func(s []Step) []Step { s[0].Phase = "bootstrap"; return s },
			wantErr: true,
			target:  ErrInvalidPhase,
		},
		{
			name:    "missing action",
			mutate:  func(s []Step) []Step { s[0].Action = nil; return s },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidatePlan(tt.mutate(testPlan(nil)))
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("ValidatePlan() = %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidPlan) {
				t.Fatalf("ValidatePlan() = %v, want ErrInvalidPlan", err)
			}
			switch target := tt.target.(type) {
			case nil:
			case *dag.UnknownNodeError:
				if !errors.As(err, &target) {
					t.Errorf("ValidatePlan() = %v, want %T", err, target)
				}
			case *dag.CycleError:
				if !errors.As(err, &target) {
					t.Errorf("ValidatePlan() = %v, want %T", err, target)
				}
			default:
				if !errors.Is(err, tt.target) {
					t.Errorf("ValidatePlan() = %v, want %v", err, tt.target)
				}
			}
		})
	}
}

func TestState_Transitions(t *testing.T) {
	t.Parallel()

	chain := []State{StateStart, StateKeyRegistered, StateSourceRegistered, StateIndexRefreshed, StateDriverInstalled, StateDepsInstalled, StateDone}
	for i := 0; i < len(chain)-1; i++ {
		if !chain[i].CanTransition(chain[i+1]) {
			t.Errorf("%s -> %s should be legal", chain[i], chain[i+1])
		}
		if !chain[i].CanTransition(StateAborted) {
			t.Errorf("%s -> ABORTED should be legal", chain[i])
		}
		if next, ok := chain[i].Next(); !ok || next != chain[i+1] {
			t.Errorf("%s.Next() = %s, %v", chain[i], next, ok)
		}
	}

	if StateStart.CanTransition(StateIndexRefreshed) {
		t.Error("START -> INDEX_REFRESHED must be illegal")
	}
	if StateDone.CanTransition(StateAborted) || StateAborted.CanTransition(StateStart) {
		t.Error("terminal states have no transitions")
	}
	if err := State("HALF_DONE").Validate(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Validate() = %v", err)
	}
}

func TestFailureKind_Issue(t *testing.T) {
	t.Parallel()

	for _, k := range []FailureKind{KindNetworkFetch, KindTrustStoreWrite, KindPackageResolution, KindLicenseNotAccepted, KindDependencyResolution} {
		if k.Issue() == 0 {
			t.Errorf("%s has no catalog entry", k)
		}
	}
	if KindInternal.Issue() != 0 {
		t.Error("internal failures have no catalog entry")
	}
	if !KindLicenseNotAccepted.IsPackageResolution() || KindNetworkFetch.IsPackageResolution() {
		t.Error("license failures belong to the package resolution family")
	}
}
