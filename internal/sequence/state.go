// SPDX-License-Identifier: MPL-2.0

package sequence

import (
	"errors"
	"fmt"
)

const (
	// StateNone marks a step that does not advance the run state.
	StateNone State = ""
	// StateStart is the initial state of every run.
	StateStart State = "START"
	// StateKeyRegistered means the vendor signing key is in the trust store.
	StateKeyRegistered State = "KEY_REGISTERED"
	// StateSourceRegistered means the vendor repository entry is registered.
	StateSourceRegistered State = "SOURCE_REGISTERED"
	// StateIndexRefreshed means the package index includes the vendor repository.
	StateIndexRefreshed State = "INDEX_REFRESHED"
	// StateDriverInstalled means the ODBC driver and headers are installed.
	StateDriverInstalled State = "DRIVER_INSTALLED"
	// StateDepsInstalled means the application dependency manifest is installed.
	StateDepsInstalled State = "DEPS_INSTALLED"
	// StateDone is the terminal success state.
	StateDone State = "DONE"
	// StateAborted is the terminal failure state.
	StateAborted State = "ABORTED"
)

// ErrInvalidState is the sentinel error wrapped by InvalidStateError.
var ErrInvalidState = errors.New("invalid state")

type (
	// State is a provisioning run state.
	State string

	// InvalidStateError is returned when a State is not a known value.
	InvalidStateError struct {
		Value State
	}
)

// successors lists the only legal forward transition for each state.
// ABORTED is reachable from every non-terminal state and is not listed.
var successors = map[State]State{
	StateStart:            StateKeyRegistered,
	StateKeyRegistered:    StateSourceRegistered,
	StateSourceRegistered: StateIndexRefreshed,
	StateIndexRefreshed:   StateDriverInstalled,
	StateDriverInstalled:  StateDepsInstalled,
	StateDepsInstalled:    StateDone,
}

// Error implements the error interface.
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state %q", e.Value)
}

// Unwrap returns ErrInvalidState for errors.Is.
func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// Validate returns an InvalidStateError for unknown states.
func (s State) Validate() error {
	if s == StateNone || s == StateAborted {
		return nil
	}
	if _, ok := successors[s]; ok || s == StateDone {
		return nil
	}
	return &InvalidStateError{Value: s}
}

// Next returns the state that legally follows s. Terminal states have no
// successor.
func (s State) Next() (State, bool) {
	next, ok := successors[s]
	return next, ok
}

// IsTerminal reports whether s is DONE or ABORTED.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateAborted
}

// CanTransition reports whether a run in state s may move to next.
func (s State) CanTransition(next State) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StateAborted {
		return true
	}
	want, ok := successors[s]
	return ok && want == next
}

// String returns the state name.
func (s State) String() string { return string(s) }
