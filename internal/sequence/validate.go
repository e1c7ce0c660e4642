// SPDX-License-Identifier: MPL-2.0

package sequence

import (
	"errors"
	"fmt"

	"github.com/odbcprov/odbcprov/internal/dag"
)

// ErrInvalidPlan is the sentinel error wrapped by InvalidPlanError.
var ErrInvalidPlan = errors.New("invalid provisioning plan")

// InvalidPlanError describes why a plan was rejected before any step ran.
type InvalidPlanError struct {
	// Step is the offending step, if the problem is local to one.
	Step string
	// Reason is a short description of the problem.
	Reason string
	// Err is an underlying error, such as a dependency cycle.
	Err error
}

// Error implements the error interface.
func (e *InvalidPlanError) Error() string {
	msg := "invalid plan"
	if e.Step != "" {
		msg += fmt.Sprintf(": step %s", e.Step)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns ErrInvalidPlan and the underlying error for errors.Is.
func (e *InvalidPlanError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidPlan}
	}
	return []error{ErrInvalidPlan, e.Err}
}

// ValidatePlan checks a plan without running it. Step names must be unique,
// prerequisites must exist and appear before their dependents, the
// prerequisite graph must be acyclic, and the states the steps reach must
// walk the state machine from START to DEPS_INSTALLED without skipping.
func ValidatePlan(steps []Step) error {
	if len(steps) == 0 {
		return &InvalidPlanError{Reason: "no steps"}
	}

	g := dag.New()
	position := make(map[string]int, len(steps))
	for i, s := range steps {
		if s.Name == "" {
			return &InvalidPlanError{Reason: fmt.Sprintf("step #%d has no name", i+1)}
		}
		if _, dup := position[s.Name]; dup {
			return &InvalidPlanError{Step: s.Name, Reason: "duplicate step name"}
		}
		if err := s.Phase.Validate(); err != nil {
			return &InvalidPlanError{Step: s.Name, Reason: "bad phase", Err: err}
		}
		if err := s.Reaches.Validate(); err != nil {
			return &InvalidPlanError{Step: s.Name, Reason: "bad target state", Err: err}
		}
		if s.Action == nil {
			return &InvalidPlanError{Step: s.Name, Reason: "no action"}
		}
		position[s.Name] = i
		g.AddNode(s.Name)
	}

	for _, s := range steps {
		for _, req := range s.Requires {
			g.Require(s.Name, req)
		}
	}
	if _, err := g.TopologicalSort(); err != nil {
		return &InvalidPlanError{Reason: "bad prerequisites", Err: err}
	}

	for i, s := range steps {
		for _, req := range s.Requires {
			if position[req] > i {
				return &InvalidPlanError{Step: s.Name, Reason: fmt.Sprintf("prerequisite %s runs after it", req)}
			}
		}
	}

	state := StateStart
	for _, s := range steps {
		if s.Reaches == StateNone {
			continue
		}
		if !state.CanTransition(s.Reaches) || s.Reaches == StateAborted {
			return &InvalidPlanError{Step: s.Name, Reason: fmt.Sprintf("illegal transition %s -> %s", state, s.Reaches)}
		}
		state = s.Reaches
	}
	if !state.CanTransition(StateDone) {
		return &InvalidPlanError{Reason: fmt.Sprintf("plan ends in %s, cannot reach %s", state, StateDone)}
	}
	return nil
}
