// SPDX-License-Identifier: MPL-2.0

package sequence

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/odbcprov/odbcprov/internal/shell"
)

const (
	// PhaseRegistrar registers the vendor key and repository.
	PhaseRegistrar Phase = "registrar"
	// PhasePackages refreshes the index and installs the driver packages.
	PhasePackages Phase = "packages"
	// PhaseDependencies installs the application dependency manifest.
	PhaseDependencies Phase = "dependencies"
)

// ErrInvalidPhase is the sentinel error wrapped by InvalidPhaseError.
var ErrInvalidPhase = errors.New("invalid phase")

type (
	// Phase groups steps by the component that owns them.
	Phase string

	// InvalidPhaseError is returned when a Phase is not a known value.
	InvalidPhaseError struct {
		Value Phase
	}

	// Action performs a step. Returning a *StepError (see Fail) sets the
	// failure kind; any other error is reported as KindInternal.
	Action func(ctx context.Context, sio *StepIO) error

	// Step is one unit of a provisioning plan.
	Step struct {
		// Name identifies the step in logs and reports (e.g. "register-key").
		Name string
		// Phase is the component the step belongs to.
		Phase Phase
		// Reaches is the state entered when the step succeeds. StateNone
		// leaves the state unchanged.
		Reaches State
		// Requires names steps that must appear earlier in the plan.
		Requires []string
		// Action performs the step.
		Action Action
		// Summary is a one-line description for plan listings.
		Summary string
		// Commands describes what the step would run, for dry runs.
		Commands []shell.Command
	}

	// StepIO is handed to a step's Action. It runs commands through the
	// run's executor and collects everything the step outputs.
	StepIO struct {
		step     string
		exec     shell.Executor
		logger   *log.Logger
		out      bytes.Buffer
		lastExit shell.ExitCode
	}
)

// Phases returns every known phase in run order.
func Phases() []Phase {
	return []Phase{PhaseRegistrar, PhasePackages, PhaseDependencies}
}

// Error implements the error interface.
func (e *InvalidPhaseError) Error() string {
	return fmt.Sprintf("invalid phase %q (valid: %s, %s, %s)", e.Value, PhaseRegistrar, PhasePackages, PhaseDependencies)
}

// Unwrap returns ErrInvalidPhase for errors.Is.
func (e *InvalidPhaseError) Unwrap() error { return ErrInvalidPhase }

// Validate returns an InvalidPhaseError for unknown phases.
func (p Phase) Validate() error {
	if !slices.Contains(Phases(), p) {
		return &InvalidPhaseError{Value: p}
	}
	return nil
}

// String returns the phase name.
func (p Phase) String() string { return string(p) }

// NewStepIO creates a StepIO for the named step.
func NewStepIO(step string, exec shell.Executor, logger *log.Logger) *StepIO {
	return &StepIO{step: step, exec: exec, logger: logger}
}

// Exec runs cmd and appends the command line and its output to the step
// output.
func (s *StepIO) Exec(ctx context.Context, cmd shell.Command) *shell.Result {
	line := cmd.String()
	s.logger.Debug("running command", "step", s.step, "command", line)
	fmt.Fprintf(&s.out, "$ %s\n", line)

	res := s.exec.Run(ctx, cmd)
	s.out.WriteString(res.Output)
	if res.Output != "" && res.Output[len(res.Output)-1] != '\n' {
		s.out.WriteByte('\n')
	}
	s.lastExit = res.ExitCode
	return res
}

// ExecChecked runs cmd and converts an unsuccessful result into a
// StepError of the given kind.
func (s *StepIO) ExecChecked(ctx context.Context, cmd shell.Command, kind FailureKind) error {
	res := s.Exec(ctx, cmd)
	if res.Err != nil {
		return &StepError{Kind: kind, ExitCode: res.ExitCode, Err: fmt.Errorf("%s: %w", cmd.Name, res.Err)}
	}
	if !res.ExitCode.IsSuccess() {
		return &StepError{Kind: kind, ExitCode: res.ExitCode, Err: fmt.Errorf("%s exited with status %d", cmd.Name, res.ExitCode)}
	}
	return nil
}

// Notef appends a line to the step output.
func (s *StepIO) Notef(format string, args ...any) {
	fmt.Fprintf(&s.out, format, args...)
	s.out.WriteByte('\n')
}

// Logger returns the run logger.
func (s *StepIO) Logger() *log.Logger { return s.logger }

// Output returns everything the step has output so far.
func (s *StepIO) Output() string { return s.out.String() }

// LastExitCode returns the exit status of the most recent command.
func (s *StepIO) LastExitCode() shell.ExitCode { return s.lastExit }
