// SPDX-License-Identifier: MPL-2.0

package sequence

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/odbcprov/odbcprov/internal/shell"
)

type (
	// Runner executes validated plans.
	Runner struct {
		exec     shell.Executor
		logger   *log.Logger
		now      func() time.Time
		runID    func() string
		platform string
	}

	// Option configures a Runner.
	Option func(*Runner)
)

// WithLogger sets the run logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithClock overrides the time source used for the report.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithRunID overrides how run IDs are generated.
func WithRunID(fn func() string) Option {
	return func(r *Runner) { r.runID = fn }
}

// WithPlatform records the platform profile name in reports.
func WithPlatform(name string) Option {
	return func(r *Runner) { r.platform = name }
}

// NewRunner creates a Runner that executes step commands with exec.
func NewRunner(exec shell.Executor, opts ...Option) *Runner {
	r := &Runner{
		exec:   exec,
		logger: log.NewWithOptions(os.Stderr, log.Options{Prefix: "odbcprov"}),
		now:    time.Now,
		runID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run validates steps and executes them in order. It stops at the first
// failure; the remaining steps are reported as skipped.
//
// An invalid plan returns a nil Report and an *InvalidPlanError. Otherwise
// the Report is always returned, together with the *StepError of the
// failed step when the run aborted.
func (r *Runner) Run(ctx context.Context, steps []Step) (*Report, error) {
	if err := ValidatePlan(steps); err != nil {
		return nil, err
	}

	report := &Report{
		RunID:      r.runID(),
		Platform:   r.platform,
		StartedAt:  r.now(),
		FinalState: StateStart,
		Steps:      make([]StepReport, len(steps)),
	}
	r.logger.Info("provisioning started", "run", report.RunID, "platform", r.platform, "steps", len(steps))

	state := StateStart
	var failure *StepError
	for i, step := range steps {
		sr := &report.Steps[i]
		sr.Name = step.Name
		sr.Phase = step.Phase

		if failure != nil {
			sr.Status = StatusSkipped
			continue
		}

		failure = r.runStep(ctx, step, sr)
		if failure != nil {
			state = StateAborted
			continue
		}
		if step.Reaches != StateNone {
			state = step.Reaches
		}
	}

	report.FinishedAt = r.now()
	if failure != nil {
		report.FinalState = StateAborted
		report.ExitStatus = 1
		r.logger.Error("provisioning aborted", "state", state, "step", failure.Step, "kind", failure.Kind, "duration", report.Duration())
		return report, failure
	}

	report.FinalState = StateDone
	r.logger.Info("provisioning finished", "state", report.FinalState, "duration", report.Duration())
	return report, nil
}

func (r *Runner) runStep(ctx context.Context, step Step, sr *StepReport) *StepError {
	sio := NewStepIO(step.Name, r.exec, r.logger)
	r.logger.Info("step started", "step", step.Name, "phase", step.Phase)

	start := r.now()
	err := ctx.Err()
	if err != nil {
		err = fmt.Errorf("cancelled before start: %w", err)
	} else {
		err = r.invoke(ctx, step, sio)
	}
	elapsed := r.now().Sub(start)

	sr.DurationSeconds = elapsed.Seconds()
	sr.Output = sio.Output()

	if err == nil {
		sr.Status = StatusSucceeded
		r.logger.Info("step finished", "step", step.Name, "state", step.Reaches, "duration", elapsed)
		return nil
	}

	se := toStepError(step.Name, err, sio.LastExitCode())
	sr.Status = StatusFailed
	sr.FailureKind = se.Kind
	sr.Error = se.Err.Error()
	sr.ExitCode = int(se.ExitCode)
	r.logger.Error("step failed", "step", step.Name, "phase", step.Phase, "kind", se.Kind, "error", se.Err)
	return se
}

// invoke runs the action and turns a panic into an internal failure.
func (r *Runner) invoke(ctx context.Context, step Step, sio *StepIO) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = Failf(KindInternal, "panic: %v", p)
		}
	}()
	return step.Action(ctx, sio)
}

func toStepError(name string, err error, lastExit shell.ExitCode) *StepError {
	var se *StepError
	if !errors.As(err, &se) {
		return &StepError{Step: name, Kind: KindInternal, ExitCode: lastExit, Err: err}
	}
	out := *se
	out.Step = name
	if out.Kind == "" {
		out.Kind = KindInternal
	}
	if out.Err == nil {
		out.Err = errors.New(string(out.Kind))
	}
	return &out
}
