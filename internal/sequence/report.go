// SPDX-License-Identifier: MPL-2.0

package sequence

import "time"

const (
	// StatusSucceeded means the step ran and succeeded.
	StatusSucceeded StepStatus = "succeeded"
	// StatusFailed means the step ran and failed; the run was aborted.
	StatusFailed StepStatus = "failed"
	// StatusSkipped means the step never ran because an earlier step failed.
	StatusSkipped StepStatus = "skipped"
)

type (
	// StepStatus is the outcome of a single step.
	StepStatus string

	// Report is the structured result of a provisioning run.
	Report struct {
		RunID      string       `json:"run_id" yaml:"run_id" toml:"run_id"`
		Platform   string       `json:"platform" yaml:"platform" toml:"platform"`
		StartedAt  time.Time    `json:"started_at" yaml:"started_at" toml:"started_at"`
		FinishedAt time.Time    `json:"finished_at" yaml:"finished_at" toml:"finished_at"`
		FinalState State        `json:"final_state" yaml:"final_state" toml:"final_state"`
		ExitStatus int          `json:"exit_status" yaml:"exit_status" toml:"exit_status"`
		Steps      []StepReport `json:"steps" yaml:"steps" toml:"steps"`
	}

	// StepReport is the outcome of one step within a Report.
	StepReport struct {
		Name            string      `json:"name" yaml:"name" toml:"name"`
		Phase           Phase       `json:"phase" yaml:"phase" toml:"phase"`
		Status          StepStatus  `json:"status" yaml:"status" toml:"status"`
		FailureKind     FailureKind `json:"failure_kind,omitempty" yaml:"failure_kind,omitempty" toml:"failure_kind,omitempty"`
		Error           string      `json:"error,omitempty" yaml:"error,omitempty" toml:"error,omitempty"`
		ExitCode        int         `json:"exit_code,omitempty" yaml:"exit_code,omitempty" toml:"exit_code,omitempty"`
		DurationSeconds float64     `json:"duration_seconds" yaml:"duration_seconds" toml:"duration_seconds"`
		Output          string      `json:"output,omitempty" yaml:"output,omitempty" toml:"output,omitempty"`
	}
)

// Succeeded reports whether the run reached DONE.
func (r *Report) Succeeded() bool {
	return r.FinalState == StateDone
}

// FailedStep returns the step that aborted the run, or nil.
func (r *Report) FailedStep() *StepReport {
	for i := range r.Steps {
		if r.Steps[i].Status == StatusFailed {
			return &r.Steps[i]
		}
	}
	return nil
}

// Duration returns the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Count returns how many steps ended with status.
func (r *Report) Count(status StepStatus) int {
	n := 0
	for _, s := range r.Steps {
		if s.Status == status {
			n++
		}
	}
	return n
}
