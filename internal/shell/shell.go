// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"context"
	"maps"
	"slices"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

const (
	// ModeNative executes commands with os/exec.
	ModeNative Mode = "native"
	// ModeVirtual executes commands through the embedded mvdan/sh interpreter.
	ModeVirtual Mode = "virtual"
	// ModeDryRun records commands without executing them.
	ModeDryRun Mode = "dry-run"
)

type (
	// Mode selects an Executor implementation.
	Mode string

	// Command is a single external program invocation.
	Command struct {
		// Name is the program to run (looked up on PATH).
		Name string
		// Args are the program arguments.
		Args []string
		// Env holds variables added on top of the inherited environment.
		Env map[string]string
		// Dir is the working directory (empty means the current one).
		Dir string
	}

	// Result is the outcome of running a Command.
	Result struct {
		// ExitCode is the program's exit status.
		ExitCode ExitCode
		// Output is the combined stdout and stderr.
		Output string
		// Err is set when the program could not be started or was interrupted.
		Err error
	}

	// Executor runs commands.
	Executor interface {
		Run(ctx context.Context, cmd Command) *Result
	}
)

// Success reports whether the command started and exited with status 0.
func (r *Result) Success() bool {
	return r.Err == nil && r.ExitCode.IsSuccess()
}

// String renders the command as a POSIX shell line, environment assignments
// first, e.g. `ACCEPT_EULA=Y apt-get install msodbcsql17`.
func (c Command) String() string {
	var parts []string
	for _, k := range slices.Sorted(maps.Keys(c.Env)) {
		parts = append(parts, k+"="+quote(c.Env[k]))
	}
	parts = append(parts, quote(c.Name))
	for _, a := range c.Args {
		parts = append(parts, quote(a))
	}
	return strings.Join(parts, " ")
}

// EnvSlice returns the command's extra environment as sorted KEY=value pairs.
func (c Command) EnvSlice() []string {
	out := make([]string, 0, len(c.Env))
	for _, k := range slices.Sorted(maps.Keys(c.Env)) {
		out = append(out, k+"="+c.Env[k])
	}
	return out
}

func quote(s string) string {
	q, err := syntax.Quote(s, syntax.LangPOSIX)
	if err != nil {
		// Only strings with NUL bytes cannot be quoted; they cannot be
		// passed as arguments either.
		return s
	}
	return q
}
