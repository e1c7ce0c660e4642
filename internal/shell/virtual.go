// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// VirtualExecutor runs commands through the embedded mvdan/sh interpreter.
// External programs are still resolved on PATH; only the shell is virtual.
type VirtualExecutor struct {
	stream io.Writer
}

// NewVirtualExecutor creates a VirtualExecutor. When stream is non-nil the
// output is copied to it while being captured.
func NewVirtualExecutor(stream io.Writer) *VirtualExecutor {
	return &VirtualExecutor{stream: stream}
}

// Run interprets the command's quoted shell line.
func (e *VirtualExecutor) Run(ctx context.Context, cmd Command) *Result {
	if cmd.Name == "" {
		return &Result{ExitCode: 1, Err: errors.New("empty command")}
	}

	prog, err := syntax.NewParser().Parse(strings.NewReader(cmd.String()), cmd.Name)
	if err != nil {
		return &Result{ExitCode: 1, Err: fmt.Errorf("failed to parse command: %w", err)}
	}

	var captured bytes.Buffer
	var out io.Writer = &captured
	if e.stream != nil {
		out = io.MultiWriter(&captured, e.stream)
	}

	opts := []interp.RunnerOption{
		interp.Env(expand.ListEnviron(os.Environ()...)),
		interp.StdIO(nil, out, out),
	}
	if cmd.Dir != "" {
		opts = append(opts, interp.Dir(cmd.Dir))
	}

	runner, err := interp.New(opts...)
	if err != nil {
		return &Result{ExitCode: 1, Err: fmt.Errorf("failed to create interpreter: %w", err)}
	}

	result := &Result{}
	if err := runner.Run(ctx, prog); err != nil {
		var exitStatus interp.ExitStatus
		switch {
		case ctx.Err() != nil:
			result.ExitCode = 1
			result.Err = fmt.Errorf("command interrupted: %w", ctx.Err())
		case errors.As(err, &exitStatus):
			result.ExitCode = ExitCode(exitStatus)
		default:
			result.ExitCode = 1
			result.Err = fmt.Errorf("command execution failed: %w", err)
		}
	}
	result.Output = captured.String()
	return result
}
