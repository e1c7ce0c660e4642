// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

type (
	// ExecCommandFunc creates exec.Cmd instances. Tests replace it with the
	// TestHelperProcess pattern.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// NativeExecutor runs commands as host processes.
	NativeExecutor struct {
		execCommand ExecCommandFunc
		stream      io.Writer
	}

	// NativeOption configures a NativeExecutor.
	NativeOption func(*NativeExecutor)
)

// WithExecCommand overrides how processes are created.
func WithExecCommand(fn ExecCommandFunc) NativeOption {
	return func(e *NativeExecutor) {
		e.execCommand = fn
	}
}

// WithStream copies command output to w while it is being captured.
func WithStream(w io.Writer) NativeOption {
	return func(e *NativeExecutor) {
		e.stream = w
	}
}

// NewNativeExecutor creates a NativeExecutor using exec.CommandContext.
func NewNativeExecutor(opts ...NativeOption) *NativeExecutor {
	e := &NativeExecutor{execCommand: exec.CommandContext}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run starts the command and waits for it. Output is captured into the
// Result regardless of streaming.
func (e *NativeExecutor) Run(ctx context.Context, cmd Command) *Result {
	if cmd.Name == "" {
		return &Result{ExitCode: 1, Err: errors.New("empty command")}
	}

	c := e.execCommand(ctx, cmd.Name, cmd.Args...)
	if cmd.Dir != "" {
		c.Dir = cmd.Dir
	}
	if len(cmd.Env) > 0 {
		base := c.Env
		if base == nil {
			base = os.Environ()
		}
		c.Env = append(base, cmd.EnvSlice()...)
	}

	var captured bytes.Buffer
	var out io.Writer = &captured
	if e.stream != nil {
		out = io.MultiWriter(&captured, e.stream)
	}
	c.Stdout = out
	c.Stderr = out

	err := c.Run()
	return exitResult(ctx, err, captured.String())
}

func exitResult(ctx context.Context, err error, output string) *Result {
	result := &Result{Output: output}
	if err == nil {
		return result
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		result.ExitCode = 1
		result.Err = fmt.Errorf("command interrupted: %w", ctxErr)
		return result
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := ExitCode(exitErr.ExitCode())
		if validateErr := code.Validate(); validateErr != nil {
			result.ExitCode = 1
			result.Err = validateErr
			return result
		}
		result.ExitCode = code
		return result
	}

	// Not started: missing binary, permission denied.
	result.ExitCode = 1
	result.Err = fmt.Errorf("failed to execute command: %w", err)
	return result
}
