// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
)

// DryRunExecutor records commands instead of running them. Every command
// succeeds with empty output.
type DryRunExecutor struct {
	mu       sync.Mutex
	commands []Command
	out      io.Writer
}

// NewDryRunExecutor creates a DryRunExecutor. When out is non-nil each
// command line is printed to it prefixed with "+ ".
func NewDryRunExecutor(out io.Writer) *DryRunExecutor {
	return &DryRunExecutor{out: out}
}

// Run records cmd.
func (e *DryRunExecutor) Run(_ context.Context, cmd Command) *Result {
	e.mu.Lock()
	e.commands = append(e.commands, cmd)
	e.mu.Unlock()

	if e.out != nil {
		fmt.Fprintf(e.out, "+ %s\n", cmd)
	}
	return &Result{}
}

// Commands returns the recorded commands in order.
func (e *DryRunExecutor) Commands() []Command {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.commands)
}
