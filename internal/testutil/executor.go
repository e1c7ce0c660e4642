// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/odbcprov/odbcprov/internal/shell"
)

type (
	// RecordingExecutor is a shell.Executor that records every command and
	// returns scripted results. Commands with no matching rule succeed with
	// empty output.
	RecordingExecutor struct {
		mu    sync.Mutex
		calls []shell.Command
		rules []rule
	}

	rule struct {
		match  string
		result shell.Result
		effect func(shell.Command)
	}
)

// NewRecordingExecutor creates an executor where every command succeeds.
func NewRecordingExecutor() *RecordingExecutor {
	return &RecordingExecutor{}
}

// On makes commands whose rendered line contains match return res. Later
// rules take precedence over earlier ones.
func (e *RecordingExecutor) On(match string, res shell.Result) *RecordingExecutor {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append(e.rules, rule{match: match, result: res})
	return e
}

// Effect runs fn for every command whose rendered line contains match,
// before its result is returned. Use it to simulate side effects such as
// a package manager writing files.
func (e *RecordingExecutor) Effect(match string, fn func(shell.Command)) *RecordingExecutor {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append(e.rules, rule{match: match, effect: fn})
	return e
}

// Fail makes commands matching match exit with code and print output.
func (e *RecordingExecutor) Fail(match string, code shell.ExitCode, output string) *RecordingExecutor {
	return e.On(match, shell.Result{ExitCode: code, Output: output})
}

// Run implements shell.Executor.
func (e *RecordingExecutor) Run(_ context.Context, cmd shell.Command) *shell.Result {
	line := cmd.String()

	e.mu.Lock()
	e.calls = append(e.calls, cmd)
	var result shell.Result
	var effects []func(shell.Command)
	for _, r := range e.rules {
		if !strings.Contains(line, r.match) {
			continue
		}
		if r.effect != nil {
			effects = append(effects, r.effect)
			continue
		}
		result = r.result
	}
	e.mu.Unlock()

	for _, fn := range effects {
		fn(cmd)
	}
	return &result
}

// Commands returns the recorded commands in order.
func (e *RecordingExecutor) Commands() []shell.Command {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.calls)
}

// Lines returns the recorded commands rendered as shell lines.
func (e *RecordingExecutor) Lines() []string {
	cmds := e.Commands()
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.String()
	}
	return out
}

// Ran reports whether any recorded command line contains substr.
func (e *RecordingExecutor) Ran(substr string) bool {
	return slices.ContainsFunc(e.Lines(), func(l string) bool {
		return strings.Contains(l, substr)
	})
}

// Count returns how many recorded command lines contain substr.
func (e *RecordingExecutor) Count(substr string) int {
	n := 0
	for _, l := range e.Lines() {
		if strings.Contains(l, substr) {
			n++
		}
	}
	return n
}
