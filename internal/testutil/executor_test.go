// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"context"
	"testing"

	"github.com/odbcprov/odbcprov/internal/shell"
)

func TestRecordingExecutor(t *testing.T) {
	t.Parallel()

	var touched []string
	e := NewRecordingExecutor().
		Fail("install", 100, "E: Unable to locate package msodbcsql17").
		Effect("update", func(c shell.Command) { touched = append(touched, c.Name) })

	ctx := context.Background()
	if res := e.Run(ctx, shell.Command{Name: "apt-get", Args: []string{"update"}}); !res.Success() {
		t.Errorf("update should succeed, got %+v", res)
	}
	res := e.Run(ctx, shell.Command{Name: "apt-get", Args: []string{"install", "msodbcsql17"}})
	if res.ExitCode != 100 || res.Output == "" {
		t.Errorf("install result = %+v", res)
	}

	if got := len(e.Commands()); got != 2 {
		t.Errorf("recorded %d commands, want 2", got)
	}
	if !e.Ran("apt-get update") || e.Ran("pip") {
		t.Errorf("Ran() mismatch, lines = %v", e.Lines())
	}
	if e.Count("apt-get") != 2 {
		t.Errorf("Count(apt-get) = %d", e.Count("apt-get"))
	}
	if len(touched) != 1 || touched[0] != "apt-get" {
		t.Errorf("effects ran for %v", touched)
	}
}

func TestRecordingExecutor_LaterRuleWins(t *testing.T) {
	t.Parallel()

	e := NewRecordingExecutor().
		Fail("pip", 1, "").
		On("pip", shell.Result{Output: "ok"})

	res := e.Run(context.Background(), shell.Command{Name: "pip"})
	if !res.Success() || res.Output != "ok" {
		t.Errorf("result = %+v", res)
	}
}

func TestArmoredPublicKey(t *testing.T) {
	t.Parallel()

	armored := ArmoredPublicKey(t)
	if len(armored) == 0 || string(armored[:36]) != "-----BEGIN PGP PUBLIC KEY BLOCK-----" {
		t.Errorf("unexpected armor header: %q", armored[:min(len(armored), 40)])
	}
	if len(BinaryPublicKey(t)) == 0 {
		t.Error("binary key is empty")
	}
}
