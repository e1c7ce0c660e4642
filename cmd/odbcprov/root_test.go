// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/fang"

	"github.com/odbcprov/odbcprov/internal/issue"
)

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.

	t.Run("ldflags version takes priority", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version = "v1.2.3"
		Commit = "abc1234"
		BuildDate = "2026-03-02T10:00:00Z"

		got := getVersionString()
		want := "v1.2.3 (commit: abc1234, built: 2026-03-02T10:00:00Z)"
		if got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})

	t.Run("fallback to dev when no build info", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		// Test binaries report Main.Version == "(devel)".
		Version = "dev"

		got := getVersionString()
		want := "dev (built from source)"
		if got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})
}

func TestNewRootCommand_Subcommands(t *testing.T) {
	t.Parallel()

	root := NewRootCommand(NewApp(Dependencies{}))

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"apply", "config", "hook", "image", "plan"} {
		if !slices.Contains(names, want) {
			t.Errorf("root command is missing %q (have %v)", want, names)
		}
	}

	for _, flag := range []string{"verbose", "config"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("missing persistent flag --%s", flag)
		}
	}
}

func TestRun_UsageErrorExitsOne(t *testing.T) {
	t.Parallel()

	res := runApp(t, Dependencies{}, "apply", "--no-such-flag")
	if res.code != 1 {
		t.Errorf("exit = %d, want 1", res.code)
	}
	if !strings.Contains(res.stderr, "no-such-flag") {
		t.Errorf("stderr does not mention the bad flag:\n%s", res.stderr)
	}
}

func TestHandleError(t *testing.T) {
	t.Parallel()

	app := NewApp(Dependencies{})

	t.Run("exit error is silent", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		app.handleError(&buf, fang.Styles{}, &ExitError{Code: 1, Err: errors.New("already reported")})
		if buf.Len() != 0 {
			t.Errorf("handleError wrote %q for an ExitError", buf.String())
		}
	})

	t.Run("actionable error shows suggestions and issue", func(t *testing.T) {
		t.Parallel()

		err := issue.NewErrorContext().
			WithOperation("find container engine").
			WithSuggestion("Install Docker or Podman").
			WithIssue(issue.ContainerEngineNotFoundId).
			Wrap(errors.New("no engine")).
			BuildError()

		var buf bytes.Buffer
		app.handleError(&buf, fang.Styles{}, err)

		out := buf.String()
		for _, want := range []string{"failed to find container engine: no engine", "Install Docker or Podman"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
		if len(strings.Split(out, "\n")) < 5 {
			t.Errorf("issue catalog entry was not rendered:\n%s", out)
		}
	})
}

func TestExitError(t *testing.T) {
	t.Parallel()

	cause := errors.New("step failed")
	withCause := &ExitError{Code: 1, Err: cause}
	if withCause.Error() != "step failed" || !errors.Is(withCause, cause) {
		t.Errorf("ExitError with cause = %q, unwrap ok = %v", withCause.Error(), errors.Is(withCause, cause))
	}
	if got := (&ExitError{Code: 3}).Error(); got != "exit status 3" {
		t.Errorf("ExitError without cause = %q, want exit status 3", got)
	}
}
