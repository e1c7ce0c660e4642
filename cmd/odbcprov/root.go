// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/odbcprov/odbcprov/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the odbcprov command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "odbcprov",
		Short: "Provision the SQL Server ODBC driver and Python dependencies",
		Long: TitleStyle.Render("odbcprov") + SubtitleStyle.Render(" - SQL Server ODBC driver provisioning") + `

odbcprov registers the vendor package repository, installs the ODBC driver
and its development headers, and installs the Python packages listed in a
pip requirements manifest. The steps run in order and stop at the first
failure; a step report is written at the end of every run.

` + SubtitleStyle.Render("Examples:") + `
  odbcprov plan                       Show the steps for the current platform
  odbcprov apply --accept-eula        Provision this machine
  odbcprov image build --accept-eula  Build a provisioned container image
  odbcprov hook -o prebuild.sh        Write a managed platform build hook`,
	}
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&app.configPath, "config", "", "config file (default is $HOME/.config/odbcprov/config.cue)")

	rootCmd.AddCommand(
		newApplyCommand(app),
		newPlanCommand(app),
		newHookCommand(app),
		newImageCommand(app),
		newConfigCommand(app),
	)

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version != "dev" {
		return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev (built from source)"
}

// Execute runs the CLI with the process arguments and exits with the
// resulting status. It is called by main.main().
func Execute() {
	os.Exit(run(context.Background(), NewApp(Dependencies{}), os.Args[1:]))
}

// run executes the command tree with args and returns the exit status.
func run(ctx context.Context, app *App, args []string) int {
	rootCmd := NewRootCommand(app)
	rootCmd.SetArgs(args)

	err := fang.Execute(
		ctx,
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(app.handleError),
	)
	if err == nil {
		return 0
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

// handleError renders err once. Actionable errors get their suggestions and
// the catalog entry of their issue; an ExitError was reported by the
// command that returned it.
func (a *App) handleError(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return
	}

	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		fang.DefaultErrorHandler(w, styles, err)
		return
	}

	fmt.Fprintln(w, ErrorStyle.Render("Error: ")+ae.Format(a.verbose))
	renderIssue(w, issue.IssueOf(err))
}
