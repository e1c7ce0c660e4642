// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/odbcprov/odbcprov/internal/issue"
	"github.com/odbcprov/odbcprov/internal/report"
	"github.com/odbcprov/odbcprov/internal/sequence"
)

// renderStepFailure reports an aborted run: the failed step, its failure
// kind and the catalog entry explaining that kind.
func renderStepFailure(w io.Writer, err error, verbose bool) {
	var stepErr *sequence.StepError
	if !errors.As(err, &stepErr) {
		fmt.Fprintln(w, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
		renderIssue(w, issue.IssueOf(err))
		return
	}

	fmt.Fprintf(w, "%s step %s failed (%s): %s\n",
		ErrorStyle.Render("Error:"), CmdStyle.Render(stepErr.Step), stepErr.Kind,
		formatErrorForDisplay(stepErr.Err, verbose))
	renderIssue(w, cmp.Or(stepErr.Kind.Issue(), issue.IssueOf(stepErr.Err)))
}

// renderIssue prints the catalog entry for id, if any.
func renderIssue(w io.Writer, id issue.Id) {
	if id == 0 {
		return
	}

	entry := issue.Get(id)
	if entry == nil {
		return
	}

	style := "notty"
	if report.IsTerminal(w) {
		style = "dark"
	}
	rendered, err := entry.Render(style)
	if err != nil {
		slog.Warn("failed to render issue catalog entry", "issueID", id, "error", err)
		return
	}
	fmt.Fprint(w, rendered)
}

// formatErrorForDisplay formats an error for user display. ActionableErrors
// use their Format method; verbose mode shows the full error chain.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}
