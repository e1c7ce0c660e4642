// SPDX-License-Identifier: MPL-2.0

package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/odbcprov/odbcprov/internal/sequence"
)

const (
	nameWidth  = 22
	phaseWidth = 14
)

type (
	// TextOptions control text rendering.
	TextOptions struct {
		// Color enables ANSI styling.
		Color bool
		// Scheme is "dark", "light" or "auto" (detect the background).
		Scheme string
		// Output includes the captured command output of failed steps.
		Output bool
	}

	textStyles struct {
		title     lipgloss.Style
		succeeded lipgloss.Style
		failed    lipgloss.Style
		skipped   lipgloss.Style
		dim       lipgloss.Style
	}
)

func newTextStyles(out io.Writer, opts TextOptions) textStyles {
	if !opts.Color {
		plain := lipgloss.NewStyle()
		return textStyles{title: plain, succeeded: plain, failed: plain, skipped: plain, dim: plain}
	}

	r := lipgloss.NewRenderer(out)
	switch opts.Scheme {
	case "dark":
		r.SetHasDarkBackground(true)
	case "light":
		r.SetHasDarkBackground(false)
	}

	return textStyles{
		title:     r.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#5B21B6", Dark: "#A78BFA"}),
		succeeded: r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#047857", Dark: "#10B981"}),
		failed:    r.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#EF4444"}),
		skipped:   r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}),
		dim:       r.NewStyle().Foreground(lipgloss.Color("#6B7280")).Italic(true),
	}
}

func writeText(out io.Writer, r *sequence.Report, opts TextOptions) error {
	st := newTextStyles(out, opts)
	var sb strings.Builder

	header := "odbcprov run"
	if r.RunID != "" {
		header += " " + r.RunID
	}
	if r.Platform != "" {
		header += " (platform " + r.Platform + ")"
	}
	sb.WriteString(st.title.Render(header))
	sb.WriteString("\n")

	for _, s := range r.Steps {
		marker, style := "-", st.skipped
		switch s.Status {
		case sequence.StatusSucceeded:
			marker, style = "ok", st.succeeded
		case sequence.StatusFailed:
			marker, style = "FAIL", st.failed
		}

		line := fmt.Sprintf("  %-4s %-*s %-*s", marker, nameWidth, s.Name, phaseWidth, s.Phase)
		if s.Status == sequence.StatusSkipped {
			line += " skipped"
		} else {
			line += fmt.Sprintf(" %6.2fs", s.DurationSeconds)
		}
		sb.WriteString(style.Render(line))
		sb.WriteString("\n")

		if s.Status == sequence.StatusFailed {
			detail := string(s.FailureKind)
			if s.Error != "" {
				detail += ": " + s.Error
			}
			if s.ExitCode != 0 {
				detail += fmt.Sprintf(" (exit %d)", s.ExitCode)
			}
			sb.WriteString("       " + st.failed.Render(detail) + "\n")
			if opts.Output && s.Output != "" {
				for _, l := range strings.Split(strings.TrimRight(s.Output, "\n"), "\n") {
					sb.WriteString("       " + st.dim.Render("| "+l) + "\n")
				}
			}
		}
	}

	summary := fmt.Sprintf("final state: %s (exit %d) in %.2fs", r.FinalState, r.ExitStatus, r.Duration().Seconds())
	if r.Succeeded() {
		sb.WriteString(st.succeeded.Render(summary))
	} else {
		sb.WriteString(st.failed.Render(summary))
	}
	sb.WriteString("\n")

	_, err := io.WriteString(out, sb.String())
	return err
}
