// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/odbcprov/odbcprov/internal/config"
	"github.com/odbcprov/odbcprov/internal/fsutil"
	"github.com/odbcprov/odbcprov/internal/plan"
	"github.com/odbcprov/odbcprov/internal/registrar"
	"github.com/odbcprov/odbcprov/internal/report"
	"github.com/odbcprov/odbcprov/internal/sequence"
	"github.com/odbcprov/odbcprov/internal/shell"
)

type applyFlags struct {
	routineFlags
	executor     string
	reportFormat string
	reportOutput string
	metricsFile  string
	dryRun       bool
}

func newApplyCommand(app *App) *cobra.Command {
	var f applyFlags

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Register the vendor repository and install the driver and dependencies",
		Long: `Run the provisioning routine on this machine.

The registrar phase stores the vendor signing key and repository entry, the
package phase refreshes the package index and installs the ODBC driver, and
the dependency phase installs the pip manifest. The first failing step
aborts the run; the step report is written either way and the exit status
is 1 on failure.

The driver is only installed when its license is accepted through
--accept-eula, the ACCEPT_EULA environment variable or license.accept_eula
in the config file, in that order of precedence.`,
		Example: `  odbcprov apply --accept-eula
  odbcprov apply --platform managed --manifest app/requirements.txt
  odbcprov apply --executor dry-run --root /tmp/odbc-root --accept-eula
  odbcprov apply --report-format json -o report.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApply(cmd, app, &f)
		},
	}

	f.register(cmd)
	f.registerRoot(cmd)
	fl := cmd.Flags()
	fl.StringVar(&f.executor, "executor", "", "command executor (native, virtual, dry-run)")
	fl.BoolVar(&f.dryRun, "dry-run", false, "print the steps and their commands without running anything")
	fl.StringVar(&f.reportFormat, "report-format", "", "report format (text, json, yaml, toml)")
	fl.StringVarP(&f.reportOutput, "output", "o", "", "write the report to a file instead of stdout")
	fl.StringVar(&f.metricsFile, "metrics-file", "", "write step metrics in Prometheus textfile format")

	return cmd
}

func runApply(cmd *cobra.Command, app *App, f *applyFlags) error {
	ctx := cmd.Context()

	cfg, settings, err := app.resolve(ctx, &f.routineFlags, func(cfg *config.Config) {
		if f.executor != "" {
			cfg.Executor.Mode = config.ExecutorMode(f.executor)
		}
		if f.reportFormat != "" {
			cfg.Report.Format = config.ReportFormat(f.reportFormat)
		}
		if f.reportOutput != "" {
			cfg.Report.Output = f.reportOutput
		}
		if f.metricsFile != "" {
			cfg.Report.MetricsFile = f.metricsFile
		}
	})
	if err != nil {
		return err
	}

	deps := plan.Deps{
		Root:    fsutil.New(cfg.Root),
		Work:    afero.NewOsFs(),
		Fetcher: app.fetcher(),
		License: app.resolveLicense(cmd, f.acceptEULA, cfg),
	}

	if f.dryRun {
		printPlanHeader(app.stdout, settings, deps)
		return plan.Describe(app.stdout, plan.Build(settings, deps))
	}

	if err := cfg.ValidateRoot(); err != nil {
		return invalidConfigError(err)
	}

	mode := shell.Mode(cfg.Executor.Mode)
	if mode == shell.ModeDryRun {
		// Nothing is installed, so there is no driver library to find.
		settings.Packages.VerifyDriver = false
	}
	exec, err := shell.NewExecutor(mode, app.commandStream(mode))
	if err != nil {
		return invalidConfigError(err)
	}

	runner := sequence.NewRunner(exec,
		sequence.WithLogger(app.logger()),
		sequence.WithPlatform(string(cfg.Platform)),
	)
	rep, runErr := runner.Run(ctx, plan.Build(settings, deps))
	if rep == nil {
		return runErr
	}

	if err := app.writeReport(cfg, rep); err != nil {
		return err
	}

	if runErr != nil {
		renderStepFailure(app.stderr, runErr, app.verbose)
		return &ExitError{Code: rep.ExitStatus, Err: runErr}
	}
	return nil
}

// commandStream is where executors copy live command output: the command
// lines for a dry run, and the command output in verbose mode.
func (a *App) commandStream(mode shell.Mode) io.Writer {
	if mode == shell.ModeDryRun || a.verbose {
		return a.stderr
	}
	return nil
}

func (a *App) fetcher() *registrar.Fetcher {
	opts := []registrar.FetcherOption{registrar.WithUserAgent(config.AppName + "/" + Version)}
	if a.HTTPClient != nil {
		opts = append(opts, registrar.WithHTTPClient(a.HTTPClient))
	}
	return registrar.NewFetcher(opts...)
}

// writeReport writes the step report and, when configured, the metrics
// textfile.
func (a *App) writeReport(cfg *config.Config, rep *sequence.Report) error {
	toFile := cfg.Report.Output != ""
	w, err := report.New(report.Format(cfg.Report.Format), report.WithTextOptions(report.TextOptions{
		Color:  !toFile && report.ColorEnabled(a.stdout),
		Scheme: string(cfg.UI.ColorScheme),
		Output: a.verbose,
	}))
	if err != nil {
		return invalidConfigError(err)
	}

	if toFile {
		err = w.WriteFile(afero.NewOsFs(), cfg.Report.Output, rep)
	} else {
		err = w.Write(a.stdout, rep)
	}
	if err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	if cfg.Report.MetricsFile != "" {
		if err := report.WriteMetrics(cfg.Report.MetricsFile, rep); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}
	return nil
}

func printPlanHeader(w io.Writer, s plan.Settings, deps plan.Deps) {
	fmt.Fprintf(w, "%s %s (%s)\n", TitleStyle.Render("Platform:"), s.Profile.Name, s.Profile.Description)
	fmt.Fprintf(w, "%s %s %s\n", SubtitleStyle.Render("Target:"), s.Registrar.Target.OS, s.Registrar.Target.Release)
	fmt.Fprintf(w, "%s %s\n", SubtitleStyle.Render("Python:"), s.Dependencies.Python)
	if s.Profile.BaseImage != "" {
		fmt.Fprintf(w, "%s %s\n", SubtitleStyle.Render("Base image:"), s.Profile.BaseImage)
	}
	fmt.Fprintf(w, "%s %s\n\n", SubtitleStyle.Render("License:"), describeLicense(deps))
}

func describeLicense(deps plan.Deps) string {
	switch {
	case deps.License.Accepted:
		return "accepted via " + deps.License.Source
	case deps.License.Source != "":
		return "refused via " + deps.License.Source + " (install-driver will abort)"
	default:
		return "not accepted (install-driver will abort)"
	}
}
