// SPDX-License-Identifier: MPL-2.0

package packages

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/odbcprov/odbcprov/internal/issue"
	"github.com/odbcprov/odbcprov/internal/registrar"
	"github.com/odbcprov/odbcprov/internal/sequence"
	"github.com/odbcprov/odbcprov/internal/shell"
)

// DefaultDriverLibGlob matches the shared library msodbcsql17 installs.
const DefaultDriverLibGlob = "/opt/microsoft/msodbcsql17/lib64/libmsodbcsql-17*.so*"

// aptGet is the base of every apt-get call: never prompt, never replace
// config files changed locally, quiet progress output.
var aptGet = []string{"--option=Dpkg::Options::=--force-confold", "--assume-yes", "--quiet"}

type (
	// Config controls the package phase.
	Config struct {
		// Packages are installed in one apt transaction.
		Packages []string
		// DriverLibGlob locates the installed driver library.
		DriverLibGlob string
		// VerifyDriver enables the post-install library check.
		VerifyDriver bool
		// KeyringPath and SourceListPath are checked before refreshing.
		KeyringPath    string
		SourceListPath string
		// License is the resolved acceptance decision.
		License License
	}

	// Installer performs the refresh-index and install-driver steps.
	Installer struct {
		cfg Config
		fs  afero.Fs
	}
)

// DefaultConfig installs msodbcsql17 and unixodbc-dev with verification on
// and the license not accepted.
func DefaultConfig() Config {
	return Config{
		Packages:       []string{"msodbcsql17", "unixodbc-dev"},
		DriverLibGlob:  DefaultDriverLibGlob,
		VerifyDriver:   true,
		KeyringPath:    registrar.DefaultKeyringPath,
		SourceListPath: registrar.DefaultSourceListPath,
	}
}

// New creates an Installer that inspects fs.
func New(cfg Config, fs afero.Fs) *Installer {
	return &Installer{cfg: cfg, fs: fs}
}

// RefreshCommand is the index refresh. --error-on=any turns a partially
// failed refresh into a non-zero exit.
func (i *Installer) RefreshCommand() shell.Command {
	return shell.Command{
		Name: "apt-get",
		Args: append(append([]string{}, aptGet...), "--error-on=any", "update"),
	}
}

// InstallCommand installs the driver packages non-interactively with the
// license acceptance passed through.
func (i *Installer) InstallCommand() shell.Command {
	args := append(append([]string{}, aptGet...), "--no-install-recommends", "install")
	return shell.Command{
		Name: "apt-get",
		Args: append(args, i.cfg.Packages...),
		Env: map[string]string{
			LicenseEnvVar:     "Y",
			"DEBIAN_FRONTEND": "noninteractive",
		},
	}
}

// RefreshIndex checks the registrar's artifacts and refreshes the index.
// A missing or invalid key or source entry fails without running apt.
func (i *Installer) RefreshIndex(ctx context.Context, sio *sequence.StepIO) error {
	info, err := registrar.ValidateKeyring(i.fs, i.cfg.KeyringPath)
	if err != nil {
		return sequence.Fail(sequence.KindPackageResolution, issue.NewErrorContext().
			WithOperation("check vendor keyring").
			WithResource(i.cfg.KeyringPath).
			WithSuggestion("Run the register-key step first").
			WithIssue(issue.PackageResolutionFailedId).
			Wrap(err).
			BuildError())
	}
	entries, err := registrar.ValidateSourceList(i.fs, i.cfg.SourceListPath)
	if err != nil {
		return sequence.Fail(sequence.KindPackageResolution, issue.NewErrorContext().
			WithOperation("check vendor source entry").
			WithResource(i.cfg.SourceListPath).
			WithSuggestion("Run the register-source step first").
			WithIssue(issue.PackageResolutionFailedId).
			Wrap(err).
			BuildError())
	}
	for _, e := range entries {
		if e.SignedBy() != i.cfg.KeyringPath {
			return sequence.Fail(sequence.KindPackageResolution, issue.NewErrorContext().
				WithOperation("check vendor source entry").
				WithResource(i.cfg.SourceListPath).
				WithSuggestion("Run the register-source step to bind the entry to the keyring").
				WithIssue(issue.PackageResolutionFailedId).
				Wrap(fmt.Errorf("entry for %s is not signed by %s", e.URI, i.cfg.KeyringPath)).
				BuildError())
		}
	}
	sio.Notef("keyring %s ok (%s), %d source entries", i.cfg.KeyringPath, info.Fingerprint, len(entries))

	return sio.ExecChecked(ctx, i.RefreshCommand(), sequence.KindPackageResolution)
}

// InstallDriver installs the driver packages. It refuses to run the
// package manager unless the license was explicitly accepted.
func (i *Installer) InstallDriver(ctx context.Context, sio *sequence.StepIO) error {
	if !i.cfg.License.Accepted {
		reason := "no acceptance was given"
		if i.cfg.License.Source != "" {
			reason = "acceptance from " + i.cfg.License.Source + " is not y, yes, true or 1"
		}
		return sequence.Fail(sequence.KindLicenseNotAccepted, issue.NewErrorContext().
			WithOperation("install driver packages").
			WithResource(strings.Join(i.cfg.Packages, " ")).
			WithSuggestion("Pass --accept-eula or export ACCEPT_EULA=Y").
			WithIssue(issue.LicenseNotAcceptedId).
			Wrap(fmt.Errorf("license not accepted: %s", reason)).
			BuildError())
	}
	sio.Notef("license accepted via %s", i.cfg.License.Source)

	if err := sio.ExecChecked(ctx, i.InstallCommand(), sequence.KindPackageResolution); err != nil {
		return err
	}

	if !i.cfg.VerifyDriver {
		return nil
	}
	libs, err := afero.Glob(i.fs, i.cfg.DriverLibGlob)
	if err != nil {
		return sequence.Fail(sequence.KindInternal, fmt.Errorf("bad driver library pattern %q: %w", i.cfg.DriverLibGlob, err))
	}
	if len(libs) == 0 {
		return sequence.Fail(sequence.KindPackageResolution, issue.NewErrorContext().
			WithOperation("verify driver installation").
			WithResource(i.cfg.DriverLibGlob).
			WithSuggestion("Check the apt output above; the package manager reported success but installed nothing").
			WithIssue(issue.PackageResolutionFailedId).
			Wrap(fmt.Errorf("no driver library matches %s", i.cfg.DriverLibGlob)).
			BuildError())
	}
	sio.Notef("driver library %s", libs[len(libs)-1])
	return nil
}
