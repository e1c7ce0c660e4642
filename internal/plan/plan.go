// SPDX-License-Identifier: MPL-2.0

// Package plan assembles the provisioning routine: the six steps of the
// registrar, package and dependency phases, parameterized by a platform
// profile and the user's configuration.
package plan

import (
	"cmp"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"

	"github.com/odbcprov/odbcprov/internal/config"
	"github.com/odbcprov/odbcprov/internal/dependencies"
	"github.com/odbcprov/odbcprov/internal/packages"
	"github.com/odbcprov/odbcprov/internal/registrar"
	"github.com/odbcprov/odbcprov/internal/sequence"
	"github.com/odbcprov/odbcprov/internal/shell"
)

// Step names, in run order.
const (
	StepRegisterKey         = "register-key"
	StepRegisterSource      = "register-source"
	StepRefreshIndex        = "refresh-index"
	StepInstallDriver       = "install-driver"
	StepUpgradeInstaller    = "upgrade-installer"
	StepInstallDependencies = "install-dependencies"
)

type (
	// Settings is the resolved configuration of the three phases.
	Settings struct {
		Profile      Profile
		Registrar    registrar.Config
		Packages     packages.Config
		Dependencies dependencies.Config
	}

	// Deps are the run-time collaborators of the steps.
	Deps struct {
		// Root is the filesystem the trust store and driver live in.
		Root afero.Fs
		// Work is the filesystem the dependency manifest is read from.
		Work afero.Fs
		// Fetcher downloads vendor artifacts.
		Fetcher *registrar.Fetcher
		// License is the resolved license decision.
		License packages.License
	}
)

// Resolve merges cfg over the defaults of its platform profile.
func Resolve(cfg *config.Config) (Settings, error) {
	prof, err := ProfileFor(cfg.Platform)
	if err != nil {
		return Settings{}, err
	}

	target := registrar.Target{
		OS:      cmp.Or(cfg.Target.OS, prof.Target.OS),
		Release: cmp.Or(cfg.Target.Release, prof.Target.Release),
	}
	if err := target.Validate(); err != nil {
		return Settings{}, err
	}

	reg := registrar.DefaultConfig()
	reg.KeyURL = cmp.Or(cfg.Registrar.KeyURL, reg.KeyURL)
	reg.RepoConfigURL = cmp.Or(cfg.Registrar.RepoConfigURL, reg.RepoConfigURL)
	reg.KeyringPath = cmp.Or(cfg.Registrar.KeyringPath, reg.KeyringPath)
	reg.SourceListPath = cmp.Or(cfg.Registrar.SourceListPath, reg.SourceListPath)
	reg.Target = target

	pkg := packages.DefaultConfig()
	if len(cfg.Packages.Names) > 0 {
		pkg.Packages = cfg.Packages.Names
	}
	pkg.DriverLibGlob = cmp.Or(cfg.Packages.DriverLibGlob, pkg.DriverLibGlob)
	pkg.VerifyDriver = cfg.Packages.VerifyDriver
	pkg.KeyringPath = reg.KeyringPath
	pkg.SourceListPath = reg.SourceListPath

	dep := dependencies.DefaultConfig()
	dep.Python = cmp.Or(cfg.Dependencies.Python, prof.Python)
	dep.Manifest = cmp.Or(cfg.Dependencies.Manifest, dep.Manifest)
	dep.UpgradeInstaller = cfg.Dependencies.UpgradeInstaller
	dep.ExtraArgs = cfg.Dependencies.ExtraArgs

	if cfg.Image.BaseImage != "" {
		prof.BaseImage = cfg.Image.BaseImage
	}

	return Settings{Profile: prof, Registrar: reg, Packages: pkg, Dependencies: dep}, nil
}

// Build returns the provisioning steps in run order. Each step requires the
// one before it, and the phases run registrar, packages, dependencies.
func Build(s Settings, deps Deps) []sequence.Step {
	reg := registrar.New(s.Registrar, deps.Root, deps.Fetcher)

	pkgCfg := s.Packages
	pkgCfg.License = deps.License
	pkg := packages.New(pkgCfg, deps.Root)

	dep := dependencies.New(s.Dependencies, deps.Work)

	return []sequence.Step{
		{
			Name:    StepRegisterKey,
			Phase:   sequence.PhaseRegistrar,
			Reaches: sequence.StateKeyRegistered,
			Action:  reg.RegisterKey,
			Summary: fmt.Sprintf("fetch %s and store it de-armored in %s", s.Registrar.KeyURL, s.Registrar.KeyringPath),
		},
		{
			Name:     StepRegisterSource,
			Phase:    sequence.PhaseRegistrar,
			Reaches:  sequence.StateSourceRegistered,
			Requires: []string{StepRegisterKey},
			Action:   reg.RegisterSource,
			Summary:  fmt.Sprintf("fetch %s into %s", describeDescriptor(s.Registrar), s.Registrar.SourceListPath),
		},
		{
			Name:     StepRefreshIndex,
			Phase:    sequence.PhasePackages,
			Reaches:  sequence.StateIndexRefreshed,
			Requires: []string{StepRegisterSource},
			Action:   pkg.RefreshIndex,
			Summary:  "check the keyring and source entry, then refresh the package index",
			Commands: []shell.Command{pkg.RefreshCommand()},
		},
		{
			Name:     StepInstallDriver,
			Phase:    sequence.PhasePackages,
			Reaches:  sequence.StateDriverInstalled,
			Requires: []string{StepRefreshIndex},
			Action:   pkg.InstallDriver,
			Summary:  "install " + strings.Join(s.Packages.Packages, ", ") + " once the license is accepted",
			Commands: []shell.Command{pkg.InstallCommand()},
		},
		{
			Name:     StepUpgradeInstaller,
			Phase:    sequence.PhaseDependencies,
			Requires: []string{StepInstallDriver},
			Action:   dep.UpgradeInstaller,
			Summary:  upgradeSummary(s.Dependencies),
			Commands: upgradeCommands(dep, s.Dependencies),
		},
		{
			Name:     StepInstallDependencies,
			Phase:    sequence.PhaseDependencies,
			Reaches:  sequence.StateDepsInstalled,
			Requires: []string{StepUpgradeInstaller},
			Action:   dep.InstallDependencies,
			Summary:  "install the packages listed in " + s.Dependencies.Manifest,
			Commands: []shell.Command{dep.InstallCommand()},
		},
	}
}

// Describe writes a numbered listing of steps and the commands they run.
func Describe(w io.Writer, steps []sequence.Step) error {
	for i, s := range steps {
		reaches := ""
		if s.Reaches != sequence.StateNone {
			reaches = " -> " + s.Reaches.String()
		}
		if _, err := fmt.Fprintf(w, "%d. %s [%s]%s\n", i+1, s.Name, s.Phase, reaches); err != nil {
			return err
		}
		if s.Summary != "" {
			if _, err := fmt.Fprintf(w, "   %s\n", s.Summary); err != nil {
				return err
			}
		}
		for _, c := range s.Commands {
			if _, err := fmt.Fprintf(w, "   $ %s\n", c.String()); err != nil {
				return err
			}
		}
	}
	return nil
}

func describeDescriptor(c registrar.Config) string {
	if c.Target.OS == registrar.AutoDetect {
		return c.RepoConfigURL + "/<detected os>/<release>/prod.list"
	}
	return c.DescriptorURL(c.Target)
}

func upgradeSummary(c dependencies.Config) string {
	if !c.UpgradeInstaller {
		return "keep the installed pip"
	}
	return "upgrade pip"
}

func upgradeCommands(dep *dependencies.Installer, c dependencies.Config) []shell.Command {
	if !c.UpgradeInstaller {
		return nil
	}
	return []shell.Command{dep.UpgradeCommand()}
}
