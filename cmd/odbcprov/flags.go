// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/odbcprov/odbcprov/internal/config"
	"github.com/odbcprov/odbcprov/internal/issue"
	"github.com/odbcprov/odbcprov/internal/packages"
	"github.com/odbcprov/odbcprov/internal/plan"
)

const acceptEULAFlag = "accept-eula"

// routineFlags are the flags shared by the commands that resolve a
// provisioning plan. Non-empty values override the configuration.
type routineFlags struct {
	platform   string
	manifest   string
	root       string
	acceptEULA string
}

func (f *routineFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.platform, "platform", "", "platform profile (container, managed)")
	fl.StringVar(&f.manifest, "manifest", "", "pip requirements manifest (default requirements.txt)")
	fl.StringVar(&f.acceptEULA, acceptEULAFlag, "", "accept the ODBC driver license (y, yes, true or 1)")
	fl.Lookup(acceptEULAFlag).NoOptDefVal = "true"
}

// registerRoot adds --root for the commands that touch the filesystem.
func (f *routineFlags) registerRoot(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.root, "root", "", "filesystem root the trust store and driver are written under (default /)")
}

func (f *routineFlags) apply(cfg *config.Config) {
	if f.platform != "" {
		cfg.Platform = config.PlatformName(f.platform)
	}
	if f.manifest != "" {
		cfg.Dependencies.Manifest = f.manifest
	}
	if f.root != "" {
		cfg.Root = f.root
	}
}

// resolve loads the configuration, merges the flags over it and resolves
// the platform profile.
func (a *App) resolve(ctx context.Context, f *routineFlags, extra func(*config.Config)) (*config.Config, plan.Settings, error) {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return nil, plan.Settings{}, err
	}

	f.apply(cfg)
	if extra != nil {
		extra(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, plan.Settings{}, invalidConfigError(err)
	}

	settings, err := plan.Resolve(cfg)
	if err != nil {
		return nil, plan.Settings{}, invalidConfigError(err)
	}
	return cfg, settings, nil
}

// resolveLicense decides license acceptance. --accept-eula wins over the
// ACCEPT_EULA environment variable, which wins over license.accept_eula in
// the config file.
func (a *App) resolveLicense(cmd *cobra.Command, flagValue string, cfg *config.Config) packages.License {
	envValue, envSet := a.LookupEnv(packages.LicenseEnvVar)
	return packages.ResolveLicense(
		packages.LicenseSource{Name: "--" + acceptEULAFlag, Value: flagValue, Set: cmd.Flags().Changed(acceptEULAFlag)},
		packages.LicenseSource{Name: packages.LicenseEnvVar, Value: envValue, Set: envSet},
		packages.LicenseSource{Name: "license.accept_eula", Value: strconv.FormatBool(cfg.License.AcceptEULA), Set: cfg.License.AcceptEULA},
	)
}

func invalidConfigError(err error) error {
	return issue.NewErrorContext().
		WithOperation("resolve configuration").
		WithSuggestion("Check the flag values against 'odbcprov <command> --help'").
		WithSuggestion("Run 'odbcprov config show' to see the merged configuration").
		WithIssue(issue.ConfigLoadFailedId).
		Wrap(err).
		BuildError()
}
