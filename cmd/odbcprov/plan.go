// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/odbcprov/odbcprov/internal/fsutil"
	"github.com/odbcprov/odbcprov/internal/plan"
)

func newPlanCommand(app *App) *cobra.Command {
	var (
		f        routineFlags
		profiles bool
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the provisioning steps without running them",
		Long: `Show the provisioning steps for the selected platform, in run order,
with the state each step reaches and the commands it runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if profiles {
				return listProfiles(app)
			}

			cfg, settings, err := app.resolve(cmd.Context(), &f, nil)
			if err != nil {
				return err
			}
			deps := plan.Deps{
				Root:    fsutil.New(cfg.Root),
				Work:    afero.NewOsFs(),
				License: app.resolveLicense(cmd, f.acceptEULA, cfg),
			}
			printPlanHeader(app.stdout, settings, deps)
			return plan.Describe(app.stdout, plan.Build(settings, deps))
		},
	}

	f.register(cmd)
	f.registerRoot(cmd)
	cmd.Flags().BoolVar(&profiles, "profiles", false, "list the platform profiles and exit")

	return cmd
}

func listProfiles(app *App) error {
	for _, p := range plan.Profiles() {
		base := p.BaseImage
		if base == "" {
			base = "-"
		}
		if _, err := fmt.Fprintf(app.stdout, "%-10s %-8s %-5s %-8s %-26s %s\n",
			p.Name, p.Target.OS, p.Target.Release, p.Python, base, p.Description); err != nil {
			return err
		}
	}
	return nil
}
