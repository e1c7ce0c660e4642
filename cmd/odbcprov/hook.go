// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"cmp"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/odbcprov/odbcprov/internal/config"
	"github.com/odbcprov/odbcprov/internal/fsutil"
	"github.com/odbcprov/odbcprov/internal/provision"
)

func newHookCommand(app *App) *cobra.Command {
	var (
		output     string
		binary     string
		manifest   string
		acceptEULA string
		hookConfig string
	)

	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Write the build hook for a managed platform",
		Long: `Write a POSIX shell script that runs 'odbcprov apply --platform managed'.

Managed platforms build the application image themselves and only run a
pre-build script. When the license is accepted while the hook is written,
the hook passes --accept-eula. Otherwise ACCEPT_EULA or the config on the
build host decides. The hook passes --config only when --hook-config is set.`,
		Example: `  odbcprov hook --accept-eula -o .platform/prebuild.sh
  odbcprov hook --binary /opt/odbcprov/bin/odbcprov --manifest app/requirements.txt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return err
			}

			script, err := provision.RenderHook(provision.HookConfig{
				Binary:     binary,
				Manifest:   cmp.Or(manifest, cfg.Dependencies.Manifest),
				AcceptEULA: app.resolveLicense(cmd, acceptEULA, cfg).Accepted,
				ConfigFile: hookConfig,
			})
			if err != nil {
				return err
			}

			if output == "" {
				_, err = fmt.Fprint(app.stdout, script)
				return err
			}
			if err := fsutil.WriteFileAtomic(afero.NewOsFs(), output, []byte(script), 0o755); err != nil {
				return fmt.Errorf("writing hook: %w", err)
			}
			fmt.Fprintln(app.stdout, SuccessStyle.Render("Wrote")+" "+output)
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&output, "output", "o", "", "write the hook to a file (mode 0755) instead of stdout")
	fl.StringVar(&binary, "binary", config.AppName, "odbcprov command on the build host")
	fl.StringVar(&manifest, "manifest", "", "pip requirements manifest (default from config)")
	fl.StringVar(&acceptEULA, acceptEULAFlag, "", "accept the ODBC driver license (y, yes, true or 1)")
	fl.Lookup(acceptEULAFlag).NoOptDefVal = "true"
	fl.StringVar(&hookConfig, "hook-config", "", "config file on the build host the hook passes to odbcprov")

	return cmd
}
