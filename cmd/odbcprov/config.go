// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"cmp"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/odbcprov/odbcprov/internal/config"
)

// newConfigCommand creates the `odbcprov config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage odbcprov configuration",
		Long: `Manage odbcprov configuration.

Configuration is read from --config, then $XDG_CONFIG_HOME/odbcprov/config.cue
(default ~/.config/odbcprov/config.cue), then odbcprov.cue in the working
directory. ODBCPROV_* environment variables override file values, for
example ODBCPROV_REPORT_FORMAT=json.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showConfig(cmd.Context(), app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the current configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return err
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			path, err := config.ResolvePath(config.LoadOptions{ConfigFilePath: app.configPath})
			if err != nil {
				return err
			}
			if path == "" {
				fmt.Fprintln(app.stdout, SubtitleStyle.Render("(no config file, using defaults)"))
				return nil
			}
			fmt.Fprintln(app.stdout, path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			path, err := config.CreateDefaultConfig(config.LoadOptions{})
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, SuccessStyle.Render("Config file:")+" "+path)
			return nil
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App) error {
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}

	out := app.stdout
	section := func(name string) {
		fmt.Fprintln(out)
		fmt.Fprintln(out, CmdStyle.Render(name)+":")
	}
	value := func(key string, v any) {
		fmt.Fprintf(out, "  %s: %s\n", key, SuccessStyle.Render(fmt.Sprint(v)))
	}

	fmt.Fprintln(out, TitleStyle.Render("Current Configuration"))
	path, _ := config.ResolvePath(config.LoadOptions{ConfigFilePath: app.configPath})
	if path == "" {
		path = SubtitleStyle.Render("(using defaults)")
	}
	fmt.Fprintf(out, "%s: %s\n", CmdStyle.Render("Config file"), path)

	section("platform")
	value("name", cfg.Platform)
	value("target", orProfile(strings.TrimSpace(cfg.Target.OS+" "+cfg.Target.Release)))
	value("root", cfg.Root)

	section("registrar")
	value("key_url", cfg.Registrar.KeyURL)
	value("repo_config_url", cfg.Registrar.RepoConfigURL)
	value("keyring_path", cfg.Registrar.KeyringPath)
	value("source_list_path", cfg.Registrar.SourceListPath)

	section("packages")
	value("names", strings.Join(cfg.Packages.Names, ", "))
	value("verify_driver", cfg.Packages.VerifyDriver)
	value("license.accept_eula", cfg.License.AcceptEULA)

	section("dependencies")
	value("python", orProfile(cfg.Dependencies.Python))
	value("manifest", cfg.Dependencies.Manifest)
	value("upgrade_installer", cfg.Dependencies.UpgradeInstaller)

	section("execution")
	value("executor", cfg.Executor.Mode)
	value("container_engine", cfg.Container.Engine)
	value("base_image", orProfile(cfg.Image.BaseImage))

	section("report")
	value("format", cfg.Report.Format)
	value("output", cmp.Or(cfg.Report.Output, "(stdout)"))
	value("metrics_file", cmp.Or(cfg.Report.MetricsFile, "(disabled)"))

	section("ui")
	value("color_scheme", cfg.UI.ColorScheme)
	value("verbose", cfg.UI.Verbose)

	return nil
}

func orProfile(s string) string {
	return cmp.Or(s, "(from platform profile)")
}
