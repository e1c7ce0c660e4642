// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odbcprov/odbcprov/internal/config"
	"github.com/odbcprov/odbcprov/internal/container"
	"github.com/odbcprov/odbcprov/internal/issue"
	"github.com/odbcprov/odbcprov/internal/plan"
	"github.com/odbcprov/odbcprov/internal/provision"
)

// driverName is the odbcinst.ini section the driver package registers.
const driverName = "ODBC Driver 17 for SQL Server"

type imageFlags struct {
	routineFlags
	engine       string
	baseImage    string
	tag          string
	binary       string
	forceRebuild bool
}

func newImageCommand(app *App) *cobra.Command {
	imageCmd := &cobra.Command{
		Use:   "image",
		Short: "Build and check provisioned container images",
		Long: `Build a container image with the ODBC driver and the pip manifest installed.

The image is built by running 'odbcprov apply --platform container' inside
the base image, so the same steps and checks apply. Images are tagged by a
digest of their inputs and reused until one of them changes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	var f imageFlags
	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Build the provisioned image",
		Example: `  odbcprov image build --accept-eula
  odbcprov image build --accept-eula --base-image python:3.11-slim-bookworm --force-rebuild`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runImageBuild(cmd, app, &f)
		},
	}
	f.register(buildCmd)
	bf := buildCmd.Flags()
	bf.StringVar(&f.engine, "engine", "", "container engine (docker, podman)")
	bf.StringVar(&f.baseImage, "base-image", "", "image to build on (default from the platform profile)")
	bf.StringVar(&f.tag, "tag", "", "tag the image instead of using a digest of its inputs")
	bf.StringVar(&f.binary, "binary", "", "linux odbcprov binary copied into the image (default: this executable)")
	bf.BoolVar(&f.forceRebuild, "force-rebuild", false, "rebuild even if the image exists")

	var engine string
	verifyCmd := &cobra.Command{
		Use:   "verify <image>",
		Short: "Check that an image has the ODBC driver registered",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImageVerify(cmd.Context(), app, engine, args[0])
		},
	}
	verifyCmd.Flags().StringVar(&engine, "engine", "", "container engine (docker, podman)")

	imageCmd.AddCommand(buildCmd, verifyCmd)
	return imageCmd
}

func runImageBuild(cmd *cobra.Command, app *App, f *imageFlags) error {
	ctx := cmd.Context()

	cfg, settings, err := app.resolve(ctx, &f.routineFlags, func(cfg *config.Config) {
		if f.engine != "" {
			cfg.Container.Engine = config.ContainerEngine(f.engine)
		}
		if f.baseImage != "" {
			cfg.Image.BaseImage = f.baseImage
		}
		if f.tag != "" {
			cfg.Image.Tag = f.tag
		}
		if f.binary != "" {
			cfg.Image.BinaryPath = f.binary
		}
		if f.forceRebuild {
			cfg.Image.ForceRebuild = true
		}
	})
	if err != nil {
		return err
	}
	if settings.Profile.BaseImage == "" {
		return issue.NewErrorContext().
			WithOperation("build provisioned image").
			WithResource("platform " + string(cfg.Platform)).
			WithSuggestion("Managed platforms build their own image; use 'odbcprov hook' instead").
			WithSuggestion("Or set image.base_image / --base-image").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(errors.New("platform profile has no base image")).
			BuildError()
	}

	license := app.resolveLicense(cmd, f.acceptEULA, cfg)
	if !license.Accepted {
		return licenseRequiredError()
	}

	engine, err := app.Engines(container.EngineType(cfg.Container.Engine))
	if err != nil {
		return err
	}

	pcfg := provisionConfig(cfg, settings, license.Accepted)
	logger := app.logger()
	opts := []provision.LayerOption{provision.WithLogger(logger)}
	if app.verbose {
		opts = append(opts, provision.WithBuildOutput(app.stderr, app.stderr))
	}

	res, err := provision.NewLayerProvisioner(engine, pcfg, opts...).Provision(ctx, settings.Profile.BaseImage)
	if err != nil {
		return err
	}

	state := "built"
	if res.Reused {
		state = "reused"
	}
	fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render(state), res.ImageTag)
	logger.Debug("image inputs", "digest", res.Digest)
	return nil
}

func provisionConfig(cfg *config.Config, settings plan.Settings, acceptEULA bool) *provision.Config {
	pcfg := provision.DefaultConfig()
	opts := []provision.Option{
		provision.WithManifestPath(settings.Dependencies.Manifest),
		provision.WithAcceptEULA(acceptEULA),
		provision.WithRoutineConfig(config.GenerateCUE(imageRoutineConfig(cfg, settings))),
		provision.WithForceRebuild(cfg.Image.ForceRebuild),
		provision.WithPort(cfg.Image.Port),
	}
	if cfg.Image.BinaryPath != "" {
		opts = append(opts, provision.WithBinaryPath(cfg.Image.BinaryPath))
	}
	if cfg.Image.CacheDir != "" {
		opts = append(opts, provision.WithCacheDir(cfg.Image.CacheDir))
	}
	if cfg.Image.Tag != "" {
		opts = append(opts, provision.WithTag(cfg.Image.Tag))
	}
	pcfg.Apply(opts...)
	return pcfg
}

// imageRoutineConfig returns the config `odbcprov apply` runs with inside the
// image: the resolved phase settings, with host-only paths and output reset.
// The license decision and the manifest are passed as flags by the build.
func imageRoutineConfig(cfg *config.Config, settings plan.Settings) *config.Config {
	reg := settings.Registrar
	return &config.Config{
		Platform: config.PlatformContainer,
		Target:   config.TargetConfig{OS: reg.Target.OS, Release: reg.Target.Release},
		Registrar: config.RegistrarConfig{
			KeyURL:         reg.KeyURL,
			RepoConfigURL:  reg.RepoConfigURL,
			KeyringPath:    reg.KeyringPath,
			SourceListPath: reg.SourceListPath,
		},
		Packages: config.PackagesConfig{
			Names:         settings.Packages.Packages,
			DriverLibGlob: settings.Packages.DriverLibGlob,
			VerifyDriver:  settings.Packages.VerifyDriver,
		},
		Dependencies: config.DependenciesConfig{
			Python:           settings.Dependencies.Python,
			Manifest:         provision.ImageManifestPath,
			UpgradeInstaller: settings.Dependencies.UpgradeInstaller,
			ExtraArgs:        settings.Dependencies.ExtraArgs,
		},
		Executor:  config.ExecutorConfig{Mode: config.ExecutorNative},
		Root:      "/",
		Container: cfg.Container,
		Image:     config.ImageConfig{Port: cfg.Image.Port},
		Report:    config.ReportConfig{Format: config.ReportText},
		UI:        config.UIConfig{ColorScheme: config.ColorSchemeAuto},
	}
}

func runImageVerify(ctx context.Context, app *App, engineName, image string) error {
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}
	if engineName != "" {
		cfg.Container.Engine = config.ContainerEngine(engineName)
	}
	if err := cfg.Container.Engine.Validate(); err != nil {
		return invalidConfigError(err)
	}

	engine, err := app.Engines(container.EngineType(cfg.Container.Engine))
	if err != nil {
		return err
	}

	res, err := engine.Run(ctx, container.RunOptions{
		Image:   image,
		Command: []string{"odbcinst", "-q", "-d", "-n", driverName},
		Remove:  true,
		Stdout:  app.stdout,
		Stderr:  app.stderr,
	})
	if err != nil {
		return err
	}
	if res.Error != nil {
		return fmt.Errorf("running %s: %w", engine.Name(), res.Error)
	}
	if res.ExitCode != 0 {
		fmt.Fprintf(app.stderr, "%s %q is not registered in %s\n", ErrorStyle.Render("Error:"), driverName, image)
		return &ExitError{Code: 1}
	}

	fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("verified"), image)
	return nil
}

func licenseRequiredError() error {
	return issue.NewErrorContext().
		WithOperation("build provisioned image").
		WithSuggestion("Accept the license with --accept-eula or ACCEPT_EULA=y").
		WithSuggestion("To accept it permanently, set license.accept_eula: true in the config").
		WithIssue(issue.LicenseNotAcceptedId).
		Wrap(errors.New("the ODBC driver license was not accepted")).
		BuildError()
}
