// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// PlatformContainer provisions a generic container image.
	PlatformContainer PlatformName = "container"
	// PlatformManaged provisions through a managed platform's build hook.
	PlatformManaged PlatformName = "managed"

	// ContainerEnginePodman uses Podman as the container runtime.
	ContainerEnginePodman ContainerEngine = "podman"
	// ContainerEngineDocker uses Docker as the container runtime.
	ContainerEngineDocker ContainerEngine = "docker"

	// ExecutorNative runs commands with os/exec.
	// Defined locally to avoid coupling config to internal/shell.
	ExecutorNative ExecutorMode = "native"
	// ExecutorVirtual runs commands in the embedded mvdan/sh interpreter.
	ExecutorVirtual ExecutorMode = "virtual"
	// ExecutorDryRun prints commands without running them.
	ExecutorDryRun ExecutorMode = "dry-run"

	// ReportText is a human-readable table.
	ReportText ReportFormat = "text"
	// ReportJSON encodes the report as JSON.
	ReportJSON ReportFormat = "json"
	// ReportYAML encodes the report as YAML.
	ReportYAML ReportFormat = "yaml"
	// ReportTOML encodes the report as TOML.
	ReportTOML ReportFormat = "toml"

	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// DefaultPort is the application port the image exposes.
	DefaultPort = 5000
)

var (
	// ErrInvalidPlatformName is returned when a PlatformName is not recognized.
	ErrInvalidPlatformName = errors.New("invalid platform")
	// ErrInvalidContainerEngine is returned when a ContainerEngine value is not recognized.
	ErrInvalidContainerEngine = errors.New("invalid container engine")
	// ErrInvalidExecutorMode is returned when an ExecutorMode value is not recognized.
	ErrInvalidExecutorMode = errors.New("invalid executor mode")
	// ErrInvalidReportFormat is returned when a ReportFormat value is not recognized.
	ErrInvalidReportFormat = errors.New("invalid report format")
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidPort is returned when the image port is out of range.
	ErrInvalidPort = errors.New("invalid port")
	// ErrRootNeedsDryRun is the sentinel error wrapped by RootExecutorError.
	ErrRootNeedsDryRun = errors.New("root needs the dry-run executor")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// PlatformName selects a platform profile.
	PlatformName string

	// InvalidPlatformNameError is returned when a PlatformName is not recognized.
	// It wraps ErrInvalidPlatformName for errors.Is() compatibility.
	InvalidPlatformNameError struct {
		Value PlatformName
	}

	// ContainerEngine specifies which container runtime builds images.
	ContainerEngine string

	// InvalidContainerEngineError is returned when a ContainerEngine value is not recognized.
	// It wraps ErrInvalidContainerEngine for errors.Is() compatibility.
	InvalidContainerEngineError struct {
		Value ContainerEngine
	}

	// ExecutorMode selects how step commands are executed.
	ExecutorMode string

	// InvalidExecutorModeError is returned when an ExecutorMode value is not recognized.
	InvalidExecutorModeError struct {
		Value ExecutorMode
	}

	// ReportFormat selects the step report encoding.
	ReportFormat string

	// InvalidReportFormatError is returned when a ReportFormat value is not recognized.
	InvalidReportFormatError struct {
		Value ReportFormat
	}

	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// InvalidPortError is returned when ImageConfig.Port is outside 1-65535.
	InvalidPortError struct {
		Value int
	}

	// RootExecutorError is returned when a root other than "/" is combined
	// with an executor that runs apt-get and pip against the host.
	RootExecutorError struct {
		Root string
		Mode ExecutorMode
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config is the root configuration structure.
	Config struct {
		// Platform selects the profile supplying target, interpreter and base image defaults.
		Platform PlatformName `json:"platform" mapstructure:"platform"`
		// Target overrides the OS release the vendor repository is registered for.
		Target TargetConfig `json:"target" mapstructure:"target"`
		// Registrar locates the vendor key and repository descriptor.
		Registrar RegistrarConfig `json:"registrar" mapstructure:"registrar"`
		// Packages controls the package phase.
		Packages PackagesConfig `json:"packages" mapstructure:"packages"`
		// License records acceptance of the driver's end-user license.
		License LicenseConfig `json:"license" mapstructure:"license"`
		// Dependencies controls the pip phase.
		Dependencies DependenciesConfig `json:"dependencies" mapstructure:"dependencies"`
		// Executor selects how commands run.
		Executor ExecutorConfig `json:"executor" mapstructure:"executor"`
		// Root is the filesystem root the trust store is written under ("/" by default).
		Root string `json:"root" mapstructure:"root"`
		// Container selects the engine for image builds.
		Container ContainerConfig `json:"container" mapstructure:"container"`
		// Image controls `odbcprov image build`.
		Image ImageConfig `json:"image" mapstructure:"image"`
		// Report controls where and how the step report is written.
		Report ReportConfig `json:"report" mapstructure:"report"`
		// UI configures output.
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// TargetConfig holds the OS release override. Empty fields use the profile.
	TargetConfig struct {
		OS      string `json:"os" mapstructure:"os"`
		Release string `json:"release" mapstructure:"release"`
	}

	// RegistrarConfig locates vendor artifacts and where they are installed.
	RegistrarConfig struct {
		KeyURL         string `json:"key_url" mapstructure:"key_url"`
		RepoConfigURL  string `json:"repo_config_url" mapstructure:"repo_config_url"`
		KeyringPath    string `json:"keyring_path" mapstructure:"keyring_path"`
		SourceListPath string `json:"source_list_path" mapstructure:"source_list_path"`
	}

	// PackagesConfig controls the package phase.
	PackagesConfig struct {
		Names         []string `json:"names" mapstructure:"names"`
		DriverLibGlob string   `json:"driver_lib_glob" mapstructure:"driver_lib_glob"`
		VerifyDriver  bool     `json:"verify_driver" mapstructure:"verify_driver"`
	}

	// LicenseConfig holds the config-file acceptance flag, the lowest
	// precedence source after --accept-eula and ACCEPT_EULA.
	LicenseConfig struct {
		AcceptEULA bool `json:"accept_eula" mapstructure:"accept_eula"`
	}

	// DependenciesConfig controls the pip phase.
	DependenciesConfig struct {
		Python           string   `json:"python" mapstructure:"python"`
		Manifest         string   `json:"manifest" mapstructure:"manifest"`
		UpgradeInstaller bool     `json:"upgrade_installer" mapstructure:"upgrade_installer"`
		ExtraArgs        []string `json:"extra_args" mapstructure:"extra_args"`
	}

	// ExecutorConfig selects the command executor.
	ExecutorConfig struct {
		Mode ExecutorMode `json:"mode" mapstructure:"mode"`
	}

	// ContainerConfig selects the container engine.
	ContainerConfig struct {
		Engine ContainerEngine `json:"engine" mapstructure:"engine"`
	}

	// ImageConfig controls image builds.
	ImageConfig struct {
		// BaseImage is the FROM image; empty uses the profile's.
		BaseImage string `json:"base_image" mapstructure:"base_image"`
		// Tag overrides the content-derived image tag.
		Tag string `json:"tag" mapstructure:"tag"`
		// ForceRebuild rebuilds even when the tag already exists.
		ForceRebuild bool `json:"force_rebuild" mapstructure:"force_rebuild"`
		// Port is the application port the image exposes.
		Port int `json:"port" mapstructure:"port"`
		// CacheDir holds build contexts; empty uses the user cache dir.
		CacheDir string `json:"cache_dir" mapstructure:"cache_dir"`
		// BinaryPath is the odbcprov binary copied into the image; empty
		// uses the running executable.
		BinaryPath string `json:"binary_path" mapstructure:"binary_path"`
	}

	// ReportConfig controls report output.
	ReportConfig struct {
		Format ReportFormat `json:"format" mapstructure:"format"`
		// Output is the report file; empty writes to stdout.
		Output string `json:"output" mapstructure:"output"`
		// MetricsFile is a Prometheus textfile collector file; empty disables it.
		MetricsFile string `json:"metrics_file" mapstructure:"metrics_file"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		Verbose     bool        `json:"verbose" mapstructure:"verbose"`
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
	}
)

func (e *InvalidPlatformNameError) Error() string {
	return fmt.Sprintf("invalid platform %q (valid: container, managed)", e.Value)
}

func (e *InvalidPlatformNameError) Unwrap() error { return ErrInvalidPlatformName }

func (p PlatformName) String() string { return string(p) }

// Validate returns an error if the platform is not a known profile.
func (p PlatformName) Validate() error {
	switch p {
	case PlatformContainer, PlatformManaged:
		return nil
	default:
		return &InvalidPlatformNameError{Value: p}
	}
}

func (e *InvalidContainerEngineError) Error() string {
	return fmt.Sprintf("invalid container engine %q (valid: podman, docker)", e.Value)
}

func (e *InvalidContainerEngineError) Unwrap() error { return ErrInvalidContainerEngine }

func (ce ContainerEngine) String() string { return string(ce) }

// Validate returns an error if the engine is not podman or docker.
func (ce ContainerEngine) Validate() error {
	switch ce {
	case ContainerEnginePodman, ContainerEngineDocker:
		return nil
	default:
		return &InvalidContainerEngineError{Value: ce}
	}
}

func (e *InvalidExecutorModeError) Error() string {
	return fmt.Sprintf("invalid executor mode %q (valid: native, virtual, dry-run)", e.Value)
}

func (e *InvalidExecutorModeError) Unwrap() error { return ErrInvalidExecutorMode }

func (m ExecutorMode) String() string { return string(m) }

// Validate returns an error if the mode is not recognized.
func (m ExecutorMode) Validate() error {
	switch m {
	case ExecutorNative, ExecutorVirtual, ExecutorDryRun:
		return nil
	default:
		return &InvalidExecutorModeError{Value: m}
	}
}

func (e *InvalidReportFormatError) Error() string {
	return fmt.Sprintf("invalid report format %q (valid: text, json, yaml, toml)", e.Value)
}

func (e *InvalidReportFormatError) Unwrap() error { return ErrInvalidReportFormat }

func (f ReportFormat) String() string { return string(f) }

// Validate returns an error if the format is not recognized.
func (f ReportFormat) Validate() error {
	switch f {
	case ReportText, ReportJSON, ReportYAML, ReportTOML:
		return nil
	default:
		return &InvalidReportFormatError{Value: f}
	}
}

func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

func (cs ColorScheme) String() string { return string(cs) }

// Validate returns an error if the scheme is not recognized.
func (cs ColorScheme) Validate() error {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return nil
	default:
		return &InvalidColorSchemeError{Value: cs}
	}
}

func (e *RootExecutorError) Error() string {
	return fmt.Sprintf("root %q needs the dry-run executor: the %s executor installs packages into /", e.Root, e.Mode)
}

func (e *RootExecutorError) Unwrap() error { return ErrRootNeedsDryRun }

// ValidateRoot checks that the trust store and the packages land in the same
// filesystem: a root other than "/" is only accepted with the dry-run
// executor.
func (c *Config) ValidateRoot() error {
	if filepath.Clean(c.Root) == "/" || c.Executor.Mode == ExecutorDryRun {
		return nil
	}
	return &RootExecutorError{Root: c.Root, Mode: c.Executor.Mode}
}

func (e *InvalidPortError) Error() string {
	return fmt.Sprintf("invalid port %d: must be between 1 and 65535", e.Value)
}

func (e *InvalidPortError) Unwrap() error { return ErrInvalidPort }

func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, fe := range e.FieldErrors {
		msgs = append(msgs, fe.Error())
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// Validate checks the enumerated fields. Flags applied after loading can
// bypass the CUE schema, so the CLI calls this again once flags are merged.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Platform.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Executor.Mode.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Container.Engine.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Report.Format.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.UI.ColorScheme.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Image.Port < 1 || c.Image.Port > 65535 {
		errs = append(errs, &InvalidPortError{Value: c.Image.Port})
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// DefaultConfig returns the default configuration. Profile-dependent fields
// are left empty and resolved by the platform profile.
func DefaultConfig() *Config {
	return &Config{
		Platform: PlatformContainer,
		Registrar: RegistrarConfig{
			KeyURL:         "https://packages.microsoft.com/keys/microsoft.asc",
			RepoConfigURL:  "https://packages.microsoft.com/config",
			KeyringPath:    "/usr/share/keyrings/microsoft-prod.gpg",
			SourceListPath: "/etc/apt/sources.list.d/mssql-release.list",
		},
		Packages: PackagesConfig{
			Names:         []string{"msodbcsql17", "unixodbc-dev"},
			DriverLibGlob: "/opt/microsoft/msodbcsql17/lib64/libmsodbcsql-17*.so*",
			VerifyDriver:  true,
		},
		Dependencies: DependenciesConfig{
			Manifest:         "requirements.txt",
			UpgradeInstaller: true,
			ExtraArgs:        []string{},
		},
		Executor:  ExecutorConfig{Mode: ExecutorNative},
		Root:      "/",
		Container: ContainerConfig{Engine: ContainerEngineDocker},
		Image:     ImageConfig{Port: DefaultPort},
		Report:    ReportConfig{Format: ReportText},
		UI:        UIConfig{ColorScheme: ColorSchemeAuto},
	}
}
