// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/spf13/viper"

	"github.com/odbcprov/odbcprov/internal/issue"
)

const (
	// AppName is the application name.
	AppName = "odbcprov"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// LocalConfigFile is looked up in the base directory when the user
	// config file does not exist.
	LocalConfigFile = AppName + "." + ConfigFileExt
	// EnvPrefix prefixes environment overrides (ODBCPROV_REPORT_FORMAT).
	EnvPrefix = "ODBCPROV"

	maxConfigFileSize = 1 << 20
)

//go:embed config_schema.cue
var configSchema string

// SchemaError lists the problems found when checking a config file
// against the #Config schema.
type SchemaError struct {
	File     string
	Problems []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, strings.Join(e.Problems, "; "))
}

// ConfigDir returns the odbcprov configuration directory,
// $XDG_CONFIG_HOME/odbcprov (defaulting to ~/.config/odbcprov).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}

	return filepath.Join(configDir, AppName), nil
}

// ResolvePath returns the config file Load would read, or "" when none
// exists and the defaults apply.
func ResolvePath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'odbcprov config show' to see the default configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
	if err != nil {
		return "", err
	}
	if p := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt); fileExists(p) {
		return p, nil
	}

	if p := filepath.Join(opts.BaseDir, LocalConfigFile); fileExists(p) {
		return p, nil
	}
	return "", nil
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath, err := ResolvePath(opts)
	if err != nil {
		return nil, "", err
	}

	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("See 'odbcprov config --help' for configuration options").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	// Environment overrides bypass the schema.
	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Check " + EnvPrefix + "_* environment variables for typos").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("platform", d.Platform)
	v.SetDefault("target.os", d.Target.OS)
	v.SetDefault("target.release", d.Target.Release)
	v.SetDefault("registrar.key_url", d.Registrar.KeyURL)
	v.SetDefault("registrar.repo_config_url", d.Registrar.RepoConfigURL)
	v.SetDefault("registrar.keyring_path", d.Registrar.KeyringPath)
	v.SetDefault("registrar.source_list_path", d.Registrar.SourceListPath)
	v.SetDefault("packages.names", d.Packages.Names)
	v.SetDefault("packages.driver_lib_glob", d.Packages.DriverLibGlob)
	v.SetDefault("packages.verify_driver", d.Packages.VerifyDriver)
	v.SetDefault("license.accept_eula", d.License.AcceptEULA)
	v.SetDefault("dependencies.python", d.Dependencies.Python)
	v.SetDefault("dependencies.manifest", d.Dependencies.Manifest)
	v.SetDefault("dependencies.upgrade_installer", d.Dependencies.UpgradeInstaller)
	v.SetDefault("dependencies.extra_args", d.Dependencies.ExtraArgs)
	v.SetDefault("executor.mode", d.Executor.Mode)
	v.SetDefault("root", d.Root)
	v.SetDefault("container.engine", d.Container.Engine)
	v.SetDefault("image.base_image", d.Image.BaseImage)
	v.SetDefault("image.tag", d.Image.Tag)
	v.SetDefault("image.force_rebuild", d.Image.ForceRebuild)
	v.SetDefault("image.port", d.Image.Port)
	v.SetDefault("image.cache_dir", d.Image.CacheDir)
	v.SetDefault("image.binary_path", d.Image.BinaryPath)
	v.SetDefault("report.format", d.Report.Format)
	v.SetDefault("report.output", d.Report.Output)
	v.SetDefault("report.metrics_file", d.Report.MetricsFile)
	v.SetDefault("ui.verbose", d.UI.Verbose)
	v.SetDefault("ui.color_scheme", d.UI.ColorScheme)
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
//
// Fields are optional, so validation uses Concrete(false), and the result is
// decoded to a map so viper keeps defaults and env overrides.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if len(data) > maxConfigFileSize {
		return fmt.Errorf("%s: file is %d bytes, larger than the %d byte limit", path, len(data), maxConfigFileSize)
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return formatCUEError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return formatCUEError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return formatCUEError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// formatCUEError flattens a CUE error list into one problem per line,
// each prefixed with the dotted field path.
func formatCUEError(err error, path string) error {
	list := cueerrors.Errors(err)
	if len(list) == 0 {
		return fmt.Errorf("%s: %w", path, err)
	}

	problems := make([]string, 0, len(list))
	for _, e := range list {
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		fieldPath := strings.TrimPrefix(strings.Join(e.Path(), "."), "#Config.")
		if fieldPath != "" && fieldPath != "#Config" {
			msg = fieldPath + ": " + msg
		}
		problems = append(problems, msg)
	}
	return &SchemaError{File: path, Problems: problems}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the default configuration to the user config
// directory unless a config file is already there. It returns the path.
func CreateDefaultConfig(opts LoadOptions) (string, error) {
	cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	if fileExists(cfgPath) {
		return cfgPath, nil
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return cfgPath, nil
}

// GenerateCUE renders cfg as a config file accepted by the #Config schema.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// odbcprov configuration\n\n")
	fmt.Fprintf(&sb, "platform: %q\n", cfg.Platform)
	fmt.Fprintf(&sb, "root:     %q\n", cfg.Root)

	sb.WriteString("\ntarget: {\n")
	fmt.Fprintf(&sb, "\tos:      %q\n", cfg.Target.OS)
	fmt.Fprintf(&sb, "\trelease: %q\n", cfg.Target.Release)
	sb.WriteString("}\n")

	sb.WriteString("\nregistrar: {\n")
	fmt.Fprintf(&sb, "\tkey_url:          %q\n", cfg.Registrar.KeyURL)
	fmt.Fprintf(&sb, "\trepo_config_url:  %q\n", cfg.Registrar.RepoConfigURL)
	fmt.Fprintf(&sb, "\tkeyring_path:     %q\n", cfg.Registrar.KeyringPath)
	fmt.Fprintf(&sb, "\tsource_list_path: %q\n", cfg.Registrar.SourceListPath)
	sb.WriteString("}\n")

	sb.WriteString("\npackages: {\n")
	fmt.Fprintf(&sb, "\tnames: %s\n", cueList(cfg.Packages.Names))
	fmt.Fprintf(&sb, "\tdriver_lib_glob: %q\n", cfg.Packages.DriverLibGlob)
	fmt.Fprintf(&sb, "\tverify_driver:   %v\n", cfg.Packages.VerifyDriver)
	sb.WriteString("}\n")

	sb.WriteString("\nlicense: {\n")
	fmt.Fprintf(&sb, "\taccept_eula: %v\n", cfg.License.AcceptEULA)
	sb.WriteString("}\n")

	sb.WriteString("\ndependencies: {\n")
	fmt.Fprintf(&sb, "\tpython:            %q\n", cfg.Dependencies.Python)
	fmt.Fprintf(&sb, "\tmanifest:          %q\n", cfg.Dependencies.Manifest)
	fmt.Fprintf(&sb, "\tupgrade_installer: %v\n", cfg.Dependencies.UpgradeInstaller)
	fmt.Fprintf(&sb, "\textra_args:        %s\n", cueList(cfg.Dependencies.ExtraArgs))
	sb.WriteString("}\n")

	sb.WriteString("\nexecutor: {\n")
	fmt.Fprintf(&sb, "\tmode: %q\n", cfg.Executor.Mode)
	sb.WriteString("}\n")

	sb.WriteString("\ncontainer: {\n")
	fmt.Fprintf(&sb, "\tengine: %q\n", cfg.Container.Engine)
	sb.WriteString("}\n")

	sb.WriteString("\nimage: {\n")
	fmt.Fprintf(&sb, "\tbase_image:    %q\n", cfg.Image.BaseImage)
	fmt.Fprintf(&sb, "\ttag:           %q\n", cfg.Image.Tag)
	fmt.Fprintf(&sb, "\tforce_rebuild: %v\n", cfg.Image.ForceRebuild)
	fmt.Fprintf(&sb, "\tport:          %d\n", cfg.Image.Port)
	fmt.Fprintf(&sb, "\tcache_dir:     %q\n", cfg.Image.CacheDir)
	fmt.Fprintf(&sb, "\tbinary_path:   %q\n", cfg.Image.BinaryPath)
	sb.WriteString("}\n")

	sb.WriteString("\nreport: {\n")
	fmt.Fprintf(&sb, "\tformat:       %q\n", cfg.Report.Format)
	fmt.Fprintf(&sb, "\toutput:       %q\n", cfg.Report.Output)
	fmt.Fprintf(&sb, "\tmetrics_file: %q\n", cfg.Report.MetricsFile)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose:      %v\n", cfg.UI.Verbose)
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	sb.WriteString("}\n")

	return sb.String()
}

func cueList(items []string) string {
	quoted := make([]string, 0, len(items))
	for _, it := range items {
		quoted = append(quoted, fmt.Sprintf("%q", it))
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
