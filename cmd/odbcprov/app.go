// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"

	"github.com/odbcprov/odbcprov/internal/config"
	"github.com/odbcprov/odbcprov/internal/container"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer: every command handler receives an App and
	// reaches configuration, engines and output through it.
	App struct {
		Config     ConfigProvider
		Engines    EngineFactory
		HTTPClient *http.Client
		LookupEnv  func(key string) (string, bool)
		stdout     io.Writer
		stderr     io.Writer

		// Persistent flags, bound by NewRootCommand.
		verbose    bool
		configPath string
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp. A nil
	// HTTPClient keeps the fetcher's own client and timeout.
	Dependencies struct {
		Config     ConfigProvider
		Engines    EngineFactory
		HTTPClient *http.Client
		LookupEnv  func(key string) (string, bool)
		Stdout     io.Writer
		Stderr     io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// EngineFactory returns a container engine, preferring the given type.
	EngineFactory func(preferred container.EngineType) (container.Engine, error)
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Engines == nil {
		deps.Engines = container.NewEngine
	}
	if deps.LookupEnv == nil {
		deps.LookupEnv = os.LookupEnv
	}

	return &App{
		Config:     deps.Config,
		Engines:    deps.Engines,
		HTTPClient: deps.HTTPClient,
		LookupEnv:  deps.LookupEnv,
		stdout:     deps.Stdout,
		stderr:     deps.Stderr,
	}
}

// loadConfig loads the configuration named by --config, or the default
// lookup chain when the flag is empty. ui.verbose in the file turns on
// verbose output when --verbose was not given.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.configPath})
	if err != nil {
		return nil, err
	}
	if cfg.UI.Verbose {
		a.verbose = true
	}
	return cfg, nil
}

// logger returns the stderr logger. Only warnings and errors are shown
// unless verbose output is on.
func (a *App) logger() *log.Logger {
	level := log.WarnLevel
	if a.verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(a.stderr, log.Options{
		Prefix:          config.AppName,
		Level:           level,
		ReportTimestamp: a.verbose,
	})
}
