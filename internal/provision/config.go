// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultPort is the application port the provisioned image exposes.
	DefaultPort = 5000

	// ImageRepository is the repository part of provisioned image tags.
	ImageRepository = "odbcprov-provisioned"

	// ImageManifestPath is where the dependency manifest is copied in the image.
	ImageManifestPath = "/opt/odbcprov/requirements.txt"
	// ImageConfigPath is where the routine config is copied in the image.
	ImageConfigPath = "/opt/odbcprov/odbcprov.cue"

	binaryMountPath = "/opt/odbcprov/bin"
)

type (
	// Config holds the inputs of a provisioned image.
	Config struct {
		// ForceRebuild bypasses cached images and the engine's layer cache.
		ForceRebuild bool

		// BinaryPath is the odbcprov binary copied into the image. It must be
		// built for the image's platform. Default: the running executable.
		BinaryPath string

		// ManifestPath is the dependency manifest on the host.
		ManifestPath string

		// AcceptEULA is passed to `odbcprov apply --accept-eula` in the build.
		AcceptEULA bool

		// RoutineConfig is the config file source `odbcprov apply` reads in
		// the build. It is part of the image digest. Empty runs apply with the
		// container profile defaults.
		RoutineConfig string

		// Port is the application port the image exposes.
		Port int

		// CacheDir is where build contexts are assembled.
		// Default: ~/odbcprov-build
		CacheDir string

		// Tag replaces the content-derived image tag when set. Reuse then
		// depends on the tag alone.
		Tag string

		// TagSuffix is appended to provisioned image tags so parallel test
		// runs do not share images. Read from ODBCPROV_PROVISION_TAG_SUFFIX.
		TagSuffix string

		// BuildAttempts bounds retries of builds that fail transiently.
		BuildAttempts int

		// BuildBackoff is the wait before the first retry; it doubles after.
		BuildBackoff time.Duration
	}

	// Option is a functional option for configuring a Config.
	Option func(*Config)
)

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	binaryPath, _ := os.Executable()

	return &Config{
		BinaryPath:    binaryPath,
		ManifestPath:  "requirements.txt",
		Port:          DefaultPort,
		CacheDir:      defaultCacheDir(),
		TagSuffix:     os.Getenv("ODBCPROV_PROVISION_TAG_SUFFIX"),
		BuildAttempts: 3,
		BuildBackoff:  2 * time.Second,
	}
}

// defaultCacheDir returns a visible directory in $HOME. Docker installed as
// a Snap cannot read /tmp or hidden directories.
func defaultCacheDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		if _, statErr := os.Stat(home); statErr == nil {
			return filepath.Join(home, "odbcprov-build")
		}
	}
	if cwd, err := os.Getwd(); err == nil {
		return filepath.Join(cwd, ".odbcprov-build")
	}
	return filepath.Join(os.TempDir(), "odbcprov-build")
}

// WithForceRebuild returns an Option that sets ForceRebuild on the config.
func WithForceRebuild(force bool) Option {
	return func(c *Config) {
		c.ForceRebuild = force
	}
}

// WithBinaryPath returns an Option that sets BinaryPath on the config.
func WithBinaryPath(path string) Option {
	return func(c *Config) {
		c.BinaryPath = path
	}
}

// WithManifestPath returns an Option that sets ManifestPath on the config.
func WithManifestPath(path string) Option {
	return func(c *Config) {
		c.ManifestPath = path
	}
}

// WithAcceptEULA returns an Option that sets AcceptEULA on the config.
func WithAcceptEULA(accept bool) Option {
	return func(c *Config) {
		c.AcceptEULA = accept
	}
}

// WithRoutineConfig returns an Option that sets RoutineConfig on the config.
func WithRoutineConfig(src string) Option {
	return func(c *Config) {
		c.RoutineConfig = src
	}
}

// WithPort returns an Option that sets Port on the config.
func WithPort(port int) Option {
	return func(c *Config) {
		c.Port = port
	}
}

// WithCacheDir returns an Option that sets CacheDir on the config.
func WithCacheDir(dir string) Option {
	return func(c *Config) {
		c.CacheDir = dir
	}
}

// WithTag returns an Option that sets Tag on the config.
func WithTag(tag string) Option {
	return func(c *Config) {
		c.Tag = tag
	}
}

// WithTagSuffix returns an Option that sets TagSuffix on the config.
func WithTagSuffix(suffix string) Option {
	return func(c *Config) {
		c.TagSuffix = suffix
	}
}

// WithBuildRetry returns an Option that sets BuildAttempts and BuildBackoff.
func WithBuildRetry(attempts int, backoff time.Duration) Option {
	return func(c *Config) {
		c.BuildAttempts = attempts
		c.BuildBackoff = backoff
	}
}

// Apply applies the given options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}
