// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/opencontainers/go-digest"
	"github.com/spf13/afero"

	"github.com/odbcprov/odbcprov/internal/container"
	"github.com/odbcprov/odbcprov/internal/issue"
)

// buildOutputTail is how much build stderr is kept to classify failures.
const buildOutputTail = 4096

// Compile-time interface check
var _ Provisioner = (*LayerProvisioner)(nil)

type (
	// LayerProvisioner builds a layer on a base image that runs the
	// provisioning routine at build time.
	//
	// The image tag is derived from a digest of:
	//   - the base image reference
	//   - the generated Dockerfile (license decision, port)
	//   - the odbcprov binary
	//   - the dependency manifest
	LayerProvisioner struct {
		engine container.Engine
		config *Config
		fs     afero.Fs
		logger *log.Logger
		stdout io.Writer
		stderr io.Writer
	}

	// LayerOption configures a LayerProvisioner.
	LayerOption func(*LayerProvisioner)
)

// WithFilesystem sets the filesystem inputs are read from and build contexts
// are written to.
func WithFilesystem(fs afero.Fs) LayerOption {
	return func(p *LayerProvisioner) {
		p.fs = fs
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) LayerOption {
	return func(p *LayerProvisioner) {
		p.logger = l
	}
}

// WithBuildOutput sets where engine build output is written.
func WithBuildOutput(stdout, stderr io.Writer) LayerOption {
	return func(p *LayerProvisioner) {
		p.stdout = stdout
		p.stderr = stderr
	}
}

// NewLayerProvisioner creates a new LayerProvisioner. Build progress goes to
// stderr unless WithBuildOutput says otherwise.
func NewLayerProvisioner(engine container.Engine, cfg *Config, opts ...LayerOption) *LayerProvisioner {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	p := &LayerProvisioner{
		engine: engine,
		config: cfg,
		fs:     afero.NewOsFs(),
		logger: log.Default(),
		stdout: os.Stderr,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config returns the provisioner's configuration.
func (p *LayerProvisioner) Config() *Config {
	return p.config
}

// Provision returns the provisioned image for baseImage, building it unless
// an image with the same content digest exists and ForceRebuild is unset.
func (p *LayerProvisioner) Provision(ctx context.Context, baseImage string) (*Result, error) {
	if baseImage == "" {
		return nil, errors.New("base image is required")
	}

	key, err := p.CacheKey(baseImage)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate cache key: %w", err)
	}
	tag := p.ImageTag(key)
	logger := p.logger.With("image", tag)

	if !p.config.ForceRebuild {
		exists, _ := p.engine.ImageExists(ctx, tag) //nolint:errcheck // Error treated as "not found"
		if exists {
			logger.Info("reusing provisioned image")
			return &Result{ImageTag: tag, Digest: key, Reused: true}, nil
		}
	}

	logger.Info("building provisioned image", "base", baseImage, "engine", p.engine.Name())
	if err := p.buildProvisionedImage(ctx, key, baseImage, tag); err != nil {
		return nil, err
	}

	return &Result{ImageTag: tag, Digest: key}, nil
}

// CacheKey returns the content digest of the layer built on baseImage.
func (p *LayerProvisioner) CacheKey(baseImage string) (digest.Digest, error) {
	d := digest.Canonical.Digester()
	h := d.Hash()

	fmt.Fprintf(h, "image:%s\n", baseImage)
	fmt.Fprintf(h, "dockerfile:%s\n", p.generateDockerfile(baseImage))
	fmt.Fprintf(h, "config:%s\n", p.config.RoutineConfig)

	if err := writeFileContent(p.fs, h, "binary", p.config.BinaryPath); err != nil {
		return "", fmt.Errorf("failed to hash odbcprov binary: %w", err)
	}
	if err := writeFileContent(p.fs, h, "manifest", p.config.ManifestPath); err != nil {
		return "", manifestError(p.config.ManifestPath, err)
	}

	return d.Digest(), nil
}

// ImageTag returns the tag for a layer with the given digest. When TagSuffix
// is set the format is "odbcprov-provisioned:<hash>-<suffix>". A configured
// Tag is returned as is.
func (p *LayerProvisioner) ImageTag(key digest.Digest) string {
	if p.config.Tag != "" {
		return p.config.Tag
	}
	hash := key.Encoded()[:12]
	if p.config.TagSuffix != "" {
		return fmt.Sprintf("%s:%s-%s", ImageRepository, hash, p.config.TagSuffix)
	}
	return fmt.Sprintf("%s:%s", ImageRepository, hash)
}

// IsImageProvisioned checks if the provisioned image for baseImage exists.
func (p *LayerProvisioner) IsImageProvisioned(ctx context.Context, baseImage string) (bool, error) {
	key, err := p.CacheKey(baseImage)
	if err != nil {
		return false, err
	}
	return p.engine.ImageExists(ctx, p.ImageTag(key))
}

// buildProvisionedImage builds the layer, retrying transient failures.
func (p *LayerProvisioner) buildProvisionedImage(ctx context.Context, key digest.Digest, baseImage, tag string) error {
	buildCtx, cleanup, err := p.prepareBuildContext(key, baseImage)
	if err != nil {
		return err
	}
	defer cleanup()

	attempts := max(p.config.BuildAttempts, 1)
	return container.RetryWithBackoff(ctx, attempts, p.config.BuildBackoff, func(attempt int) (bool, error) {
		tail := newTailBuffer(buildOutputTail)
		err := p.engine.Build(ctx, container.BuildOptions{
			ContextDir: buildCtx,
			Dockerfile: "Dockerfile",
			Tag:        tag,
			NoCache:    p.config.ForceRebuild,
			Stdout:     p.stdout,
			Stderr:     io.MultiWriter(p.stderr, tail),
		})
		if err == nil {
			return false, nil
		}
		if container.IsTransientError(err) || container.IsTransientError(errors.New(tail.String())) {
			p.logger.Warn("transient build failure", "attempt", attempt+1, "of", attempts, "error", err)
			return true, err
		}
		return false, err
	})
}

// prepareBuildContext assembles the build context in a directory under
// CacheDir named after the digest.
func (p *LayerProvisioner) prepareBuildContext(key digest.Digest, baseImage string) (dir string, cleanup func(), err error) {
	dir = filepath.Join(p.config.CacheDir, "ctx-"+key.Encoded()[:12])
	if err := p.fs.RemoveAll(dir); err != nil {
		return "", nil, fmt.Errorf("failed to clear build context: %w", err)
	}
	if err := p.fs.MkdirAll(dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("failed to create build context directory: %w", err)
	}

	cleanup = func() {
		_ = p.fs.RemoveAll(dir) // Build context is disposable; error non-critical
	}

	if err := copyFile(p.fs, p.config.BinaryPath, filepath.Join(dir, "odbcprov"), 0o755); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to copy odbcprov binary: %w", err)
	}
	if err := copyFile(p.fs, p.config.ManifestPath, filepath.Join(dir, "requirements.txt"), 0o644); err != nil {
		cleanup()
		return "", nil, manifestError(p.config.ManifestPath, err)
	}

	if p.config.RoutineConfig != "" {
		if err := afero.WriteFile(p.fs, filepath.Join(dir, routineConfigFile), []byte(p.config.RoutineConfig), 0o644); err != nil {
			cleanup()
			return "", nil, fmt.Errorf("failed to write routine config: %w", err)
		}
	}

	dockerfile := p.generateDockerfile(baseImage)
	if err := afero.WriteFile(p.fs, filepath.Join(dir, "Dockerfile"), []byte(dockerfile), 0o644); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to write Dockerfile: %w", err)
	}

	return dir, cleanup, nil
}

func manifestError(path string, cause error) error {
	return issue.NewErrorContext().
		WithOperation("read dependency manifest").
		WithResource(path).
		WithSuggestion("Create the manifest (an empty file installs nothing) or pass --manifest").
		WithIssue(issue.DependencyResolutionFailedId).
		Wrap(cause).
		BuildError()
}
