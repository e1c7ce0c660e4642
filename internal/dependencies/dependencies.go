// SPDX-License-Identifier: MPL-2.0

// Package dependencies installs the application's Python dependency
// manifest with pip once the native driver is in place. The manifest is
// passed through to pip unparsed.
package dependencies

import (
	"context"
	"fmt"

	"github.com/opencontainers/go-digest"
	"github.com/spf13/afero"

	"github.com/odbcprov/odbcprov/internal/issue"
	"github.com/odbcprov/odbcprov/internal/sequence"
	"github.com/odbcprov/odbcprov/internal/shell"
)

// DefaultManifest is the manifest path used when none is configured.
const DefaultManifest = "requirements.txt"

type (
	// Config controls the dependency phase.
	Config struct {
		// Python is the interpreter used to run pip ("python", "python3").
		Python string
		// Manifest is the dependency manifest path.
		Manifest string
		// UpgradeInstaller upgrades pip before installing the manifest.
		UpgradeInstaller bool
		// ExtraArgs are appended to the manifest install command.
		ExtraArgs []string
	}

	// Installer performs the upgrade-installer and install-dependencies steps.
	Installer struct {
		cfg Config
		fs  afero.Fs
	}
)

// DefaultConfig uses "python" and requirements.txt.
func DefaultConfig() Config {
	return Config{
		Python:           "python",
		Manifest:         DefaultManifest,
		UpgradeInstaller: true,
	}
}

// New creates an Installer that reads the manifest from fs.
func New(cfg Config, fs afero.Fs) *Installer {
	return &Installer{cfg: cfg, fs: fs}
}

// UpgradeCommand upgrades pip itself without populating pip's cache.
func (i *Installer) UpgradeCommand() shell.Command {
	return shell.Command{
		Name: i.cfg.Python,
		Args: []string{"-m", "pip", "install", "--no-cache-dir", "--upgrade", "pip"},
	}
}

// InstallCommand installs the manifest without populating pip's cache.
func (i *Installer) InstallCommand() shell.Command {
	args := []string{"-m", "pip", "install", "--no-cache-dir", "-r", i.cfg.Manifest}
	return shell.Command{
		Name: i.cfg.Python,
		Args: append(args, i.cfg.ExtraArgs...),
	}
}

// UpgradeInstaller upgrades pip. It is a no-op when disabled.
func (i *Installer) UpgradeInstaller(ctx context.Context, sio *sequence.StepIO) error {
	if !i.cfg.UpgradeInstaller {
		sio.Notef("installer upgrade disabled")
		return nil
	}
	return sio.ExecChecked(ctx, i.UpgradeCommand(), sequence.KindDependencyResolution)
}

// InstallDependencies installs the manifest. The manifest must exist and
// be readable; an empty manifest is valid and installs nothing. Its digest
// is written to the step output.
func (i *Installer) InstallDependencies(ctx context.Context, sio *sequence.StepIO) error {
	d, err := ManifestDigest(i.fs, i.cfg.Manifest)
	if err != nil {
		return sequence.Fail(sequence.KindDependencyResolution, issue.NewErrorContext().
			WithOperation("read dependency manifest").
			WithResource(i.cfg.Manifest).
			WithSuggestion("Check dependencies.manifest in the config, or pass --manifest").
			WithIssue(issue.DependencyResolutionFailedId).
			Wrap(err).
			BuildError())
	}
	sio.Notef("manifest %s %s", i.cfg.Manifest, d)

	return sio.ExecChecked(ctx, i.InstallCommand(), sequence.KindDependencyResolution)
}

// ManifestDigest returns the sha256 digest of the manifest at path.
func ManifestDigest(fs afero.Fs, path string) (digest.Digest, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }() // read-only

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}

	d, err := digest.SHA256.FromReader(f)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return d, nil
}
