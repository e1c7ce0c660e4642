// SPDX-License-Identifier: MPL-2.0

package registrar

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aymanbagabas/go-udiff"
	"github.com/spf13/afero"

	"github.com/odbcprov/odbcprov/internal/fsutil"
	"github.com/odbcprov/odbcprov/internal/issue"
	"github.com/odbcprov/odbcprov/internal/sequence"
)

const (
	// DefaultKeyURL is the vendor repository signing key.
	DefaultKeyURL = "https://packages.microsoft.com/keys/microsoft.asc"
	// DefaultRepoConfigURL is the base of the per-release repository descriptors.
	DefaultRepoConfigURL = "https://packages.microsoft.com/config"
	// DefaultKeyringPath is where the de-armored key is stored.
	DefaultKeyringPath = "/usr/share/keyrings/microsoft-prod.gpg"
	// DefaultSourceListPath is where the repository entry is stored.
	DefaultSourceListPath = "/etc/apt/sources.list.d/mssql-release.list"
)

type (
	// Config locates the vendor artifacts and where they are installed.
	Config struct {
		KeyURL         string
		RepoConfigURL  string
		KeyringPath    string
		SourceListPath string
		Target         Target
	}

	// Registrar performs the register-key and register-source steps.
	Registrar struct {
		cfg     Config
		fs      afero.Fs
		fetcher *Fetcher
	}
)

// DefaultConfig targets Debian 12 with the vendor's published locations.
func DefaultConfig() Config {
	return Config{
		KeyURL:         DefaultKeyURL,
		RepoConfigURL:  DefaultRepoConfigURL,
		KeyringPath:    DefaultKeyringPath,
		SourceListPath: DefaultSourceListPath,
		Target:         Target{OS: "debian", Release: "12"},
	}
}

// DescriptorURL returns the repository descriptor URL for t.
func (c Config) DescriptorURL(t Target) string {
	return fmt.Sprintf("%s/%s/%s/prod.list", strings.TrimRight(c.RepoConfigURL, "/"), t.OS, t.Release)
}

// New creates a Registrar writing to fs.
func New(cfg Config, fs afero.Fs, fetcher *Fetcher) *Registrar {
	return &Registrar{cfg: cfg, fs: fs, fetcher: fetcher}
}

// Config returns the registrar configuration.
func (r *Registrar) Config() Config { return r.cfg }

// RegisterKey downloads the vendor signing key, verifies it parses as an
// OpenPGP public key and stores its binary form in the keyring path.
func (r *Registrar) RegisterKey(ctx context.Context, sio *sequence.StepIO) error {
	armored, err := r.fetcher.Fetch(ctx, r.cfg.KeyURL)
	if err != nil {
		return sequence.Fail(sequence.KindNetworkFetch, issue.NewErrorContext().
			WithOperation("fetch vendor signing key").
			WithResource(r.cfg.KeyURL).
			WithSuggestion("Check outbound HTTPS access from the build host").
			WithIssue(issue.NetworkFetchFailedId).
			Wrap(err).
			BuildError())
	}
	sio.Notef("fetched %s (%d bytes)", r.cfg.KeyURL, len(armored))

	bin, info, err := DearmorKey(armored)
	if err != nil {
		return sequence.Fail(sequence.KindNetworkFetch, issue.NewErrorContext().
			WithOperation("parse vendor signing key").
			WithResource(r.cfg.KeyURL).
			WithSuggestion("Make sure the key URL serves an ASCII armored public key, not an HTML error page").
			WithIssue(issue.NetworkFetchFailedId).
			Wrap(err).
			BuildError())
	}

	if err := fsutil.WriteFileAtomic(r.fs, r.cfg.KeyringPath, bin, 0o644); err != nil {
		return sequence.Fail(sequence.KindTrustStoreWrite, issue.NewErrorContext().
			WithOperation("write keyring").
			WithResource(r.cfg.KeyringPath).
			WithIssue(issue.TrustStoreWriteFailedId).
			Wrap(err).
			BuildError())
	}

	sio.Notef("imported key %s %s", info.Fingerprint, strings.Join(info.Identities, ", "))
	sio.Notef("wrote %s", r.cfg.KeyringPath)
	sio.Logger().Debug("keyring written", "path", r.cfg.KeyringPath, "fingerprint", info.Fingerprint)
	return nil
}

// RegisterSource downloads the repository descriptor for the target
// release, validates it and replaces the source list with it.
func (r *Registrar) RegisterSource(ctx context.Context, sio *sequence.StepIO) error {
	target, err := r.cfg.Target.Resolve(r.fs)
	if err != nil {
		return sequence.Fail(sequence.KindInternal, issue.NewErrorContext().
			WithOperation("resolve target OS release").
			WithSuggestion("Set target.os and target.release explicitly in the config").
			Wrap(err).
			BuildError())
	}
	url := r.cfg.DescriptorURL(target)

	descriptor, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		return sequence.Fail(sequence.KindNetworkFetch, issue.NewErrorContext().
			WithOperation("fetch repository descriptor").
			WithResource(url).
			WithSuggestion(fmt.Sprintf("Verify the vendor publishes a repository for %s", target)).
			WithIssue(issue.NetworkFetchFailedId).
			Wrap(err).
			BuildError())
	}

	entries, err := ParseSourceList(descriptor)
	if err != nil {
		return sequence.Fail(sequence.KindNetworkFetch, issue.NewErrorContext().
			WithOperation("validate repository descriptor").
			WithResource(url).
			WithIssue(issue.NetworkFetchFailedId).
			Wrap(err).
			BuildError())
	}
	descriptor, added, err := BindKeyring(descriptor, r.cfg.KeyringPath)
	if err != nil {
		return sequence.Fail(sequence.KindTrustStoreWrite, issue.NewErrorContext().
			WithOperation("bind repository descriptor to the vendor keyring").
			WithResource(url).
			WithSuggestion("Set registrar.keyring_path to the keyring the descriptor names").
			WithIssue(issue.TrustStoreWriteFailedId).
			Wrap(err).
			BuildError())
	}
	if added > 0 {
		sio.Notef("added signed-by=%s to %d of %d entries", r.cfg.KeyringPath, added, len(entries))
	}

	previous, existed, err := fsutil.ReadFileIfExists(r.fs, r.cfg.SourceListPath)
	if err != nil {
		return sequence.Fail(sequence.KindTrustStoreWrite, issue.NewErrorContext().
			WithOperation("read existing source list").
			WithResource(r.cfg.SourceListPath).
			WithIssue(issue.TrustStoreWriteFailedId).
			Wrap(err).
			BuildError())
	}
	if existed && bytes.Equal(previous, descriptor) {
		sio.Notef("%s is up to date (%d entries)", r.cfg.SourceListPath, len(entries))
		return nil
	}

	if err := fsutil.WriteFileAtomic(r.fs, r.cfg.SourceListPath, descriptor, 0o644); err != nil {
		return sequence.Fail(sequence.KindTrustStoreWrite, issue.NewErrorContext().
			WithOperation("write source list").
			WithResource(r.cfg.SourceListPath).
			WithIssue(issue.TrustStoreWriteFailedId).
			Wrap(err).
			BuildError())
	}

	if existed {
		sio.Notef("replaced %s:", r.cfg.SourceListPath)
		sio.Notef("%s", strings.TrimRight(udiff.Unified(r.cfg.SourceListPath+" (previous)", r.cfg.SourceListPath, string(previous), string(descriptor)), "\n"))
	} else {
		sio.Notef("wrote %s (%d entries for %s)", r.cfg.SourceListPath, len(entries), target)
	}
	return nil
}
