// SPDX-License-Identifier: MPL-2.0

package packages

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/odbcprov/odbcprov/internal/registrar"
	"github.com/odbcprov/odbcprov/internal/sequence"
	"github.com/odbcprov/odbcprov/internal/shell"
	"github.com/odbcprov/odbcprov/internal/testutil"
)

const sourceEntry = "deb [arch=amd64 signed-by=/usr/share/keyrings/microsoft-prod.gpg] https://packages.microsoft.com/debian/12/prod bookworm main\n"

// registeredFs returns a filesystem with the registrar's artifacts in place.
func registeredFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, registrar.DefaultKeyringPath, testutil.BinaryPublicKey(t), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, registrar.DefaultSourceListPath, []byte(sourceEntry), 0o644); err != nil {
		t.Fatal(err)
	}
	return fs
}

// installsDriver simulates apt unpacking the driver library.
func installsDriver(fs afero.Fs) func(shell.Command) {
	return func(shell.Command) {
		_ = afero.WriteFile(fs, "/opt/microsoft/msodbcsql17/lib64/libmsodbcsql-17.10.so.6.1", []byte{0x7f, 'E', 'L', 'F'}, 0o755)
	}
}

func accepted() Config {
	cfg := DefaultConfig()
	cfg.License = License{Accepted: true, Source: "--accept-eula"}
	return cfg
}

func TestRefreshIndex(t *testing.T) {
	t.Parallel()

	exec := testutil.NewRecordingExecutor()
	sio := sequence.NewStepIO("refresh-index", exec, log.New(io.Discard))

	if err := New(DefaultConfig(), registeredFs(t)).RefreshIndex(context.Background(), sio); err != nil {
		t.Fatalf("RefreshIndex() error: %v", err)
	}
	cmds := exec.Commands()
	if len(cmds) != 1 || cmds[0].Name != "apt-get" {
		t.Fatalf("commands = %v", exec.Lines())
	}
	if joined := strings.Join(cmds[0].Args, " "); !strings.HasSuffix(joined, "--error-on=any update") {
		t.Errorf("args = %q", joined)
	}
}

func TestRefreshIndex_Preflight(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(t *testing.T, fs afero.Fs)
	}{
		{name: "missing keyring", setup: func(_ *testing.T, fs afero.Fs) { _ = fs.Remove(registrar.DefaultKeyringPath) }},
		{name: "corrupt keyring", setup: func(t *testing.T, fs afero.Fs) {
			if err := afero.WriteFile(fs, registrar.DefaultKeyringPath, []byte("-----BEGIN PGP"), 0o644); err != nil {
				t.Fatal(err)
			}
		}},
		{name: "missing source list", setup: func(_ *testing.T, fs afero.Fs) { _ = fs.Remove(registrar.DefaultSourceListPath) }},
		{name: "malformed source list", setup: func(t *testing.T, fs afero.Fs) {
			if err := afero.WriteFile(fs, registrar.DefaultSourceListPath, []byte("deb\n"), 0o644); err != nil {
				t.Fatal(err)
			}
		}},
		{name: "entry without signed-by", setup: func(t *testing.T, fs afero.Fs) {
			entry := "deb [arch=amd64] https://packages.microsoft.com/debian/11/prod bullseye main\n"
			if err := afero.WriteFile(fs, registrar.DefaultSourceListPath, []byte(entry), 0o644); err != nil {
				t.Fatal(err)
			}
		}},
		{name: "entry signed by another keyring", setup: func(t *testing.T, fs afero.Fs) {
			entry := "deb [signed-by=/etc/apt/trusted.gpg.d/microsoft.gpg] https://packages.microsoft.com/debian/11/prod bullseye main\n"
			if err := afero.WriteFile(fs, registrar.DefaultSourceListPath, []byte(entry), 0o644); err != nil {
				t.Fatal(err)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fs := registeredFs(t)
			tt.setup(t, fs)
			exec := testutil.NewRecordingExecutor()
			sio := sequence.NewStepIO("refresh-index", exec, log.New(io.Discard))

			err := New(DefaultConfig(), fs).RefreshIndex(context.Background(), sio)
			if sequence.KindOf(err) != sequence.KindPackageResolution {
				t.Errorf("KindOf(%v) = %s", err, sequence.KindOf(err))
			}
			if exec.Ran("apt-get") {
				t.Error("apt-get must not run when the preflight fails")
			}
		})
	}
}

func TestRefreshIndex_PartialFailure(t *testing.T) {
	t.Parallel()

	exec := testutil.NewRecordingExecutor().Fail("update", 100, "W: Failed to fetch https://packages.microsoft.com/debian/12/prod/dists/bookworm/InRelease")
	sio := sequence.NewStepIO("refresh-index", exec, log.New(io.Discard))

	err := New(DefaultConfig(), registeredFs(t)).RefreshIndex(context.Background(), sio)
	if sequence.KindOf(err) != sequence.KindPackageResolution {
		t.Fatalf("KindOf(%v) = %s", err, sequence.KindOf(err))
	}
	if !strings.Contains(sio.Output(), "Failed to fetch") {
		t.Errorf("apt output not captured: %q", sio.Output())
	}
}

func TestInstallDriver_LicenseGate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		license License
	}{
		{name: "unset", license: License{}},
		{name: "refused", license: License{Accepted: false, Source: "ACCEPT_EULA"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fs := registeredFs(t)
			exec := testutil.NewRecordingExecutor().Effect("install", installsDriver(fs))
			sio := sequence.NewStepIO("install-driver", exec, log.New(io.Discard))
			cfg := DefaultConfig()
			cfg.License = tt.license

			err := New(cfg, fs).InstallDriver(context.Background(), sio)
			if sequence.KindOf(err) != sequence.KindLicenseNotAccepted {
				t.Errorf("KindOf(%v) = %s", err, sequence.KindOf(err))
			}
			if len(exec.Commands()) != 0 {
				t.Errorf("package manager ran: %v", exec.Lines())
			}
			if matches, _ := afero.Glob(fs, DefaultDriverLibGlob); len(matches) != 0 {
				t.Error("driver must not be installed")
			}
		})
	}
}

func TestInstallDriver(t *testing.T) {
	t.Parallel()

	fs := registeredFs(t)
	exec := testutil.NewRecordingExecutor().Effect("install", installsDriver(fs))
	sio := sequence.NewStepIO("install-driver", exec, log.New(io.Discard))

	if err := New(accepted(), fs).InstallDriver(context.Background(), sio); err != nil {
		t.Fatalf("InstallDriver() error: %v", err)
	}

	cmds := exec.Commands()
	if len(cmds) != 1 {
		t.Fatalf("commands = %v", exec.Lines())
	}
	cmd := cmds[0]
	if cmd.Env["ACCEPT_EULA"] != "Y" || cmd.Env["DEBIAN_FRONTEND"] != "noninteractive" {
		t.Errorf("env = %v", cmd.Env)
	}
	joined := strings.Join(cmd.Args, " ")
	if !strings.HasSuffix(joined, "--no-install-recommends install msodbcsql17 unixodbc-dev") {
		t.Errorf("args = %q", joined)
	}
	if !strings.Contains(sio.Output(), "libmsodbcsql-17.10.so.6.1") {
		t.Errorf("output = %q", sio.Output())
	}
}

func TestInstallDriver_SilentNoOp(t *testing.T) {
	t.Parallel()

	exec := testutil.NewRecordingExecutor()
	sio := sequence.NewStepIO("install-driver", exec, log.New(io.Discard))

	err := New(accepted(), registeredFs(t)).InstallDriver(context.Background(), sio)
	if sequence.KindOf(err) != sequence.KindPackageResolution {
		t.Errorf("KindOf(%v) = %s, want package-resolution", err, sequence.KindOf(err))
	}

	cfg := accepted()
	cfg.VerifyDriver = false
	if err := New(cfg, registeredFs(t)).InstallDriver(context.Background(), sio); err != nil {
		t.Errorf("with verification off, InstallDriver() error: %v", err)
	}
}

func TestInstallDriver_AptFailure(t *testing.T) {
	t.Parallel()

	exec := testutil.NewRecordingExecutor().Fail("install", 100, "E: Unable to locate package msodbcsql17")
	sio := sequence.NewStepIO("install-driver", exec, log.New(io.Discard))

	err := New(accepted(), registeredFs(t)).InstallDriver(context.Background(), sio)
	if sequence.KindOf(err) != sequence.KindPackageResolution {
		t.Errorf("KindOf(%v) = %s", err, sequence.KindOf(err))
	}
}
