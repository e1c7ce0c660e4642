// SPDX-License-Identifier: MPL-2.0

package plan

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"

	"github.com/odbcprov/odbcprov/internal/config"
	"github.com/odbcprov/odbcprov/internal/packages"
	"github.com/odbcprov/odbcprov/internal/registrar"
	"github.com/odbcprov/odbcprov/internal/sequence"
	"github.com/odbcprov/odbcprov/internal/shell"
	"github.com/odbcprov/odbcprov/internal/testutil"
)

const (
	prodList  = "deb [arch=amd64,arm64,armhf signed-by=/usr/share/keyrings/microsoft-prod.gpg] https://packages.microsoft.com/debian/12/prod bookworm main\n"
	driverLib = "/opt/microsoft/msodbcsql17/lib64/libmsodbcsql-17.10.so.6.1"
)

var accepted = packages.License{Accepted: true, Source: "--accept-eula"}

func TestResolve_Profiles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		platform   config.PlatformName
		wantTarget registrar.Target
		wantPython string
		wantImage  string
	}{
		{config.PlatformContainer, registrar.Target{OS: "debian", Release: "12"}, "python", "python:3.12-slim-bookworm"},
		{config.PlatformManaged, registrar.Target{OS: "debian", Release: "11"}, "python3", ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.platform), func(t *testing.T) {
			t.Parallel()

			cfg := config.DefaultConfig()
			cfg.Platform = tt.platform
			s, err := Resolve(cfg)
			if err != nil {
				t.Fatalf("Resolve() error: %v", err)
			}
			if s.Registrar.Target != tt.wantTarget {
				t.Errorf("target = %s, want %s", s.Registrar.Target, tt.wantTarget)
			}
			if s.Dependencies.Python != tt.wantPython {
				t.Errorf("python = %q, want %q", s.Dependencies.Python, tt.wantPython)
			}
			if s.Profile.BaseImage != tt.wantImage {
				t.Errorf("base image = %q, want %q", s.Profile.BaseImage, tt.wantImage)
			}
		})
	}
}

func TestResolve_ConfigOverridesProfile(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Platform = config.PlatformManaged
	cfg.Target.Release = "12"
	cfg.Dependencies.Python = "/opt/python/3.11/bin/python"
	cfg.Registrar.KeyringPath = "/etc/apt/keyrings/microsoft.gpg"
	cfg.Packages.Names = []string{"msodbcsql17"}

	s, err := Resolve(cfg)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if s.Registrar.Target.Release != "12" || s.Registrar.Target.OS != "debian" {
		t.Errorf("target = %s, want debian/12", s.Registrar.Target)
	}
	if s.Dependencies.Python != "/opt/python/3.11/bin/python" {
		t.Errorf("python = %q", s.Dependencies.Python)
	}
	if s.Packages.KeyringPath != "/etc/apt/keyrings/microsoft.gpg" {
		t.Errorf("packages keyring path = %q, want the registrar's", s.Packages.KeyringPath)
	}
	if diff := cmp.Diff([]string{"msodbcsql17"}, s.Packages.Packages); diff != "" {
		t.Errorf("packages mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_Errors(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Platform = "heroku"
	if _, err := Resolve(cfg); !errors.Is(err, config.ErrInvalidPlatformName) {
		t.Errorf("Resolve(heroku) error = %v, want ErrInvalidPlatformName", err)
	}

	cfg = config.DefaultConfig()
	cfg.Target.OS = "alpine"
	if _, err := Resolve(cfg); !errors.Is(err, registrar.ErrInvalidTarget) {
		t.Errorf("Resolve(alpine) error = %v, want ErrInvalidTarget", err)
	}
}

func TestBuild_IsValidPlan(t *testing.T) {
	t.Parallel()

	s, err := Resolve(config.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	steps := Build(s, Deps{Root: afero.NewMemMapFs(), Work: afero.NewMemMapFs(), Fetcher: registrar.NewFetcher()})

	if err := sequence.ValidatePlan(steps); err != nil {
		t.Fatalf("ValidatePlan() = %v", err)
	}

	var names []string
	for _, st := range steps {
		names = append(names, st.Name)
	}
	want := []string{StepRegisterKey, StepRegisterSource, StepRefreshIndex, StepInstallDriver, StepUpgradeInstaller, StepInstallDependencies}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("step order mismatch (-want +got):\n%s", diff)
	}
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Dependencies.UpgradeInstaller = false
	s, err := Resolve(cfg)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := Describe(&buf, Build(s, Deps{})); err != nil {
		t.Fatalf("Describe() error: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"1. register-key [registrar] -> KEY_REGISTERED",
		"https://packages.microsoft.com/config/debian/12/prod.list",
		"4. install-driver [packages] -> DRIVER_INSTALLED",
		"5. upgrade-installer [dependencies]\n   keep the installed pip\n",
		"$ python -m pip install --no-cache-dir -r requirements.txt",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Describe() output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "--upgrade pip") {
		t.Errorf("disabled upgrade should not list a command:\n%s", out)
	}
}

// fixture wires the whole routine against a fake vendor server, in-memory
// filesystems and a recording executor.
type fixture struct {
	root afero.Fs
	work afero.Fs
	exec *testutil.RecordingExecutor
	srv  *httptest.Server
}

func newFixture(t *testing.T, vendorUp bool) *fixture {
	t.Helper()

	key := testutil.ArmoredPublicKey(t)
	mux := http.NewServeMux()
	if vendorUp {
		mux.HandleFunc("/keys/microsoft.asc", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write(key)
		})
		mux.HandleFunc("/config/debian/12/prod.list", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, prodList)
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	f := &fixture{
		root: afero.NewMemMapFs(),
		work: afero.NewMemMapFs(),
		exec: testutil.NewRecordingExecutor(),
		srv:  srv,
	}
	if err := afero.WriteFile(f.work, "requirements.txt", nil, 0o644); err != nil {
		t.Fatal(err)
	}
	f.exec.Effect("--no-install-recommends", func(_ shell.Command) {
		_ = afero.WriteFile(f.root, driverLib, []byte("ELF"), 0o755)
	})
	return f
}

func (f *fixture) run(t *testing.T, lic packages.License) (*sequence.Report, error) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Registrar.KeyURL = f.srv.URL + "/keys/microsoft.asc"
	cfg.Registrar.RepoConfigURL = f.srv.URL + "/config"
	s, err := Resolve(cfg)
	if err != nil {
		t.Fatal(err)
	}

	steps := Build(s, Deps{Root: f.root, Work: f.work, Fetcher: registrar.NewFetcher(), License: lic})
	runner := sequence.NewRunner(f.exec,
		sequence.WithLogger(log.New(io.Discard)),
		sequence.WithClock(testutil.NewFakeClock(time.Time{}).Tick(time.Second).Now),
		sequence.WithRunID(func() string { return "run-1" }),
		sequence.WithPlatform(string(s.Profile.Name)),
	)
	return runner.Run(context.Background(), steps)
}

func TestRoutine_AcceptedWithEmptyManifestSucceeds(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	report, err := f.run(t, accepted)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if report.FinalState != sequence.StateDone || report.ExitStatus != 0 {
		t.Errorf("final state = %s, exit = %d", report.FinalState, report.ExitStatus)
	}
	if !f.exec.Ran("-r requirements.txt") {
		t.Errorf("manifest was not passed to pip: %v", f.exec.Lines())
	}
	for _, path := range []string{registrar.DefaultKeyringPath, registrar.DefaultSourceListPath} {
		if ok, _ := afero.Exists(f.root, path); !ok {
			t.Errorf("%s was not written", path)
		}
	}
}

func TestRoutine_TwiceIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	if _, err := f.run(t, accepted); err != nil {
		t.Fatalf("first Run() error: %v", err)
	}
	keyring, _ := afero.ReadFile(f.root, registrar.DefaultKeyringPath)
	sources, _ := afero.ReadFile(f.root, registrar.DefaultSourceListPath)

	report, err := f.run(t, accepted)
	if err != nil {
		t.Fatalf("second Run() error: %v", err)
	}
	if report.FinalState != sequence.StateDone {
		t.Errorf("second run final state = %s", report.FinalState)
	}

	keyring2, _ := afero.ReadFile(f.root, registrar.DefaultKeyringPath)
	sources2, _ := afero.ReadFile(f.root, registrar.DefaultSourceListPath)
	if !bytes.Equal(keyring, keyring2) || !bytes.Equal(sources, sources2) {
		t.Error("second run changed the trust store")
	}
	if got := string(sources2); got != prodList {
		t.Errorf("source list = %q, want a single entry", got)
	}
}

func TestRoutine_LicenseUnsetAbortsAtPackagePhase(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	report, err := f.run(t, packages.License{})

	var stepErr *sequence.StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("Run() error = %v, want *sequence.StepError", err)
	}
	if stepErr.Kind != sequence.KindLicenseNotAccepted {
		t.Errorf("kind = %s, want license-not-accepted", stepErr.Kind)
	}
	if report.FinalState != sequence.StateAborted || report.ExitStatus == 0 {
		t.Errorf("final state = %s, exit = %d", report.FinalState, report.ExitStatus)
	}
	if failed := report.FailedStep(); failed == nil || failed.Name != StepInstallDriver {
		t.Errorf("failed step = %+v, want install-driver", failed)
	}

	if f.exec.Ran("msodbcsql17") {
		t.Error("the package manager must not install the driver without acceptance")
	}
	if f.exec.Ran("pip") {
		t.Error("the dependency phase must not run after an abort")
	}
	if ok, _ := afero.Exists(f.root, driverLib); ok {
		t.Error("driver library present without acceptance")
	}
	// Registrar artifacts stay in place.
	for _, path := range []string{registrar.DefaultKeyringPath, registrar.DefaultSourceListPath} {
		if ok, _ := afero.Exists(f.root, path); !ok {
			t.Errorf("%s should remain after the abort", path)
		}
	}
}

func TestRoutine_RegistrarFailureSkipsPackagePhase(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)

	report, err := f.run(t, accepted)
	if sequence.KindOf(err) != sequence.KindNetworkFetch {
		t.Fatalf("KindOf(err) = %s, want network-fetch (err: %v)", sequence.KindOf(err), err)
	}
	if f.exec.Ran("apt-get") {
		t.Errorf("the package installer ran after a registrar failure: %v", f.exec.Lines())
	}
	if got := report.Count(sequence.StatusSkipped); got != 5 {
		t.Errorf("skipped steps = %d, want 5", got)
	}
}

func TestRoutine_PackageFailureNamesKind(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	f.exec.Fail("update", 100, "E: The repository is not signed.")

	report, err := f.run(t, accepted)
	if !sequence.KindOf(err).IsPackageResolution() {
		t.Fatalf("KindOf(err) = %s, want package-resolution", sequence.KindOf(err))
	}
	failed := report.FailedStep()
	if failed == nil || failed.Name != StepRefreshIndex {
		t.Fatalf("failed step = %+v, want refresh-index", failed)
	}
	if failed.ExitCode != 100 {
		t.Errorf("exit code = %d, want 100", failed.ExitCode)
	}
}
