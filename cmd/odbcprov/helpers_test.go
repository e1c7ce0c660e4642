// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/odbcprov/odbcprov/internal/config"
	"github.com/odbcprov/odbcprov/internal/sequence"
	"github.com/odbcprov/odbcprov/internal/testutil"
)

const prodList = "deb [arch=amd64,arm64,armhf signed-by=/usr/share/keyrings/microsoft-prod.gpg] https://packages.microsoft.com/debian/12/prod bookworm main\n"

type (
	// staticConfig returns a copy of cfg on every Load.
	staticConfig struct {
		cfg *config.Config
	}

	// vendor is a stand-in for packages.microsoft.com.
	vendor struct {
		*httptest.Server
		requests atomic.Int64
	}

	result struct {
		code   int
		stdout string
		stderr string
	}
)

func (s staticConfig) Load(context.Context, config.LoadOptions) (*config.Config, error) {
	c := *s.cfg
	return &c, nil
}

func newVendor(t *testing.T) *vendor {
	t.Helper()

	v := &vendor{}
	key := testutil.ArmoredPublicKey(t)
	mux := http.NewServeMux()
	mux.HandleFunc("/keys/microsoft.asc", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(key)
	})
	mux.HandleFunc("/config/debian/12/prod.list", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, prodList)
	})
	v.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v.requests.Add(1)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(v.Close)
	return v
}

// testConfig points the registrar at v and runs every command through the
// dry-run executor under a temporary root.
func testConfig(t *testing.T, v *vendor) *config.Config {
	t.Helper()

	manifest := filepath.Join(t.TempDir(), "requirements.txt")
	if err := os.WriteFile(manifest, []byte("pyodbc==5.1.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.Registrar.KeyURL = v.URL + "/keys/microsoft.asc"
	cfg.Registrar.RepoConfigURL = v.URL + "/config"
	cfg.Root = t.TempDir()
	cfg.Executor.Mode = config.ExecutorDryRun
	cfg.Dependencies.Manifest = manifest
	cfg.Report.Format = config.ReportJSON
	return cfg
}

func runApp(t *testing.T, deps Dependencies, args ...string) result {
	t.Helper()

	var stdout, stderr bytes.Buffer
	deps.Stdout = &stdout
	deps.Stderr = &stderr
	if deps.LookupEnv == nil {
		deps.LookupEnv = func(string) (string, bool) { return "", false }
	}

	code := run(context.Background(), NewApp(deps), args)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func withEnv(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func decodeReport(t *testing.T, data string) *sequence.Report {
	t.Helper()

	var rep sequence.Report
	if err := json.Unmarshal([]byte(data), &rep); err != nil {
		t.Fatalf("decoding report: %v\n%s", err, data)
	}
	return &rep
}
