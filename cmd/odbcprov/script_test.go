// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

func TestMain(m *testing.M) {
	testscript.Main(m, map[string]func(){
		"odbcprov": Execute,
	})
}

// TestScripts runs the CLI scripts in testdata/script against the odbcprov
// command built into the test binary.
func TestScripts(t *testing.T) {
	t.Parallel()

	testscript.Run(t, testscript.Params{
		Dir: filepath.Join("testdata", "script"),
		Setup: func(env *testscript.Env) error {
			env.Setenv("XDG_CONFIG_HOME", filepath.Join(env.WorkDir, ".config"))
			env.Setenv("NO_COLOR", "1")
			env.Setenv("TERM", "dumb")
			return os.MkdirAll(filepath.Join(env.WorkDir, ".config"), 0o755)
		},
		RequireExplicitExec: true,
		ContinueOnError:     true,
	})
}
