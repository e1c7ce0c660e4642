// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"bytes"
	"cmp"
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// HookConfig holds the inputs of a managed-platform build hook.
type HookConfig struct {
	// Binary is the odbcprov command on the build host. ODBCPROV_BIN in the
	// hook's environment takes precedence.
	Binary string
	// Manifest is the dependency manifest, relative to the hook's working
	// directory or absolute.
	Manifest string
	// AcceptEULA adds `--accept-eula` to the apply command. Otherwise the
	// flag is left out and ACCEPT_EULA or the config on the build host
	// decides.
	AcceptEULA bool
	// ConfigFile is passed as --config when set.
	ConfigFile string
}

// RenderHook returns a POSIX shell script that runs the provisioning routine
// for the managed platform. The script is parsed and printed by the shell
// formatter, so it is syntactically valid whatever the inputs contain.
func RenderHook(cfg HookConfig) (string, error) {
	binary, err := quoteWord(cmp.Or(cfg.Binary, "odbcprov"))
	if err != nil {
		return "", err
	}
	manifest, err := quoteWord(cmp.Or(cfg.Manifest, "requirements.txt"))
	if err != nil {
		return "", err
	}

	apply := []string{`"$ODBCPROV"`, "apply", "--platform", "managed"}
	if cfg.AcceptEULA {
		apply = append(apply, "--accept-eula")
	}
	apply = append(apply, "--manifest", manifest)
	if cfg.ConfigFile != "" {
		conf, err := quoteWord(cfg.ConfigFile)
		if err != nil {
			return "", err
		}
		apply = append(apply, "--config", conf)
	}

	var src strings.Builder
	src.WriteString("#!/bin/sh\n")
	src.WriteString("# Build hook generated by odbcprov hook.\n")
	src.WriteString("set -eu\n\n")
	src.WriteString("ODBCPROV=\"${ODBCPROV_BIN:-}\"\n")
	fmt.Fprintf(&src, "if [ -z \"$ODBCPROV\" ]; then ODBCPROV=%s; fi\n\n", binary)
	src.WriteString("if ! command -v \"$ODBCPROV\" >/dev/null 2>&1; then\n")
	src.WriteString("echo \"odbcprov: $ODBCPROV not found\" >&2\n")
	src.WriteString("exit 1\n")
	src.WriteString("fi\n\n")
	fmt.Fprintf(&src, "exec %s\n", strings.Join(apply, " "))

	return formatShell(src.String())
}

func formatShell(src string) (string, error) {
	parser := syntax.NewParser(syntax.KeepComments(true), syntax.Variant(syntax.LangPOSIX))
	file, err := parser.Parse(strings.NewReader(src), "odbcprov-hook.sh")
	if err != nil {
		return "", fmt.Errorf("invalid hook script: %w", err)
	}

	var buf bytes.Buffer
	if err := syntax.NewPrinter().Print(&buf, file); err != nil {
		return "", fmt.Errorf("format hook script: %w", err)
	}
	return buf.String(), nil
}

func quoteWord(s string) (string, error) {
	q, err := syntax.Quote(s, syntax.LangPOSIX)
	if err != nil {
		return "", fmt.Errorf("cannot quote %q for the hook script: %w", s, err)
	}
	return q, nil
}

