// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"strings"
	"testing"

	"mvdan.cc/sh/v3/syntax"
)

func TestRenderHook(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     HookConfig
		want    []string
		notWant []string
	}{
		{
			name: "defaults",
			cfg:  HookConfig{},
			want: []string{
				"ODBCPROV=odbcprov",
				`exec "$ODBCPROV" apply --platform managed --manifest requirements.txt`,
			},
			notWant: []string{"--config", "--accept-eula"},
		},
		{
			name: "accepted with config",
			cfg:  HookConfig{Binary: "/home/site/odbcprov", AcceptEULA: true, ConfigFile: "/home/site/odbcprov.cue"},
			want: []string{
				"ODBCPROV=/home/site/odbcprov",
				"apply --platform managed --accept-eula --manifest",
				"--config /home/site/odbcprov.cue",
			},
		},
		{
			name: "paths needing quotes",
			cfg:  HookConfig{Manifest: "my app/requirements.txt"},
			want: []string{"--manifest 'my app/requirements.txt'"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := RenderHook(tt.cfg)
			if err != nil {
				t.Fatalf("RenderHook() error: %v", err)
			}
			if !strings.HasPrefix(got, "#!/bin/sh\n") {
				t.Errorf("hook must start with a shebang:\n%s", got)
			}
			if !strings.Contains(got, "set -eu") {
				t.Errorf("hook must fail fast:\n%s", got)
			}
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("hook missing %q:\n%s", w, got)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(got, w) {
					t.Errorf("hook should not contain %q:\n%s", w, got)
				}
			}

			if _, err := syntax.NewParser(syntax.Variant(syntax.LangPOSIX)).Parse(strings.NewReader(got), "hook.sh"); err != nil {
				t.Errorf("rendered hook does not parse: %v", err)
			}
		})
	}
}

func TestRenderHook_Stable(t *testing.T) {
	t.Parallel()

	cfg := HookConfig{AcceptEULA: true}
	a, err := RenderHook(cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := RenderHook(cfg)
	if a != b {
		t.Error("RenderHook() is not deterministic")
	}

	again, err := formatShell(a)
	if err != nil {
		t.Fatal(err)
	}
	if again != a {
		t.Errorf("formatting is not idempotent:\n%s\n---\n%s", a, again)
	}
}

func TestRenderHook_RejectsNUL(t *testing.T) {
	t.Parallel()

	if _, err := RenderHook(HookConfig{Manifest: "a\x00b"}); err == nil {
		t.Fatal("RenderHook() accepted a NUL byte")
	}
}
