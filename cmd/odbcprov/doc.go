// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the odbcprov CLI commands.
//
// Every command is built from an App, the composition root that owns the
// configuration provider, the container engine factory and the output
// streams. Commands report failures by returning errors; rendering and the
// process exit code are decided once, in Execute.
package cmd
