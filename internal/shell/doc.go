// SPDX-License-Identifier: MPL-2.0

// Package shell runs the external commands issued by provisioning steps
// (apt-get, pip) and captures their output for the step report.
//
// Three executors are provided: NativeExecutor uses os/exec directly,
// VirtualExecutor interprets the quoted command line with the embedded
// mvdan/sh interpreter, and DryRunExecutor records commands without running
// them.
package shell
