// SPDX-License-Identifier: MPL-2.0

// Package sequence runs provisioning steps in order under a fail-fast
// contract and records the outcome of every step in a Report.
//
// A run moves through a fixed state machine:
//
//	START → KEY_REGISTERED → SOURCE_REGISTERED → INDEX_REFRESHED →
//	DRIVER_INSTALLED → DEPS_INSTALLED → DONE
//
// The first failing step moves the run to ABORTED. Steps after it are
// reported as skipped and never executed. Plans are validated before the
// first step runs so an illegal ordering cannot leave the host half
// provisioned.
package sequence
