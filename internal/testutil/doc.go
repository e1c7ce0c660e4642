// SPDX-License-Identifier: MPL-2.0

// Package testutil provides fakes shared by provisioning tests: a
// controllable clock, a recording command executor with scripted results,
// a throwaway OpenPGP signing key, and a semaphore that limits concurrent
// container builds.
package testutil
