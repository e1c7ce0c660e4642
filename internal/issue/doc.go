// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// Errors carry the operation that failed, the resource involved, remediation
// suggestions, and optionally a catalog Id whose Markdown guidance is rendered
// with glamour when a provisioning run aborts.
package issue
