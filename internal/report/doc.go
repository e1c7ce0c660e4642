// SPDX-License-Identifier: MPL-2.0

// Package report writes the step report of a provisioning run.
//
// A report is encoded as text for people or as JSON, YAML or TOML for
// machines. WriteMetrics additionally exports the run as a Prometheus
// textfile for the node exporter's textfile collector.
package report
