// SPDX-License-Identifier: MPL-2.0

// Package benchmark provides benchmarks for PGO profile generation.
// They cover the hot paths of a provisioning run:
//   - CUE config loading and schema validation
//   - plan resolution and step construction
//   - a full dry-run of the routine against a local vendor server
//   - report encoding and hook rendering
//
// To generate a PGO profile, run:
//
//	go test -run='^$' -bench=. -cpuprofile=default.pgo ./internal/benchmark
package benchmark
