// SPDX-License-Identifier: MPL-2.0

// Package container drives Docker or Podman through their CLIs to build
// provisioned images and run checks inside them.
package container
