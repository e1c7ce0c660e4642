// SPDX-License-Identifier: MPL-2.0

// Package provision produces the artifacts that run the provisioning routine
// somewhere other than the current host.
//
// For container builds, LayerProvisioner adds a layer on top of a base image
// that copies the odbcprov binary and the dependency manifest and runs
// `odbcprov apply` during the build:
//
//	p := provision.NewLayerProvisioner(engine, cfg)
//	result, err := p.Provision(ctx, "python:3.12-slim-bookworm")
//	// result.ImageTag names the provisioned image
//
// Provisioned images are tagged by a content digest of everything that goes
// into the layer, so an unchanged binary, manifest and base image reuse the
// image already built.
//
// For managed platforms that run a build hook instead of a Dockerfile,
// RenderHook emits the equivalent POSIX shell script.
package provision
