// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"

	"github.com/opencontainers/go-digest"
)

type (
	// Provisioner prepares an image with the provisioning routine applied.
	Provisioner interface {
		// Provision builds, or reuses, the provisioned image for baseImage.
		Provision(ctx context.Context, baseImage string) (*Result, error)
	}

	// Result contains the output of a provisioning operation.
	Result struct {
		// ImageTag is the tag of the provisioned image (e.g. "odbcprov-provisioned:3f2a9c0b1d4e").
		ImageTag string
		// Digest is the content digest the tag was derived from.
		Digest digest.Digest
		// Reused is true when a cached image was found and nothing was built.
		Reused bool
	}
)
