// SPDX-License-Identifier: MPL-2.0

// Package registrar registers the vendor package repository with apt: it
// downloads the repository signing key into a keyring and writes the
// repository source entry for the target OS release.
//
// Both artifacts live at fixed paths and are replaced atomically, so
// running the registrar twice leaves exactly one key and one entry behind.
package registrar
