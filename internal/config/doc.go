// SPDX-License-Identifier: MPL-2.0

// Package config handles odbcprov configuration using Viper with CUE as the
// file format.
//
// Configuration is read from the file given with --config, else
// $XDG_CONFIG_HOME/odbcprov/config.cue, else ./odbcprov.cue. The file is
// validated against the embedded #Config schema (config_schema.cue) before it
// is merged over the defaults. Environment variables prefixed with ODBCPROV_
// override file values (ODBCPROV_IMAGE_PORT sets image.port).
package config
