// SPDX-License-Identifier: MPL-2.0

package config

// configDirOverride allows tests to override the config directory.
var configDirOverride string

// Reset clears test overrides.
func Reset() {
	configDirOverride = ""
}

// SetConfigDirOverride sets a custom config directory path. os.UserHomeDir
// does not reliably respect HOME on every platform, so tests use this.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}
