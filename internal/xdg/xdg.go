// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TallyBot Contributors

// Package xdg provides XDG Base Directory paths for TallyBot.
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "tallybot"

// ConfigDir returns the XDG config directory for tallybot.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// DefaultConfigFile returns the path of the default config file if one
// exists under the XDG config directory, or empty if it does not.
func DefaultConfigFile() string {
	path := filepath.Join(ConfigDir(), "tallybot.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
