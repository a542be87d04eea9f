// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

// Package xdg resolves aurweb's configuration location under the XDG Base
// Directory layout.
package xdg

import (
	"os"
	"path/filepath"
)

const (
	appName    = "aurweb"
	configName = "config.yaml"
)

// ConfigDir returns $XDG_CONFIG_HOME/aurweb, falling back to ~/.config/aurweb.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// ConfigFile returns the default configuration file path. AUR_CONFIG
// overrides the XDG location.
func ConfigFile() string {
	if path := os.Getenv("AUR_CONFIG"); path != "" {
		return path
	}
	return filepath.Join(ConfigDir(), configName)
}

// Exists reports whether path names a regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
