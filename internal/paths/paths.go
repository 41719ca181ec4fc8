// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// GetConfigDir returns the studio-analytics configuration directory.
// Windows uses APPDATA, everything else a dot directory under $HOME.
func GetConfigDir() string {
	// Explicit override wins on all platforms
	if dir := os.Getenv("STUDIO_ANALYTICS_CONFIG_DIR"); dir != "" {
		return dir
	}

	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "studio-analytics")
		}
	}

	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".studio-analytics")
}

// GetDataDir returns the directory for run artifacts (audit log, default
// codebook output). Windows prefers LOCALAPPDATA so the audit trail stays
// off roaming profiles.
func GetDataDir() string {
	if dir := os.Getenv("STUDIO_ANALYTICS_DATA_DIR"); dir != "" {
		return dir
	}

	if runtime.GOOS == "windows" {
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, "studio-analytics")
		}
	}

	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".studio-analytics")
}

// GetConfigFile returns the path to the main config file
func GetConfigFile() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// GetSuppressionsFile returns the path to the leak-scan suppressions file
func GetSuppressionsFile() string {
	return filepath.Join(GetConfigDir(), "suppressions.yaml")
}

// GetAuditLogFile returns the path of the append-only chat audit log
func GetAuditLogFile() string {
	return filepath.Join(GetDataDir(), "chat_audit.log")
}

// EnsureDir creates dir (and parents) with owner-only permissions. The
// codebook and audit trail live here, so group/other access stays closed.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o700)
}
