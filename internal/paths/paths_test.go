// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package paths

import (
	"path/filepath"
	"testing"
)

func TestGetConfigDirOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STUDIO_ANALYTICS_CONFIG_DIR", dir)

	if got := GetConfigDir(); got != dir {
		t.Errorf("GetConfigDir() = %q, want override %q", got, dir)
	}
	if got := GetConfigFile(); got != filepath.Join(dir, "config.yaml") {
		t.Errorf("GetConfigFile() = %q", got)
	}
	if got := GetSuppressionsFile(); got != filepath.Join(dir, "suppressions.yaml") {
		t.Errorf("GetSuppressionsFile() = %q", got)
	}
}

func TestGetDataDirOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STUDIO_ANALYTICS_DATA_DIR", dir)

	if got := GetDataDir(); got != dir {
		t.Errorf("GetDataDir() = %q, want override %q", got, dir)
	}
	if got := GetAuditLogFile(); got != filepath.Join(dir, "chat_audit.log") {
		t.Errorf("GetAuditLogFile() = %q", got)
	}
}

func TestGetConfigDirDefaultIsStable(t *testing.T) {
	t.Setenv("STUDIO_ANALYTICS_CONFIG_DIR", "")

	first := GetConfigDir()
	second := GetConfigDir()
	if first == "" || first != second {
		t.Errorf("GetConfigDir() not stable: %q vs %q", first, second)
	}
}
