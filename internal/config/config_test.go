// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// chdir switches the working directory for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("failed to change working directory: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Errorf("failed to restore working directory: %v", err)
		}
	})
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Defaults.Format != "text" {
		t.Errorf("expected default format=text, got %q", cfg.Defaults.Format)
	}
	if cfg.Defaults.ConfidenceLevels != "all" {
		t.Errorf("expected default confidence_levels=all, got %q", cfg.Defaults.ConfidenceLevels)
	}
	if !cfg.Anonymization.Audit {
		t.Error("expected audit=true by default")
	}
	if cfg.Chat.OllamaURL != "http://localhost:11434" {
		t.Errorf("expected default ollama_url, got %q", cfg.Chat.OllamaURL)
	}
	if cfg.Chat.History != 10 {
		t.Errorf("expected default history=10, got %d", cfg.Chat.History)
	}
	if cfg.Sandbox.TimeoutSeconds != 4 {
		t.Errorf("expected default timeout_seconds=4, got %d", cfg.Sandbox.TimeoutSeconds)
	}
	if cfg.Sandbox.MaxRows != 250000 {
		t.Errorf("expected default max_rows=250000, got %d", cfg.Sandbox.MaxRows)
	}
	if _, ok := cfg.Profiles["report"]; !ok {
		t.Error("expected 'report' profile to exist in defaults")
	}
}

func TestLoadConfig_FileOverrides(t *testing.T) {
	path := writeConfig(t, `
defaults:
  format: json
  session_type: walkin
  verbose: true
anonymization:
  audit: false
  extra_columns:
    - Campus
chat:
  model: llama3:8b
  max_tokens: 512
sandbox:
  timeout_seconds: 8
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Defaults.Format != "json" {
		t.Errorf("expected format=json, got %q", cfg.Defaults.Format)
	}
	if cfg.Defaults.SessionType != "walkin" {
		t.Errorf("expected session_type=walkin, got %q", cfg.Defaults.SessionType)
	}
	if cfg.Anonymization.Audit {
		t.Error("expected audit=false when the file disables it")
	}
	if len(cfg.Anonymization.ExtraColumns) != 1 || cfg.Anonymization.ExtraColumns[0] != "Campus" {
		t.Errorf("extra_columns = %v", cfg.Anonymization.ExtraColumns)
	}
	if cfg.Chat.Model != "llama3:8b" {
		t.Errorf("expected model override, got %q", cfg.Chat.Model)
	}
	if cfg.Chat.MaxTokens != 512 {
		t.Errorf("expected max_tokens=512, got %d", cfg.Chat.MaxTokens)
	}
	if cfg.Sandbox.TimeoutSeconds != 8 {
		t.Errorf("expected timeout_seconds=8, got %d", cfg.Sandbox.TimeoutSeconds)
	}
	// Untouched sections keep their defaults
	if cfg.Sandbox.MaxRows != 250000 {
		t.Errorf("expected max_rows default to survive, got %d", cfg.Sandbox.MaxRows)
	}
	if cfg.Chat.OllamaURL != "http://localhost:11434" {
		t.Errorf("expected ollama_url default to survive, got %q", cfg.Chat.OllamaURL)
	}
}

func TestLoadConfig_AuditDefaultSurvivesPartialFile(t *testing.T) {
	path := writeConfig(t, `
defaults:
  format: json
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Anonymization.Audit {
		t.Error("audit should stay enabled when the file does not mention it")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/path/config.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, ":::invalid yaml:::")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoadConfig_UnknownSessionType(t *testing.T) {
	path := writeConfig(t, `
defaults:
  session_type: seminar
`)
	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected error for unknown session type")
	}
	if !strings.Contains(err.Error(), "invalid session type") {
		t.Errorf("error = %v", err)
	}
}

func TestLoadConfig_BadGuardPattern(t *testing.T) {
	path := writeConfig(t, `
rules:
  guard:
    jailbreak_patterns:
      - "(["
`)
	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected error for uncompilable guard pattern")
	}
	if !strings.Contains(err.Error(), "jailbreak pattern") {
		t.Errorf("error = %v", err)
	}
}

func TestLoadConfig_BadPIIRatio(t *testing.T) {
	path := writeConfig(t, `
rules:
  pii:
    shape_ratio: 1.5
`)
	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected error for out-of-range ratio")
	}
	if !strings.Contains(err.Error(), "shape_ratio") {
		t.Errorf("error = %v", err)
	}
}

func TestLoadConfig_RuleFiles(t *testing.T) {
	dir := t.TempDir()
	rulesPath := filepath.Join(dir, "pii-rules.yaml")
	rules := `
known_columns:
  - Advisor Email
keywords:
  - advisor
`
	if err := os.WriteFile(rulesPath, []byte(rules), 0600); err != nil {
		t.Fatalf("failed to write rules file: %v", err)
	}

	configPath := filepath.Join(dir, "config.yaml")
	content := `
rules:
  pii_file: pii-rules.yaml
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Rules.PII.KnownColumns) != 1 || cfg.Rules.PII.KnownColumns[0] != "Advisor Email" {
		t.Errorf("known_columns = %v", cfg.Rules.PII.KnownColumns)
	}

	// The effective rule set keeps defaults for fields the file omits
	effective := cfg.PIIRules()
	if effective.SampleSize != 100 {
		t.Errorf("expected default sample size, got %d", effective.SampleSize)
	}
	if effective.KnownColumns[0] != "Advisor Email" {
		t.Errorf("effective known_columns = %v", effective.KnownColumns)
	}
}

func TestLoadConfig_RuleFileMissing(t *testing.T) {
	path := writeConfig(t, `
rules:
  guard_file: no-such-file.yaml
`)
	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected error for missing rules file")
	}
	if !strings.Contains(err.Error(), "guard rules file") {
		t.Errorf("error = %v", err)
	}
}

func TestApplyProfile(t *testing.T) {
	path := writeConfig(t, `
profiles:
  semester:
    format: csv
    verbose: true
    extra_columns:
      - Campus
    min_confidence: 80
    description: End-of-semester review
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := cfg.ApplyProfile("semester"); err != nil {
		t.Fatalf("ApplyProfile: %v", err)
	}
	if cfg.Defaults.Format != "csv" {
		t.Errorf("expected format=csv after profile, got %q", cfg.Defaults.Format)
	}
	if !cfg.Defaults.Verbose {
		t.Error("expected verbose=true after profile")
	}
	if cfg.Leakscan.MinConfidence != 80 {
		t.Errorf("expected min_confidence=80, got %d", cfg.Leakscan.MinConfidence)
	}
	if len(cfg.Anonymization.ExtraColumns) != 1 {
		t.Errorf("extra_columns = %v", cfg.Anonymization.ExtraColumns)
	}
}

func TestApplyProfile_Unknown(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = cfg.ApplyProfile("nope")
	if err == nil {
		t.Fatal("expected error for unknown profile")
	}
	if !strings.Contains(err.Error(), "report") {
		t.Errorf("error should list available profiles, got %v", err)
	}
}

func TestFindConfigFile_CurrentDirWins(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "studio-analytics.yaml"), []byte("defaults:\n  format: json\n"), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	chdir(t, dir)
	// Keep the platform config dir out of the picture
	t.Setenv("STUDIO_ANALYTICS_CONFIG_DIR", filepath.Join(dir, "empty"))

	if got := FindConfigFile(); got != "studio-analytics.yaml" {
		t.Errorf("FindConfigFile() = %q", got)
	}
}

func TestFindConfigFile_PlatformDirFallback(t *testing.T) {
	cwd := t.TempDir()
	chdir(t, cwd)

	configDir := t.TempDir()
	t.Setenv("STUDIO_ANALYTICS_CONFIG_DIR", configDir)
	standard := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(standard, []byte("defaults:\n  format: json\n"), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if got := FindConfigFile(); got != standard {
		t.Errorf("FindConfigFile() = %q, want %q", got, standard)
	}
}

func TestLoad_ExplicitPathMustLoad(t *testing.T) {
	_, _, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for explicit missing config path")
	}
}

func TestParseConfidenceLevels(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"all", 0, false},
		{"", 0, false},
		{"high", 1, false},
		{"high,medium", 2, false},
		{"HIGH, Low", 2, false},
		{"bogus", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseConfidenceLevels(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseConfidenceLevels(%q): expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseConfidenceLevels(%q): %v", tt.input, err)
			continue
		}
		if len(got) != tt.want {
			t.Errorf("ParseConfidenceLevels(%q) = %v, want %d entries", tt.input, got, tt.want)
		}
	}
}

func TestOptionMapping(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	opts := cfg.SandboxOptions()
	if opts.Timeout != 4*time.Second {
		t.Errorf("sandbox timeout = %v", opts.Timeout)
	}
	if opts.MaxRows != 250000 || opts.MaxCodeBytes != 4000 {
		t.Errorf("sandbox limits = %d rows, %d bytes", opts.MaxRows, opts.MaxCodeBytes)
	}

	cfg.Chat.MaxTokens = 256
	cfg.Chat.Temperature = 0.3
	gen := cfg.GenerationOptions()
	if gen.MaxTokens != 256 {
		t.Errorf("max tokens = %d", gen.MaxTokens)
	}
	if gen.Temperature != 0.3 {
		t.Errorf("temperature = %g", gen.Temperature)
	}
	if gen.TopP != 0.9 {
		t.Errorf("top_p should keep its default, got %g", gen.TopP)
	}

	llmCfg := cfg.LLMConfig()
	if llmCfg.BaseURL != "http://localhost:11434" {
		t.Errorf("base url = %q", llmCfg.BaseURL)
	}
}
