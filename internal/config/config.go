// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package config loads the YAML configuration file and maps it onto the
// option structs of the packages that do the work. Loading is
// defaults-then-unmarshal: every field starts at its built-in default
// and the file only overrides what it names, so an empty file behaves
// exactly like no file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"studio-analytics/internal/chat"
	"studio-analytics/internal/guard"
	"studio-analytics/internal/ingest"
	"studio-analytics/internal/llm"
	"studio-analytics/internal/paths"
	"studio-analytics/internal/pii"
	"studio-analytics/internal/sandbox"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	// Default settings, mirroring the command-line flags
	Defaults struct {
		Format           string `yaml:"format"`
		ConfidenceLevels string `yaml:"confidence_levels"`
		SessionType      string `yaml:"session_type"`
		Verbose          bool   `yaml:"verbose"`
		Debug            bool   `yaml:"debug"`
		NoColor          bool   `yaml:"no_color"`
	} `yaml:"defaults"`

	// Anonymization run settings
	Anonymization struct {
		ExtraColumns []string `yaml:"extra_columns"`
		CodebookOut  string   `yaml:"codebook_out"`
		Audit        bool     `yaml:"audit"`
	} `yaml:"anonymization"`

	// Rules override the built-in classification tables. Each table can
	// be written inline or referenced as a separate YAML file; a file
	// reference replaces the inline table. Zero-valued fields fall back
	// to the package defaults.
	Rules struct {
		PII       pii.RuleSet `yaml:"pii"`
		PIIFile   string      `yaml:"pii_file"`
		Guard     guard.Rules `yaml:"guard"`
		GuardFile string      `yaml:"guard_file"`
	} `yaml:"rules"`

	// Chat settings for the local inference server. Temperature zero
	// selects the calibrated default; use a small value like 0.01 for
	// near-greedy output.
	Chat struct {
		OllamaURL   string  `yaml:"ollama_url"`
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
		History     int     `yaml:"history"`
	} `yaml:"chat"`

	// Sandbox limits for model-generated computations
	Sandbox struct {
		TimeoutSeconds int `yaml:"timeout_seconds"`
		MaxRows        int `yaml:"max_rows"`
		MaxCodeBytes   int `yaml:"max_code_bytes"`
	} `yaml:"sandbox"`

	// Leakscan settings for report bundle scanning
	Leakscan struct {
		MinConfidence    int    `yaml:"min_confidence"`
		SuppressionsFile string `yaml:"suppressions_file"`
	} `yaml:"leakscan"`

	// Profiles bundle settings for recurring runs. A selected profile
	// overlays the defaults; explicit flags still win over the profile.
	Profiles map[string]Profile `yaml:"profiles"`
}

// Profile represents a named preset with specific settings
type Profile struct {
	Format           string   `yaml:"format"`
	ConfidenceLevels string   `yaml:"confidence_levels"`
	SessionType      string   `yaml:"session_type"`
	Verbose          bool     `yaml:"verbose"`
	NoColor          bool     `yaml:"no_color"`
	ExtraColumns     []string `yaml:"extra_columns"`
	MinConfidence    int      `yaml:"min_confidence"`
	Description      string   `yaml:"description"`
}

// LoadConfig loads configuration from the specified file path
func LoadConfig(configPath string) (*Config, error) {
	// Default configuration
	config := &Config{
		Profiles: make(map[string]Profile),
	}

	// Set default values
	config.Defaults.Format = "text"
	config.Defaults.ConfidenceLevels = "all"
	config.Defaults.SessionType = ""
	config.Defaults.Verbose = false
	config.Defaults.Debug = false
	config.Defaults.NoColor = false

	config.Anonymization.Audit = true

	config.Chat.OllamaURL = llm.DefaultBaseURL
	config.Chat.Model = llm.DefaultModel
	genDefaults := llm.DefaultOptions()
	config.Chat.MaxTokens = genDefaults.MaxTokens
	config.Chat.Temperature = genDefaults.Temperature
	config.Chat.History = chat.DefaultMaxHistory

	config.Sandbox.TimeoutSeconds = int(sandbox.DefaultTimeout / time.Second)
	config.Sandbox.MaxRows = sandbox.DefaultMaxRows
	config.Sandbox.MaxCodeBytes = sandbox.DefaultMaxCodeBytes

	// Add default report profile for end-of-semester bundles
	config.Profiles["report"] = Profile{
		Format:           "text",
		ConfidenceLevels: "high,medium",
		NoColor:          true,
		MinConfidence:    60,
		Description:      "Strictness preset for report bundles: medium-confidence findings and up, plain output",
	}

	// If no config file specified, return default config
	if configPath == "" {
		return config, nil
	}

	// Read config file
	cleanPath := filepath.Clean(configPath)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Store default values before unmarshaling
	defaultAudit := config.Anonymization.Audit

	// Parse YAML
	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Restore defaults if not explicitly set in config file
	// This handles the case where YAML unmarshaling sets bool fields to false
	// when they're not present in the config file
	if !containsField(data, "anonymization", "audit") {
		config.Anonymization.Audit = defaultAudit
	}

	// Resolve file-referenced rule tables relative to the config file
	if err := loadRuleFiles(config, filepath.Dir(cleanPath)); err != nil {
		return nil, err
	}

	// Validate the configuration
	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Load resolves and loads the effective configuration: an explicit path
// when given, otherwise the first file FindConfigFile discovers. Either
// way a file that exists must load cleanly; a corrupt config next to a
// dataset should stop the run, not silently fall back to defaults. The
// returned path is empty when no file was found.
func Load(configFlag string) (*Config, string, error) {
	path := configFlag
	if path == "" {
		path = FindConfigFile()
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// FindConfigFile looks for a configuration file in standard locations.
// The current directory wins so a department can keep a project config
// next to its exports; the platform config dir is the fallback.
func FindConfigFile() string {
	if fileExists("studio-analytics.yaml") {
		return "studio-analytics.yaml"
	}
	if fileExists("studio-analytics.yml") {
		return "studio-analytics.yml"
	}
	if fileExists(".studio-analytics.yaml") {
		return ".studio-analytics.yaml"
	}

	standardConfig := paths.GetConfigFile()
	if fileExists(standardConfig) {
		return standardConfig
	}

	return ""
}

// loadRuleFiles reads file-referenced rule tables into the config.
// Relative references resolve against the config file's directory so a
// project config can carry its tables alongside it.
func loadRuleFiles(config *Config, baseDir string) error {
	if config.Rules.PIIFile != "" {
		path := resolveAgainst(baseDir, config.Rules.PIIFile)
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("error reading pii rules file: %w", err)
		}
		config.Rules.PII = pii.RuleSet{}
		if err := yaml.Unmarshal(data, &config.Rules.PII); err != nil {
			return fmt.Errorf("error parsing pii rules file %s: %w", path, err)
		}
	}
	if config.Rules.GuardFile != "" {
		path := resolveAgainst(baseDir, config.Rules.GuardFile)
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("error reading guard rules file: %w", err)
		}
		config.Rules.Guard = guard.Rules{}
		if err := yaml.Unmarshal(data, &config.Rules.Guard); err != nil {
			return fmt.Errorf("error parsing guard rules file %s: %w", path, err)
		}
	}
	return nil
}

func resolveAgainst(baseDir, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(baseDir, path)
}

// fileExists checks if a file exists and is not a directory
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// ListProfiles returns the available profile names, sorted
func (c *Config) ListProfiles() []string {
	profiles := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		profiles = append(profiles, name)
	}
	sort.Strings(profiles)
	return profiles
}

// GetProfile returns a profile by name, or nil if not found
func (c *Config) GetProfile(name string) *Profile {
	if profile, exists := c.Profiles[name]; exists {
		return &profile
	}
	return nil
}

// ApplyProfile overlays the named profile onto the defaults. Callers
// apply explicit flags afterwards, so a profile never outranks a flag.
// Boolean fields only switch on; a profile cannot clear a default.
func (c *Config) ApplyProfile(name string) error {
	profile := c.GetProfile(name)
	if profile == nil {
		return fmt.Errorf("profile %q not found (available: %s)",
			name, strings.Join(c.ListProfiles(), ", "))
	}

	if profile.Format != "" {
		c.Defaults.Format = profile.Format
	}
	if profile.ConfidenceLevels != "" {
		c.Defaults.ConfidenceLevels = profile.ConfidenceLevels
	}
	if profile.SessionType != "" {
		c.Defaults.SessionType = profile.SessionType
	}
	if profile.Verbose {
		c.Defaults.Verbose = true
	}
	if profile.NoColor {
		c.Defaults.NoColor = true
	}
	if len(profile.ExtraColumns) > 0 {
		c.Anonymization.ExtraColumns = profile.ExtraColumns
	}
	if profile.MinConfidence > 0 {
		c.Leakscan.MinConfidence = profile.MinConfidence
	}
	return nil
}

// PIIRules returns the effective column classification rules.
func (c *Config) PIIRules() pii.RuleSet {
	return pii.DefaultRuleSet().Merge(c.Rules.PII)
}

// GuardRules returns the chat guardrail table. Zero-valued fields are
// filled by the guard package itself.
func (c *Config) GuardRules() guard.Rules {
	return c.Rules.Guard
}

// LLMConfig maps the chat section onto the inference client settings.
func (c *Config) LLMConfig() llm.Config {
	return llm.Config{
		BaseURL: c.Chat.OllamaURL,
		Model:   c.Chat.Model,
	}
}

// GenerationOptions returns the model tuning for chat turns, falling
// back to the calibrated defaults for unset fields.
func (c *Config) GenerationOptions() llm.Options {
	opts := llm.DefaultOptions()
	if c.Chat.MaxTokens > 0 {
		opts.MaxTokens = c.Chat.MaxTokens
	}
	if c.Chat.Temperature > 0 {
		opts.Temperature = c.Chat.Temperature
	}
	return opts
}

// SandboxOptions maps the sandbox section onto executor limits.
func (c *Config) SandboxOptions() sandbox.Options {
	return sandbox.Options{
		Timeout:      time.Duration(c.Sandbox.TimeoutSeconds) * time.Second,
		MaxRows:      c.Sandbox.MaxRows,
		MaxCodeBytes: c.Sandbox.MaxCodeBytes,
	}
}

// containsField checks if a nested field exists in the YAML data
func containsField(data []byte, path ...string) bool {
	var yamlData map[string]interface{}
	err := yaml.Unmarshal(data, &yamlData)
	if err != nil {
		return false
	}

	current := yamlData
	for i, key := range path {
		if i == len(path)-1 {
			// Last key - check if it exists
			_, exists := current[key]
			return exists
		}
		// Intermediate key - navigate deeper
		if next, ok := current[key].(map[string]interface{}); ok {
			current = next
		} else {
			return false
		}
	}
	return false
}

// ValidateConfig validates the configuration, failing fast on values
// the run would otherwise only trip over mid-pipeline
func ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}

	if err := validateSessionType(config.Defaults.SessionType); err != nil {
		return err
	}
	if _, err := ParseConfidenceLevels(config.Defaults.ConfidenceLevels); err != nil {
		return err
	}

	if err := validateRules(config); err != nil {
		return fmt.Errorf("rules validation failed: %w", err)
	}
	if err := validateChat(config); err != nil {
		return fmt.Errorf("chat validation failed: %w", err)
	}
	if err := validateSandbox(config); err != nil {
		return fmt.Errorf("sandbox validation failed: %w", err)
	}
	if config.Leakscan.MinConfidence < 0 || config.Leakscan.MinConfidence > 100 {
		return fmt.Errorf("leakscan min_confidence must be between 0 and 100, got %d", config.Leakscan.MinConfidence)
	}

	for name, profile := range config.Profiles {
		if err := validateSessionType(profile.SessionType); err != nil {
			return fmt.Errorf("profile %q: %w", name, err)
		}
		if _, err := ParseConfidenceLevels(profile.ConfidenceLevels); err != nil {
			return fmt.Errorf("profile %q: %w", name, err)
		}
		if profile.MinConfidence < 0 || profile.MinConfidence > 100 {
			return fmt.Errorf("profile %q: min_confidence must be between 0 and 100, got %d", name, profile.MinConfidence)
		}
	}

	return nil
}

func validateSessionType(sessionType string) error {
	switch {
	case sessionType == "":
		return nil
	case strings.EqualFold(sessionType, ingest.SessionTypeScheduled):
		return nil
	case strings.EqualFold(sessionType, ingest.SessionTypeWalkIn):
		return nil
	}
	return fmt.Errorf("invalid session type %q (use %q or %q)",
		sessionType, ingest.SessionTypeScheduled, ingest.SessionTypeWalkIn)
}

// validateRules checks the classification tables: ratios must be
// proportions and every guard pattern must compile, so a typo in a rule
// file surfaces at startup instead of on the first chat turn.
func validateRules(config *Config) error {
	rules := config.Rules.PII
	for _, ratio := range []struct {
		name  string
		value float64
	}{
		{"max_null_ratio", rules.MaxNullRatio},
		{"shape_ratio", rules.ShapeRatio},
		{"name_ratio", rules.NameRatio},
	} {
		if ratio.value < 0 || ratio.value > 1 {
			return fmt.Errorf("pii %s must be between 0 and 1, got %g", ratio.name, ratio.value)
		}
	}
	if rules.SampleSize < 0 {
		return fmt.Errorf("pii sample_size cannot be negative, got %d", rules.SampleSize)
	}

	for _, pattern := range config.Rules.Guard.JailbreakPatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("invalid guard jailbreak pattern %q: %w", pattern, err)
		}
	}
	for _, pattern := range config.Rules.Guard.GenericKnowledgePatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("invalid guard generic knowledge pattern %q: %w", pattern, err)
		}
	}
	return nil
}

func validateChat(config *Config) error {
	if config.Chat.Temperature < 0 || config.Chat.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %g", config.Chat.Temperature)
	}
	if config.Chat.MaxTokens < 0 {
		return fmt.Errorf("max_tokens cannot be negative, got %d", config.Chat.MaxTokens)
	}
	if config.Chat.History < 0 {
		return fmt.Errorf("history cannot be negative, got %d", config.Chat.History)
	}
	return nil
}

func validateSandbox(config *Config) error {
	if config.Sandbox.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout_seconds must be positive, got %d", config.Sandbox.TimeoutSeconds)
	}
	if config.Sandbox.MaxRows <= 0 {
		return fmt.Errorf("max_rows must be positive, got %d", config.Sandbox.MaxRows)
	}
	if config.Sandbox.MaxCodeBytes <= 0 {
		return fmt.Errorf("max_code_bytes must be positive, got %d", config.Sandbox.MaxCodeBytes)
	}
	return nil
}

// ParseConfidenceLevels converts the comma-separated flag/config form
// into the set formatters filter on. "all" (or empty) keeps every band.
func ParseConfidenceLevels(s string) (map[string]bool, error) {
	set := make(map[string]bool)
	for _, tok := range strings.Split(s, ",") {
		tok = strings.ToLower(strings.TrimSpace(tok))
		switch tok {
		case "":
			continue
		case "all":
			return map[string]bool{}, nil
		case "high", "medium", "low":
			set[tok] = true
		default:
			return nil, fmt.Errorf("invalid confidence level %q (use high, medium, low, or all)", tok)
		}
	}
	return set, nil
}
