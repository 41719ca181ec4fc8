// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package suppressions lets a supervisor acknowledge known-safe leak
// findings so repeat scans stay quiet about them. Rules are keyed by a
// finding hash; the matched value itself is never stored, only a short
// digest of it inside the hash.
package suppressions

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"studio-analytics/internal/paths"

	"gopkg.in/yaml.v3"
)

// Rule is one acknowledged finding.
type Rule struct {
	ID        string     `yaml:"id"`
	Hash      string     `yaml:"hash"`
	Reason    string     `yaml:"reason"`
	Enabled   bool       `yaml:"enabled"`
	CreatedBy string     `yaml:"created_by,omitempty"`
	CreatedAt time.Time  `yaml:"created_at"`
	ExpiresAt *time.Time `yaml:"expires_at,omitempty"`
}

type fileConfig struct {
	Version string `yaml:"version"`
	Rules   []Rule `yaml:"rules"`
}

// Manager loads, matches, and persists suppression rules.
type Manager struct {
	path    string
	cfg     *fileConfig
	enabled bool
}

// NewManager loads the rule file at path, or the default suppressions
// file when path is empty. A missing or unreadable file yields an empty
// rule set rather than an error; scans must not fail because nothing has
// been suppressed yet.
func NewManager(path string) *Manager {
	if path == "" {
		path = paths.GetSuppressionsFile()
	}
	m := &Manager{path: path, enabled: true}
	m.load()
	return m
}

func (m *Manager) load() {
	m.cfg = &fileConfig{Version: "1.0"}
	data, err := os.ReadFile(filepath.Clean(m.path))
	if err != nil {
		return
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return
	}
	if cfg.Version == "" {
		cfg.Version = "1.0"
	}
	m.cfg = &cfg
}

// FindingHash derives the stable identity of a finding from its location
// and kind plus a digest of the matched value. The raw value contributes
// only through SHA-256, so rule files stay safe to share.
func FindingHash(file, kind string, line int, match string) string {
	matchDigest := ""
	if match != "" {
		sum := sha256.Sum256([]byte(match))
		matchDigest = fmt.Sprintf("%x", sum)[:16]
	}
	composite := strings.Join([]string{
		filepath.Base(file),
		kind,
		fmt.Sprintf("%d", line),
		matchDigest,
	}, "|")
	sum := sha256.Sum256([]byte(composite))
	return fmt.Sprintf("%x", sum)
}

// IsSuppressed reports whether an enabled, unexpired rule covers the
// given finding hash.
func (m *Manager) IsSuppressed(hash string) (bool, *Rule) {
	if !m.enabled || m.cfg == nil {
		return false, nil
	}
	for i := range m.cfg.Rules {
		rule := &m.cfg.Rules[i]
		if rule.Hash != hash || !rule.Enabled {
			continue
		}
		if rule.ExpiresAt != nil && time.Now().After(*rule.ExpiresAt) {
			continue
		}
		return true, rule
	}
	return false, nil
}

// Add records a new rule for the given finding hash and saves the file.
// A nil expiry defaults to one week out so acknowledgments get re-reviewed.
func (m *Manager) Add(hash, reason, createdBy string, expiresAt *time.Time) error {
	for _, rule := range m.cfg.Rules {
		if rule.Hash == hash {
			return fmt.Errorf("suppression rule already exists for this finding")
		}
	}
	if expiresAt == nil {
		d := time.Now().AddDate(0, 0, 7)
		expiresAt = &d
	}
	m.cfg.Rules = append(m.cfg.Rules, Rule{
		ID:        m.nextID(),
		Hash:      hash,
		Reason:    reason,
		Enabled:   true,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
		ExpiresAt: expiresAt,
	})
	return m.save()
}

func (m *Manager) nextID() string {
	maxID := 0
	for _, rule := range m.cfg.Rules {
		var n int
		if _, err := fmt.Sscanf(rule.ID, "SUP-%08d", &n); err == nil && n > maxID {
			maxID = n
		}
	}
	return fmt.Sprintf("SUP-%08d", maxID+1)
}

// Remove deletes a rule by ID and saves the file.
func (m *Manager) Remove(id string) error {
	for i, rule := range m.cfg.Rules {
		if rule.ID == id {
			m.cfg.Rules = append(m.cfg.Rules[:i], m.cfg.Rules[i+1:]...)
			return m.save()
		}
	}
	return fmt.Errorf("suppression rule %s not found", id)
}

// Disable switches a rule off by ID without deleting its history.
func (m *Manager) Disable(id string) error {
	for i := range m.cfg.Rules {
		if m.cfg.Rules[i].ID == id {
			m.cfg.Rules[i].Enabled = false
			return m.save()
		}
	}
	return fmt.Errorf("suppression rule %s not found", id)
}

// List returns all rules, including disabled and expired ones.
func (m *Manager) List() []Rule {
	out := make([]Rule, len(m.cfg.Rules))
	copy(out, m.cfg.Rules)
	return out
}

// CleanupExpired drops expired rules and reports how many were removed.
func (m *Manager) CleanupExpired() int {
	now := time.Now()
	kept := m.cfg.Rules[:0]
	for _, rule := range m.cfg.Rules {
		if rule.ExpiresAt == nil || now.Before(*rule.ExpiresAt) {
			kept = append(kept, rule)
		}
	}
	removed := len(m.cfg.Rules) - len(kept)
	m.cfg.Rules = kept
	if removed > 0 {
		m.save()
	}
	return removed
}

// SetEnabled toggles suppression matching globally; rules stay on disk.
func (m *Manager) SetEnabled(enabled bool) { m.enabled = enabled }

// Enabled reports whether suppression matching is active.
func (m *Manager) Enabled() bool { return m.enabled }

// Path returns the rule file location.
func (m *Manager) Path() string { return m.path }

func (m *Manager) save() error {
	data, err := yaml.Marshal(m.cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal suppression rules: %w", err)
	}
	dir := filepath.Dir(m.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(m.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write suppression rules: %w", err)
	}
	return nil
}
