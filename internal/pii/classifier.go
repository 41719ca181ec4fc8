// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package pii classifies frame columns that carry personally identifying
// information. Detection is two-layer: exact known column names, then
// keyword-triggered content inspection over a bounded sample.
package pii

import (
	"fmt"
	"sort"
	"strings"

	"studio-analytics/internal/dataset"
)

// Finding records why a column was classified as PII.
type Finding struct {
	Column string
	Reason string
}

// Classifier detects PII columns using a RuleSet.
type Classifier struct {
	rules      RuleSet
	knownIndex map[string]bool
}

// NewClassifier creates a classifier. A zero RuleSet falls back to defaults.
func NewClassifier(rules RuleSet) *Classifier {
	if rules.SampleSize == 0 {
		rules = DefaultRuleSet().Merge(rules)
	}
	known := make(map[string]bool, len(rules.KnownColumns))
	for _, c := range rules.KnownColumns {
		known[c] = true
	}
	return &Classifier{rules: rules, knownIndex: known}
}

// Detect returns the PII findings for a frame, sorted by column name and
// deduplicated. The frame is only read.
func (c *Classifier) Detect(f *dataset.Frame) []Finding {
	byColumn := make(map[string]string)

	// Layer 1: exact known column names
	for _, col := range f.Columns() {
		if c.knownIndex[col] {
			byColumn[col] = "known identifier column"
		}
	}

	// Layer 2: keyword match confirmed by content inspection
	for _, col := range f.Columns() {
		if _, done := byColumn[col]; done {
			continue
		}
		if !c.nameHasKeyword(col) {
			continue
		}
		if f.NullRatio(col) >= c.rules.MaxNullRatio {
			// Nearly-empty columns carry almost no data to leak and
			// sampling them produces noise
			continue
		}
		if reason, ok := c.inspectContent(f.SampleNonNull(col, c.rules.SampleSize)); ok {
			byColumn[col] = reason
		}
	}

	findings := make([]Finding, 0, len(byColumn))
	for col, reason := range byColumn {
		findings = append(findings, Finding{Column: col, Reason: reason})
	}
	sort.Slice(findings, func(i, j int) bool { return findings[i].Column < findings[j].Column })
	return findings
}

// DetectPIIColumns returns just the sorted column names.
func (c *Classifier) DetectPIIColumns(f *dataset.Frame) []string {
	findings := c.Detect(f)
	cols := make([]string, len(findings))
	for i, fd := range findings {
		cols[i] = fd.Column
	}
	return cols
}

func (c *Classifier) nameHasKeyword(col string) bool {
	lower := strings.ToLower(col)
	for _, kw := range c.rules.Keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// inspectContent decides whether sampled values look personally
// identifying. A single email is enough; shape matches need to clear the
// configured ratios.
func (c *Classifier) inspectContent(sample []string) (string, bool) {
	if len(sample) == 0 {
		return "", false
	}

	ssoMatches, idMatches, nameMatches := 0, 0, 0
	for _, v := range sample {
		if EmailPattern.MatchString(v) {
			return "content matches email pattern", true
		}
		if ssoPattern.MatchString(v) {
			ssoMatches++
		}
		if numericIDPattern.MatchString(v) {
			idMatches++
		}
		if namePattern.MatchString(v) {
			nameMatches++
		}
	}

	// Numeric IDs also satisfy the SSO shape, so the narrower check runs first
	total := float64(len(sample))
	if float64(idMatches)/total >= c.rules.ShapeRatio {
		return fmt.Sprintf("%d/%d values match numeric ID shape", idMatches, len(sample)), true
	}
	if float64(ssoMatches)/total >= c.rules.ShapeRatio {
		return fmt.Sprintf("%d/%d values match SSO ID shape", ssoMatches, len(sample)), true
	}
	if float64(nameMatches)/total >= c.rules.NameRatio {
		return fmt.Sprintf("%d/%d values match personal name shape", nameMatches, len(sample)), true
	}
	return "", false
}
