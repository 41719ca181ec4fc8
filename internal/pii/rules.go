// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pii

// RuleSet drives column classification. The defaults cover both scheduled
// and walk-in exports; deployments with additional roster columns extend
// them through the config file rather than code changes.
type RuleSet struct {
	// KnownColumns are flagged by exact name without content inspection.
	KnownColumns []string `yaml:"known_columns"`

	// Keywords trigger content inspection when found in a lowercased
	// column name.
	Keywords []string `yaml:"keywords"`

	// SampleSize bounds content inspection to the first N non-null values.
	SampleSize int `yaml:"sample_size"`

	// MaxNullRatio: columns with a higher null ratio are never content
	// inspected (exact name matches still apply).
	MaxNullRatio float64 `yaml:"max_null_ratio"`

	// ShapeRatio is the fraction of sampled values that must match the
	// SSO or numeric-ID shape to flag a column.
	ShapeRatio float64 `yaml:"shape_ratio"`

	// NameRatio is the fraction of sampled values that must look like a
	// personal name to flag a column.
	NameRatio float64 `yaml:"name_ratio"`
}

// DefaultRuleSet returns the built-in classification rules.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		KnownColumns: []string{
			// Student identifiers (both session types)
			"Student Email",
			"Student SSO ID",
			"Student - Student ID",
			"Student ID",
			"Student Name",

			// Tutor identifiers (both session types)
			"Tutor Name",
			"Tutor Email",
			"Tutor SSO ID",
			"Tutor - Email the session receipt to",

			// Walk-in specific
			"Canceller Email",
			"Requested Tutor Name",
		},
		Keywords: []string{
			"email", "e-mail", "sso", "name", "phone", "address", "ssn",
			"student id", "tutor id", "netid",
		},
		SampleSize:   100,
		MaxNullRatio: 0.9,
		ShapeRatio:   0.5,
		NameRatio:    0.3,
	}
}

// Merge overlays non-zero fields of other onto r, returning the result.
// List fields replace wholesale when provided.
func (r RuleSet) Merge(other RuleSet) RuleSet {
	out := r
	if len(other.KnownColumns) > 0 {
		out.KnownColumns = other.KnownColumns
	}
	if len(other.Keywords) > 0 {
		out.Keywords = other.Keywords
	}
	if other.SampleSize > 0 {
		out.SampleSize = other.SampleSize
	}
	if other.MaxNullRatio > 0 {
		out.MaxNullRatio = other.MaxNullRatio
	}
	if other.ShapeRatio > 0 {
		out.ShapeRatio = other.ShapeRatio
	}
	if other.NameRatio > 0 {
		out.NameRatio = other.NameRatio
	}
	return out
}
