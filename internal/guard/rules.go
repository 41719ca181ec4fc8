// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package guard gates both sides of a chat turn: queries are scored for
// on-topic-ness before any model call, and model output is scanned for
// identity leakage and generic-knowledge drift before it reaches the user.
package guard

// Rules is the data-driven classification table consumed by the validator
// and the response filter. Everything here can be overridden from the
// config file; zero-valued fields fall back to the defaults.
type Rules struct {
	// JailbreakPatterns are regular expressions matched against the
	// lowercased query. Any hit rejects immediately, before scoring.
	JailbreakPatterns []string `yaml:"jailbreak_patterns"`

	// Keyword lists, matched on word boundaries, case-insensitive.
	DataKeywords     []string `yaml:"data_keywords"`
	OffTopicKeywords []string `yaml:"off_topic_keywords"`
	HarmfulKeywords  []string `yaml:"harmful_keywords"`

	// Per-distinct-keyword weights. A query is accepted when its summed
	// score stays non-negative.
	DataWeight     int `yaml:"data_weight"`
	OffTopicWeight int `yaml:"off_topic_weight"`
	HarmfulWeight  int `yaml:"harmful_weight"`

	// SuspiciousPhrases are substrings that make a model response unsafe
	// even without a literal identifier in it.
	SuspiciousPhrases []string `yaml:"suspicious_phrases"`

	// GenericKnowledgePatterns flag responses that drifted away from the
	// dataset into encyclopedia territory.
	GenericKnowledgePatterns []string `yaml:"generic_knowledge_patterns"`

	// DomainTerms anchor a response to the dataset. A response longer
	// than LongResponseThreshold bytes containing none of them is
	// treated as generic knowledge.
	DomainTerms           []string `yaml:"domain_terms"`
	LongResponseThreshold int      `yaml:"long_response_threshold"`
}

// DefaultRules returns the built-in classification table.
func DefaultRules() Rules {
	return Rules{
		JailbreakPatterns: []string{
			`ignore (previous|all) instructions`,
			`you are now`,
			`you are not`,
			`pretend (you|to) (are|be)`,
			`roleplay`,
			`act as`,
			`act like`,
			`system prompt`,
			`forget (everything|all)`,
			`instead of being`,
		},
		DataKeywords: []string{
			"session", "student", "tutor", "consultant", "appointment",
			"hour", "day", "week", "month", "time", "date",
			"course", "writing", "satisfaction", "confidence",
			"how many", "what", "when", "where", "why",
			"trend", "pattern", "average", "mean", "total",
			"busiest", "most", "least", "peak", "show",
		},
		OffTopicKeywords: []string{
			"recipe", "cook", "pizza", "food", "restaurant",
			"girlfriend", "boyfriend", "marry", "date me", "love",
			"weather", "stock", "cryptocurrency", "bitcoin",
			"game", "movie", "music", "song", "celebrity",
			"joke", "story", "poem", "essay about",
		},
		HarmfulKeywords: []string{
			"kill", "murder", "suicide", "bomb", "weapon",
			"drug", "illegal", "hack", "steal", "fraud",
			"nude", "sex", "porn", "explicit",
		},
		DataWeight:     2,
		OffTopicWeight: -3,
		HarmfulWeight:  -5,
		SuspiciousPhrases: []string{
			"student email",
			"tutor email",
			"student name",
			"tutor name",
			"this student",
			"this tutor",
			"individual student",
			"individual tutor",
		},
		GenericKnowledgePatterns: []string{
			`(?i)\bas an? (ai|language model)\b`,
			`(?i)\bin general\b`,
			`(?i)\bgenerally speaking\b`,
			`(?i)\bonce upon a time\b`,
			`(?i)\bhere('s| is) a recipe\b`,
			`(?i)\bwas (born|founded|invented) in\b`,
			`(?i)\bis a (country|city|planet)\b`,
			`(?i)\bcapital of\b`,
		},
		DomainTerms: []string{
			"session", "student", "tutor", "consultant", "appointment",
			"writing", "dataset", "data", "average", "mean", "median",
			"total", "count", "satisfaction", "confidence", "rating",
			"semester", "week", "month", "hour", "percent", "trend",
			"metric", "attendance", "duration",
		},
		LongResponseThreshold: 400,
	}
}

// merge fills zero-valued fields from the defaults so a partial config
// override keeps the rest of the table intact.
func (r Rules) merge() Rules {
	d := DefaultRules()
	if len(r.JailbreakPatterns) == 0 {
		r.JailbreakPatterns = d.JailbreakPatterns
	}
	if len(r.DataKeywords) == 0 {
		r.DataKeywords = d.DataKeywords
	}
	if len(r.OffTopicKeywords) == 0 {
		r.OffTopicKeywords = d.OffTopicKeywords
	}
	if len(r.HarmfulKeywords) == 0 {
		r.HarmfulKeywords = d.HarmfulKeywords
	}
	if r.DataWeight == 0 {
		r.DataWeight = d.DataWeight
	}
	if r.OffTopicWeight == 0 {
		r.OffTopicWeight = d.OffTopicWeight
	}
	if r.HarmfulWeight == 0 {
		r.HarmfulWeight = d.HarmfulWeight
	}
	if len(r.SuspiciousPhrases) == 0 {
		r.SuspiciousPhrases = d.SuspiciousPhrases
	}
	if len(r.GenericKnowledgePatterns) == 0 {
		r.GenericKnowledgePatterns = d.GenericKnowledgePatterns
	}
	if len(r.DomainTerms) == 0 {
		r.DomainTerms = d.DomainTerms
	}
	if r.LongResponseThreshold == 0 {
		r.LongResponseThreshold = d.LongResponseThreshold
	}
	return r
}

// AuditSink receives validation and filtering outcomes. The hosting
// application owns the sink's lifecycle; a nil sink disables auditing.
type AuditSink interface {
	QueryValidated(query string, allowed bool, reason string, score int)
	ResponseFiltered(allowed bool, reason string)
}
