// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package guard

import (
	"fmt"
	"regexp"
	"strings"
)

// Verdict is the outcome of scoring one query.
type Verdict struct {
	Allowed bool
	Reason  string
	Score   int

	DataMatches     []string
	OffTopicMatches []string
	HarmfulMatches  []string
}

// InputValidator scores a query before any model call. Jailbreak phrasing
// rejects immediately; otherwise distinct keyword matches accumulate into a
// signed score and the query passes while the score stays non-negative. A
// single stray keyword cannot veto a question that carries clear data
// context.
type InputValidator struct {
	rules     Rules
	jailbreak []*regexp.Regexp
	data      []keywordPattern
	offTopic  []keywordPattern
	harmful   []keywordPattern
	sink      AuditSink
}

type keywordPattern struct {
	keyword string
	re      *regexp.Regexp
}

// NewInputValidator compiles the rule table. Zero-valued rule fields fall
// back to the defaults; sink may be nil.
func NewInputValidator(rules Rules, sink AuditSink) (*InputValidator, error) {
	rules = rules.merge()
	v := &InputValidator{rules: rules, sink: sink}

	for _, p := range rules.JailbreakPatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("bad jailbreak pattern %q: %w", p, err)
		}
		v.jailbreak = append(v.jailbreak, re)
	}

	var err error
	if v.data, err = compileKeywords(rules.DataKeywords); err != nil {
		return nil, err
	}
	if v.offTopic, err = compileKeywords(rules.OffTopicKeywords); err != nil {
		return nil, err
	}
	if v.harmful, err = compileKeywords(rules.HarmfulKeywords); err != nil {
		return nil, err
	}
	return v, nil
}

// compileKeywords builds word-boundary matchers so "kill" does not fire
// inside "skills".
func compileKeywords(keywords []string) ([]keywordPattern, error) {
	out := make([]keywordPattern, 0, len(keywords))
	for _, kw := range keywords {
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`)
		if err != nil {
			return nil, fmt.Errorf("bad keyword %q: %w", kw, err)
		}
		out = append(out, keywordPattern{keyword: kw, re: re})
	}
	return out, nil
}

// Validate scores the query and reports the verdict to the audit sink.
func (v *InputValidator) Validate(query string) Verdict {
	verdict := v.validate(query)
	if v.sink != nil {
		v.sink.QueryValidated(query, verdict.Allowed, verdict.Reason, verdict.Score)
	}
	return verdict
}

func (v *InputValidator) validate(query string) Verdict {
	for _, re := range v.jailbreak {
		if re.MatchString(query) {
			return Verdict{Allowed: false, Reason: "jailbreak_attempt"}
		}
	}

	var verdict Verdict
	verdict.DataMatches = matchKeywords(v.data, query)
	verdict.OffTopicMatches = matchKeywords(v.offTopic, query)
	verdict.HarmfulMatches = matchKeywords(v.harmful, query)

	verdict.Score = len(verdict.DataMatches)*v.rules.DataWeight +
		len(verdict.OffTopicMatches)*v.rules.OffTopicWeight +
		len(verdict.HarmfulMatches)*v.rules.HarmfulWeight

	if verdict.Score >= 0 {
		verdict.Allowed = true
		verdict.Reason = "valid"
		return verdict
	}

	if len(verdict.HarmfulMatches) > 0 {
		verdict.Reason = fmt.Sprintf("inappropriate: score %d", verdict.Score)
	} else {
		verdict.Reason = fmt.Sprintf("off_topic: score %d", verdict.Score)
	}
	return verdict
}

// matchKeywords returns the distinct keywords present in the query. Each
// keyword counts once no matter how often it occurs.
func matchKeywords(patterns []keywordPattern, query string) []string {
	var matched []string
	for _, p := range patterns {
		if p.re.MatchString(query) {
			matched = append(matched, p.keyword)
		}
	}
	return matched
}

// RejectionMessage maps a verdict reason to canned refusal text. The text
// never echoes the query or names the matched keywords.
func RejectionMessage(reason string) string {
	switch {
	case strings.HasPrefix(reason, "off_topic"):
		return "I'm a data analysis assistant for Writing Studio analytics. " +
			"I can only answer questions about the session data you've uploaded. " +
			"Please ask about patterns, trends, or insights in your data."
	case strings.HasPrefix(reason, "inappropriate"):
		return "I cannot respond to that type of query. " +
			"Please ask questions related to your session data."
	case reason == "jailbreak_attempt":
		return "I'm designed to only discuss your session data. " +
			"Please ask about the analytics in your report."
	case reason == "no_data_keywords":
		return "I didn't detect any data-related terms in your question. " +
			"I can help with questions about sessions, students, consultants, " +
			"times, dates, courses, satisfaction, and trends. What would you like to know?"
	default:
		return "I can only answer questions about your session data. " +
			"Please ask about patterns, trends, or specific metrics."
	}
}
