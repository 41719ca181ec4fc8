// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package guard

import (
	"fmt"
	"regexp"
	"strings"

	"studio-analytics/internal/pii"
)

// RefusalMessage replaces any response the filter rejects. Replacement is
// always wholesale: partial redaction can leave identifying context around
// the removed span.
const RefusalMessage = "I apologize, but I cannot provide that response as it may contain " +
	"sensitive information. Please rephrase your question to focus on " +
	"aggregated data and trends."

// ResponseFilter scans model output before it reaches the user. It
// distrusts even the tool's own anonymous IDs: a response quoting STU_/TUT_
// tokens verbatim invites singling out individuals.
type ResponseFilter struct {
	rules       Rules
	suspicious  []string
	generic     []*regexp.Regexp
	domainTerms []string
	sink        AuditSink
}

// NewResponseFilter compiles the filter from the rule table. Zero-valued
// rule fields fall back to the defaults; sink may be nil.
func NewResponseFilter(rules Rules, sink AuditSink) (*ResponseFilter, error) {
	rules = rules.merge()
	f := &ResponseFilter{rules: rules, sink: sink}

	for _, phrase := range rules.SuspiciousPhrases {
		f.suspicious = append(f.suspicious, strings.ToLower(phrase))
	}
	for _, p := range rules.GenericKnowledgePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("bad generic-knowledge pattern %q: %w", p, err)
		}
		f.generic = append(f.generic, re)
	}
	for _, term := range rules.DomainTerms {
		f.domainTerms = append(f.domainTerms, strings.ToLower(term))
	}
	return f, nil
}

// IsSafe checks a response for identity leakage.
func (f *ResponseFilter) IsSafe(response string) (bool, string) {
	if pii.EmailPattern.MatchString(response) {
		return false, "response contains an email address"
	}
	if pii.AnonIDPattern.MatchString(response) {
		return false, "response contains an anonymous ID"
	}
	lower := strings.ToLower(response)
	for _, phrase := range f.suspicious {
		if strings.Contains(lower, phrase) {
			return false, fmt.Sprintf("response contains suspicious phrase %q", phrase)
		}
	}
	return true, "safe"
}

// ContainsGenericKnowledge checks whether a response drifted off the
// dataset into general-knowledge territory. Long responses with zero
// domain vocabulary are treated as suspect even without a pattern hit.
func (f *ResponseFilter) ContainsGenericKnowledge(response string) (bool, string) {
	for _, re := range f.generic {
		if m := re.FindString(response); m != "" {
			return true, fmt.Sprintf("response matches generic-knowledge pattern %q", m)
		}
	}
	if len(response) > f.rules.LongResponseThreshold {
		lower := strings.ToLower(response)
		for _, term := range f.domainTerms {
			if strings.Contains(lower, term) {
				return false, ""
			}
		}
		return true, "long response with no domain vocabulary"
	}
	return false, ""
}

// Filter returns the response unchanged when it passes both checks, and
// the refusal text otherwise. The outcome goes to the audit sink either
// way.
func (f *ResponseFilter) Filter(response string) string {
	safe, reason := f.IsSafe(response)
	if safe {
		if generic, genericReason := f.ContainsGenericKnowledge(response); generic {
			safe, reason = false, genericReason
		}
	}

	if f.sink != nil {
		f.sink.ResponseFiltered(safe, reason)
	}
	if !safe {
		return RefusalMessage
	}
	return response
}
