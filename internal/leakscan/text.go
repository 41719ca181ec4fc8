// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package leakscan

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	"studio-analytics/internal/pii"
)

var (
	// nameLabelRe gates personal-name findings: a bare capitalized pair
	// matches far too much English to report on its own, so names are
	// only flagged next to an identifying label.
	nameLabelRe = regexp.MustCompile(`(?i)\b(student|tutor|consultant|instructor|name)\b\s*[:=]`)

	// personNameRe matches a capitalized first/last pair in free text.
	personNameRe = regexp.MustCompile(`\b[A-Z][a-z]+ [A-Z][a-z]+\b`)

	// numericIDRe matches university ID numbers in free text.
	numericIDRe = regexp.MustCompile(`\b\d{7,10}\b`)

	// idLabelRe gates numeric-ID findings the same way nameLabelRe gates
	// names: seven digits alone are usually just a number.
	idLabelRe = regexp.MustCompile(`(?i)\b(id|sso|student number)\b`)
)

// scanTextFile reads a plain-text file and scans it line by line. Files
// over the size cap or containing NUL bytes are rejected rather than
// half-scanned.
func (s *Scanner) scanTextFile(path string) ([]Finding, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > s.opts.MaxFileBytes {
		return nil, fmt.Errorf("file exceeds %d byte scan limit", s.opts.MaxFileBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return nil, fmt.Errorf("binary content in text file")
	}
	return scanText(path, string(data)), nil
}

// scanText runs the leak patterns over extracted text. Line numbers are
// 1-based; every match is masked before it enters a finding.
func scanText(file, text string) []Finding {
	var findings []Finding
	for i, line := range strings.Split(text, "\n") {
		lineNo := i + 1

		for _, m := range pii.EmailPattern.FindAllString(line, -1) {
			findings = append(findings,
				newFinding(file, lineNo, KindEmail, "email address", m, 95))
		}
		for _, m := range pii.AnonIDPattern.FindAllString(line, -1) {
			findings = append(findings,
				newFinding(file, lineNo, KindAnonID, "anonymous ID token", m, 70))
		}
		if nameLabelRe.MatchString(line) {
			// Search with the label removed so "Student Name:" itself
			// does not register as a name.
			stripped := nameLabelRe.ReplaceAllString(line, "")
			for _, m := range personNameRe.FindAllString(stripped, -1) {
				findings = append(findings,
					newFinding(file, lineNo, KindName, "personal name next to identifying label", m, 75))
			}
		}
		if idLabelRe.MatchString(line) {
			for _, m := range numericIDRe.FindAllString(line, -1) {
				findings = append(findings,
					newFinding(file, lineNo, KindSuspicious, "numeric ID next to identifying label", m, 65))
			}
		}
	}
	return findings
}
