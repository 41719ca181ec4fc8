// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package shared

import (
	"strings"

	"studio-analytics/internal/formatters"
)

// FilterFindings drops findings outside the selected confidence bands.
// An empty band selection keeps everything.
func FilterFindings(findings []formatters.Finding, options formatters.Options) []formatters.Finding {
	if len(options.ConfidenceLevel) == 0 {
		return findings
	}
	var filtered []formatters.Finding
	for _, f := range findings {
		if options.ConfidenceLevel[strings.ToLower(formatters.Band(f.Confidence))] {
			filtered = append(filtered, f)
		}
	}
	return filtered
}

// ApplyFilter returns a shallow copy of the report with the findings list
// filtered by confidence band. Summary counters still describe the full
// run; only the listing shrinks.
func ApplyFilter(report *formatters.Report, options formatters.Options) *formatters.Report {
	filtered := *report
	filtered.Findings = FilterFindings(report.Findings, options)
	return &filtered
}
