// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package csv

import (
	"fmt"
	"strings"

	"studio-analytics/internal/formatters"
	"studio-analytics/internal/formatters/shared"
)

// Formatter implements CSV output formatting
type Formatter struct{}

// NewFormatter creates a new CSV formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "csv"
}

func (f *Formatter) Description() string {
	return "Comma-separated values for spreadsheet import"
}

func (f *Formatter) FileExtension() string {
	return ".csv"
}

func (f *Formatter) Format(report *formatters.Report, options formatters.Options) (string, error) {
	filtered := shared.FilterFindings(report.Findings, options)

	headers := []string{"File", "Line", "Kind", "Confidence Level", "Confidence %", "Detail", "Match"}
	if options.Verbose {
		headers = append(headers, "Suppression Hash")
	}

	csvRows := []string{strings.Join(headers, ",")}
	for _, finding := range filtered {
		csvRows = append(csvRows, f.createCSVRow(finding, options))
	}
	return strings.Join(csvRows, "\n"), nil
}

// createCSVRow creates a CSV row for a finding
func (f *Formatter) createCSVRow(finding formatters.Finding, options formatters.Options) string {
	line := ""
	if finding.Line > 0 {
		line = fmt.Sprintf("%d", finding.Line)
	}

	row := []string{
		f.escapeCSVField(finding.File),
		line,
		f.escapeCSVField(finding.Kind),
		f.escapeCSVField(formatters.Band(finding.Confidence)),
		fmt.Sprintf("%d", finding.Confidence),
		f.escapeCSVField(finding.Detail),
		f.escapeCSVField(finding.Match),
	}
	if options.Verbose {
		row = append(row, f.escapeCSVField(finding.Hash))
	}
	return strings.Join(row, ",")
}

// escapeCSVField properly escapes a field for CSV format and prevents CSV injection
func (f *Formatter) escapeCSVField(field string) string {
	// Prevent CSV injection by sanitizing formula characters
	field = f.sanitizeFormulaInjection(field)

	// If field contains comma, quote, or newline, wrap in quotes and escape internal quotes
	if strings.Contains(field, ",") || strings.Contains(field, "\"") || strings.Contains(field, "\n") || strings.Contains(field, "\r") {
		escaped := strings.ReplaceAll(field, "\"", "\"\"")
		return fmt.Sprintf("\"%s\"", escaped)
	}
	return field
}

// sanitizeFormulaInjection prevents CSV injection attacks by sanitizing formula characters
func (f *Formatter) sanitizeFormulaInjection(field string) string {
	if len(field) == 0 {
		return field
	}

	// Fields starting with formula characters are dangerous in spreadsheets
	firstChar := field[0]
	if firstChar == '=' || firstChar == '+' || firstChar == '-' || firstChar == '@' {
		// Prefix with single quote to prevent formula execution
		return "'" + field
	}

	return field
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
