// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package formatters

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"studio-analytics/internal/anonymizer"
	"studio-analytics/internal/leakscan"
)

// Report kinds rendered by the formatters.
const (
	KindAnonymization = "anonymization"
	KindLeakScan      = "leak-scan"
)

// Report is the neutral output model every formatter renders. One run of
// the anonymizer or the leak scanner produces exactly one Report.
type Report struct {
	Tool      string    `json:"tool" yaml:"tool"`
	Version   string    `json:"version" yaml:"version"`
	Kind      string    `json:"kind" yaml:"kind"`
	Source    string    `json:"source" yaml:"source"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Findings  []Finding `json:"findings" yaml:"findings"`
	Summary   Summary   `json:"summary" yaml:"summary"`
}

// Finding is one row of a report. For leak scans Match is the masked
// matched value and Hash identifies the finding for suppression rules;
// for anonymization runs Match names the affected column.
type Finding struct {
	File       string `json:"file" yaml:"file"`
	Line       int    `json:"line,omitempty" yaml:"line,omitempty"`
	Kind       string `json:"kind" yaml:"kind"`
	Detail     string `json:"detail" yaml:"detail"`
	Match      string `json:"match,omitempty" yaml:"match,omitempty"`
	Confidence int    `json:"confidence" yaml:"confidence"`
	Hash       string `json:"hash,omitempty" yaml:"hash,omitempty"`
}

// Summary carries the run counters. Leak-scan and anonymization runs
// populate different subsets; empty fields are omitted from structured
// output.
type Summary struct {
	TotalFindings int      `json:"total_findings" yaml:"total_findings"`
	High          int      `json:"high" yaml:"high"`
	Medium        int      `json:"medium" yaml:"medium"`
	Low           int      `json:"low" yaml:"low"`
	Suppressed    int      `json:"suppressed,omitempty" yaml:"suppressed,omitempty"`
	FilesScanned  int      `json:"files_scanned,omitempty" yaml:"files_scanned,omitempty"`
	FilesSkipped  int      `json:"files_skipped,omitempty" yaml:"files_skipped,omitempty"`
	Errors        []string `json:"errors,omitempty" yaml:"errors,omitempty"`

	Rows               int    `json:"rows,omitempty" yaml:"rows,omitempty"`
	ColumnsBefore      int    `json:"columns_before,omitempty" yaml:"columns_before,omitempty"`
	ColumnsAfter       int    `json:"columns_after,omitempty" yaml:"columns_after,omitempty"`
	StudentsAnonymized int    `json:"students_anonymized,omitempty" yaml:"students_anonymized,omitempty"`
	TutorsAnonymized   int    `json:"tutors_anonymized,omitempty" yaml:"tutors_anonymized,omitempty"`
	DateRange          string `json:"date_range,omitempty" yaml:"date_range,omitempty"`
}

// Options defines configuration options for formatters
type Options struct {
	ConfidenceLevel map[string]bool // Which confidence bands to display; empty means all
	Verbose         bool            // Whether to display detailed information
	NoColor         bool            // Whether to disable colored output
}

// DefaultOptions shows every confidence band.
func DefaultOptions() Options {
	return Options{ConfidenceLevel: map[string]bool{"high": true, "medium": true, "low": true}}
}

// Band returns the confidence band for a score: HIGH at 90 and above,
// MEDIUM at 60, LOW below that.
func Band(confidence int) string {
	switch {
	case confidence >= 90:
		return "HIGH"
	case confidence >= 60:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// Formatter interface defines methods that all output formatters must implement
type Formatter interface {
	// Format renders the report according to the formatter's specific output format
	Format(report *Report, options Options) (string, error)

	// Name returns the name of the formatter (e.g., "json", "text", "csv")
	Name() string

	// Description returns a brief description of what this formatter outputs
	Description() string

	// FileExtension returns the recommended file extension for this format (e.g., ".json", ".txt", ".csv")
	FileExtension() string
}

// Registry holds all registered formatters
type Registry struct {
	formatters map[string]Formatter
}

// NewRegistry creates a new formatter registry
func NewRegistry() *Registry {
	return &Registry{
		formatters: make(map[string]Formatter),
	}
}

// Register adds a formatter to the registry
func (r *Registry) Register(formatter Formatter) {
	r.formatters[formatter.Name()] = formatter
}

// Get retrieves a formatter by name
func (r *Registry) Get(name string) (Formatter, bool) {
	formatter, exists := r.formatters[name]
	return formatter, exists
}

// List returns all registered formatter names, sorted
func (r *Registry) List() []string {
	var names []string
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry
var DefaultRegistry = NewRegistry()

// Register is a convenience function to register a formatter with the default registry
func Register(formatter Formatter) {
	DefaultRegistry.Register(formatter)
}

// Get is a convenience function to get a formatter from the default registry
func Get(name string) (Formatter, bool) {
	return DefaultRegistry.Get(name)
}

// List is a convenience function to list all formatters in the default registry
func List() []string {
	return DefaultRegistry.List()
}

// Export renders a report in the named format using the default registry
func Export(format string, report *Report, options Options) (string, error) {
	formatter, exists := Get(format)
	if !exists {
		availableFormats := List()
		return "", fmt.Errorf("unsupported format '%s'. Available formats: %s", format, strings.Join(availableFormats, ", "))
	}
	return formatter.Format(report, options)
}

// FromLeakScan converts a scanner report into the shared report model.
func FromLeakScan(scan *leakscan.Report, version string) *Report {
	report := &Report{
		Tool:      "studio-analytics",
		Version:   version,
		Kind:      KindLeakScan,
		Source:    scan.Root,
		Timestamp: time.Now(),
		Summary: Summary{
			TotalFindings: len(scan.Findings),
			Suppressed:    scan.Suppressed,
			FilesScanned:  scan.FilesScanned,
			FilesSkipped:  scan.FilesSkipped,
			Errors:        scan.Errors,
		},
	}
	for _, f := range scan.Findings {
		report.Findings = append(report.Findings, Finding{
			File:       f.File,
			Line:       f.Line,
			Kind:       f.Kind,
			Detail:     f.Detail,
			Match:      f.Match,
			Confidence: f.Confidence,
			Hash:       f.Hash,
		})
	}
	countBands(report)
	return report
}

// Anonymization finding kinds.
const (
	findingPIIColumn  = "pii_column"
	findingDroppedCol = "dropped_column"
	findingValidation = "validation_warning"
)

// FromAnonymization converts an anonymization run log into the shared
// report model. Removed columns and surviving-pattern warnings become
// findings; the run counters land in the summary.
func FromAnonymization(log anonymizer.Log, source, version string) *Report {
	report := &Report{
		Tool:      "studio-analytics",
		Version:   version,
		Kind:      KindAnonymization,
		Source:    source,
		Timestamp: time.Now(),
		Summary: Summary{
			Rows:               log.Rows,
			ColumnsBefore:      log.ColumnsBefore,
			ColumnsAfter:       log.ColumnsAfter,
			StudentsAnonymized: log.StudentsAnonymized,
			TutorsAnonymized:   log.TutorsAnonymized,
			DateRange:          log.DateRange,
		},
	}
	for _, col := range log.PIIColumnsRemoved {
		report.Findings = append(report.Findings, Finding{
			File:       source,
			Kind:       findingPIIColumn,
			Detail:     "column removed before export",
			Match:      col,
			Confidence: 100,
		})
	}
	for _, col := range log.NonEssentialRemoved {
		report.Findings = append(report.Findings, Finding{
			File:       source,
			Kind:       findingDroppedCol,
			Detail:     "column not on the keep list",
			Match:      col,
			Confidence: 100,
		})
	}
	for _, warning := range log.ValidationWarnings {
		report.Findings = append(report.Findings, Finding{
			File:       source,
			Kind:       findingValidation,
			Detail:     warning,
			Confidence: 50,
		})
	}
	report.Summary.TotalFindings = len(report.Findings)
	countBands(report)
	return report
}

func countBands(report *Report) {
	report.Summary.High, report.Summary.Medium, report.Summary.Low = 0, 0, 0
	for _, f := range report.Findings {
		switch Band(f.Confidence) {
		case "HIGH":
			report.Summary.High++
		case "MEDIUM":
			report.Summary.Medium++
		default:
			report.Summary.Low++
		}
	}
}
