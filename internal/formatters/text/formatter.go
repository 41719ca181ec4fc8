// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package text

import (
	"fmt"
	"sort"
	"strings"

	"studio-analytics/internal/formatters"
	"studio-analytics/internal/formatters/shared"

	"github.com/fatih/color"
)

// Formatter implements text-based output formatting
type Formatter struct {
	colors map[string]*color.Color
}

// NewFormatter creates a new text formatter
func NewFormatter() *Formatter {
	return &Formatter{
		colors: map[string]*color.Color{
			"green":   color.New(color.FgGreen),
			"yellow":  color.New(color.FgYellow),
			"red":     color.New(color.FgRed),
			"cyan":    color.New(color.FgCyan),
			"magenta": color.New(color.FgMagenta),
			"blue":    color.New(color.FgBlue),
			"white":   color.New(color.FgWhite, color.Bold),
		},
	}
}

func (f *Formatter) Name() string {
	return "text"
}

func (f *Formatter) Description() string {
	return "Human-readable text output with colors and tables"
}

func (f *Formatter) FileExtension() string {
	return ".txt"
}

func (f *Formatter) Format(report *formatters.Report, options formatters.Options) (string, error) {
	// Disable colors if requested
	if options.NoColor {
		color.NoColor = true
	}

	filtered := shared.ApplyFilter(report, options)

	var builder strings.Builder
	f.appendTitle(&builder, report, options)

	if len(filtered.Findings) == 0 {
		builder.WriteString("No findings.\n")
	} else {
		findings := f.sortFindings(filtered.Findings)
		if options.Verbose {
			for _, finding := range findings {
				f.appendDetailedFinding(&builder, finding, options)
			}
		} else {
			f.appendHeaders(&builder, findings, options)
			for _, finding := range findings {
				f.appendSummaryLine(&builder, finding, findings, options)
			}
		}
	}

	f.appendRunSummary(&builder, report, options)
	return builder.String(), nil
}

// appendTitle names the run the report describes
func (f *Formatter) appendTitle(builder *strings.Builder, report *formatters.Report, options formatters.Options) {
	var title string
	switch report.Kind {
	case formatters.KindAnonymization:
		title = fmt.Sprintf("Anonymization summary for %s", report.Source)
	default:
		title = fmt.Sprintf("Leak scan of %s", report.Source)
	}
	if !options.NoColor {
		title = f.colors["white"].Sprint(title)
	}
	builder.WriteString(title)
	builder.WriteString("\n\n")
}

// appendHeaders adds column headers to the string builder
func (f *Formatter) appendHeaders(builder *strings.Builder, findings []formatters.Finding, options formatters.Options) {
	matchWidth := f.calculateMatchColumnWidth(findings)
	headerStr := fmt.Sprintf("%-8s %-20s %-6s %-10s %-*s %s\n",
		"LEVEL", "KIND", "CONF%", "LINE", matchWidth, "MATCH", "FILE")
	if !options.NoColor {
		headerStr = f.colors["white"].Sprintf("%-8s %-20s %-6s %-10s %-*s %s\n",
			"LEVEL", "KIND", "CONF%", "LINE", matchWidth, "MATCH", "FILE")
	}
	builder.WriteString(headerStr)

	totalWidth := 8 + 1 + 20 + 1 + 6 + 1 + 10 + 1 + matchWidth + 1 + 10
	separator := strings.Repeat("-", totalWidth) + "\n"
	if !options.NoColor {
		separator = f.colors["white"].Sprint(strings.Repeat("-", totalWidth) + "\n")
	}
	builder.WriteString(separator)
}

// calculateMatchColumnWidth calculates the optimal width for the match column
func (f *Formatter) calculateMatchColumnWidth(findings []formatters.Finding) int {
	maxWidth := 10
	for _, finding := range findings {
		runeCount := len([]rune(finding.Match))
		if runeCount > maxWidth {
			maxWidth = runeCount
		}
	}
	// Cap at 30 characters for readability
	if maxWidth > 30 {
		maxWidth = 30
	}
	return maxWidth
}

// appendSummaryLine adds a single line summary to the string builder
func (f *Formatter) appendSummaryLine(builder *strings.Builder, finding formatters.Finding, allFindings []formatters.Finding, options formatters.Options) {
	band := formatters.Band(finding.Confidence)
	levelColor := f.bandColor(band)

	levelStr := fmt.Sprintf("[%-6s]", band)
	if !options.NoColor {
		levelStr = levelColor.Sprintf("[%-6s]", band)
	}

	kindDisplay := finding.Kind
	if len(kindDisplay) > 20 {
		kindDisplay = kindDisplay[:17] + "..."
	}
	kindStr := fmt.Sprintf("%-20s", kindDisplay)
	if !options.NoColor {
		kindStr = f.colors["cyan"].Sprintf("%-20s", kindDisplay)
	}

	confidenceStr := fmt.Sprintf("%4d%%", finding.Confidence)
	if !options.NoColor {
		confidenceStr = f.colors["blue"].Sprintf("%4d%%", finding.Confidence)
	}

	lineDisplay := fmt.Sprintf("line %5d", finding.Line)
	if finding.Line == 0 {
		lineDisplay = fmt.Sprintf("%-10s", "-")
	}
	lineStr := lineDisplay
	if !options.NoColor {
		lineStr = f.colors["magenta"].Sprint(lineDisplay)
	}

	// Matches are pre-masked; pad to the shared column width
	matchText := finding.Match
	targetWidth := f.calculateMatchColumnWidth(allFindings)
	runes := []rune(matchText)
	if len(runes) > targetWidth {
		matchText = string(runes[:targetWidth-3]) + "..."
	}
	if padding := targetWidth - len([]rune(matchText)); padding > 0 {
		matchText += strings.Repeat(" ", padding)
	}

	filename := f.getSmartFilename(finding.File, allFindings)
	filenameStr := filename
	if !options.NoColor {
		filenameStr = f.colors["white"].Sprint(filename)
	}

	fmt.Fprintf(builder, "%s %s %s  %s %s %s\n",
		levelStr,
		kindStr,
		confidenceStr,
		lineStr,
		matchText,
		filenameStr)
}

// appendDetailedFinding adds detailed finding information to the string builder
func (f *Formatter) appendDetailedFinding(builder *strings.Builder, finding formatters.Finding, options formatters.Options) {
	if !options.NoColor {
		f.colors["white"].Fprintf(builder, "=== Finding Details ===\n")
	} else {
		fmt.Fprintf(builder, "=== Finding Details ===\n")
	}

	location := finding.File
	if finding.Line > 0 {
		location = fmt.Sprintf("%s on line %d", finding.File, finding.Line)
	}
	if !options.NoColor {
		f.colors["cyan"].Fprintf(builder, "%s found in ", finding.Detail)
		f.colors["white"].Fprintf(builder, "%s\n", location)
	} else {
		fmt.Fprintf(builder, "%s found in %s\n", finding.Detail, location)
	}

	if !options.NoColor {
		f.colors["cyan"].Fprintf(builder, "Kind: ")
		f.colors["white"].Fprintf(builder, "%s\n", finding.Kind)
	} else {
		fmt.Fprintf(builder, "Kind: %s\n", finding.Kind)
	}

	if finding.Match != "" {
		if !options.NoColor {
			f.colors["cyan"].Fprintf(builder, "Match: ")
			f.colors["white"].Fprintf(builder, "%s\n", finding.Match)
		} else {
			fmt.Fprintf(builder, "Match: %s\n", finding.Match)
		}
	}

	band := formatters.Band(finding.Confidence)
	if !options.NoColor {
		f.colors["cyan"].Fprintf(builder, "Confidence level: ")
		f.colors["white"].Fprintf(builder, "%d%% ", finding.Confidence)
		f.bandColor(band).Fprintf(builder, "(%s)\n", band)
	} else {
		fmt.Fprintf(builder, "Confidence level: %d%% (%s)\n", finding.Confidence, band)
	}

	if finding.Hash != "" {
		if !options.NoColor {
			f.colors["cyan"].Fprintf(builder, "Suppression hash: ")
			f.colors["white"].Fprintf(builder, "%s\n", finding.Hash)
		} else {
			fmt.Fprintf(builder, "Suppression hash: %s\n", finding.Hash)
		}
	}

	fmt.Fprintln(builder)
}

// appendRunSummary adds the run counters below the findings listing
func (f *Formatter) appendRunSummary(builder *strings.Builder, report *formatters.Report, options formatters.Options) {
	s := report.Summary
	builder.WriteString("\n")

	write := func(label, value string) {
		if !options.NoColor {
			f.colors["cyan"].Fprintf(builder, "%s: ", label)
			f.colors["white"].Fprintf(builder, "%s\n", value)
		} else {
			fmt.Fprintf(builder, "%s: %s\n", label, value)
		}
	}

	switch report.Kind {
	case formatters.KindAnonymization:
		write("Rows", fmt.Sprintf("%d", s.Rows))
		write("Columns", fmt.Sprintf("%d -> %d", s.ColumnsBefore, s.ColumnsAfter))
		write("Students anonymized", fmt.Sprintf("%d", s.StudentsAnonymized))
		write("Tutors anonymized", fmt.Sprintf("%d", s.TutorsAnonymized))
		if s.DateRange != "" {
			write("Date range", s.DateRange)
		}
	default:
		scanned := fmt.Sprintf("%d", s.FilesScanned)
		if s.FilesSkipped > 0 {
			scanned = fmt.Sprintf("%d (%d skipped)", s.FilesScanned, s.FilesSkipped)
		}
		write("Files scanned", scanned)
	}

	counts := fmt.Sprintf("%d (%d high, %d medium, %d low)", s.TotalFindings, s.High, s.Medium, s.Low)
	if s.Suppressed > 0 {
		counts += fmt.Sprintf(", %d suppressed", s.Suppressed)
	}
	write("Findings", counts)

	if len(s.Errors) > 0 {
		if !options.NoColor {
			f.colors["red"].Fprintf(builder, "Scan errors:\n")
		} else {
			fmt.Fprintf(builder, "Scan errors:\n")
		}
		for _, e := range s.Errors {
			fmt.Fprintf(builder, "  - %s\n", e)
		}
	}
}

func (f *Formatter) bandColor(band string) *color.Color {
	switch band {
	case "HIGH":
		return f.colors["red"]
	case "MEDIUM":
		return f.colors["yellow"]
	default:
		return f.colors["green"]
	}
}

// sortFindings orders findings by band (HIGH, MEDIUM, LOW), then by
// confidence score, then by file and line for stable output
func (f *Formatter) sortFindings(findings []formatters.Finding) []formatters.Finding {
	sorted := make([]formatters.Finding, len(findings))
	copy(sorted, findings)

	levelPriority := map[string]int{"HIGH": 0, "MEDIUM": 1, "LOW": 2}
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, pj := levelPriority[formatters.Band(sorted[i].Confidence)], levelPriority[formatters.Band(sorted[j].Confidence)]
		if pi != pj {
			return pi < pj
		}
		if sorted[i].Confidence != sorted[j].Confidence {
			return sorted[i].Confidence > sorted[j].Confidence
		}
		if sorted[i].File != sorted[j].File {
			return sorted[i].File < sorted[j].File
		}
		return sorted[i].Line < sorted[j].Line
	})
	return sorted
}

// getSmartFilename returns a smart filename that avoids conflicts
func (f *Formatter) getSmartFilename(fullPath string, allFindings []formatters.Finding) string {
	if !strings.Contains(fullPath, "/") {
		return fullPath
	}

	parts := strings.Split(fullPath, "/")
	basename := parts[len(parts)-1]

	// Check if any other files have the same basename
	conflicts := false
	for _, finding := range allFindings {
		if finding.File != fullPath && strings.Contains(finding.File, "/") {
			otherParts := strings.Split(finding.File, "/")
			if basename == otherParts[len(otherParts)-1] {
				conflicts = true
				break
			}
		}
	}

	if !conflicts {
		return basename
	}

	if len(parts) >= 2 {
		return parts[len(parts)-2] + "/" + basename
	}
	return basename
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
