// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package formatters

import (
	"strings"
	"testing"

	"studio-analytics/internal/anonymizer"
	"studio-analytics/internal/leakscan"
)

type stubFormatter struct {
	name string
}

func (s *stubFormatter) Format(report *Report, options Options) (string, error) {
	return "formatted:" + report.Kind, nil
}
func (s *stubFormatter) Name() string          { return s.name }
func (s *stubFormatter) Description() string   { return "stub" }
func (s *stubFormatter) FileExtension() string { return ".stub" }

func TestBand(t *testing.T) {
	cases := []struct {
		confidence int
		want       string
	}{
		{95, "HIGH"},
		{90, "HIGH"},
		{89, "MEDIUM"},
		{60, "MEDIUM"},
		{59, "LOW"},
		{0, "LOW"},
	}
	for _, c := range cases {
		if got := Band(c.confidence); got != c.want {
			t.Errorf("Band(%d) = %q, want %q", c.confidence, got, c.want)
		}
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubFormatter{name: "beta"})
	r.Register(&stubFormatter{name: "alpha"})

	if _, ok := r.Get("beta"); !ok {
		t.Error("registered formatter not found")
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("unregistered formatter found")
	}
	names := r.List()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("List() = %v, want sorted [alpha beta]", names)
	}
}

func TestExport_UnknownFormat(t *testing.T) {
	_, err := Export("bogus", &Report{}, DefaultOptions())
	if err == nil || !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("expected unsupported-format error, got %v", err)
	}
}

func TestFromLeakScan(t *testing.T) {
	scan := &leakscan.Report{
		Root:         "out",
		FilesScanned: 3,
		FilesSkipped: 1,
		Suppressed:   2,
		Errors:       []string{"out/bad.txt: binary content"},
		Findings: []leakscan.Finding{
			{File: "out/a.txt", Line: 2, Kind: leakscan.KindEmail, Detail: "email address", Match: "jd****du", Confidence: 95, Hash: "abc"},
			{File: "out/a.txt", Line: 5, Kind: leakscan.KindAnonID, Detail: "anonymous ID token", Match: "ST****01", Confidence: 70, Hash: "def"},
			{File: "out/b.pdf", Kind: leakscan.KindMetadata, Detail: "PDF Author metadata", Match: "Ja****oe", Confidence: 55, Hash: "ghi"},
		},
	}

	report := FromLeakScan(scan, "1.2.3")
	if report.Kind != KindLeakScan || report.Source != "out" || report.Version != "1.2.3" {
		t.Errorf("header = %q %q %q", report.Kind, report.Source, report.Version)
	}
	if report.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
	s := report.Summary
	if s.TotalFindings != 3 || s.High != 1 || s.Medium != 1 || s.Low != 1 {
		t.Errorf("band counts = %+v", s)
	}
	if s.FilesScanned != 3 || s.FilesSkipped != 1 || s.Suppressed != 2 || len(s.Errors) != 1 {
		t.Errorf("counters = %+v", s)
	}
	if report.Findings[0].Hash != "abc" || report.Findings[0].Match != "jd****du" {
		t.Errorf("first finding = %+v", report.Findings[0])
	}
}

func TestFromAnonymization(t *testing.T) {
	log := anonymizer.Log{
		Rows:                120,
		ColumnsBefore:       14,
		ColumnsAfter:        9,
		PIIColumnsRemoved:   []string{"Student Name", "Student Email"},
		NonEssentialRemoved: []string{"Notes"},
		StudentsAnonymized:  37,
		TutorsAnonymized:    5,
		DateRange:           "2025-01-06 to 2025-05-09",
		ValidationWarnings:  []string{"column Feedback still contains @ characters"},
	}

	report := FromAnonymization(log, "sessions.csv", "1.2.3")
	if report.Kind != KindAnonymization || report.Source != "sessions.csv" {
		t.Errorf("header = %q %q", report.Kind, report.Source)
	}
	if len(report.Findings) != 4 {
		t.Fatalf("expected 4 findings, got %d: %+v", len(report.Findings), report.Findings)
	}
	if report.Findings[0].Kind != "pii_column" || report.Findings[0].Match != "Student Name" || report.Findings[0].Confidence != 100 {
		t.Errorf("pii finding = %+v", report.Findings[0])
	}
	if report.Findings[2].Kind != "dropped_column" || report.Findings[2].Match != "Notes" {
		t.Errorf("dropped-column finding = %+v", report.Findings[2])
	}
	warning := report.Findings[3]
	if warning.Kind != "validation_warning" || warning.Confidence != 50 || !strings.Contains(warning.Detail, "Feedback") {
		t.Errorf("warning finding = %+v", warning)
	}

	s := report.Summary
	if s.TotalFindings != 4 || s.High != 3 || s.Low != 1 {
		t.Errorf("summary = %+v", s)
	}
	if s.Rows != 120 || s.ColumnsBefore != 14 || s.ColumnsAfter != 9 || s.StudentsAnonymized != 37 {
		t.Errorf("counters = %+v", s)
	}
}
