// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package csv

import (
	"strings"
	"testing"

	"studio-analytics/internal/formatters"
)

func TestFormat_RowsAndHeader(t *testing.T) {
	report := &formatters.Report{
		Kind: formatters.KindLeakScan,
		Findings: []formatters.Finding{
			{File: "out/a.txt", Line: 2, Kind: "email", Detail: "email address", Match: "jd****du", Confidence: 95, Hash: "abc"},
			{File: "out/b.pdf", Kind: "metadata", Detail: "PDF Author metadata", Match: "Ja****oe", Confidence: 55},
		},
	}

	out, err := NewFormatter().Format(report, formatters.Options{})
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines:\n%s", len(lines), out)
	}
	if lines[0] != "File,Line,Kind,Confidence Level,Confidence %,Detail,Match" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "out/a.txt,2,email,HIGH,95,email address,jd****du" {
		t.Errorf("row 1 = %q", lines[1])
	}
	// Metadata findings have no line number.
	if lines[2] != "out/b.pdf,,metadata,LOW,55,PDF Author metadata,Ja****oe" {
		t.Errorf("row 2 = %q", lines[2])
	}
}

func TestFormat_VerboseAddsHashColumn(t *testing.T) {
	report := &formatters.Report{
		Findings: []formatters.Finding{
			{File: "a.txt", Line: 1, Kind: "email", Detail: "email address", Match: "jd****du", Confidence: 95, Hash: "abc123"},
		},
	}

	out, err := NewFormatter().Format(report, formatters.Options{Verbose: true})
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	lines := strings.Split(out, "\n")
	if !strings.HasSuffix(lines[0], ",Suppression Hash") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], ",abc123") {
		t.Errorf("row = %q", lines[1])
	}
}

func TestEscapeCSVField(t *testing.T) {
	f := NewFormatter()
	cases := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"has,comma", "\"has,comma\""},
		{"has \"quote\"", "\"has \"\"quote\"\"\""},
		{"=SUM(A1)", "'=SUM(A1)"},
		{"+1234", "'+1234"},
		{"@handle", "'@handle"},
		{"-flag", "'-flag"},
	}
	for _, c := range cases {
		if got := f.escapeCSVField(c.in); got != c.want {
			t.Errorf("escapeCSVField(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormat_BandFilter(t *testing.T) {
	report := &formatters.Report{
		Findings: []formatters.Finding{
			{File: "a.txt", Line: 1, Kind: "email", Confidence: 95},
			{File: "a.txt", Line: 2, Kind: "anon_id", Confidence: 70},
		},
	}
	options := formatters.Options{ConfidenceLevel: map[string]bool{"medium": true}}

	out, err := NewFormatter().Format(report, options)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if strings.Contains(out, "email") {
		t.Errorf("high finding not filtered:\n%s", out)
	}
	if !strings.Contains(out, "anon_id") {
		t.Errorf("medium finding missing:\n%s", out)
	}
}
