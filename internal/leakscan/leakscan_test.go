// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package leakscan

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"studio-analytics/internal/suppressions"
)

const reportText = `Session report for the writing center
Contact: jdoe@university.edu for questions
Top visitor STU_00001 attended nine times
Student Name: Jane Doe
Student ID: 12345678
Nothing sensitive on this line
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestScanText_Findings(t *testing.T) {
	findings := scanText("report.txt", reportText)
	if len(findings) != 4 {
		t.Fatalf("expected 4 findings, got %d: %+v", len(findings), findings)
	}

	want := []struct {
		line       int
		kind       string
		match      string
		confidence int
	}{
		{2, KindEmail, "jd****du", 95},
		{3, KindAnonID, "ST****01", 70},
		{4, KindName, "Ja****oe", 75},
		{5, KindSuspicious, "12****78", 65},
	}
	for i, w := range want {
		f := findings[i]
		if f.Line != w.line || f.Kind != w.kind || f.Match != w.match || f.Confidence != w.confidence {
			t.Errorf("finding %d = line %d kind %q match %q conf %d, want line %d kind %q match %q conf %d",
				i, f.Line, f.Kind, f.Match, f.Confidence, w.line, w.kind, w.match, w.confidence)
		}
		if f.Hash == "" {
			t.Errorf("finding %d missing hash", i)
		}
	}
}

func TestScanText_NeverExposesRawValues(t *testing.T) {
	raw := []string{"jdoe@university.edu", "STU_00001", "Jane Doe", "12345678"}
	for _, f := range scanText("report.txt", reportText) {
		for _, v := range raw {
			if strings.Contains(f.Match, v) || strings.Contains(f.Detail, v) {
				t.Errorf("raw value %q leaked into finding %+v", v, f)
			}
		}
	}
}

func TestScanText_UnlabeledNamesIgnored(t *testing.T) {
	// Capitalized pairs in ordinary prose must not turn into findings.
	findings := scanText("notes.txt", "The Writing Center saw steady growth this Fall Semester.\n")
	if len(findings) != 0 {
		t.Fatalf("expected no findings, got %+v", findings)
	}
}

func TestScanPath_SingleFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "report.txt", reportText)

	report, err := NewScanner(Options{}).ScanPath(context.Background(), path)
	if err != nil {
		t.Fatalf("ScanPath: %v", err)
	}
	if report.FilesScanned != 1 || report.FilesSkipped != 0 {
		t.Errorf("scanned %d skipped %d, want 1 and 0", report.FilesScanned, report.FilesSkipped)
	}
	if len(report.Findings) != 4 {
		t.Fatalf("expected 4 findings, got %d", len(report.Findings))
	}
	for _, f := range report.Findings {
		if f.File != path {
			t.Errorf("finding file = %q, want %q", f.File, path)
		}
	}
}

func TestScanPath_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "Reach out to jdoe@university.edu\n")
	writeFile(t, dir, "b.csv", "STU_00042,logged\n")
	writeFile(t, dir, "notes.bin", "not scannable")

	hidden := filepath.Join(dir, ".cache")
	if err := os.Mkdir(hidden, 0o700); err != nil {
		t.Fatal(err)
	}
	writeFile(t, hidden, "secret.txt", "hidden@university.edu\n")

	report, err := NewScanner(Options{}).ScanPath(context.Background(), dir)
	if err != nil {
		t.Fatalf("ScanPath: %v", err)
	}
	if report.FilesScanned != 2 {
		t.Errorf("FilesScanned = %d, want 2", report.FilesScanned)
	}
	if report.FilesSkipped != 1 {
		t.Errorf("FilesSkipped = %d, want 1", report.FilesSkipped)
	}
	if len(report.Errors) != 0 {
		t.Errorf("unexpected errors: %v", report.Errors)
	}
	if len(report.Findings) != 2 {
		t.Fatalf("expected 2 findings, got %d: %+v", len(report.Findings), report.Findings)
	}
	// Sorted by file: a.txt before b.csv, hidden directory untouched.
	if !strings.HasSuffix(report.Findings[0].File, "a.txt") || report.Findings[0].Kind != KindEmail {
		t.Errorf("first finding = %+v", report.Findings[0])
	}
	if !strings.HasSuffix(report.Findings[1].File, "b.csv") || report.Findings[1].Kind != KindAnonID {
		t.Errorf("second finding = %+v", report.Findings[1])
	}
}

func TestScanPath_BinaryTextFileRecordsError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.txt", "prefix\x00suffix")
	writeFile(t, dir, "good.txt", "ask jdoe@university.edu\n")

	report, err := NewScanner(Options{}).ScanPath(context.Background(), dir)
	if err != nil {
		t.Fatalf("ScanPath: %v", err)
	}
	if report.FilesScanned != 2 {
		t.Errorf("FilesScanned = %d, want 2", report.FilesScanned)
	}
	if len(report.Errors) != 1 || !strings.Contains(report.Errors[0], "binary content") {
		t.Errorf("Errors = %v, want one binary-content entry", report.Errors)
	}
	if len(report.Findings) != 1 || !strings.HasSuffix(report.Findings[0].File, "good.txt") {
		t.Errorf("Findings = %+v, want the good.txt email only", report.Findings)
	}
}

func TestScanPath_CorruptPDFRecordsError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "report.pdf", "this is not a pdf")
	writeFile(t, dir, "ok.txt", "no identifiers here\n")

	report, err := NewScanner(Options{}).ScanPath(context.Background(), dir)
	if err != nil {
		t.Fatalf("ScanPath: %v", err)
	}
	if len(report.Errors) != 1 || !strings.Contains(report.Errors[0], "report.pdf") {
		t.Errorf("Errors = %v, want one report.pdf entry", report.Errors)
	}
	if len(report.Findings) != 0 {
		t.Errorf("unexpected findings: %+v", report.Findings)
	}
}

func TestScanPath_MinConfidence(t *testing.T) {
	path := writeFile(t, t.TempDir(), "report.txt", reportText)

	report, err := NewScanner(Options{MinConfidence: 90}).ScanPath(context.Background(), path)
	if err != nil {
		t.Fatalf("ScanPath: %v", err)
	}
	if len(report.Findings) != 1 || report.Findings[0].Kind != KindEmail {
		t.Errorf("Findings = %+v, want only the email finding", report.Findings)
	}
}

func TestScanPath_SuppressedFinding(t *testing.T) {
	tmp := t.TempDir()
	path := writeFile(t, tmp, "report.txt", reportText)

	mgr := suppressions.NewManager(filepath.Join(tmp, "suppressions.yaml"))
	hash := suppressions.FindingHash(path, KindEmail, 2, "jdoe@university.edu")
	if err := mgr.Add(hash, "known shared mailbox", "tester", nil); err != nil {
		t.Fatalf("Add: %v", err)
	}

	report, err := NewScanner(Options{Suppressions: mgr}).ScanPath(context.Background(), path)
	if err != nil {
		t.Fatalf("ScanPath: %v", err)
	}
	if report.Suppressed != 1 {
		t.Errorf("Suppressed = %d, want 1", report.Suppressed)
	}
	if len(report.Findings) != 3 {
		t.Fatalf("expected 3 findings after suppression, got %d", len(report.Findings))
	}
	for _, f := range report.Findings {
		if f.Kind == KindEmail {
			t.Errorf("suppressed email finding still present: %+v", f)
		}
	}
}

func TestScanPath_MissingPath(t *testing.T) {
	_, err := NewScanner(Options{}).ScanPath(context.Background(), filepath.Join(t.TempDir(), "absent"))
	if err == nil || !strings.Contains(err.Error(), "cannot scan") {
		t.Errorf("expected cannot-scan error, got %v", err)
	}
}

func TestScanPath_UnsupportedSingleFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "archive.zip", "zip bytes")

	_, err := NewScanner(Options{}).ScanPath(context.Background(), path)
	if err == nil || !strings.Contains(err.Error(), "unsupported file type") {
		t.Errorf("expected unsupported-file error, got %v", err)
	}
}

func TestScanPath_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "ask jdoe@university.edu\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewScanner(Options{}).ScanPath(ctx, dir); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestScanTextFile_SizeLimit(t *testing.T) {
	path := writeFile(t, t.TempDir(), "big.txt", strings.Repeat("x", 64))

	s := NewScanner(Options{MaxFileBytes: 32})
	if _, err := s.scanTextFile(path); err == nil || !strings.Contains(err.Error(), "scan limit") {
		t.Errorf("expected size-limit error, got %v", err)
	}
}

func TestScanImage_NoEXIFIsClean(t *testing.T) {
	// A file with no decodable EXIF block is clean, not an error.
	path := writeFile(t, t.TempDir(), "chart.png", "\x89PNG\r\n\x1a\nnot really")

	findings, err := scanImage(path)
	if err != nil {
		t.Fatalf("scanImage: %v", err)
	}
	if len(findings) != 0 {
		t.Errorf("unexpected findings: %+v", findings)
	}
}

func TestMask(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", "****"},
		{"ab", "****"},
		{"abcd", "****"},
		{"abcde", "ab****de"},
		{"jdoe@university.edu", "jd****du"},
		{"  spaced out  ", "sp****ut"},
	}
	for _, c := range cases {
		if got := mask(c.in); got != c.want {
			t.Errorf("mask(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestPDFInfoFindings(t *testing.T) {
	info := map[string]string{
		"Title":    "Prepared by Jane Doe",
		"Author":   "Jane Doe",
		"Creator":  "Microsoft® Word 2016",
		"Producer": "Acrobat Distiller 11.0",
	}
	findings := pdfInfoFindings("report.pdf", info)
	if len(findings) != 2 {
		t.Fatalf("expected 2 findings, got %d: %+v", len(findings), findings)
	}
	if findings[0].Detail != "PDF Author metadata" || findings[0].Confidence != 75 {
		t.Errorf("author finding = %+v", findings[0])
	}
	if findings[1].Detail != "possible personal name in PDF Title metadata" || findings[1].Confidence != 55 {
		t.Errorf("title finding = %+v", findings[1])
	}
	for _, f := range findings {
		if strings.Contains(f.Match, "Jane Doe") {
			t.Errorf("unmasked name in finding %+v", f)
		}
		if f.Line != 0 {
			t.Errorf("metadata finding carries line %d", f.Line)
		}
	}
}

func TestPDFInfoFindings_EmailInCreator(t *testing.T) {
	findings := pdfInfoFindings("report.pdf", map[string]string{
		"Creator": "exported by jdoe@university.edu",
	})
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d: %+v", len(findings), findings)
	}
	f := findings[0]
	if f.Detail != "email address in PDF Creator metadata" || f.Confidence != 85 || f.Match != "jd****du" {
		t.Errorf("creator finding = %+v", f)
	}
}

func TestPDFInfoFindings_EmptyInfo(t *testing.T) {
	if findings := pdfInfoFindings("report.pdf", map[string]string{}); len(findings) != 0 {
		t.Errorf("unexpected findings: %+v", findings)
	}
}

func TestLooksLikeSoftware(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"Microsoft® Word for Microsoft 365", true},
		{"Acrobat Distiller 11.0", true},
		{"pdfTeX-1.40.21", true},
		{"Jane Doe", false},
		{"", false},
	}
	for _, c := range cases {
		if got := looksLikeSoftware(c.in); got != c.want {
			t.Errorf("looksLikeSoftware(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestExifTagFindings(t *testing.T) {
	tags := map[string]string{
		"Artist":    "Jane Doe",
		"Copyright": "Jane Doe 2025",
		"Software":  "Photos 7.0",
	}
	findings := exifTagFindings("photo.jpg", tags, true)
	if len(findings) != 3 {
		t.Fatalf("expected 3 findings, got %d: %+v", len(findings), findings)
	}
	if findings[0].Detail != "EXIF Artist tag" || findings[0].Confidence != 80 {
		t.Errorf("artist finding = %+v", findings[0])
	}
	if findings[1].Detail != "EXIF Copyright tag" || findings[1].Confidence != 60 {
		t.Errorf("copyright finding = %+v", findings[1])
	}
	gps := findings[2]
	if gps.Detail != "GPS coordinates present" || gps.Confidence != 85 {
		t.Errorf("gps finding = %+v", gps)
	}
	if gps.Match != "****" {
		t.Errorf("gps match = %q, coordinates must never appear", gps.Match)
	}
}

func TestExifTagFindings_CleanImage(t *testing.T) {
	if findings := exifTagFindings("photo.jpg", map[string]string{"Software": "Photos"}, false); len(findings) != 0 {
		t.Errorf("unexpected findings: %+v", findings)
	}
}
