// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package leakscan checks report bundles for residual personal data
// before a supervisor shares them. It is the safety net behind the
// anonymizer: plain-text files are scanned line by line, PDFs are
// scanned as extracted text plus document-info metadata, and images are
// checked for identifying EXIF tags.
package leakscan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"studio-analytics/internal/suppressions"
)

// Finding kinds.
const (
	KindEmail      = "email"
	KindAnonID     = "anon_id"
	KindName       = "name"
	KindMetadata   = "metadata"
	KindSuspicious = "suspicious"
)

const (
	defaultWorkers      = 4
	defaultMaxFileBytes = 10 << 20
)

// Finding is one potential leak. Match is always masked; the raw value
// contributes only to Hash, which identifies the finding for
// suppression rules.
type Finding struct {
	File       string `json:"file"`
	Line       int    `json:"line,omitempty"`
	Kind       string `json:"kind"`
	Detail     string `json:"detail"`
	Match      string `json:"match"`
	Confidence int    `json:"confidence"`
	Hash       string `json:"hash"`
}

// Report aggregates one scan run.
type Report struct {
	Root         string    `json:"root"`
	FilesScanned int       `json:"files_scanned"`
	FilesSkipped int       `json:"files_skipped"`
	Findings     []Finding `json:"findings"`
	Suppressed   int       `json:"suppressed"`
	Errors       []string  `json:"errors,omitempty"`
}

// Options configures a Scanner. Zero values fall back to the defaults;
// a nil Suppressions manager disables suppression matching.
type Options struct {
	Workers       int
	MinConfidence int
	MaxFileBytes  int64
	Suppressions  *suppressions.Manager
}

// Scanner walks files and directories looking for residual PII.
type Scanner struct {
	opts Options
}

// NewScanner applies defaults and returns a ready scanner.
func NewScanner(opts Options) *Scanner {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.MaxFileBytes <= 0 {
		opts.MaxFileBytes = defaultMaxFileBytes
	}
	return &Scanner{opts: opts}
}

// scannable extensions, routed by type.
var (
	textExts  = map[string]bool{".txt": true, ".md": true, ".csv": true}
	pdfExts   = map[string]bool{".pdf": true}
	imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".tiff": true, ".tif": true}
)

func supportedExt(ext string) bool {
	return textExts[ext] || pdfExts[ext] || imageExts[ext]
}

// ScanPath scans a single file or a directory tree. Directory entries
// run through a bounded worker pool; per-file failures are recorded in
// the report instead of aborting the scan. Suppressed findings are
// counted but not listed, and findings below MinConfidence are dropped.
func (s *Scanner) ScanPath(ctx context.Context, root string) (*Report, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("cannot scan %s: %w", root, err)
	}

	report := &Report{Root: root}

	if !info.IsDir() {
		ext := strings.ToLower(filepath.Ext(root))
		if !supportedExt(ext) {
			return nil, fmt.Errorf("unsupported file type %q", ext)
		}
		findings, err := s.scanFile(ctx, root)
		if err != nil {
			return nil, err
		}
		report.FilesScanned = 1
		s.finish(report, findings)
		return report, nil
	}

	files, skipped, err := collectFiles(root)
	if err != nil {
		return nil, err
	}
	report.FilesSkipped = skipped

	type fileResult struct {
		path     string
		findings []Finding
		err      error
	}

	jobs := make(chan string)
	results := make(chan fileResult)

	var wg sync.WaitGroup
	for i := 0; i < s.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				findings, err := s.scanFile(ctx, path)
				select {
				case results <- fileResult{path: path, findings: findings, err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, path := range files {
			select {
			case jobs <- path:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var all []Finding
	for res := range results {
		report.FilesScanned++
		if res.err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", res.path, res.err))
			continue
		}
		all = append(all, res.findings...)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Strings(report.Errors)
	s.finish(report, all)
	return report, nil
}

// collectFiles gathers scannable files under root, counting everything
// else as skipped. Hidden directories are not descended into.
func collectFiles(root string) (files []string, skipped int, err error) {
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if supportedExt(strings.ToLower(filepath.Ext(path))) {
			files = append(files, path)
		} else {
			skipped++
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Strings(files)
	return files, skipped, nil
}

func (s *Scanner) scanFile(ctx context.Context, path string) ([]Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case textExts[ext]:
		return s.scanTextFile(path)
	case pdfExts[ext]:
		return scanPDF(path)
	case imageExts[ext]:
		return scanImage(path)
	default:
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}
}

// finish applies suppression rules and the confidence floor, then sorts
// findings for deterministic reports.
func (s *Scanner) finish(report *Report, findings []Finding) {
	kept := make([]Finding, 0, len(findings))
	for _, f := range findings {
		if s.opts.Suppressions != nil {
			if suppressed, _ := s.opts.Suppressions.IsSuppressed(f.Hash); suppressed {
				report.Suppressed++
				continue
			}
		}
		if f.Confidence < s.opts.MinConfidence {
			continue
		}
		kept = append(kept, f)
	}
	sort.Slice(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Detail < b.Detail
	})
	report.Findings = kept
}

// mask hides the middle of a matched value: enough to recognize where
// it came from, never enough to re-identify anyone from the report.
func mask(v string) string {
	r := []rune(strings.TrimSpace(v))
	if len(r) <= 4 {
		return "****"
	}
	return string(r[:2]) + "****" + string(r[len(r)-2:])
}

func newFinding(file string, line int, kind, detail, raw string, confidence int) Finding {
	return Finding{
		File:       file,
		Line:       line,
		Kind:       kind,
		Detail:     detail,
		Match:      mask(raw),
		Confidence: confidence,
		Hash:       suppressions.FindingHash(file, kind, line, raw),
	}
}
