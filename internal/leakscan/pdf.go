// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package leakscan

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"studio-analytics/internal/pii"
)

// maxPDFPages bounds text extraction so one huge appendix cannot stall
// a scan.
const maxPDFPages = 50

// scanPDF scans both the extracted text and the document-info metadata.
// Exported reports are usually generated straight from office tools, and
// those tools stamp the logged-in user into Author without asking.
func scanPDF(path string) ([]Finding, error) {
	text, err := extractPDFText(path)
	if err != nil {
		return nil, err
	}
	findings := scanText(path, text)

	info, err := readPDFInfo(path)
	if err != nil {
		// Text was still scanned; metadata stays unknown.
		return findings, nil
	}
	findings = append(findings, pdfInfoFindings(path, info)...)
	return findings, nil
}

func extractPDFText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("cannot open PDF: %w", err)
	}
	defer f.Close()

	pages := r.NumPage()
	if pages > maxPDFPages {
		pages = maxPDFPages
	}

	var b strings.Builder
	for i := 1; i <= pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// readPDFInfo pulls the document-info fields from the cross-reference
// table.
func readPDFInfo(path string) (map[string]string, error) {
	ctx, err := api.ReadContextFile(path)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"Title":    ctx.Title,
		"Author":   ctx.Author,
		"Creator":  ctx.Creator,
		"Producer": ctx.Producer,
	}, nil
}

// softwareMarkers identify Creator/Producer values that name a tool
// rather than a person.
var softwareMarkers = []string{
	"word", "excel", "powerpoint", "microsoft", "office",
	"adobe", "acrobat", "distiller", "ghostscript", "quartz",
	"libreoffice", "openoffice", "latex", "pdflatex", "pdf",
	"canva", "pages", "print",
}

func looksLikeSoftware(v string) bool {
	lower := strings.ToLower(v)
	for _, marker := range softwareMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// pdfInfoFindings flags identifying document-info values. Author is
// flagged whenever present; the other fields only when they carry an
// email or a name shape and do not look like tool stamps.
func pdfInfoFindings(path string, info map[string]string) []Finding {
	var findings []Finding

	if author := strings.TrimSpace(info["Author"]); author != "" {
		findings = append(findings,
			newFinding(path, 0, KindMetadata, "PDF Author metadata", author, 75))
	}

	for _, field := range []string{"Title", "Creator", "Producer"} {
		v := strings.TrimSpace(info[field])
		if v == "" {
			continue
		}
		if m := pii.EmailPattern.FindString(v); m != "" {
			findings = append(findings,
				newFinding(path, 0, KindMetadata, "email address in PDF "+field+" metadata", m, 85))
			continue
		}
		if looksLikeSoftware(v) {
			continue
		}
		if m := personNameRe.FindString(v); m != "" {
			findings = append(findings,
				newFinding(path, 0, KindMetadata, "possible personal name in PDF "+field+" metadata", m, 55))
		}
	}
	return findings
}
