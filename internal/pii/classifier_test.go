// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pii

import (
	"fmt"
	"testing"

	"studio-analytics/internal/dataset"
)

func frameOf(t *testing.T, cols []string, rows ...[]string) *dataset.Frame {
	t.Helper()
	f, err := dataset.NewFrame(cols)
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	for _, r := range rows {
		if err := f.AppendRow(r); err != nil {
			t.Fatalf("AppendRow: %v", err)
		}
	}
	return f
}

func TestDetect_KnownColumnsWithoutContent(t *testing.T) {
	// Known columns flag even when entirely null
	f := frameOf(t, []string{"Student Email", "Status"},
		[]string{"", "Completed"},
	)

	c := NewClassifier(DefaultRuleSet())
	got := c.DetectPIIColumns(f)
	if len(got) != 1 || got[0] != "Student Email" {
		t.Errorf("DetectPIIColumns = %v", got)
	}
}

func TestDetect_KeywordColumnNeedsContentConfirmation(t *testing.T) {
	// "Document_Name" hits the 'name' keyword but holds titles, not people
	f := frameOf(t, []string{"Document_Name"},
		[]string{"essay draft 1"},
		[]string{"lab report"},
		[]string{"thesis chapter"},
	)

	c := NewClassifier(DefaultRuleSet())
	if got := c.DetectPIIColumns(f); len(got) != 0 {
		t.Errorf("expected no findings, got %v", got)
	}
}

func TestDetect_SingleEmailFlagsColumn(t *testing.T) {
	f := frameOf(t, []string{"Contact Email Backup"},
		[]string{"note to self"},
		[]string{"reach me at maria.lopez@university.edu please"},
		[]string{"call office"},
	)

	c := NewClassifier(DefaultRuleSet())
	findings := c.Detect(f)
	if len(findings) != 1 {
		t.Fatalf("findings = %v", findings)
	}
	if findings[0].Reason != "content matches email pattern" {
		t.Errorf("reason = %q", findings[0].Reason)
	}
}

func TestDetect_NameShapeRatio(t *testing.T) {
	// "n/a" is null, so 2 of the 4 sampled values look like names: over the 30% threshold
	f := frameOf(t, []string{"Preferred Name"},
		[]string{"Jordan Smith"},
		[]string{"n/a"},
		[]string{"Alice Wong"},
		[]string{"team"},
		[]string{"tbd"},
	)

	c := NewClassifier(DefaultRuleSet())
	if got := c.DetectPIIColumns(f); len(got) != 1 {
		t.Errorf("expected name column flagged, got %v", got)
	}
}

func TestDetect_ShapeRatioBelowThreshold(t *testing.T) {
	// 1 of 4 SSO-shaped values: 25% < 50% threshold
	f := frameOf(t, []string{"sso note"},
		[]string{"abc1234"},
		[]string{"see front desk"},
		[]string{"ask supervisor"},
		[]string{"pending review x"},
	)

	c := NewClassifier(DefaultRuleSet())
	if got := c.DetectPIIColumns(f); len(got) != 0 {
		t.Errorf("expected no findings, got %v", got)
	}
}

func TestDetect_MostlyNullColumnSkipsInspection(t *testing.T) {
	// 19 of 20 null: above the 90% ceiling, content never inspected
	cols := []string{"emergency email"}
	f := frameOf(t, cols)
	f.AppendRow([]string{"real.person@university.edu"})
	for i := 0; i < 19; i++ {
		f.AppendRow([]string{""})
	}

	c := NewClassifier(DefaultRuleSet())
	if got := c.DetectPIIColumns(f); len(got) != 0 {
		t.Errorf("expected null-heavy column skipped, got %v", got)
	}
}

func TestDetect_NumericIDShape(t *testing.T) {
	f := frameOf(t, []string{"banner student id"},
		[]string{"90012345"},
		[]string{"90012346"},
		[]string{"90012347"},
	)

	c := NewClassifier(DefaultRuleSet())
	findings := c.Detect(f)
	if len(findings) != 1 {
		t.Fatalf("findings = %v", findings)
	}
	if findings[0].Reason != "3/3 values match numeric ID shape" {
		t.Errorf("reason = %q", findings[0].Reason)
	}
}

func TestDetect_SampleBounded(t *testing.T) {
	// Emails appear only beyond the sample window; detection must not see them
	f := frameOf(t, []string{"notes email"})
	for i := 0; i < 100; i++ {
		f.AppendRow([]string{fmt.Sprintf("routine note %d", i)})
	}
	for i := 0; i < 50; i++ {
		f.AppendRow([]string{"late.entry@university.edu"})
	}

	c := NewClassifier(DefaultRuleSet())
	if got := c.DetectPIIColumns(f); len(got) != 0 {
		t.Errorf("sample window not honored, got %v", got)
	}
}

func TestDetect_SortedAndDeduplicated(t *testing.T) {
	f := frameOf(t, []string{"Tutor Email", "Student Email"},
		[]string{"t@u.edu", "s@u.edu"},
	)

	c := NewClassifier(DefaultRuleSet())
	got := c.DetectPIIColumns(f)
	if len(got) != 2 || got[0] != "Student Email" || got[1] != "Tutor Email" {
		t.Errorf("expected sorted unique columns, got %v", got)
	}
}

func TestRuleSetMerge(t *testing.T) {
	base := DefaultRuleSet()
	merged := base.Merge(RuleSet{SampleSize: 10, Keywords: []string{"pager"}})

	if merged.SampleSize != 10 {
		t.Errorf("SampleSize = %d", merged.SampleSize)
	}
	if len(merged.Keywords) != 1 || merged.Keywords[0] != "pager" {
		t.Errorf("Keywords = %v", merged.Keywords)
	}
	// Untouched fields keep defaults
	if merged.ShapeRatio != base.ShapeRatio {
		t.Errorf("ShapeRatio = %v", merged.ShapeRatio)
	}
}
