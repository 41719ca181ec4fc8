// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"path/filepath"
	"strings"
	"testing"
)

func buildFrame(t *testing.T, cols []string, rows ...[]string) *Frame {
	t.Helper()
	f, err := NewFrame(cols)
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

func TestNewFrame_RejectsDuplicateColumns(t *testing.T) {
	if _, err := NewFrame([]string{"A", "B", "A"}); err == nil {
		t.Fatal("expected error for duplicate column")
	}
}

func TestAppendRow_PadsShortRows(t *testing.T) {
	f := buildFrame(t, []string{"A", "B", "C"})
	if err := f.AppendRow([]string{"1"}); err != nil {
		t.Fatalf("AppendRow: %v", err)
	}
	if got, _ := f.Cell(0, "C"); got != "" {
		t.Errorf("padded cell = %q, want empty", got)
	}
	if err := f.AppendRow([]string{"1", "2", "3", "4"}); err == nil {
		t.Error("expected error for over-long row")
	}
}

func TestIsNull(t *testing.T) {
	for _, v := range []string{"", "  ", "NA", "n/a", "NaN", "null", "None"} {
		if !IsNull(v) {
			t.Errorf("IsNull(%q) = false, want true", v)
		}
	}
	for _, v := range []string{"0", "no", "attended", " x "} {
		if IsNull(v) {
			t.Errorf("IsNull(%q) = true, want false", v)
		}
	}
}

func TestSelect_PreservesFrameOrder(t *testing.T) {
	f := buildFrame(t, []string{"A", "B", "C"}, []string{"1", "2", "3"})
	got := f.Select([]string{"C", "A", "Missing"})

	want := []string{"A", "C"}
	if strings.Join(got.Columns(), ",") != strings.Join(want, ",") {
		t.Errorf("Select columns = %v, want %v", got.Columns(), want)
	}
	if cell, _ := got.Cell(0, "C"); cell != "3" {
		t.Errorf("Select cell = %q, want 3", cell)
	}
}

func TestClone_IsDeep(t *testing.T) {
	f := buildFrame(t, []string{"A"}, []string{"original"})
	c := f.Clone()
	f.SetColumn("A", []string{"mutated"})

	if cell, _ := c.Cell(0, "A"); cell != "original" {
		t.Errorf("clone saw mutation: %q", cell)
	}
}

func TestSetColumn_AddsNewColumn(t *testing.T) {
	f := buildFrame(t, []string{"A"}, []string{"1"}, []string{"2"})
	if err := f.SetColumn("B", []string{"x", "y"}); err != nil {
		t.Fatalf("SetColumn: %v", err)
	}
	if cell, _ := f.Cell(1, "B"); cell != "y" {
		t.Errorf("new column cell = %q", cell)
	}
	if err := f.SetColumn("C", []string{"only-one"}); err == nil {
		t.Error("expected length mismatch error")
	}
}

func TestRenameColumn(t *testing.T) {
	f := buildFrame(t, []string{"Unique ID", "Status"}, []string{"s1", "Completed"})
	if err := f.RenameColumn("Unique ID", "Session_ID"); err != nil {
		t.Fatalf("RenameColumn: %v", err)
	}
	if !f.HasColumn("Session_ID") || f.HasColumn("Unique ID") {
		t.Errorf("rename not applied: %v", f.Columns())
	}
	if err := f.RenameColumn("Session_ID", "Status"); err == nil {
		t.Error("expected collision error")
	}
	if err := f.RenameColumn("Not There", "X"); err != nil {
		t.Errorf("missing column rename should be a no-op, got %v", err)
	}
}

func TestNullRatioAndSample(t *testing.T) {
	f := buildFrame(t, []string{"Email"},
		[]string{"a@x.edu"}, []string{""}, []string{"b@x.edu"}, []string{"NA"})

	if got := f.NullRatio("Email"); got != 0.5 {
		t.Errorf("NullRatio = %v, want 0.5", got)
	}
	sample := f.SampleNonNull("Email", 10)
	if len(sample) != 2 || sample[0] != "a@x.edu" {
		t.Errorf("SampleNonNull = %v", sample)
	}
	if got := f.NullRatio("Missing"); got != 1.0 {
		t.Errorf("NullRatio(missing col) = %v, want 1.0", got)
	}
}

func TestFloats_SkipsUnparseable(t *testing.T) {
	f := buildFrame(t, []string{"Length"},
		[]string{"40"}, []string{"junk"}, []string{""}, []string{"55.5"})

	got := f.Floats("Length")
	if len(got) != 2 || got[0] != 40 || got[1] != 55.5 {
		t.Errorf("Floats = %v", got)
	}
}

func TestUniqueNonNull(t *testing.T) {
	f := buildFrame(t, []string{"Loc"},
		[]string{"Library"}, []string{"Online"}, []string{"Library"}, []string{""})

	got := f.UniqueNonNull("Loc")
	if len(got) != 2 || got[0] != "Library" || got[1] != "Online" {
		t.Errorf("UniqueNonNull = %v", got)
	}
}

func TestReadCSV_BOMAndRaggedRows(t *testing.T) {
	raw := "\xEF\xBB\xBFName,Count\nalpha,1\nbeta\n"
	f, err := ReadCSV(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if f.Columns()[0] != "Name" {
		t.Errorf("BOM not stripped: %q", f.Columns()[0])
	}
	if f.NumRows() != 2 {
		t.Fatalf("NumRows = %d", f.NumRows())
	}
	if cell, _ := f.Cell(1, "Count"); cell != "" {
		t.Errorf("ragged row not padded: %q", cell)
	}
}

func TestReadCSV_Empty(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("")); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestCSVRoundTrip(t *testing.T) {
	f := buildFrame(t, []string{"A", "B"}, []string{"1", "two, with comma"})
	path := filepath.Join(t.TempDir(), "frame.csv")
	if err := f.SaveCSV(path); err != nil {
		t.Fatalf("SaveCSV: %v", err)
	}

	back, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if cell, _ := back.Cell(0, "B"); cell != "two, with comma" {
		t.Errorf("round trip cell = %q", cell)
	}
}
