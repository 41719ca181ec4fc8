// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"errors"
	"testing"
	"time"

	"studio-analytics/internal/dataset"
)

func frameWithColumns(t *testing.T, cols []string, rows ...[]string) *dataset.Frame {
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

func TestDetectSessionType(t *testing.T) {
	tests := []struct {
		name string
		cols []string
		want string
	}{
		{
			"scheduled export",
			[]string{"Unique ID", "Appointment Type", "Requested Length", "Student Email"},
			SessionTypeScheduled,
		},
		{
			"walkin export",
			[]string{"Unique ID", "Duration Minutes", "Check In At Date", "Check In At Time"},
			SessionTypeWalkIn,
		},
		{
			"survey question counts as scheduled indicator",
			[]string{"Appointment Type", `Student - On a scale of 1-5 (1="very poorly", 5="very well"), how well would you say your your appointment went?`},
			SessionTypeScheduled,
		},
		{
			"ambiguous",
			[]string{"Unique ID", "Something Else"},
			SessionTypeUnknown,
		},
		{
			"single indicator is not enough",
			[]string{"Duration Minutes", "Unique ID"},
			SessionTypeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := frameWithColumns(t, tt.cols)
			if got := DetectSessionType(f); got != tt.want {
				t.Errorf("DetectSessionType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClean_UnknownTypeFailsFast(t *testing.T) {
	f := frameWithColumns(t, []string{"Mystery"})
	_, _, err := Clean(f, "auto")
	if !errors.Is(err, ErrUnknownSessionType) {
		t.Fatalf("expected ErrUnknownSessionType, got %v", err)
	}
}

func TestClean_ScheduledPipeline(t *testing.T) {
	f := frameWithColumns(t,
		[]string{"Unique ID", " Status ", "Appointment Type", "Requested Length",
			"Requested Start At Date", "Requested Start At Time", "Tutor Submitted Length",
			"Tutor - Overall, how well would you say that the consultation went?"},
		[]string{"abc123", "Completed", "40min 1-on-1", "40", "3/15/2025", "2:00 PM", "45", "It went very well"},
	)

	out, log, err := Clean(f, "auto")
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if log.Pipeline != SessionTypeScheduled {
		t.Errorf("pipeline = %q", log.Pipeline)
	}

	if !out.HasColumn("Session_ID") || !out.HasColumn("Actual_Session_Length") {
		t.Errorf("renames missing: %v", out.Columns())
	}
	if cell, _ := out.Cell(0, "Appointment_DateTime"); cell != "2025-03-15 14:00:00" {
		t.Errorf("Appointment_DateTime = %q", cell)
	}
	if cell, _ := out.Cell(0, "Tutor_Session_Rating"); cell != "4" {
		t.Errorf("Tutor_Session_Rating = %q, want 4", cell)
	}
	if cell, _ := out.Cell(0, "Semester_Label"); cell != "Spring 2025" {
		t.Errorf("Semester_Label = %q", cell)
	}

	// Input frame untouched
	if f.HasColumn("Session_ID") {
		t.Error("Clean mutated its input")
	}
}

func TestClean_WalkinPipeline(t *testing.T) {
	f := frameWithColumns(t,
		[]string{"Unique ID", "Duration Minutes", "Check In At Date", "Check In At Time"},
		[]string{"w1", "25", "10/2/2024", "11:30 AM"},
	)

	out, log, err := Clean(f, "auto")
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if log.Pipeline != SessionTypeWalkIn {
		t.Errorf("pipeline = %q", log.Pipeline)
	}
	if cell, _ := out.Cell(0, "Check_In_DateTime"); cell != "2024-10-02 11:30:00" {
		t.Errorf("Check_In_DateTime = %q", cell)
	}
	if !out.HasColumn("Duration_Minutes") {
		t.Errorf("walkin renames missing: %v", out.Columns())
	}
}

func TestConvertRatings_NumericPrefix(t *testing.T) {
	f := frameWithColumns(t, []string{"Overall_Satisfaction", "Pre_Confidence"},
		[]string{"7 - Extremely satisfied", "3"},
		[]string{"", "not a rating"},
	)

	ConvertRatings(f)

	if cell, _ := f.Cell(0, "Overall_Satisfaction"); cell != "7" {
		t.Errorf("extracted = %q, want 7", cell)
	}
	if cell, _ := f.Cell(0, "Pre_Confidence"); cell != "3" {
		t.Errorf("plain numeric changed: %q", cell)
	}
	if cell, _ := f.Cell(1, "Overall_Satisfaction"); cell != "" {
		t.Errorf("null stayed null, got %q", cell)
	}
}

func TestMergeDateTimes_NullWhenEitherHalfMissing(t *testing.T) {
	f := frameWithColumns(t,
		[]string{"Cancelled At Date", "Cancelled At Time"},
		[]string{"3/1/2025", ""},
		[]string{"", "4:00 PM"},
		[]string{"3/1/2025", "4:00 PM"},
	)

	mergeDateTimes(f, scheduledDateTimePairs)

	if cell, _ := f.Cell(0, "Cancelled_DateTime"); cell != "" {
		t.Errorf("row 0 = %q, want null", cell)
	}
	if cell, _ := f.Cell(1, "Cancelled_DateTime"); cell != "" {
		t.Errorf("row 1 = %q, want null", cell)
	}
	if cell, _ := f.Cell(2, "Cancelled_DateTime"); cell != "2025-03-01 16:00:00" {
		t.Errorf("row 2 = %q", cell)
	}
}

func TestSemesterHelpers(t *testing.T) {
	spring := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	summer := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	fall := time.Date(2024, 10, 5, 0, 0, 0, 0, time.UTC)

	if DetectSemester(spring) != "Spring" || DetectSemester(summer) != "Summer" || DetectSemester(fall) != "Fall" {
		t.Error("semester detection wrong")
	}
	if AcademicYear(fall) != "2024-2025" {
		t.Errorf("AcademicYear(fall) = %q", AcademicYear(fall))
	}
	if AcademicYear(spring) != "2024-2025" {
		t.Errorf("AcademicYear(spring) = %q", AcademicYear(spring))
	}
	if SemesterLabel(spring) != "Spring 2025" {
		t.Errorf("SemesterLabel = %q", SemesterLabel(spring))
	}
}
