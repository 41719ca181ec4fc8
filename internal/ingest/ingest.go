// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package ingest turns raw scheduling-platform CSV exports into cleaned
// frames ready for anonymization: trimmed headers, merged datetimes,
// analysis-friendly column names and numeric ratings.
package ingest

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"studio-analytics/internal/dataset"
)

// Session types produced by detection.
const (
	SessionTypeScheduled = "scheduled"
	SessionTypeWalkIn    = "walkin"
	SessionTypeUnknown   = "unknown"
)

// ErrUnknownSessionType is returned when auto-detection fails and no
// explicit mode was configured. Processing must not continue on a guess.
var ErrUnknownSessionType = fmt.Errorf("unable to detect session type; specify scheduled or walkin explicitly")

// CleanLog summarizes what a cleaning run did.
type CleanLog struct {
	Pipeline     string `json:"pipeline"`
	OriginalRows int    `json:"original_rows"`
	OriginalCols int    `json:"original_cols"`
	FinalRows    int    `json:"final_rows"`
	FinalCols    int    `json:"final_cols"`
	Renamed      int    `json:"renamed_columns"`
	MergedPairs  int    `json:"merged_datetime_pairs"`
}

var scheduledIndicators = []string{
	"Appointment Type",
	"Requested Length",
	"Student - On a scale of 1-5",
}

var walkinIndicators = []string{
	"Duration Minutes",
	"Check In At Date",
	"Check In At Time",
}

// DetectSessionType inspects column names to decide which export this is.
// Two or more indicator columns decide; scheduled wins ties.
func DetectSessionType(f *dataset.Frame) string {
	scheduledScore := 0
	for _, col := range scheduledIndicators {
		if frameHasColumnPrefix(f, col) {
			scheduledScore++
		}
	}
	walkinScore := 0
	for _, col := range walkinIndicators {
		if f.HasColumn(col) {
			walkinScore++
		}
	}

	switch {
	case scheduledScore >= 2:
		return SessionTypeScheduled
	case walkinScore >= 2:
		return SessionTypeWalkIn
	default:
		return SessionTypeUnknown
	}
}

// The survey columns carry the full question text, so indicator matching
// for them is prefix-based.
func frameHasColumnPrefix(f *dataset.Frame, prefix string) bool {
	if f.HasColumn(prefix) {
		return true
	}
	for _, c := range f.Columns() {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

// CleanColumnNames trims surrounding whitespace from every column name.
func CleanColumnNames(f *dataset.Frame) {
	for _, c := range f.Columns() {
		trimmed := strings.TrimSpace(c)
		if trimmed != c {
			// Collisions keep the original name rather than fail the run
			_ = f.RenameColumn(c, trimmed)
		}
	}
}

type datetimePair struct {
	dateCol, timeCol, merged string
}

var scheduledDateTimePairs = []datetimePair{
	{"Requested At Date", "Requested At Time", "Booking_DateTime"},
	{"Requested Start At Date", "Requested Start At Time", "Appointment_DateTime"},
	{"Started At Date", "Started At Time", "Actual_Start_DateTime"},
	{"Ended At Date", "Ended At Time", "Actual_End_DateTime"},
	{"Cancelled At Date", "Cancelled At Time", "Cancelled_DateTime"},
}

var walkinDateTimePairs = []datetimePair{
	{"Check In At Date", "Check In At Time", "Check_In_DateTime"},
	{"Check Out At Date", "Check Out At Time", "Check_Out_DateTime"},
}

// Accepted input layouts for the platform's date and time cells.
var dateLayouts = []string{
	"1/2/2006 3:04 PM",
	"1/2/2006 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 3:04 PM",
	"1/2/2006",
	"2006-01-02",
}

// DateTimeLayout is the canonical cell format for merged datetime columns.
const DateTimeLayout = "2006-01-02 15:04:05"

// ParseDateTime parses a merged datetime cell. Empty or unparseable cells
// yield a zero time and false.
func ParseDateTime(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if dataset.IsNull(v) {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	if t, err := time.Parse(DateTimeLayout, v); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// mergeDateTimes combines each (date, time) column pair into a single
// canonical datetime column. Either half missing yields a null cell.
func mergeDateTimes(f *dataset.Frame, pairs []datetimePair) int {
	merged := 0
	for _, p := range pairs {
		if !f.HasColumn(p.dateCol) || !f.HasColumn(p.timeCol) {
			continue
		}
		dates, _ := f.Column(p.dateCol)
		times, _ := f.Column(p.timeCol)

		out := make([]string, len(dates))
		for i := range dates {
			if dataset.IsNull(dates[i]) || dataset.IsNull(times[i]) {
				continue
			}
			combined := strings.TrimSpace(dates[i]) + " " + strings.TrimSpace(times[i])
			if t, ok := ParseDateTime(combined); ok {
				out[i] = t.Format(DateTimeLayout)
			}
		}
		f.SetColumn(p.merged, out)
		merged++
	}
	return merged
}

// renameMap maps raw export headers to analysis-friendly names. Only
// columns that exist get renamed.
var renameMap = map[string]string{
	// Core session info
	"Unique ID": "Session_ID",
	"Course":    "Document_Type",

	// Session length
	"Tutor Submitted Length": "Actual_Session_Length",

	// Attendance
	"Student Attendance":            "Attendance_Status",
	"Session Feedback From Student": "Student_Feedback",

	// Pre-session agenda
	`Agenda - For which course are you writing this document? (If not applicable, write "N/A")`:             "Course_Subject",
	`Agenda - How confident do you feel about your writing assignment right now? (1="Not at all"; 5="Very")`: "Pre_Confidence",
	"Agenda - Is this your first appointment?":                                                               "Is_First_Appointment",
	"Agenda - Please check one of the following boxes to help us determine the context of your visit.":      "Visit_Context",
	"Agenda - Roughly speaking, what stage of the writing process are you in right now?":                    "Writing_Stage",
	"Agenda - What would you like to focus on during this appointment?":                                     "Focus_Area",
	"Agenda - When is your paper due?":                                                                      "Paper_Due_Date",

	// Post-session student feedback
	`Student - How confident do you feel about your writing assignment now that your meeting is over? (1="Not at all"; 5="Very")`:                                          "Post_Confidence",
	`Student - On a scale of 1-5 (1="not at all," 5="extremely well"), how well did you get along with your tutor?`:                                                        "Tutor_Rapport",
	`Student - On a scale of 1-5 (1="not easy at all", 5="extremely easy"), how easy was it to use our website and scheduling software to schedule and attend your appointment?`: "Platform_Ease",
	`Student - On a scale of 1-5 (1="very poorly", 5="very well"), how well would you say your your appointment went?`:                                                     "Session_Quality",
	`Student - On a scale of 1-7 (1="extremely dissatisfied," 7="extremely satisfied"), how satisfied are you with the help you received at the Writing Studio?`:            "Overall_Satisfaction",

	// Tutor feedback
	"Tutor - Overall, how well would you say that the consultation went?": "Tutor_Session_Rating",
}

var walkinRenameMap = map[string]string{
	"Unique ID":        "Session_ID",
	"Duration Minutes": "Duration_Minutes",
}

// RenameColumns applies a rename map, returning how many columns changed.
func RenameColumns(f *dataset.Frame, renames map[string]string) int {
	n := 0
	for oldName, newName := range renames {
		if !f.HasColumn(oldName) {
			continue
		}
		if err := f.RenameColumn(oldName, newName); err == nil {
			n++
		}
	}
	return n
}

// Tutor rating text answers mapped to a 1-5 scale.
var tutorRatingMap = map[string]string{
	"it went extremely well":   "5",
	"it went very well":        "4",
	"it went moderately well":  "3",
	"it went somewhat well":    "2",
	"it didn't go well at all": "1",
}

var leadingIntPattern = regexp.MustCompile(`^(\d+)`)

// Student feedback cells arrive as "5 - Very well"; these columns get the
// leading integer extracted.
var numericPrefixColumns = []string{
	"Tutor_Rapport", "Platform_Ease", "Session_Quality", "Overall_Satisfaction",
	"Pre_Confidence", "Post_Confidence",
}

// ConvertRatings converts text ratings to numeric cells. Unmapped values
// become nulls, which downstream numeric parsing skips anyway.
func ConvertRatings(f *dataset.Frame) {
	if f.HasColumn("Tutor_Session_Rating") {
		vals, _ := f.Column("Tutor_Session_Rating")
		for i, v := range vals {
			if mapped, ok := tutorRatingMap[strings.ToLower(strings.TrimSpace(v))]; ok {
				vals[i] = mapped
			} else if !dataset.IsNull(v) {
				vals[i] = ""
			}
		}
		f.SetColumn("Tutor_Session_Rating", vals)
	}

	for _, col := range numericPrefixColumns {
		if !f.HasColumn(col) {
			continue
		}
		vals, _ := f.Column(col)
		changed := false
		for i, v := range vals {
			v = strings.TrimSpace(v)
			if dataset.IsNull(v) {
				continue
			}
			if m := leadingIntPattern.FindString(v); m != "" && m != v {
				vals[i] = m
				changed = true
			}
		}
		if changed {
			f.SetColumn(col, vals)
		}
	}
}

// DetectSemester returns Spring (Jan-May), Summer (Jun-Aug) or Fall (Sep-Dec).
func DetectSemester(t time.Time) string {
	switch {
	case t.Month() <= 5:
		return "Spring"
	case t.Month() <= 8:
		return "Summer"
	default:
		return "Fall"
	}
}

// AcademicYear returns the academic year string, Fall-anchored:
// Fall 2024, Spring 2025 and Summer 2025 are all "2024-2025".
func AcademicYear(t time.Time) string {
	if t.Month() >= 8 {
		return fmt.Sprintf("%d-%d", t.Year(), t.Year()+1)
	}
	return fmt.Sprintf("%d-%d", t.Year()-1, t.Year())
}

// SemesterLabel returns e.g. "Spring 2025".
func SemesterLabel(t time.Time) string {
	return fmt.Sprintf("%s %d", DetectSemester(t), t.Year())
}

// AddSemesterColumns derives Semester, Academic_Year and Semester_Label
// from the Appointment_DateTime column when present.
func AddSemesterColumns(f *dataset.Frame) {
	if !f.HasColumn("Appointment_DateTime") {
		return
	}
	vals, _ := f.Column("Appointment_DateTime")

	semesters := make([]string, len(vals))
	years := make([]string, len(vals))
	labels := make([]string, len(vals))
	for i, v := range vals {
		t, ok := ParseDateTime(v)
		if !ok {
			continue
		}
		semesters[i] = DetectSemester(t)
		years[i] = AcademicYear(t)
		labels[i] = SemesterLabel(t)
	}
	f.SetColumn("Semester", semesters)
	f.SetColumn("Academic_Year", years)
	f.SetColumn("Semester_Label", labels)
}

// Clean runs the full pipeline for the given mode ("auto" detects).
// The input frame is not mutated.
func Clean(f *dataset.Frame, mode string) (*dataset.Frame, *CleanLog, error) {
	sessionType := mode
	if mode == "" || mode == "auto" {
		sessionType = DetectSessionType(f)
	}

	switch sessionType {
	case SessionTypeScheduled:
		return cleanScheduled(f)
	case SessionTypeWalkIn:
		return cleanWalkin(f)
	default:
		return nil, nil, ErrUnknownSessionType
	}
}

func cleanScheduled(f *dataset.Frame) (*dataset.Frame, *CleanLog, error) {
	log := &CleanLog{
		Pipeline:     SessionTypeScheduled,
		OriginalRows: f.NumRows(),
		OriginalCols: f.NumCols(),
	}

	out := f.Clone()
	CleanColumnNames(out)
	log.MergedPairs = mergeDateTimes(out, scheduledDateTimePairs)
	log.Renamed = RenameColumns(out, renameMap)
	ConvertRatings(out)
	AddSemesterColumns(out)

	log.FinalRows = out.NumRows()
	log.FinalCols = out.NumCols()
	return out, log, nil
}

func cleanWalkin(f *dataset.Frame) (*dataset.Frame, *CleanLog, error) {
	log := &CleanLog{
		Pipeline:     SessionTypeWalkIn,
		OriginalRows: f.NumRows(),
		OriginalCols: f.NumCols(),
	}

	out := f.Clone()
	CleanColumnNames(out)
	log.MergedPairs = mergeDateTimes(out, walkinDateTimePairs)
	log.Renamed = RenameColumns(out, walkinRenameMap)

	log.FinalRows = out.NumRows()
	log.FinalCols = out.NumCols()
	return out, log, nil
}

// LoadCSV reads a CSV export into a frame.
func LoadCSV(path string) (*dataset.Frame, error) {
	return dataset.LoadCSV(path)
}
