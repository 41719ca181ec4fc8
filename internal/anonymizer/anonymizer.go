// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package anonymizer replaces student and tutor identities with stable
// anonymous IDs and strips everything outside a fixed essential-column
// whitelist. ID generation happens before any removal so the codebook maps
// are complete even when the identity columns themselves get dropped.
package anonymizer

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
	"time"

	"studio-analytics/internal/dataset"
	"studio-analytics/internal/ingest"
	"studio-analytics/internal/pii"
)

// Identity column preference per role: the first present column wins.
var (
	studentIdentityColumns = []string{
		"Student SSO ID",
		"Student - Student ID",
		"Student ID",
		"Student Email",
		"Student - Email",
	}
	tutorIdentityColumns = []string{
		"Tutor SSO ID",
		"Tutor Email",
		"Tutor - Email the session receipt to",
		"Tutor Name",
	}
)

// essentialColumns is the analysis whitelist. Projection keeps exactly
// these (plus the anon ID columns); a new PII column that sneaks into an
// export is dropped by default instead of surviving by default.
var essentialColumns = []string{
	"Session_ID", "Status", "Document_Type", "Location",
	"Actual_Session_Length", "Attendance_Status", "Student_Feedback",
	"Course_Subject", "Pre_Confidence", "Is_First_Appointment",
	"Visit_Context", "Writing_Stage", "Focus_Area", "Paper_Due_Date",
	"Post_Confidence", "Tutor_Rapport", "Platform_Ease", "Session_Quality",
	"Overall_Satisfaction", "Tutor_Session_Rating",
	"Booking_DateTime", "Appointment_DateTime", "Actual_Start_DateTime",
	"Actual_End_DateTime", "Cancelled_DateTime",
	"Semester", "Academic_Year", "Semester_Label",
	"Duration_Minutes", "Check_In_DateTime", "Check_Out_DateTime",
	"Requested Length",
}

const (
	// StudentAnonColumn holds generated student IDs in the output frame.
	StudentAnonColumn = "Student_Anon_ID"
	// TutorAnonColumn holds generated tutor IDs in the output frame.
	TutorAnonColumn = "Tutor_Anon_ID"

	studentBuckets = 100000
	tutorBuckets   = 10000
)

// Options configures an anonymization run.
type Options struct {
	// Rules override the default PII detection rule set.
	Rules pii.RuleSet
	// ExtraColumns extends the essential whitelist.
	ExtraColumns []string
	// SessionType is recorded in the log and codebook metadata.
	SessionType string
}

// Log summarizes an anonymization run for audit output.
type Log struct {
	SessionType         string   `json:"session_type"`
	Rows                int      `json:"rows"`
	ColumnsBefore       int      `json:"columns_before"`
	ColumnsAfter        int      `json:"columns_after"`
	PIIColumnsRemoved   []string `json:"pii_columns_removed"`
	NonEssentialRemoved []string `json:"non_essential_removed"`
	StudentsAnonymized  int      `json:"students_anonymized"`
	TutorsAnonymized    int      `json:"tutors_anonymized"`
	StudentCollisions   int      `json:"student_collisions"`
	TutorCollisions     int      `json:"tutor_collisions"`
	TutorNote           string   `json:"tutor_note,omitempty"`
	DateRange           string   `json:"dataset_date_range,omitempty"`
	ValidationWarnings  []string `json:"validation_warnings,omitempty"`
	CreatedAt           string   `json:"created_at"`
}

// Result carries the anonymized frame, the reverse-lookup maps destined for
// the codebook, and the run log.
type Result struct {
	Frame    *dataset.Frame
	Students map[string]string // anon ID -> original identity
	Tutors   map[string]string
	Log      Log
}

// Anonymize runs the full pipeline over a cleaned frame. The input frame is
// never mutated. Rows with a null identity get a null anon ID.
func Anonymize(f *dataset.Frame, opts Options) (*Result, error) {
	if f.NumRows() == 0 {
		return nil, fmt.Errorf("cannot anonymize an empty dataset")
	}

	classifier := pii.NewClassifier(opts.Rules)
	detected := classifier.DetectPIIColumns(f)

	result := &Result{
		Students: make(map[string]string),
		Tutors:   make(map[string]string),
		Log: Log{
			SessionType:   opts.SessionType,
			Rows:          f.NumRows(),
			ColumnsBefore: f.NumCols(),
			DateRange:     datasetDateRange(f),
			CreatedAt:     time.Now().Format(time.RFC3339),
		},
	}

	work := f.Clone()

	// Step 1: generate IDs while identity columns still exist
	studentCol := firstPresent(work, studentIdentityColumns)
	if studentCol != "" {
		collisions := assignAnonIDs(work, studentCol, StudentAnonColumn, "STU_%05d", studentBuckets, result.Students)
		result.Log.StudentsAnonymized = len(result.Students)
		result.Log.StudentCollisions = collisions
	}

	tutorCol := firstPresent(work, tutorIdentityColumns)
	if tutorCol != "" && work.NonNullCount(tutorCol) > 0 {
		collisions := assignAnonIDs(work, tutorCol, TutorAnonColumn, "TUT_%04d", tutorBuckets, result.Tutors)
		result.Log.TutorsAnonymized = len(result.Tutors)
		result.Log.TutorCollisions = collisions
	} else {
		result.Log.TutorNote = "No tutor data found (expected for Check In sessions)"
	}

	// Step 2: project to the whitelist
	keep := append([]string{}, essentialColumns...)
	keep = append(keep, opts.ExtraColumns...)
	keep = append(keep, StudentAnonColumn, TutorAnonColumn)
	projected := work.Select(keep)

	kept := make(map[string]bool)
	for _, c := range projected.Columns() {
		kept[c] = true
	}
	piiSet := make(map[string]bool, len(detected))
	for _, c := range detected {
		piiSet[c] = true
	}
	for _, c := range work.Columns() {
		if kept[c] {
			continue
		}
		if piiSet[c] {
			result.Log.PIIColumnsRemoved = append(result.Log.PIIColumnsRemoved, c)
		} else {
			result.Log.NonEssentialRemoved = append(result.Log.NonEssentialRemoved, c)
		}
	}
	sort.Strings(result.Log.PIIColumnsRemoved)
	sort.Strings(result.Log.NonEssentialRemoved)

	// Step 3: validation pass over the surviving frame. Findings are
	// warnings only; the whitelist already did the enforcement.
	result.Log.ValidationWarnings = validateSurvivors(projected, classifier)

	result.Frame = projected
	result.Log.ColumnsAfter = projected.NumCols()
	return result, nil
}

// normalizeIdentity canonicalizes an identity before hashing so case and
// whitespace differences in exports map to the same person.
func normalizeIdentity(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// anonCode derives the bucketed numeric code for an identity.
func anonCode(identity string, buckets uint32) uint32 {
	sum := sha256.Sum256([]byte(identity))
	return binary.BigEndian.Uint32(sum[:4]) % buckets
}

// assignAnonIDs walks rows in order, assigning each distinct normalized
// identity a stable anon ID. True collisions (distinct identities, same
// code) get letter suffixes in first-seen order, so a given dataset always
// produces the same assignment.
func assignAnonIDs(f *dataset.Frame, identityCol, anonCol, format string, buckets uint32, book map[string]string) int {
	values, _ := f.Column(identityCol)

	assigned := make(map[string]string) // normalized identity -> anon ID
	used := make(map[string]bool)       // anon IDs taken so far
	collisions := 0

	out := make([]string, len(values))
	for i, raw := range values {
		if dataset.IsNull(raw) {
			continue
		}
		identity := normalizeIdentity(raw)
		if id, ok := assigned[identity]; ok {
			out[i] = id
			continue
		}

		id := fmt.Sprintf(format, anonCode(identity, buckets))
		if used[id] {
			collisions++
			id = suffixed(id, used)
		}

		assigned[identity] = id
		used[id] = true
		book[id] = identity
		out[i] = id
	}

	f.SetColumn(anonCol, out)
	return collisions
}

// suffixed finds the first free letter-suffixed variant of a colliding ID.
func suffixed(id string, used map[string]bool) string {
	for suffix := 'A'; ; suffix++ {
		candidate := fmt.Sprintf("%s_%c", id, suffix)
		if !used[candidate] {
			return candidate
		}
	}
}

func firstPresent(f *dataset.Frame, candidates []string) string {
	for _, c := range candidates {
		if f.HasColumn(c) {
			return c
		}
	}
	return ""
}

// datasetDateRange summarizes the covered dates for codebook metadata.
func datasetDateRange(f *dataset.Frame) string {
	for _, col := range []string{"Appointment_DateTime", "Requested At Date", "Check_In_DateTime", "Check In At Date"} {
		if !f.HasColumn(col) {
			continue
		}
		values, _ := f.Column(col)

		var minT, maxT time.Time
		found := false
		for _, v := range values {
			t, ok := ingest.ParseDateTime(v)
			if !ok {
				continue
			}
			if !found || t.Before(minT) {
				minT = t
			}
			if !found || t.After(maxT) {
				maxT = t
			}
			found = true
		}
		if !found {
			return "Unable to parse dates"
		}
		return fmt.Sprintf("%s to %s", minT.Format("2006-01-02"), maxT.Format("2006-01-02"))
	}
	return ""
}

// validateSurvivors re-checks the projected frame. '@' in cell values and
// PII-looking surviving column names are reported, never enforced: legit
// feedback text can quote an email address, and a supervisor should see
// that rather than lose the row.
func validateSurvivors(f *dataset.Frame, classifier *pii.Classifier) []string {
	var warnings []string

	for _, col := range f.Columns() {
		if col == StudentAnonColumn || col == TutorAnonColumn {
			continue
		}
		values, _ := f.Column(col)
		atCount := 0
		for _, v := range values {
			if strings.Contains(v, "@") {
				atCount++
			}
		}
		if atCount > 0 {
			warnings = append(warnings, fmt.Sprintf("column %q: %d surviving values contain '@'", col, atCount))
		}
	}

	for _, finding := range classifier.Detect(f) {
		if finding.Column == StudentAnonColumn || finding.Column == TutorAnonColumn {
			continue
		}
		warnings = append(warnings, fmt.Sprintf("column %q still classifies as PII (%s)", finding.Column, finding.Reason))
	}
	return warnings
}

// EssentialColumns returns a copy of the built-in whitelist, for reporting.
func EssentialColumns() []string {
	out := make([]string, len(essentialColumns))
	copy(out, essentialColumns)
	return out
}
