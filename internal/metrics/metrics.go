// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package metrics computes session analytics over a cleaned, anonymized
// frame. Every category is an explicit typed record rather than a nested
// map, so downstream consumers (report formatters, the chat prompt
// builder) are statically checkable. A category whose source columns are
// missing reports Available=false and zero values.
package metrics

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"studio-analytics/internal/anonymizer"
	"studio-analytics/internal/dataset"
	"studio-analytics/internal/ingest"
)

// Stats is a basic numeric descriptor. Std is the sample deviation; the
// percentile fields use linear interpolation.
type Stats struct {
	Count  int
	Mean   float64
	Median float64
	Std    float64
	Min    float64
	Max    float64
	P25    float64
	P75    float64
	P90    float64
	P95    float64
}

// LabelCount pairs a label with an occurrence count.
type LabelCount struct {
	Label string
	Count int
}

// LabelRate pairs a label with a percentage.
type LabelRate struct {
	Label string
	Rate  float64
}

// LabelValue pairs a label with a numeric value.
type LabelValue struct {
	Label string
	Value float64
}

// BookingCategory is one lead-time bucket with its share of all sessions.
type BookingCategory struct {
	Label string
	Count int
	Pct   float64
}

// HourCount is a session count for one hour of day.
type HourCount struct {
	Hour  int
	Count int
}

// Volume covers dataset size and semester-over-semester movement.
type Volume struct {
	Available      bool
	TotalSessions  int
	UniqueStudents int
	UniqueTutors   int
	BySemester     []LabelCount
	GrowthRates    []LabelRate
}

// Booking covers how far ahead students book.
type Booking struct {
	Available    bool
	LeadTimeDays Stats
	Categories   []BookingCategory
}

// Peaks covers when sessions happen.
type Peaks struct {
	Available   bool
	ByDayOfWeek []LabelCount
	BusiestDay  string
	SlowestDay  string
	ByHour      []HourCount
	PeakHour    int
	SlowestHour int
}

// Locations covers where sessions happen. InHouse and Online pull the
// CORD and ZOOM location codes out of the full breakdown.
type Locations struct {
	Available    bool
	Breakdown    []LabelCount
	InHouseCount int
	InHousePct   float64
	OnlineCount  int
	OnlinePct    float64
}

// Attendance covers session outcomes.
type Attendance struct {
	Available        bool
	Total            int
	Completed        int
	NoShow           int
	Cancelled        int
	CompletionRate   float64
	NoShowRate       float64
	CancellationRate float64
	ShowUpRate       float64
	NoShowByDay      []LabelRate
}

// Duration covers session length in minutes.
type Duration struct {
	Available    bool
	Minutes      Stats
	Distribution []LabelCount
}

// ConfidenceChange summarizes paired pre/post confidence movement.
type ConfidenceChange struct {
	Available    bool
	Mean         float64
	Median       float64
	ImprovedPct  float64
	DeclinedPct  float64
	UnchangedPct float64
}

// SemesterTrend is a per-semester satisfaction reading.
type SemesterTrend struct {
	Semester string
	Mean     float64
	Count    int
}

// Satisfaction covers survey outcomes.
type Satisfaction struct {
	Available        bool
	PreConfidence    Stats
	PostConfidence   Stats
	Change           ConfidenceChange
	Overall          Stats
	Mode             float64
	Distribution     []LabelCount
	ResponseRate     float64
	TrendsBySemester []SemesterTrend
}

// Tutors covers workload spread across tutors.
type Tutors struct {
	Available         bool
	TotalTutors       int
	SessionsPerTutor  Stats
	TopBySessions     []LabelCount
	HoursPerTutor     Stats
	TopByHours        []LabelValue
	CV                float64
	BalanceAssessment string
}

// Students covers engagement and retention.
type Students struct {
	Available          bool
	TotalStudents      int
	SessionsPerStudent Stats
	PowerUsers         []LabelCount
	FirstTimeCount     int
	RepeatCount        int
	FirstTimePct       float64
	RepeatPct          float64
}

// Report is the full typed metrics payload for one dataset.
type Report struct {
	SessionType  string
	DateRange    string
	Volume       Volume
	Booking      Booking
	Peaks        Peaks
	Locations    Locations
	Attendance   Attendance
	Duration     Duration
	Satisfaction Satisfaction
	Tutors       Tutors
	Students     Students
}

// Compute derives all metric categories from a cleaned frame.
func Compute(f *dataset.Frame, sessionType string) *Report {
	return &Report{
		SessionType:  sessionType,
		DateRange:    dateRange(f),
		Volume:       computeVolume(f),
		Booking:      computeBooking(f),
		Peaks:        computePeaks(f),
		Locations:    computeLocations(f),
		Attendance:   computeAttendance(f),
		Duration:     computeDuration(f),
		Satisfaction: computeSatisfaction(f),
		Tutors:       computeTutors(f),
		Students:     computeStudents(f),
	}
}

// Describe computes the standard descriptor over a value slice.
func Describe(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean := 0.0
	for _, v := range sorted {
		mean += v
	}
	mean /= float64(len(sorted))

	std := 0.0
	if len(sorted) > 1 {
		ss := 0.0
		for _, v := range sorted {
			ss += (v - mean) * (v - mean)
		}
		std = math.Sqrt(ss / float64(len(sorted)-1))
	}

	return Stats{
		Count:  len(sorted),
		Mean:   mean,
		Median: quantile(sorted, 0.5),
		Std:    std,
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		P25:    quantile(sorted, 0.25),
		P75:    quantile(sorted, 0.75),
		P90:    quantile(sorted, 0.90),
		P95:    quantile(sorted, 0.95),
	}
}

// quantile interpolates linearly over an already-sorted slice.
func quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	if lower >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lower)
	return sorted[lower] + frac*(sorted[lower+1]-sorted[lower])
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }

func pct(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return round1(float64(part) / float64(whole) * 100)
}

// dateColumn picks the datetime column that anchors time-based metrics.
func dateColumn(f *dataset.Frame) string {
	for _, col := range []string{"Appointment_DateTime", "Check_In_DateTime"} {
		if f.HasColumn(col) {
			return col
		}
	}
	return ""
}

// dateRange renders the covered months, e.g. "January 2025 to May 2025".
func dateRange(f *dataset.Frame) string {
	col := dateColumn(f)
	if col == "" {
		return ""
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
		return ""
	}
	return minT.Format("January 2006") + " to " + maxT.Format("January 2006")
}

func computeVolume(f *dataset.Frame) Volume {
	v := Volume{Available: f.NumRows() > 0, TotalSessions: f.NumRows()}
	if f.HasColumn(anonymizer.StudentAnonColumn) {
		v.UniqueStudents = len(f.UniqueNonNull(anonymizer.StudentAnonColumn))
	}
	if f.HasColumn(anonymizer.TutorAnonColumn) {
		v.UniqueTutors = len(f.UniqueNonNull(anonymizer.TutorAnonColumn))
	}

	if f.HasColumn("Semester_Label") {
		values, _ := f.Column("Semester_Label")
		tally := map[string]int{}
		for _, s := range values {
			if dataset.IsNull(s) {
				continue
			}
			tally[strings.TrimSpace(s)]++
		}
		labels := make([]string, 0, len(tally))
		for label := range tally {
			labels = append(labels, label)
		}
		sortSemesterLabels(labels)
		for _, label := range labels {
			v.BySemester = append(v.BySemester, LabelCount{Label: label, Count: tally[label]})
		}
		for i := 1; i < len(v.BySemester); i++ {
			prev, curr := v.BySemester[i-1].Count, v.BySemester[i].Count
			if prev == 0 {
				continue
			}
			growth := round1(float64(curr-prev) / float64(prev) * 100)
			v.GrowthRates = append(v.GrowthRates, LabelRate{Label: v.BySemester[i].Label, Rate: growth})
		}
	}
	return v
}

// sortSemesterLabels orders "Season Year" labels chronologically.
func sortSemesterLabels(labels []string) {
	rank := func(label string) (int, int) {
		parts := strings.Fields(label)
		if len(parts) != 2 {
			return 1 << 30, 0
		}
		year := 0
		for _, c := range parts[1] {
			if c < '0' || c > '9' {
				return 1 << 30, 0
			}
			year = year*10 + int(c-'0')
		}
		season := map[string]int{"Spring": 1, "Summer": 2, "Fall": 3}[parts[0]]
		if season == 0 {
			return 1 << 30, 0
		}
		return year, season
	}
	sort.SliceStable(labels, func(i, j int) bool {
		yi, si := rank(labels[i])
		yj, sj := rank(labels[j])
		if yi != yj {
			return yi < yj
		}
		if si != sj {
			return si < sj
		}
		return labels[i] < labels[j]
	})
}

func computeBooking(f *dataset.Frame) Booking {
	if !f.HasColumn("Booking_DateTime") || dateColumn(f) == "" {
		return Booking{}
	}
	booked, _ := f.Column("Booking_DateTime")
	scheduled, _ := f.Column(dateColumn(f))

	var leadDays []float64
	unknown := 0
	tally := map[string]int{}
	for i := range booked {
		b, okB := ingest.ParseDateTime(booked[i])
		s, okS := ingest.ParseDateTime(scheduled[i])
		if !okB || !okS {
			unknown++
			continue
		}
		days := s.Sub(b).Hours() / 24
		leadDays = append(leadDays, days)
		tally[leadTimeCategory(days)]++
	}
	if len(leadDays) == 0 {
		return Booking{}
	}

	b := Booking{Available: true, LeadTimeDays: Describe(leadDays)}
	order := []string{"Same Day", "1 Day Ahead", "2-3 Days Ahead", "4-7 Days Ahead", "7+ days ahead"}
	total := f.NumRows()
	for _, label := range order {
		if n := tally[label]; n > 0 {
			b.Categories = append(b.Categories, BookingCategory{Label: label, Count: n, Pct: pct(n, total)})
		}
	}
	if unknown > 0 {
		b.Categories = append(b.Categories, BookingCategory{Label: "Unknown", Count: unknown, Pct: pct(unknown, total)})
	}
	return b
}

func leadTimeCategory(days float64) string {
	switch {
	case days < 1:
		return "Same Day"
	case days < 2:
		return "1 Day Ahead"
	case days < 4:
		return "2-3 Days Ahead"
	case days < 8:
		return "4-7 Days Ahead"
	default:
		return "7+ days ahead"
	}
}

var weekdayOrder = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

func computePeaks(f *dataset.Frame) Peaks {
	col := dateColumn(f)
	if col == "" {
		return Peaks{}
	}
	values, _ := f.Column(col)

	dayTally := map[string]int{}
	hourTally := map[int]int{}
	parsed := 0
	for _, v := range values {
		t, ok := ingest.ParseDateTime(v)
		if !ok {
			continue
		}
		parsed++
		dayTally[t.Weekday().String()]++
		hourTally[t.Hour()]++
	}
	if parsed == 0 {
		return Peaks{}
	}

	p := Peaks{Available: true, PeakHour: -1, SlowestHour: -1}
	for _, day := range weekdayOrder {
		p.ByDayOfWeek = append(p.ByDayOfWeek, LabelCount{Label: day, Count: dayTally[day]})
	}
	// Ties go to the earliest weekday.
	best, worst := -1, math.MaxInt
	for _, lc := range p.ByDayOfWeek {
		if lc.Count > best {
			best = lc.Count
			p.BusiestDay = lc.Label
		}
		if lc.Count < worst {
			worst = lc.Count
			p.SlowestDay = lc.Label
		}
	}

	hours := make([]int, 0, len(hourTally))
	for h := range hourTally {
		hours = append(hours, h)
	}
	sort.Ints(hours)
	bestH, worstH := -1, math.MaxInt
	for _, h := range hours {
		n := hourTally[h]
		p.ByHour = append(p.ByHour, HourCount{Hour: h, Count: n})
		if n > bestH {
			bestH = n
			p.PeakHour = h
		}
		if n < worstH {
			worstH = n
			p.SlowestHour = h
		}
	}
	return p
}

func computeLocations(f *dataset.Frame) Locations {
	if !f.HasColumn("Location") || f.NumRows() == 0 {
		return Locations{}
	}
	values, _ := f.Column("Location")
	tally := map[string]int{}
	for _, v := range values {
		if dataset.IsNull(v) {
			continue
		}
		tally[strings.TrimSpace(v)]++
	}
	if len(tally) == 0 {
		return Locations{}
	}

	total := f.NumRows()
	l := Locations{
		Available:    true,
		Breakdown:    topCounts(tally, len(tally)),
		InHouseCount: tally["CORD"],
		InHousePct:   pct(tally["CORD"], total),
		OnlineCount:  tally["ZOOM"],
		OnlinePct:    pct(tally["ZOOM"], total),
	}
	return l
}

func computeAttendance(f *dataset.Frame) Attendance {
	if !f.HasColumn("Attendance_Status") || !f.HasColumn("Status") {
		return Attendance{}
	}
	attendance, _ := f.Column("Attendance_Status")
	status, _ := f.Column("Status")

	a := Attendance{Available: true, Total: f.NumRows()}
	for i := range attendance {
		lower := strings.ToLower(attendance[i])
		if strings.Contains(lower, "present") {
			a.Completed++
		}
		if strings.Contains(lower, "absent") {
			a.NoShow++
		}
		if strings.Contains(strings.ToLower(status[i]), "cancel") {
			a.Cancelled++
		}
	}
	a.CompletionRate = pct(a.Completed, a.Total)
	a.NoShowRate = pct(a.NoShow, a.Total)
	a.CancellationRate = pct(a.Cancelled, a.Total)
	if showable := a.Total - a.Cancelled; showable > 0 {
		a.ShowUpRate = pct(a.Completed, showable)
	}

	if col := dateColumn(f); col != "" {
		dates, _ := f.Column(col)
		dayTotal := map[string]int{}
		dayNoShow := map[string]int{}
		for i := range dates {
			t, ok := ingest.ParseDateTime(dates[i])
			if !ok {
				continue
			}
			day := t.Weekday().String()
			dayTotal[day]++
			if strings.Contains(strings.ToLower(attendance[i]), "absent") {
				dayNoShow[day]++
			}
		}
		for _, day := range weekdayOrder[:5] {
			if dayTotal[day] == 0 {
				continue
			}
			a.NoShowByDay = append(a.NoShowByDay, LabelRate{Label: day, Rate: pct(dayNoShow[day], dayTotal[day])})
		}
	}
	return a
}

// computeDuration reads Actual_Session_Length (hours) for scheduled data
// and Duration_Minutes (minutes) for walk-in data.
func computeDuration(f *dataset.Frame) Duration {
	var minutes []float64
	nulls := 0
	switch {
	case f.HasColumn("Actual_Session_Length"):
		for _, h := range f.Floats("Actual_Session_Length") {
			minutes = append(minutes, h*60)
		}
		nulls = f.NumRows() - f.NonNullCount("Actual_Session_Length")
	case f.HasColumn("Duration_Minutes"):
		minutes = f.Floats("Duration_Minutes")
		nulls = f.NumRows() - f.NonNullCount("Duration_Minutes")
	default:
		return Duration{}
	}
	if len(minutes) == 0 {
		return Duration{}
	}

	d := Duration{Available: true, Minutes: Describe(minutes)}

	tally := map[string]int{}
	for _, m := range minutes {
		tally[durationBucket(m)]++
	}
	if nulls > 0 {
		tally["Unknown"] = nulls
	}
	labels := make([]string, 0, len(tally))
	for label := range tally {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if tally[labels[i]] != tally[labels[j]] {
			return tally[labels[i]] > tally[labels[j]]
		}
		return labels[i] < labels[j]
	})
	for _, label := range labels {
		d.Distribution = append(d.Distribution, LabelCount{Label: label, Count: tally[label]})
	}
	return d
}

func durationBucket(minutes float64) string {
	switch {
	case minutes < 20:
		return "<20 min"
	case minutes < 35:
		return "20-35 min"
	case minutes < 45:
		return "35-45 min (standard)"
	case minutes < 60:
		return "45-60 min"
	default:
		return "60+ min"
	}
}

func computeSatisfaction(f *dataset.Frame) Satisfaction {
	s := Satisfaction{}

	if f.HasColumn("Pre_Confidence") && f.HasColumn("Post_Confidence") {
		s.PreConfidence = Describe(f.Floats("Pre_Confidence"))
		s.PostConfidence = Describe(f.Floats("Post_Confidence"))
		s.Change = confidenceChange(f)
		s.Available = s.PreConfidence.Count > 0 || s.PostConfidence.Count > 0
	}

	if f.HasColumn("Overall_Satisfaction") {
		ratings := f.Floats("Overall_Satisfaction")
		if len(ratings) > 0 {
			s.Available = true
			s.Overall = Describe(ratings)
			s.ResponseRate = pct(len(ratings), f.NumRows())

			tally := map[float64]int{}
			for _, r := range ratings {
				tally[r]++
			}
			values := make([]float64, 0, len(tally))
			for v := range tally {
				values = append(values, v)
			}
			sort.Float64s(values)
			mode, modeCount := 0.0, -1
			for _, v := range values {
				s.Distribution = append(s.Distribution, LabelCount{
					Label: trimFloat(v),
					Count: tally[v],
				})
				if tally[v] > modeCount {
					mode, modeCount = v, tally[v]
				}
			}
			s.Mode = mode
		}
	}

	if f.HasColumn("Semester_Label") && f.HasColumn("Overall_Satisfaction") {
		semesters, _ := f.Column("Semester_Label")
		ratings, _ := f.Column("Overall_Satisfaction")
		perSemester := map[string][]float64{}
		for i := range semesters {
			label := strings.TrimSpace(semesters[i])
			if dataset.IsNull(label) {
				continue
			}
			if v, ok := parseFloatCell(ratings[i]); ok {
				perSemester[label] = append(perSemester[label], v)
			}
		}
		labels := make([]string, 0, len(perSemester))
		for label := range perSemester {
			labels = append(labels, label)
		}
		sortSemesterLabels(labels)
		for _, label := range labels {
			vals := perSemester[label]
			s.TrendsBySemester = append(s.TrendsBySemester, SemesterTrend{
				Semester: label,
				Mean:     round2(meanOf(vals)),
				Count:    len(vals),
			})
		}
	}
	return s
}

func confidenceChange(f *dataset.Frame) ConfidenceChange {
	pre, _ := f.Column("Pre_Confidence")
	post, _ := f.Column("Post_Confidence")

	var changes []float64
	improved, declined, unchanged := 0, 0, 0
	for i := range pre {
		p, okP := parseFloatCell(pre[i])
		q, okQ := parseFloatCell(post[i])
		if !okP || !okQ {
			continue
		}
		delta := q - p
		changes = append(changes, delta)
		switch {
		case delta > 0:
			improved++
		case delta < 0:
			declined++
		default:
			unchanged++
		}
	}
	if len(changes) == 0 {
		return ConfidenceChange{}
	}
	sorted := make([]float64, len(changes))
	copy(sorted, changes)
	sort.Float64s(sorted)
	return ConfidenceChange{
		Available:    true,
		Mean:         round2(meanOf(changes)),
		Median:       round2(quantile(sorted, 0.5)),
		ImprovedPct:  pct(improved, len(changes)),
		DeclinedPct:  pct(declined, len(changes)),
		UnchangedPct: pct(unchanged, len(changes)),
	}
}

func computeTutors(f *dataset.Frame) Tutors {
	if !f.HasColumn(anonymizer.TutorAnonColumn) {
		return Tutors{}
	}
	ids, _ := f.Column(anonymizer.TutorAnonColumn)
	perTutor := map[string]int{}
	for _, id := range ids {
		if dataset.IsNull(id) {
			continue
		}
		perTutor[id]++
	}
	if len(perTutor) == 0 {
		return Tutors{}
	}

	t := Tutors{Available: true, TotalTutors: len(perTutor)}
	counts := make([]float64, 0, len(perTutor))
	for _, n := range perTutor {
		counts = append(counts, float64(n))
	}
	t.SessionsPerTutor = Describe(counts)
	t.TopBySessions = topCounts(perTutor, 10)

	if f.HasColumn("Actual_Session_Length") {
		lengths, _ := f.Column("Actual_Session_Length")
		hours := map[string]float64{}
		for i, id := range ids {
			if dataset.IsNull(id) {
				continue
			}
			if v, ok := parseFloatCell(lengths[i]); ok {
				hours[id] += v
			}
		}
		if len(hours) > 0 {
			values := make([]float64, 0, len(hours))
			for _, h := range hours {
				values = append(values, h)
			}
			t.HoursPerTutor = Describe(values)
			t.TopByHours = topValues(hours, 10)
		}
	}

	if t.SessionsPerTutor.Mean > 0 {
		t.CV = round1(t.SessionsPerTutor.Std / t.SessionsPerTutor.Mean * 100)
	}
	switch {
	case t.CV < 30:
		t.BalanceAssessment = "balanced"
	case t.CV < 50:
		t.BalanceAssessment = "moderately unbalanced"
	default:
		t.BalanceAssessment = "highly unbalanced"
	}
	return t
}

func computeStudents(f *dataset.Frame) Students {
	if !f.HasColumn(anonymizer.StudentAnonColumn) {
		return Students{}
	}
	ids, _ := f.Column(anonymizer.StudentAnonColumn)
	perStudent := map[string]int{}
	for _, id := range ids {
		if dataset.IsNull(id) {
			continue
		}
		perStudent[id]++
	}
	if len(perStudent) == 0 {
		return Students{}
	}

	s := Students{Available: true, TotalStudents: len(perStudent)}
	counts := make([]float64, 0, len(perStudent))
	for _, n := range perStudent {
		counts = append(counts, float64(n))
	}
	s.SessionsPerStudent = Describe(counts)
	s.PowerUsers = topCounts(perStudent, 5)

	if f.HasColumn("Is_First_Appointment") {
		answers, _ := f.Column("Is_First_Appointment")
		for _, a := range answers {
			switch strings.ToLower(strings.TrimSpace(a)) {
			case "yes", "true", "1":
				s.FirstTimeCount++
			case "no", "false", "0":
				s.RepeatCount++
			}
		}
		answered := s.FirstTimeCount + s.RepeatCount
		s.FirstTimePct = pct(s.FirstTimeCount, answered)
		s.RepeatPct = pct(s.RepeatCount, answered)
	}
	return s
}

// topCounts returns the n highest counts, ties broken by label so output
// is reproducible.
func topCounts(tally map[string]int, n int) []LabelCount {
	out := make([]LabelCount, 0, len(tally))
	for label, count := range tally {
		out = append(out, LabelCount{Label: label, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func topValues(tally map[string]float64, n int) []LabelValue {
	out := make([]LabelValue, 0, len(tally))
	for label, v := range tally {
		out = append(out, LabelValue{Label: label, Value: round1(v)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Label < out[j].Label
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func parseFloatCell(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	if dataset.IsNull(v) {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
