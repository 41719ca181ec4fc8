// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"fmt"
	"strings"
)

// KeyMetrics is the condensed slice of a Report injected into chat
// prompts. PeakHour is -1 when no timestamp column parsed.
type KeyMetrics struct {
	SessionType        string
	TotalSessions      int
	DateRange          string
	UniqueStudents     int
	UniqueTutors       int
	CompletionRate     float64
	AvgDurationMinutes float64
	AvgSatisfaction    float64
	BusiestDay         string
	PeakHour           int
}

// Key extracts the headline numbers from a full report.
func (r *Report) Key() KeyMetrics {
	k := KeyMetrics{
		SessionType:    r.SessionType,
		TotalSessions:  r.Volume.TotalSessions,
		DateRange:      r.DateRange,
		UniqueStudents: r.Volume.UniqueStudents,
		UniqueTutors:   r.Volume.UniqueTutors,
		PeakHour:       -1,
	}
	if r.Attendance.Available {
		k.CompletionRate = r.Attendance.CompletionRate
	}
	if r.Duration.Available {
		k.AvgDurationMinutes = round1(r.Duration.Minutes.Mean)
	}
	if r.Satisfaction.Overall.Count > 0 {
		k.AvgSatisfaction = round2(r.Satisfaction.Overall.Mean)
	}
	if r.Peaks.Available {
		k.BusiestDay = r.Peaks.BusiestDay
		k.PeakHour = r.Peaks.PeakHour
	}
	return k
}

// PromptBlock renders the key metrics as the "KEY METRICS:" section of a
// chat prompt. Lines whose source data is missing are omitted rather
// than rendered as zeros, so the model never sees fabricated numbers.
func (r *Report) PromptBlock() string {
	k := r.Key()
	lines := []string{"KEY METRICS:", ""}
	add := func(key, value string) {
		lines = append(lines, fmt.Sprintf("  - %s: %s", key, value))
	}

	add("session_type", k.SessionType)
	add("total_sessions", groupThousands(k.TotalSessions))
	if k.DateRange != "" {
		add("date_range", k.DateRange)
	}
	if k.UniqueStudents > 0 {
		add("unique_students", groupThousands(k.UniqueStudents))
	}
	if k.UniqueTutors > 0 {
		add("unique_tutors", groupThousands(k.UniqueTutors))
	}
	if r.Attendance.Available {
		add("completion_rate_pct", fmt.Sprintf("%.1f", k.CompletionRate))
		add("no_show_rate_pct", fmt.Sprintf("%.1f", r.Attendance.NoShowRate))
	}
	if r.Duration.Available {
		add("avg_duration_minutes", fmt.Sprintf("%.1f", k.AvgDurationMinutes))
	}
	if r.Satisfaction.Overall.Count > 0 {
		add("avg_satisfaction", fmt.Sprintf("%.2f", k.AvgSatisfaction))
	}
	if k.BusiestDay != "" {
		add("busiest_day", k.BusiestDay)
	}
	if k.PeakHour >= 0 {
		add("peak_hour", fmt.Sprintf("%d", k.PeakHour))
	}
	return strings.Join(lines, "\n")
}
